package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ru2chhw/confbot/internal/model"
)

const testToken = "123:secret"

// fakeAPI records calls and answers with canned results per method.
type fakeAPI struct {
	t *testing.T

	mu      sync.Mutex
	calls   []string
	bodies  map[string][]map[string]any
	results map[string]any
	errors  map[string]apiResponse
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	f := &fakeAPI{
		t:       t,
		bodies:  map[string][]map[string]any{},
		results: map[string]any{},
		errors:  map[string]apiResponse{},
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, NewClient(srv.URL, testToken, WithTimeout(5*time.Second))
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	prefix := "/bot" + testToken + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	method := strings.TrimPrefix(r.URL.Path, prefix)

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.calls = append(f.calls, method)
	f.bodies[method] = append(f.bodies[method], body)
	result, hasResult := f.results[method]
	apiErr, hasErr := f.errors[method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if hasErr {
		w.WriteHeader(apiErr.ErrorCode)
		json.NewEncoder(w).Encode(apiErr)
		return
	}
	if !hasResult {
		result = true
	}
	raw, _ := json.Marshal(result)
	json.NewEncoder(w).Encode(apiResponse{OK: true, Result: raw})
}

func (f *fakeAPI) lastBody(method string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bodies[method]
	require.NotEmpty(f.t, b, "no call to %s", method)
	return b[len(b)-1]
}

func TestClient_GetMe(t *testing.T) {
	f, c := newFakeAPI(t)
	f.results["getMe"] = User{ID: 42, IsBot: true, Username: "hwbot"}

	me, err := c.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hwbot", me.Username)
	assert.Equal(t, int64(42), me.ID)
}

func TestClient_SendMessage(t *testing.T) {
	f, c := newFakeAPI(t)
	f.results["sendMessage"] = Message{MessageID: 77, Chat: Chat{ID: -100}}

	sent, err := c.SendMessage(context.Background(), -100, "*alice*:\nryzen", model.SendOptions{
		ParseMode:             model.ParseModeMarkdown,
		DisableWebPagePreview: true,
		DisableNotification:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SentMessage{ChatID: -100, MessageID: 77}, sent)

	body := f.lastBody("sendMessage")
	assert.Equal(t, float64(-100), body["chat_id"])
	assert.Equal(t, "*alice*:\nryzen", body["text"])
	assert.Equal(t, "Markdown", body["parse_mode"])
	assert.Equal(t, true, body["disable_web_page_preview"])
	assert.Equal(t, true, body["disable_notification"])
}

func TestClient_SendMessagePlainOmitsOptions(t *testing.T) {
	f, c := newFakeAPI(t)
	f.results["sendMessage"] = Message{MessageID: 1, Chat: Chat{ID: 5}}

	_, err := c.SendMessage(context.Background(), 5, "OK!", model.SendOptions{})
	require.NoError(t, err)

	body := f.lastBody("sendMessage")
	assert.NotContains(t, body, "parse_mode")
	assert.NotContains(t, body, "disable_notification")
}

func TestClient_DeleteMessage(t *testing.T) {
	f, c := newFakeAPI(t)

	require.NoError(t, c.DeleteMessage(context.Background(), 5, 9))
	body := f.lastBody("deleteMessage")
	assert.Equal(t, float64(5), body["chat_id"])
	assert.Equal(t, float64(9), body["message_id"])
}

func TestClient_GetChatAdministrators(t *testing.T) {
	f, c := newFakeAPI(t)
	f.results["getChatAdministrators"] = []ChatMember{
		{User: User{ID: 1, Username: "owner"}, Status: "creator"},
		{User: User{ID: 2}, Status: "administrator"},
	}

	admins, err := c.GetChatAdministrators(context.Background(), -100)
	require.NoError(t, err)
	assert.Equal(t, []model.User{{ID: 1, Username: "owner"}, {ID: 2}}, admins)
}

func TestClient_APIError(t *testing.T) {
	f, c := newFakeAPI(t)
	f.errors["deleteMessage"] = apiResponse{
		OK:          false,
		ErrorCode:   400,
		Description: "Bad Request: message to delete not found",
	}
	f.errors["getUpdates"] = apiResponse{
		OK:          false,
		ErrorCode:   429,
		Description: "Too Many Requests",
		Parameters:  &responseParameters{RetryAfter: 3},
	}

	err := c.DeleteMessage(context.Background(), 1, 2)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Code)
	assert.Equal(t, "deleteMessage", apiErr.Method)

	_, err = c.GetUpdates(context.Background(), 0, time.Second)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 3*time.Second, apiErr.RetryAfter)
}

func TestClient_TransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewClient(srv.URL, testToken, WithTimeout(time.Second))
	_, err := c.GetMe(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), testToken)
}

func TestClient_Webhook(t *testing.T) {
	f, c := newFakeAPI(t)

	require.NoError(t, c.SetWebhook(context.Background(), "https://bot.example.com/bot123", "s3"))
	body := f.lastBody("setWebhook")
	assert.Equal(t, "https://bot.example.com/bot123", body["url"])
	assert.Equal(t, "s3", body["secret_token"])

	require.NoError(t, c.DeleteWebhook(context.Background()))
	assert.Contains(t, f.calls, "deleteWebhook")
}

func TestToCommandEvent(t *testing.T) {
	u := Update{
		UpdateID: 10,
		Message: &Message{
			MessageID: 3,
			From:      &User{ID: 7, Username: "Alice"},
			Chat:      Chat{ID: -100, Type: "supergroup"},
			Date:      1700000000,
			Text:      "/show@hwbot",
		},
	}

	ev, ok := ToCommandEvent(u)
	require.True(t, ok)
	assert.Equal(t, model.CommandEvent{
		UpdateID:  10,
		MessageID: 3,
		Sender:    model.User{ID: 7, Username: "Alice"},
		Chat:      model.Chat{ID: -100, Type: model.ChatTypeSupergroup},
		Date:      1700000000,
		Text:      "/show@hwbot",
	}, ev)

	_, ok = ToCommandEvent(Update{UpdateID: 11})
	assert.False(t, ok)

	_, ok = ToCommandEvent(Update{UpdateID: 12, Message: &Message{From: &User{ID: 1}, Chat: Chat{ID: 1}}})
	assert.False(t, ok, "messages without text are skipped")
}
