package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ru2chhw/confbot/pkg/logger"
)

func TestPoller_DeliversAndAdvancesOffset(t *testing.T) {
	var mu sync.Mutex
	var offsets []float64
	call := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		mu.Lock()
		call++
		n := call
		off, _ := body["offset"].(float64)
		offsets = append(offsets, off)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch n {
		case 1:
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(apiResponse{OK: false, ErrorCode: 502, Description: "Bad Gateway"})
		case 2:
			raw, _ := json.Marshal([]Update{
				{UpdateID: 100, Message: &Message{MessageID: 1, From: &User{ID: 1}, Chat: Chat{ID: 1, Type: "private"}, Text: "/help"}},
				{UpdateID: 101, Message: &Message{MessageID: 2, From: &User{ID: 1}, Chat: Chat{ID: 1, Type: "private"}, Text: "/show"}},
			})
			json.NewEncoder(w).Encode(apiResponse{OK: true, Result: raw})
		default:
			json.NewEncoder(w).Encode(apiResponse{OK: true, Result: json.RawMessage("[]")})
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testToken, WithTimeout(time.Second))
	poller := NewPoller(client, PollerConfig{Timeout: time.Second, Backoff: 10 * time.Millisecond}, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan int64, 4)
	done := make(chan error, 1)
	go func() {
		done <- poller.Run(ctx, func(ctx context.Context, u Update) {
			got <- u.UpdateID
			if u.UpdateID == 101 {
				panic("handler failure must not stop polling")
			}
		})
	}()

	var ids []int64
	for len(ids) < 2 {
		select {
		case id := <-got:
			ids = append(ids, id)
		case <-time.After(3 * time.Second):
			t.Fatal("updates not delivered")
		}
	}
	assert.ElementsMatch(t, []int64{100, 101}, ids)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(offsets) >= 3
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("poller did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, float64(0), offsets[0])
	assert.Equal(t, float64(102), offsets[2])
}
