package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/ru2chhw/confbot/internal/model"
	"github.com/ru2chhw/confbot/pkg/metrics"
)

const (
	// StreamName is the name of the note events stream.
	StreamName = "NOTES"

	// SubjectPrefix is the prefix for all note event subjects.
	SubjectPrefix = "notes"
)

// Publisher is the part of JetStream the stream manager uses.
type Publisher interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// StreamManager handles the note events stream.
type StreamManager struct {
	js Publisher
}

// NewStreamManager creates a stream manager on a connected client.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{js: client.JetStream()}
}

// NewStreamManagerWithPublisher creates a stream manager on any Publisher.
func NewStreamManagerWithPublisher(js Publisher) *StreamManager {
	return &StreamManager{js: js}
}

// EnsureStream creates the note events stream if it does not exist.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	if _, err := m.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := m.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Note updates and deletions",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// NoteSubject returns the subject for a note event.
func NoteSubject(chatID int64, action model.NoteAction) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, strconv.FormatInt(chatID, 10), action)
}

// PublishNoteEvent publishes a note event to JetStream.
func (m *StreamManager) PublishNoteEvent(ctx context.Context, event model.NoteEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal note event: %w", err)
	}

	_, err = m.js.Publish(ctx, NoteSubject(event.ChatID, event.Action), data)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.NoteEventsPublished.WithLabelValues(string(event.Action), status).Inc()
	if err != nil {
		return fmt.Errorf("failed to publish note event: %w", err)
	}
	return nil
}
