// Package handler provides the bot's HTTP handlers.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ru2chhw/confbot/internal/model"
	"github.com/ru2chhw/confbot/internal/telegram"
	"github.com/ru2chhw/confbot/pkg/logger"
	"github.com/ru2chhw/confbot/pkg/metrics"
)

// updateTimeout bounds the processing of one webhook update.
const updateTimeout = 30 * time.Second

// EventHandler processes a command event.
type EventHandler interface {
	Handle(ctx context.Context, ev model.CommandEvent) error
}

// WebhookHandler receives updates pushed by the Bot API.
type WebhookHandler struct {
	events EventHandler
	logger *logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(events EventHandler, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		events: events,
		logger: log,
	}
}

// ServeHTTP handles POST <webhook path>. Any decodable update is answered
// with 200 so the platform does not redeliver it, whatever the command's
// outcome.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid update")
		return
	}
	metrics.UpdatesTotal.WithLabelValues("webhook").Inc()

	ev, ok := telegram.ToCommandEvent(update)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	// The reply must go out even if the platform drops the connection.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), updateTimeout)
	defer cancel()

	if err := h.events.Handle(ctx, ev); err != nil {
		h.logger.Debug("update handled with error",
			zap.Int64("update_id", update.UpdateID),
			zap.Error(err),
		)
	}
	w.WriteHeader(http.StatusOK)
}
