// Package service implements the bot's commands: it guards, routes and
// executes each command event against the note store and replies through
// the messaging platform.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ru2chhw/confbot/internal/command"
	"github.com/ru2chhw/confbot/internal/model"
	"github.com/ru2chhw/confbot/internal/scheduler"
	"github.com/ru2chhw/confbot/internal/store"
	"github.com/ru2chhw/confbot/pkg/logger"
	"github.com/ru2chhw/confbot/pkg/metrics"
)

// MaxNoteLength is the first note length, in characters, that draws the
// "Too long!" warning.
const MaxNoteLength = 1000

// DefaultAckTTL is how long an "OK!" acknowledgement stays in the chat.
const DefaultAckTTL = 5 * time.Second

// Messenger is the part of the messaging platform the commands use.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts model.SendOptions) (model.SentMessage, error)
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	GetChatAdministrators(ctx context.Context, chatID int64) ([]model.User, error)
}

// EventPublisher receives note changes after they are stored.
type EventPublisher interface {
	PublishNoteEvent(ctx context.Context, event model.NoteEvent) error
}

// DelayedRunner schedules one-shot tasks.
type DelayedRunner interface {
	After(d time.Duration, fn scheduler.Func) (*scheduler.Task, error)
}

// Config holds the command settings.
type Config struct {
	// BotUsername is this bot's own username, without '@'.
	BotUsername string
	// AdminChatID receives store error alerts; zero disables them.
	AdminChatID     int64
	FreshnessWindow time.Duration
	AckTTL          time.Duration
	// RejectOverlong refuses to store notes of MaxNoteLength or more
	// characters. When false such notes are stored after the warning.
	RejectOverlong bool
}

// Service handles command events. It is safe for concurrent use; all
// durable state lives in the store.
type Service struct {
	cfg       Config
	guard     *Guard
	store     store.NoteStore
	messenger Messenger
	scheduler DelayedRunner
	publisher EventPublisher
	logger    *logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithEventPublisher publishes note changes to p.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// New creates a Service.
func New(cfg Config, notes store.NoteStore, messenger Messenger, sched DelayedRunner, log *logger.Logger, opts ...Option) *Service {
	if cfg.AckTTL <= 0 {
		cfg.AckTTL = DefaultAckTTL
	}
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = DefaultFreshnessWindow
	}

	s := &Service{
		cfg:       cfg,
		store:     notes,
		messenger: messenger,
		scheduler: sched,
		logger:    log,
		tracer:    otel.Tracer("github.com/ru2chhw/confbot/internal/service"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.guard = NewGuard(cfg.BotUsername, cfg.FreshnessWindow, s.now)
	return s
}

// Handle processes one command event. Text that is not a command is
// ignored. The returned error classifies the outcome; the user has
// already received any reply.
func (s *Service) Handle(ctx context.Context, ev model.CommandEvent) error {
	cmd, ok := command.Parse(ev.Text)
	if !ok {
		return nil
	}

	start := time.Now()
	kind := cmd.Kind.String()

	correlationID := logger.CorrelationID(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
		ctx = logger.ContextWithCorrelationID(ctx, correlationID)
	}
	log := s.logger.WithUpdate(correlationID, ev.Chat.ID, ev.Sender.ID).With(
		zap.String("command", kind),
		zap.Int64("update_id", ev.UpdateID),
	)

	ctx, span := s.tracer.Start(ctx, "command."+kind, trace.WithAttributes(
		attribute.Int64("chat.id", ev.Chat.ID),
		attribute.String("chat.type", string(ev.Chat.Type)),
		attribute.Int64("user.id", ev.Sender.ID),
	))
	defer span.End()

	err := s.guard.Check(ev, cmd)
	switch {
	case errors.Is(err, ErrStaleEvent):
		log.Debug("stale event dropped", zap.Int64("date", ev.Date))
	case errors.Is(err, ErrScopeViolation):
		log.Info("command not addressed to bot", zap.String("mention", cmd.Mention))
	case err == nil:
		err = s.dispatch(ctx, log, ev, cmd)
	}

	outcome := Outcome(err)
	span.SetAttributes(attribute.String("command.outcome", outcome))
	if outcome == "store_error" || outcome == "error" {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.RecordCommand(kind, outcome, time.Since(start).Seconds())
	return err
}

func (s *Service) dispatch(ctx context.Context, log *logger.Logger, ev model.CommandEvent, cmd command.Command) error {
	switch cmd.Kind {
	case command.KindUpdate:
		return s.handleUpdate(ctx, log, ev, cmd)
	case command.KindDelete:
		return s.handleDelete(ctx, log, ev, cmd)
	case command.KindDeleteMe:
		return s.handleDeleteMe(ctx, log, ev, cmd)
	case command.KindShow:
		if cmd.Arg == "" {
			return s.handleShowAll(ctx, log, ev, cmd)
		}
		return s.handleShow(ctx, log, ev, cmd)
	case command.KindHelp, command.KindStart:
		return s.handleHelp(ctx, log, ev)
	default:
		return nil
	}
}
