package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ru2chhw/confbot/internal/command"
	"github.com/ru2chhw/confbot/internal/model"
	"github.com/ru2chhw/confbot/internal/store"
	"github.com/ru2chhw/confbot/pkg/logger"
)

// handleUpdate stores the sender's note and acknowledges it.
func (s *Service) handleUpdate(ctx context.Context, log *logger.Logger, ev model.CommandEvent, cmd command.Command) error {
	username := store.NormalizeUsername(ev.Sender.Username)
	if username == "" {
		s.reply(ctx, log, ev.Chat.ID, msgNoUsername, plainOptions)
		return ErrNoUsername
	}

	if n := utf8.RuneCountInString(cmd.Arg); n >= MaxNoteLength {
		s.reply(ctx, log, ev.Chat.ID, msgTooLong, plainOptions)
		if s.cfg.RejectOverlong {
			log.Info("overlong note rejected", zap.Int("length", n))
			return ErrTooLong
		}
		log.Info("overlong note stored after warning", zap.Int("length", n))
	}

	if err := s.store.SetNote(ctx, ev.Chat.ID, username, cmd.Arg); err != nil {
		return s.storeFailed(ctx, log, ev, cmd, err)
	}

	s.publish(ctx, log, model.NoteEvent{
		ChatID:   ev.Chat.ID,
		Username: username,
		Action:   model.NoteActionUpdated,
		ActorID:  ev.Sender.ID,
		At:       s.now(),
	})
	s.sendAck(ctx, log, ev.Chat.ID)
	return nil
}

// handleDeleteMe removes the sender's own note.
func (s *Service) handleDeleteMe(ctx context.Context, log *logger.Logger, ev model.CommandEvent, cmd command.Command) error {
	username := store.NormalizeUsername(ev.Sender.Username)
	if username == "" {
		s.reply(ctx, log, ev.Chat.ID, msgNoUsername, plainOptions)
		return ErrNoUsername
	}

	if err := s.store.DeleteNote(ctx, ev.Chat.ID, username); err != nil {
		return s.storeFailed(ctx, log, ev, cmd, err)
	}

	s.publish(ctx, log, model.NoteEvent{
		ChatID:   ev.Chat.ID,
		Username: username,
		Action:   model.NoteActionDeleted,
		ActorID:  ev.Sender.ID,
		At:       s.now(),
	})
	s.sendAck(ctx, log, ev.Chat.ID)
	return nil
}

// handleDelete lets a chat administrator remove another user's note.
func (s *Service) handleDelete(ctx context.Context, log *logger.Logger, ev model.CommandEvent, cmd command.Command) error {
	target := store.NormalizeUsername(cmd.Arg)
	if target == "" {
		s.reply(ctx, log, ev.Chat.ID, msgNotFound, plainOptions)
		return ErrNotFound
	}

	admins, err := s.messenger.GetChatAdministrators(ctx, ev.Chat.ID)
	if err != nil {
		log.Error("failed to fetch administrators", zap.Error(err))
		s.alertAdmin(ctx, log, cmd.Raw, err)
		s.reply(ctx, log, ev.Chat.ID, msgError, plainOptions)
		return fmt.Errorf("fetch administrators: %w", err)
	}
	if !isAdmin(admins, ev.Sender.ID) {
		s.reply(ctx, log, ev.Chat.ID, msgAdminsOnly, plainOptions)
		return ErrNotAdmin
	}

	if err := s.store.DeleteNote(ctx, ev.Chat.ID, target); err != nil {
		return s.storeFailed(ctx, log, ev, cmd, err)
	}

	log.Info("note deleted by admin", zap.String("target", target))
	s.publish(ctx, log, model.NoteEvent{
		ChatID:   ev.Chat.ID,
		Username: target,
		Action:   model.NoteActionDeleted,
		ActorID:  ev.Sender.ID,
		At:       s.now(),
	})
	s.reply(ctx, log, ev.Chat.ID, msgDeleted, plainOptions)
	return nil
}

// handleShow replies with one user's note.
func (s *Service) handleShow(ctx context.Context, log *logger.Logger, ev model.CommandEvent, cmd command.Command) error {
	text, found, err := s.store.GetNote(ctx, ev.Chat.ID, store.NormalizeUsername(cmd.Arg))
	if err != nil {
		return s.storeFailed(ctx, log, ev, cmd, err)
	}
	if !found {
		s.reply(ctx, log, ev.Chat.ID, msgNotFound, plainOptions)
		return ErrNotFound
	}

	s.reply(ctx, log, ev.Chat.ID, formatNote(cmd.Arg, text), showOptions)
	return nil
}

// handleShowAll replies with every note in the chat.
func (s *Service) handleShowAll(ctx context.Context, log *logger.Logger, ev model.CommandEvent, cmd command.Command) error {
	notes, err := s.store.GetAllNotes(ctx, ev.Chat.ID)
	if err != nil {
		return s.storeFailed(ctx, log, ev, cmd, err)
	}
	if len(notes) == 0 {
		s.reply(ctx, log, ev.Chat.ID, msgEmpty, plainOptions)
		return ErrEmpty
	}

	s.reply(ctx, log, ev.Chat.ID, formatNotes(notes), showOptions)
	return nil
}

func (s *Service) handleHelp(ctx context.Context, log *logger.Logger, ev model.CommandEvent) error {
	s.reply(ctx, log, ev.Chat.ID, helpText, helpOptions)
	return nil
}

// storeFailed reports a store error to the admin chat and the user.
func (s *Service) storeFailed(ctx context.Context, log *logger.Logger, ev model.CommandEvent, cmd command.Command, err error) error {
	log.Error("store operation failed", zap.Error(err))
	s.alertAdmin(ctx, log, cmd.Raw, err)
	s.reply(ctx, log, ev.Chat.ID, msgError, plainOptions)
	return err
}

func (s *Service) publish(ctx context.Context, log *logger.Logger, event model.NoteEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishNoteEvent(ctx, event); err != nil {
		log.Warn("failed to publish note event", zap.Error(err))
	}
}

func isAdmin(admins []model.User, userID int64) bool {
	for _, a := range admins {
		if a.ID == userID {
			return true
		}
	}
	return false
}
