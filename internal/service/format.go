package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ru2chhw/confbot/internal/model"
	"github.com/ru2chhw/confbot/pkg/logger"
)

// User-facing replies.
const (
	msgAck        = "OK!"
	msgDeleted    = "OK"
	msgAdminsOnly = "Admins only"
	msgNotFound   = "Not found!"
	msgEmpty      = "Empty"
	msgError      = "Error"
	msgTooLong    = "Too long!"
	msgNoUsername = "Set a username first"

	alertPrefix = "Error occurred. Query:"
)

// ackDeleteTimeout bounds the deleteMessage call fired by an expired ack.
const ackDeleteTimeout = 10 * time.Second

var helpText = strings.Join([]string{
	"Hi. This is a bot which stores configuration of hardware/mobile/etc of users",
	"Written primarily for @ru2chhw",
	"Use */update* and write anything (less than 1000 chars) about your PC",
	"Use */show [user]* to watch user configuration.",
	"For example */show @GnuPetrovich* will show author's config.",
	"Using */show* without user will show all users config",
	"Use */deleteme* to delete your configuration from this conference",
	"Bot works only in groups",
	"",
	"",
	"Привет. Этот бот позволяет сохранять конфигурацию железа/телефона/прочего участников какой-либо конференции",
	"Написано специально для @ru2chhw",
	"Команда */update* позволяет записать вашу конфигурацию (до 1000 символов)",
	"Команда */show [пользователь]* покажет конфигурацию выбранного пользователя. Например */show @GnuPetrovich*",
	"Команда */deleteme* позволяет удалить вашу конфигурацию из памяти",
	"Если же пользователь не указан, то будет показана конфигурация всех пользователей в конференции",
	"Используйте только в группах",
}, "\n")

var (
	plainOptions = model.SendOptions{}
	helpOptions  = model.SendOptions{ParseMode: model.ParseModeMarkdown}
	showOptions  = model.SendOptions{
		ParseMode:             model.ParseModeMarkdown,
		DisableWebPagePreview: true,
		DisableNotification:   true,
	}
)

// formatNote renders a single note under the name the user asked for.
// Stored text is passed through unescaped.
func formatNote(target, text string) string {
	return target + ":\n" + text
}

// formatNotes renders every note as a bold name followed by its text,
// ordered by name.
func formatNotes(notes map[string]string) string {
	names := make([]string, 0, len(notes))
	for name := range notes {
		names = append(names, name)
	}
	sort.Strings(names)

	blocks := make([]string, 0, len(names))
	for _, name := range names {
		blocks = append(blocks, "*"+name+"*:\n"+notes[name])
	}
	return strings.Join(blocks, "\n")
}

// reply sends text to a chat. Failures are logged and not retried.
func (s *Service) reply(ctx context.Context, log *logger.Logger, chatID int64, text string, opts model.SendOptions) (model.SentMessage, error) {
	sent, err := s.messenger.SendMessage(ctx, chatID, text, opts)
	if err != nil {
		log.Warn("failed to send reply", zap.Int64("to_chat_id", chatID), zap.Error(err))
	}
	return sent, err
}

// sendAck sends "OK!" and schedules its removal after the ack TTL.
func (s *Service) sendAck(ctx context.Context, log *logger.Logger, chatID int64) {
	sent, err := s.reply(ctx, log, chatID, msgAck, plainOptions)
	if err != nil {
		return
	}

	_, err = s.scheduler.After(s.cfg.AckTTL, func(taskCtx context.Context) {
		delCtx, cancel := context.WithTimeout(taskCtx, ackDeleteTimeout)
		defer cancel()
		if err := s.messenger.DeleteMessage(delCtx, chatID, sent.MessageID); err != nil {
			log.Debug("ack deletion failed", zap.Int64("message_id", sent.MessageID), zap.Error(err))
		}
	})
	if err != nil {
		log.Debug("ack deletion not scheduled", zap.Error(err))
	}
}

// alertAdmin relays a failure to the configured admin chat, if any.
func (s *Service) alertAdmin(ctx context.Context, log *logger.Logger, query string, cause error) {
	if s.cfg.AdminChatID == 0 {
		return
	}
	if _, err := s.reply(ctx, log, s.cfg.AdminChatID, alertPrefix+query, plainOptions); err != nil {
		return
	}
	s.reply(ctx, log, s.cfg.AdminChatID, cause.Error(), plainOptions)
}
