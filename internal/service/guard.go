package service

import (
	"time"

	"github.com/ru2chhw/confbot/internal/command"
	"github.com/ru2chhw/confbot/internal/model"
)

// DefaultFreshnessWindow is how far an event's timestamp may drift from now.
const DefaultFreshnessWindow = 20 * time.Second

// Guard rejects stale events and group commands meant for another bot.
type Guard struct {
	botUsername string
	window      time.Duration
	now         func() time.Time
}

// NewGuard creates a guard for the bot with the given username.
func NewGuard(botUsername string, window time.Duration, now func() time.Time) *Guard {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Guard{botUsername: botUsername, window: window, now: now}
}

// Check returns ErrStaleEvent or ErrScopeViolation, or nil to accept.
// Timestamps have second resolution, so the comparison is in whole seconds.
func (g *Guard) Check(ev model.CommandEvent, cmd command.Command) error {
	drift := g.now().Unix() - ev.Date
	if drift < 0 {
		drift = -drift
	}
	if drift > int64(g.window/time.Second) {
		return ErrStaleEvent
	}

	if !ev.Chat.IsPrivate() && !cmd.AddressedTo(g.botUsername) {
		return ErrScopeViolation
	}
	return nil
}
