package service

import (
	"errors"

	"github.com/ru2chhw/confbot/internal/store"
)

// Errors returned by Service.Handle. By the time Handle returns, the user
// has already been answered; callers only log these.
var (
	ErrStaleEvent     = errors.New("event outside freshness window")
	ErrScopeViolation = errors.New("group command not addressed to bot")
	ErrNotAdmin       = errors.New("sender is not a chat administrator")
	ErrNotFound       = errors.New("note not found")
	ErrEmpty          = errors.New("chat has no notes")
	ErrNoUsername     = errors.New("sender has no username")
	ErrTooLong        = errors.New("note too long")
)

// Outcome labels a Handle result for metrics.
func Outcome(err error) string {
	var storeErr *store.StoreError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrStaleEvent):
		return "stale"
	case errors.Is(err, ErrScopeViolation):
		return "out_of_scope"
	case errors.Is(err, ErrNotAdmin):
		return "not_admin"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrEmpty):
		return "empty"
	case errors.Is(err, ErrNoUsername):
		return "no_username"
	case errors.Is(err, ErrTooLong):
		return "too_long"
	case errors.As(err, &storeErr):
		return "store_error"
	default:
		return "error"
	}
}
