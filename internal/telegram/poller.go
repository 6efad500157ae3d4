package telegram

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ru2chhw/confbot/pkg/logger"
	"github.com/ru2chhw/confbot/pkg/metrics"
)

// UpdateFunc handles one update. It must not panic across updates; the
// poller recovers per update regardless.
type UpdateFunc func(ctx context.Context, u Update)

// Poller pulls updates with getUpdates and hands them to an UpdateFunc.
type Poller struct {
	client      *Client
	timeout     time.Duration
	backoff     time.Duration
	concurrency int
	logger      *logger.Logger

	offset int64
}

// PollerConfig configures a Poller.
type PollerConfig struct {
	// Timeout is the long-poll timeout sent to the API.
	Timeout time.Duration
	// Backoff is the wait after a failed poll.
	Backoff time.Duration
	// Concurrency bounds how many updates of one batch run at once.
	Concurrency int
}

// NewPoller creates a poller.
func NewPoller(client *Client, cfg PollerConfig, log *logger.Logger) *Poller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 3 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Poller{
		client:      client,
		timeout:     cfg.Timeout,
		backoff:     cfg.Backoff,
		concurrency: cfg.Concurrency,
		logger:      log,
	}
}

// Run polls until ctx is cancelled. It returns nil on cancellation.
func (p *Poller) Run(ctx context.Context, fn UpdateFunc) error {
	p.logger.Info("polling for updates", zap.Duration("timeout", p.timeout))

	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := p.client.GetUpdates(ctx, p.offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait := p.backoff
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				wait = apiErr.RetryAfter
			}
			p.logger.Warn("polling error", zap.Error(err), zap.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}

		p.dispatch(ctx, updates, fn)
	}
}

func (p *Poller) dispatch(ctx context.Context, updates []Update, fn UpdateFunc) {
	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for _, u := range updates {
		if u.UpdateID >= p.offset {
			p.offset = u.UpdateID + 1
		}
		metrics.UpdatesTotal.WithLabelValues("poll").Inc()

		u := u
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("update handler panicked",
						zap.Int64("update_id", u.UpdateID),
						zap.Any("panic", r),
					)
				}
			}()
			fn(ctx, u)
			return nil
		})
	}

	// Handlers never fail the group; Wait only bounds the batch.
	_ = g.Wait()
}
