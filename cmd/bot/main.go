// Package main is the entry point for the bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ru2chhw/confbot/internal/config"
	"github.com/ru2chhw/confbot/internal/handler"
	"github.com/ru2chhw/confbot/internal/middleware"
	natsclient "github.com/ru2chhw/confbot/internal/nats"
	"github.com/ru2chhw/confbot/internal/scheduler"
	"github.com/ru2chhw/confbot/internal/service"
	"github.com/ru2chhw/confbot/internal/store"
	"github.com/ru2chhw/confbot/internal/telegram"
	"github.com/ru2chhw/confbot/pkg/logger"
	"github.com/ru2chhw/confbot/pkg/metrics"
	"github.com/ru2chhw/confbot/pkg/tracing"
)

const (
	serviceName     = "confbot"
	shutdownTimeout = 15 * time.Second
	maxUpdateBytes  = 1 << 20
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := run(cfg, log); err != nil {
		log.Error("bot stopped with error", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
	log.Info("bot stopped")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, serviceName, cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	notes, err := store.NewRedisStore(ctx, cfg.RedisURL, cfg.RedisKeyPrefix)
	if err != nil {
		return err
	}
	defer notes.Close()

	tg := telegram.NewClient(cfg.APIURL, cfg.Token)
	me, err := tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("identify bot: %w", err)
	}
	log = log.With(zap.String("bot", me.Username))
	log.Info("starting bot", zap.Bool("webhook", cfg.WebhookMode()))

	var opts []service.Option
	var natsConn handler.ConnectionChecker
	if cfg.NATSURL != "" {
		nc, err := natsclient.Connect(ctx, natsclient.Config{
			URL:   cfg.NATSURL,
			Token: cfg.NATSToken,
			Name:  serviceName,
		}, log)
		if err != nil {
			return err
		}
		defer nc.Close()

		streams := natsclient.NewStreamManager(nc)
		if err := streams.EnsureStream(ctx); err != nil {
			return err
		}
		opts = append(opts, service.WithEventPublisher(streams))
		natsConn = nc
	}

	sched := scheduler.New(scheduler.WithPendingHook(func(pending int) {
		metrics.PendingAckDeletions.Set(float64(pending))
	}))
	defer sched.Close()

	svc := service.New(service.Config{
		BotUsername:     me.Username,
		AdminChatID:     cfg.AdminChatID,
		FreshnessWindow: cfg.FreshnessWindow,
		AckTTL:          cfg.AckTTL,
		RejectOverlong:  cfg.RejectOverlongNotes,
	}, notes, tg, sched, log, opts...)

	health := handler.NewHealthHandler(notes, natsConn)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.WebhookMode() {
		router := newRouter(cfg, log, health)
		router.With(
			middleware.WebhookSecret(cfg.WebhookToken),
			middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow),
			middleware.LimitBody(maxUpdateBytes),
		).Post(cfg.WebhookPath(), handler.NewWebhookHandler(svc, log).ServeHTTP)

		webhookURL := strings.TrimRight(cfg.AppURL, "/") + cfg.WebhookPath()
		if err := tg.SetWebhook(ctx, webhookURL, cfg.WebhookToken); err != nil {
			return fmt.Errorf("register webhook: %w", err)
		}
		serve(gctx, g, log, ":"+cfg.WebhookPort, router)
	} else {
		if err := tg.DeleteWebhook(ctx); err != nil {
			return fmt.Errorf("remove webhook: %w", err)
		}
		if cfg.MetricsPort != "" {
			serve(gctx, g, log, ":"+cfg.MetricsPort, newRouter(cfg, log, health))
		}

		poller := telegram.NewPoller(tg, telegram.PollerConfig{Timeout: cfg.PollTimeout}, log)
		g.Go(func() error {
			return poller.Run(gctx, func(ctx context.Context, u telegram.Update) {
				ev, ok := telegram.ToCommandEvent(u)
				if !ok {
					return
				}
				if err := svc.Handle(ctx, ev); err != nil {
					log.Debug("update handled with error", zap.Int64("update_id", u.UpdateID), zap.Error(err))
				}
			})
		})
	}

	err = g.Wait()
	log.Info("shutting down")
	return err
}

// newRouter builds the router with the ops endpoints every mode exposes.
func newRouter(cfg *config.Config, log *logger.Logger, health *handler.HealthHandler) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log, cfg.Token))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// serve runs an HTTP server in g until ctx is done, then shuts it down.
func serve(ctx context.Context, g *errgroup.Group, log *logger.Logger, addr string, h http.Handler) {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g.Go(func() error {
		log.Info("server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
		return nil
	})
}
