package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/giftcard-console/internal/api"
	"github.com/nhle/giftcard-console/internal/app"
	"github.com/nhle/giftcard-console/internal/cache"
	"github.com/nhle/giftcard-console/internal/credential"
	"github.com/nhle/giftcard-console/internal/desktop"
	"github.com/nhle/giftcard-console/internal/feed"
	"github.com/nhle/giftcard-console/internal/logging"
	"github.com/nhle/giftcard-console/internal/metrics"
	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/realtime"
	"github.com/nhle/giftcard-console/internal/store"
	appsync "github.com/nhle/giftcard-console/internal/sync"
	"github.com/nhle/giftcard-console/internal/theme"
	"github.com/nhle/giftcard-console/internal/transport"
)

// snapshotRetention is how long cache snapshots are kept for warm starts.
const snapshotRetention = 7 * 24 * time.Hour

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func runConsole(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if err := theme.Use(cfg.Display.Theme); err != nil {
		return err
	}
	teardown, err := realtime.ParseTeardownMode(cfg.Realtime.Teardown)
	if err != nil {
		return err
	}

	creds, err := credential.Open(cfg.Keyring.Dir)
	if err != nil {
		return err
	}
	auth := credential.LoadAuthContext(creds, logger)
	if !auth.Authenticated() {
		return errors.New("not logged in: run giftcard-console login --token <access token>")
	}
	role, ok := auth.Role()
	if !ok {
		return errors.New("unable to resolve user role: log in again with --role")
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if metricsAddr != "" {
		srv := serveMetrics(metricsAddr, m, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	client := api.NewClient(cfg.API.BaseURL, auth,
		api.WithTimeout(cfg.APITimeout()),
		api.WithLogger(logger),
	)

	snapshots, err := store.NewSQLiteStore(cfg.Cache.SnapshotPath)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	listPolicy := cache.Policy{
		StaleTime:       seconds(cfg.Cache.ListStaleSec),
		RefetchInterval: seconds(cfg.Cache.ListRefetchSec),
	}
	unreadPolicy := cache.Policy{
		StaleTime:       seconds(cfg.Cache.UnreadStaleSec),
		RefetchInterval: seconds(cfg.Cache.UnreadRefetchSec),
	}
	c := cache.New(
		cache.WithPolicy(model.KindNotifications, listPolicy),
		cache.WithPolicy(model.KindActivityLogs, listPolicy),
		cache.WithPolicy(model.KindUnreadCount, unreadPolicy),
		cache.WithSnapshots(snapshots),
		cache.WithLogger(logger),
		cache.WithMetrics(m),
	)
	defer c.Close()

	feedCfg := feed.Config{
		OverlaySize: cfg.Realtime.OverlaySize,
		Logger:      logger,
		Metrics:     m,
	}
	notifs := feed.NewNotificationFeed(client, c, feedCfg)

	opts := realtime.Options{
		Notifications: notifs,
		Cache:         c,
		Teardown:      teardown,
		Logger:        logger,
	}
	var activity *feed.ActivityFeed
	if role == model.RoleAdmin {
		activity = feed.NewActivityFeed(client, c, feedCfg)
		opts.Activity = activity
	}

	notifier := desktop.New(cfg.Notifications.Desktop, os.Stderr, logger)
	if notifier.RequestPermission() {
		opts.Desktop = notifier
	}

	factory := transport.NewFactory(transport.Config{
		URL:               cfg.Socket.URL,
		ConnectTimeout:    seconds(cfg.Socket.ConnectTimeoutSec),
		ReconnectAttempts: cfg.Socket.ReconnectAttempts,
		ReconnectDelay:    millis(cfg.Socket.ReconnectDelayMS),
		ReconnectDelayMax: millis(cfg.Socket.ReconnectDelayMaxMS),
	}, logger)
	registry := realtime.NewRegistry(factory, logger, m)
	defer registry.CloseAll()

	sub := realtime.NewSubscription(registry, auth, opts)

	refresher := appsync.New(logger)
	registerJobs(refresher, cfg, notifs, activity, snapshots)
	defer refresher.Stop()

	program := tea.NewProgram(
		app.New(app.Deps{
			Context:       signalCtx,
			Notifications: notifs,
			Activity:      activity,
			Connection:    sub,
			Refresher:     refresher,
			Cache:         c,
			Role:          role,
			User:          auth.User(),
			Logger:        logger,
		}),
		tea.WithAltScreen(),
		tea.WithContext(signalCtx),
	)

	logger.Info("console starting", zap.String("role", string(role)), zap.String("api", cfg.API.BaseURL))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running console: %w", err)
	}
	sub.Close()
	return nil
}

// registerJobs schedules the forced refetches of every resource the
// console keeps on screen, plus snapshot pruning.
func registerJobs(
	r *appsync.Refresher,
	cfg *model.AppConfig,
	notifs *feed.NotificationFeed,
	activity *feed.ActivityFeed,
	snapshots *store.SQLiteStore,
) {
	r.Register(appsync.Job{
		Name:     "notifications",
		Interval: seconds(cfg.Cache.ListRefetchSec),
		Run: func(ctx context.Context) error {
			_, err := notifs.Refresh(ctx)
			return err
		},
	})
	r.Register(appsync.Job{
		Name:     "unread-count",
		Interval: seconds(cfg.Cache.UnreadRefetchSec),
		Run: func(ctx context.Context) error {
			_, err := notifs.RefreshUnreadCount(ctx)
			return err
		},
	})
	if activity != nil {
		r.Register(appsync.Job{
			Name:     "activity",
			Interval: seconds(cfg.Cache.ListRefetchSec),
			Run: func(ctx context.Context) error {
				_, err := activity.Refresh(ctx)
				return err
			},
		})
	}
	r.Register(appsync.Job{
		Name:     "snapshots",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			_, err := snapshots.PruneSnapshots(ctx, time.Now().Add(-snapshotRetention))
			return err
		},
	})
}

func serveMetrics(addr string, m *metrics.Metrics, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}
