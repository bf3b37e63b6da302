package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"storefront-cart/internal/config"
	"storefront-cart/internal/db"
	"storefront-cart/internal/devicestore"
	"storefront-cart/internal/httpserver"
	"storefront-cart/internal/logging"
	"storefront-cart/internal/migrate"
	"storefront-cart/internal/notify"
	analyticsrepo "storefront-cart/internal/repository/analytics"
	draftrepo "storefront-cart/internal/repository/draft"
	orderrepo "storefront-cart/internal/repository/order"
	profilerepo "storefront-cart/internal/repository/profile"
	vendorrepo "storefront-cart/internal/repository/vendor"
	"storefront-cart/internal/service/checkout"
	"storefront-cart/internal/service/draft"
	"storefront-cart/internal/service/identity"
	"storefront-cart/internal/service/profile"
	"storefront-cart/internal/session"
	"storefront-cart/internal/telemetry"
)

// deviceSlotTTL bounds how long an idle device's slots survive in a shared backend.
const deviceSlotTTL = 30 * 24 * time.Hour

func main() {
	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel).With("component", "api")

	if err := run(cfg, logger); err != nil {
		logger.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, db.WithMaxConns(cfg.DBMaxConns))
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer dbpool.Close()

	if cfg.MigrateOnStart {
		if err := migrate.Apply(ctx, dbpool); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("migrations applied")
	}

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn("close failed", "err", err)
			}
		}
	}()

	device, closer, err := openDeviceStore(cfg)
	if err != nil {
		return fmt.Errorf("open device store: %w", err)
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	draftRepo := draftrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	profileRepo := profilerepo.NewPostgres(dbpool, logger)
	analyticsRepo := analyticsrepo.NewPostgres(dbpool)
	vendorRepo := vendorrepo.NewPostgres(dbpool)

	var beacon telemetry.Transport
	if len(cfg.KafkaBrokers) > 0 {
		kb := telemetry.NewKafkaBeacon(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		closers = append(closers, kb)
		beacon = kb
	}
	tracker := telemetry.NewTracker(
		telemetry.NewChain(beacon, telemetry.Direct(analyticsRepo), 2*time.Second, logger),
		telemetry.WithLogger(logger),
		telemetry.WithDrainInterval(cfg.TelemetryDrain),
		telemetry.WithProbe(dbpool.Ping),
	)

	notifier, err := buildNotifier(cfg, logger, &closers)
	if err != nil {
		return err
	}

	drafts := draft.New(draftRepo, cfg.DraftDebounce, logger)
	profiles := profile.New(profileRepo, logger)
	checkoutSvc := checkout.New(checkout.Deps{
		Orders:   orderRepo,
		Vendors:  vendorRepo,
		Drafts:   drafts,
		Sink:     tracker,
		Notifier: notifier,
		BaseURL:  cfg.PublicBaseURL,
		Logger:   logger,
	})
	sessions := session.NewRegistry(session.Deps{
		Device:    device,
		Scheduler: drafts,
		Flusher:   drafts,
		Drafts:    drafts,
		Profiles:  profiles,
		Sink:      tracker,
		Logger:    logger,
	})

	srv, err := newServer(cfg, logger, dbpool, httpserver.Deps{
		Vendors:     vendorRepo,
		Identity:    identity.New(logger),
		Sessions:    sessions,
		Profiles:    profiles,
		Checkout:    checkoutSvc,
		Device:      device,
		Sink:        tracker,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error { return tracker.Run(gctx) })
	g.Go(func() error { return sessions.RunSweeper(gctx, cfg.SessionTTL, 0) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "err", err)
		}
		drafts.FlushAll()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func newServer(cfg config.Config, logger *slog.Logger, pool *pgxpool.Pool, deps httpserver.Deps) (*httpserver.Server, error) {
	srv, err := httpserver.New(cfg.HTTPAddr, logger, pool, deps)
	if err != nil {
		return nil, fmt.Errorf("init server: %w", err)
	}
	return srv, nil
}

// openDeviceStore picks the shared device slot backend. The returned closer may be nil.
func openDeviceStore(cfg config.Config) (devicestore.Store, io.Closer, error) {
	switch cfg.DeviceStore {
	case "", "memory":
		return devicestore.NewMemory(), nil, nil
	case "sqlite":
		s, err := devicestore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return devicestore.NewRedis(rdb, deviceSlotTTL), rdb, nil
	default:
		return nil, nil, fmt.Errorf("unknown device store %q", cfg.DeviceStore)
	}
}

func buildNotifier(cfg config.Config, logger *slog.Logger, closers *[]io.Closer) (notify.Notifier, error) {
	if cfg.AMQPURL == "" {
		return notify.WhatsAppLink{}, nil
	}
	pub, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, logger)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	*closers = append(*closers, pub)
	return notify.Multi{notify.WhatsAppLink{}, pub}, nil
}
