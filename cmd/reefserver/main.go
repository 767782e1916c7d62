package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thereef/reef-server/internal/config"
	"github.com/thereef/reef-server/internal/db"
	"github.com/thereef/reef-server/internal/events"
	"github.com/thereef/reef-server/internal/game/boss"
	"github.com/thereef/reef-server/internal/game/progression"
	"github.com/thereef/reef-server/internal/model"
	"github.com/thereef/reef-server/internal/ops"
	"github.com/thereef/reef-server/internal/settlement"
)

const defaultConfigPath = "config/reefserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := defaultConfigPath
	if p := os.Getenv("REEF_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("reef server starting",
		"log_level", cfg.LogLevel,
		"bind", cfg.BindAddress,
		"port", cfg.Port)

	// Connect to database
	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	// Run migrations
	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// Repositories
	bossRepo := db.NewBossRepository(database.Pool())
	auditRepo := db.NewAuditRepository(database.Pool())
	progressionRepo := db.NewProgressionRepository(database.Pool())

	// Observer event hub
	hub := events.NewHub()
	defer hub.Close()

	// Settlement boundary client
	boundary := settlement.NewClient(
		cfg.Settlement.Endpoint,
		cfg.Settlement.APIKey,
		cfg.Settlement.Timeout,
		cfg.Settlement.MaxRetries,
	)

	// Boss engagement manager
	bossMgr := boss.NewManager(
		&bossStoreAdapter{repo: bossRepo},
		boundary,
		&auditSinkAdapter{repo: auditRepo},
		boss.NewPoolSplit(cfg.PoolSplit.Equal, cfg.PoolSplit.Damage),
		bossTunings(cfg.Bosses),
		hub.Publish,
	)

	// Startup barrier: every persisted fight is restored before any
	// listener accepts traffic, so an in-progress fight at crash time
	// is never mistaken for a fresh dormant boss.
	if err := bossMgr.Init(ctx); err != nil {
		return fmt.Errorf("initializing boss manager: %w", err)
	}

	// Progression engine
	progressionStore := &progressionStoreAdapter{repo: progressionRepo}
	progressionEngine := progression.NewEngine(
		progressionStore,
		cfg.Progression.FactionRates,
		cfg.Progression.ActionXPHourlyCap,
		cfg.Progression.SlotBonusInterval,
	)

	// Operator/observer HTTP server
	opsServer := ops.NewServer(bossMgr, progressionEngine, progressionStore, hub)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port),
		Handler:           opsServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting boss tick loop", "interval", "1s")
		if err := bossMgr.RunTickLoop(gctx); err != nil {
			return fmt.Errorf("boss tick loop: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("starting settlement loop")
		if err := bossMgr.RunSettlementLoop(gctx); err != nil {
			return fmt.Errorf("settlement loop: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("starting boss save loop", "interval", "5m")
		if err := bossMgr.RunSaveLoop(gctx, 5*time.Minute); err != nil {
			return fmt.Errorf("boss save loop: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("starting ops server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// bossTunings converts config boss entries to manager tunings, skipping
// unknown kinds with a warning.
func bossTunings(cfgs []config.BossConfig) []boss.Tuning {
	tunings := make([]boss.Tuning, 0, len(cfgs))
	for _, c := range cfgs {
		kind := model.BossKind(c.Kind)
		if !kind.Valid() {
			slog.Warn("ignoring unknown boss kind in config", "kind", c.Kind)
			continue
		}
		tunings = append(tunings, boss.Tuning{
			Kind:              kind,
			MaxHP:             c.MaxHP,
			DamageCap:         c.DamageCap,
			WarningDelayTicks: c.WarningDelayTicks,
			CooldownMinTicks:  c.CooldownMinTicks,
			CooldownMaxTicks:  c.CooldownMaxTicks,
		})
	}
	return tunings
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
