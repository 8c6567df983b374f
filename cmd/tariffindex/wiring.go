package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/MikeSquared-Agency/TariffIndex/internal/config"
	"github.com/MikeSquared-Agency/TariffIndex/internal/entity"
	"github.com/MikeSquared-Agency/TariffIndex/internal/factors"
	"github.com/MikeSquared-Agency/TariffIndex/internal/hermes"
	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
	"github.com/MikeSquared-Agency/TariffIndex/internal/pricing"
	"github.com/MikeSquared-Agency/TariffIndex/internal/runs"
	"github.com/MikeSquared-Agency/TariffIndex/internal/scheduler"
	"github.com/MikeSquared-Agency/TariffIndex/internal/source"
	"github.com/MikeSquared-Agency/TariffIndex/internal/store"
)

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// app holds the shared components every subcommand builds on.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     store.Store
	pool      *pgxpool.Pool
	hermes    hermes.Client
	redis     *redis.Client
	calc      *pricing.Calculator
	recorder  *runs.Recorder
	refresher *scheduler.Refresher
	closers   []func()
}

type appOptions struct {
	events bool
}

func loadApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}
	if err := a.init(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context, opts appOptions) error {
	cfg, logger := a.cfg, a.logger

	// Database
	if cfg.Database.URL != "" {
		db, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, func() { db.Close() })
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		a.store, a.pool = db, db.Pool()
		logger.Info("connected to database")
	} else {
		a.store = store.NewMemoryStore(0, cfg.Refresh.HistoryLimit)
	}

	// Hermes (optional)
	if opts.events && cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			a.hermes = hc
			a.closers = append(a.closers, hc.Close)
			logger.Info("connected to hermes")
		}
	}

	// Redis (optional)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("failed to connect to redis, running without factor cache", "error", err)
			rdb.Close()
		} else {
			a.redis = rdb
			a.closers = append(a.closers, func() { rdb.Close() })
			logger.Info("connected to redis", "addr", cfg.Redis.Addr)
		}
	}

	registry, err := entity.NewRegistry(cfg.Entities)
	if err != nil {
		return fmt.Errorf("entities: %w", err)
	}

	src, collector, err := a.buildSource()
	if err != nil {
		return err
	}
	logger.Info("factor source ready", "source", src.Name(), "collector", collector != nil)

	engine := index.NewEngine(index.Options{
		Tolerance:       cfg.Engine.WeightTolerance,
		StrictWeightSum: cfg.Engine.StrictWeightSum,
	}, logger)
	a.calc = pricing.NewCalculator(engine, src, registry, cfg.Pricing(), logger)
	a.recorder = runs.NewRecorder(a.store, a.hermes, logger)
	a.refresher = scheduler.New(a.calc, a.recorder, a.store, a.hermes, collector, cfg.RefreshInterval(), logger)
	return nil
}

func (a *app) hsCodes() []string {
	codes := make([]string, 0, len(a.cfg.ExportPrice.HSCodes))
	for _, h := range a.cfg.Pricing().HSCodes {
		codes = append(codes, h.Code)
	}
	return codes
}

func (a *app) httpSource() *source.HTTP {
	h := a.cfg.Sources.HTTP
	return source.NewHTTP(source.HTTPConfig{
		BaseURL:           h.URL,
		Token:             h.Token,
		Timeout:           a.cfg.HTTPTimeout(),
		RequestsPerSecond: h.RPS,
		Burst:             h.Burst,
	})
}

// buildSource assembles the serving source from the configured kind:
//
//	base -> instrumented -> derived -> fallback to sample -> redis cache
//
// A collector is returned when a live upstream can feed a persistent
// source.
func (a *app) buildSource() (source.Source, *scheduler.Collector, error) {
	cfg := a.cfg.Sources

	var base source.Source
	var sink source.Sink
	switch cfg.Kind {
	case "sample":
		base = source.NewSample()
	case "file":
		f := source.NewFile(filepath.Join(cfg.Dir, "snapshot.json"))
		base, sink = f, f
	case "postgres":
		if a.pool == nil {
			return nil, nil, fmt.Errorf("postgres source requires database.url")
		}
		p := source.NewPostgres(a.pool)
		base, sink = p, p
	case "http":
		if cfg.HTTP.URL == "" {
			return nil, nil, fmt.Errorf("http source requires sources.http.url")
		}
		base = a.httpSource()
	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}

	var src source.Source = source.WithDerivations(source.Instrument(base))
	if cfg.Fallback && cfg.Kind != "sample" {
		src = source.NewFallback(src, source.WithDerivations(source.NewSample()), a.logger)
	}

	var cached *source.Cached
	if a.redis != nil {
		cached = source.NewCached(src, a.redis, a.cfg.CacheTTL(), a.cfg.Redis.KeyPrefix, a.logger)
		src = cached
	}

	var collector *scheduler.Collector
	if sink != nil && cfg.HTTP.URL != "" {
		collector = &scheduler.Collector{
			Upstream: source.Instrument(a.httpSource()),
			Sink:     sink,
			Factors:  factors.Raw(a.hsCodes()...),
		}
		if cached != nil {
			derived := make([]index.Factor, 0, len(factors.Derivations()))
			for f := range factors.Derivations() {
				derived = append(derived, f)
			}
			collector.Invalidate = func(ctx context.Context, fs []index.Factor) error {
				return cached.Invalidate(ctx, append(append([]index.Factor(nil), fs...), derived...))
			}
		}
	}
	return src, collector, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
