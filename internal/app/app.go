// Package app wires configuration into the per-data-type pipelines and
// runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"valdsync/internal/archive"
	"valdsync/internal/config"
	"valdsync/internal/pipeline"
	"valdsync/internal/state"
	"valdsync/internal/transform"
	"valdsync/internal/vald"
	"valdsync/internal/warehouse"
	"valdsync/libs/db"
	libredis "valdsync/libs/redis"
)

// runner is one processor's pipeline.
type runner interface {
	Run(ctx context.Context) (pipeline.Summary, error)
}

// processor is a transformer that also names its destination table.
type processor interface {
	pipeline.Transformer
	Table() string
}

// processors lists every data type in its fixed run order. The composite
// processor reads the same CMJ sessions as the cmj one but writes its own
// table and keeps its own window marker.
var processors = []processor{
	transform.CMJ{},
	transform.HJ{},
	transform.IMTP{},
	transform.PPU{},
	transform.Composite{},
}

// App holds the wired pipelines and the resources they share.
type App struct {
	logger  *zap.Logger
	runners map[string]runner
	order   []string
	closers []func() error
}

// New builds the five processors from configuration, connecting to the
// warehouse and the state backend up front so a bad setup fails before any
// API call.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger, runners: map[string]runner{}}

	windowStart, err := cfg.WindowStart()
	if err != nil {
		return nil, err
	}

	httpClient := vald.NewDefaultHTTPClient(cfg.VALD.Timeout)
	tokens := vald.NewTokenSource(cfg.VALD.AuthURL, cfg.VALD.ClientID, cfg.VALD.ClientSecret, httpClient)
	client := vald.NewClient(vald.Options{
		ForceDecksURL: cfg.VALD.ForceDecksURL,
		ProfileURL:    cfg.VALD.ProfileURL,
		TenantID:      cfg.VALD.TenantID,
	}, tokens, httpClient)

	pool, err := db.NewPostgresDB(ctx, cfg.Warehouse.DSN)
	if err != nil {
		return nil, fmt.Errorf("app: connect warehouse: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	repo := warehouse.NewResultsRepo(pool, cfg.Warehouse.TablePrefix)

	store, err := newStateStore(ctx, cfg.State)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	var archiver pipeline.Archiver
	if cfg.Archive.Enabled {
		archiver = archive.NewWriter(cfg.Archive.Dir)
	}

	retry := pipeline.RetryPolicy{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
	}

	for _, proc := range processors {
		a.runners[proc.Name()] = pipeline.New(pipeline.Params{
			Fetcher:      vald.NewRecordSource(client, proc.TestType(), cfg.VALD.AthleteDelay, logger),
			Transformer:  proc,
			Destination:  warehouse.NewTableDestination(repo, proc.Table()),
			State:        store,
			Archiver:     archiver,
			Retry:        retry,
			DefaultStart: windowStart,
			Logger:       logger,
		})
		a.order = append(a.order, proc.Name())
	}
	return a, nil
}

func newStateStore(ctx context.Context, cfg config.StateConfig) (state.Store, error) {
	switch cfg.Backend {
	case "redis":
		client, err := libredis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("app: connect state redis: %w", err)
		}
		return state.NewRedisStore(client, cfg.KeyPrefix), nil
	case "sqlite":
		store, err := state.OpenSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("app: open state sqlite: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("app: unknown state backend %q", cfg.Backend)
	}
}

// Names returns the processor names in run order.
func (a *App) Names() []string {
	return append([]string(nil), a.order...)
}

// RunOne runs a single processor by name.
func (a *App) RunOne(ctx context.Context, name string) error {
	r, ok := a.runners[name]
	if !ok {
		return fmt.Errorf("app: unknown processor %q (have %s)", name, strings.Join(a.order, ", "))
	}
	if _, err := r.Run(ctx); err != nil {
		a.logger.Error("processor failed", zap.String("processor", name), zap.Error(err))
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// RunAll runs every processor in order. A failing processor never stops
// its siblings; the combined error reports which ones failed.
func (a *App) RunAll(ctx context.Context) error {
	started := time.Now()
	var failures []error
	for _, name := range a.order {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}
		if err := a.RunOne(ctx, name); err != nil {
			failures = append(failures, err)
		}
	}

	a.logger.Info("batch finished",
		zap.Int("processors", len(a.order)),
		zap.Int("failed", len(failures)),
		zap.Duration("duration", time.Since(started)),
	)
	return errors.Join(failures...)
}

// Close releases shared resources in reverse acquisition order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
