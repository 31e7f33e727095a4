package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/initiative/internal/config"
	"github.com/Iron-Ham/initiative/internal/errors"
	"github.com/Iron-Ham/initiative/internal/event"
	"github.com/Iron-Ham/initiative/internal/logging"
	"github.com/Iron-Ham/initiative/internal/metrics"
	"github.com/Iron-Ham/initiative/internal/store"
	"github.com/Iron-Ham/initiative/internal/store/sqlite"
	"github.com/Iron-Ham/initiative/internal/tracker"
)

// env is everything one command invocation needs: configuration, the
// document stores and a tracker wired to them.
type env struct {
	cfg      *config.Config
	logger   *logging.Logger
	bus      *event.Bus
	db       *sqlite.DB
	registry *prometheus.Registry
	tracker  *tracker.Tracker

	mu       sync.Mutex
	failures []error
	failSub  string
}

// openEnv loads configuration and opens the encounter. With watch set the
// sqlite store follows writes from other processes and the tracker
// re-syncs rings when they arrive.
func openEnv(ctx context.Context, watch bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e := &env{cfg: cfg}

	e.logger = logging.NopLogger()
	if cfg.Logging.Enabled {
		logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		e.logger = logger
	}

	e.loadCustomThemes()

	e.bus = event.NewBus(event.WithLogger(e.logger))
	e.failSub = e.bus.Subscribe(event.TypeTrackerFailed, func(ev event.Event) {
		if f, ok := ev.(event.TrackerFailedEvent); ok {
			e.mu.Lock()
			e.failures = append(e.failures, fmt.Errorf("%s: %w", f.Command, f.Err))
			e.mu.Unlock()
		}
	})

	var collector metrics.Collector = metrics.NewNop()
	if cfg.Metrics.Enabled {
		e.registry = prometheus.NewRegistry()
		collector = metrics.NewPrometheus(e.registry, cfg.Metrics.Namespace)
	}

	g, err := cfg.Grid.Service()
	if err != nil {
		_ = e.logger.Close()
		return nil, err
	}

	var (
		entities store.EntityStore
		overlays store.OverlayStore
	)
	switch cfg.Store.Backend {
	case "memory":
		entities = store.NewMemoryEntities(store.WithBus(e.bus))
		overlays = store.NewMemoryOverlays(store.WithBus(e.bus))
	default:
		db, err := sqlite.Open(ctx, cfg.Store.Path,
			sqlite.WithBus(e.bus),
			sqlite.WithLogger(e.logger),
			sqlite.WithWatch(watch),
		)
		if err != nil {
			_ = e.logger.Close()
			return nil, err
		}
		e.db = db
		entities, overlays = db.Entities(), db.Overlays()
	}

	e.tracker = tracker.New(entities, overlays, g,
		tracker.WithBus(e.bus),
		tracker.WithLogger(e.logger),
		tracker.WithMetrics(collector),
		tracker.WithDebounce(cfg.Rings.Debounce()),
		tracker.WithDeletePoll(cfg.Rings.DeletePollAttempts, cfg.Rings.DeletePollDelay()),
		tracker.WithTouchRange(cfg.Rings.TouchRange),
		tracker.WithRingDefaults(cfg.Rings.Defaults()),
		tracker.WithAutoSync(watch),
	)

	if n, err := e.tracker.Migrate(ctx); err != nil {
		e.logger.Warn("participant migration failed", "error", err)
	} else if n > 0 {
		e.logger.Info("migrated participant records", "count", n)
	}

	return e, nil
}

// Failed returns the failures published so far, joined.
func (e *env) Failed() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return errors.Join(e.failures...)
}

func (e *env) resetFailures() {
	e.mu.Lock()
	e.failures = nil
	e.mu.Unlock()
}

// Close waits for pending ring passes, then releases the stores and the
// log file. It reports every tracker failure seen during the invocation.
func (e *env) Close(ctx context.Context) error {
	flushErr := e.tracker.Flush(ctx)
	e.tracker.Close()
	e.bus.Unsubscribe(e.failSub)

	var dbErr error
	if e.db != nil {
		dbErr = e.db.Close()
	}
	_ = e.logger.Close()

	return errors.Join(e.Failed(), flushErr, dbErr)
}

// withEnv opens the encounter, runs fn and closes it again. Close waits
// for the ring pass fn scheduled, so the command returns with rings
// reconciled.
func withEnv(cmd *cobra.Command, watch bool, fn func(context.Context, *env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	e, err := openEnv(ctx, watch)
	if err != nil {
		return err
	}
	runErr := fn(ctx, e)
	closeErr := e.Close(ctx)
	if runErr != nil {
		return runErr
	}
	return closeErr
}

func (e *env) printer(cmd *cobra.Command) *printer {
	return newPrinter(cmd.OutOrStdout(), e.cfg.TUI.Theme)
}
