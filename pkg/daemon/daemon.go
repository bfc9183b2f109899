// Package daemon assembles the watcher, coordinator and maintenance
// loops into one runnable service.
package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/arthur-debert/morphd/pkg/config"
	"github.com/arthur-debert/morphd/pkg/coordinator"
	"github.com/arthur-debert/morphd/pkg/engines"
	"github.com/arthur-debert/morphd/pkg/fileops"
	"github.com/arthur-debert/morphd/pkg/guard"
	"github.com/arthur-debert/morphd/pkg/ingest"
	"github.com/arthur-debert/morphd/pkg/logging"
	"github.com/arthur-debert/morphd/pkg/notify"
	"github.com/arthur-debert/morphd/pkg/versions"
)

// Daemon is the assembled service. Build with New, drive with Run.
type Daemon struct {
	cfg     *config.Config
	watcher *ingest.Watcher
	coord   *coordinator.Coordinator
	guard   *guard.LoopGuard
}

// New builds a daemon with the production engine set and the configured
// notification backend.
func New(cfg *config.Config) (*Daemon, error) {
	return NewWith(cfg, engines.NewSet(), notify.ForMode(cfg.Notify.Mode))
}

// NewWith builds a daemon around explicit engines and notifier.
func NewWith(cfg *config.Config, set *engines.Set, notifier notify.Notifier) (*Daemon, error) {
	watcher, err := ingest.NewWatcher(cfg)
	if err != nil {
		return nil, err
	}

	g := guard.New(cfg.GuardTTL())
	store := versions.NewStore(cfg.Store.Root)
	return &Daemon{
		cfg:     cfg,
		watcher: watcher,
		coord:   coordinator.New(cfg, store, g, set, notifier),
		guard:   g,
	}, nil
}

// Run serves until ctx is cancelled. Shutdown is orderly: the watcher
// stops first, queued jobs drain, then maintenance loops exit.
func (d *Daemon) Run(ctx context.Context) error {
	logger := logging.GetLogger("daemon")

	if err := d.watcher.Start(); err != nil {
		return err
	}
	logger.Info().
		Strs("roots", d.cfg.Watch.Roots).
		Int("workers", d.cfg.Convert.Workers).
		Msg("daemon started")

	maintCtx, cancelMaint := context.WithCancel(context.Background())
	var maintWG sync.WaitGroup
	maintWG.Add(1)
	go func() {
		defer maintWG.Done()
		d.maintain(maintCtx)
	}()

	// The pool gets its own context so in-flight conversions finish
	// during shutdown instead of being abandoned half-written.
	poolDone := make(chan struct{})
	go func() {
		defer close(poolDone)
		d.coord.Run(context.Background(), d.watcher.Events(), d.cfg.Convert.Workers)
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	d.watcher.Stop()
	<-poolDone
	cancelMaint()
	maintWG.Wait()

	logger.Info().Msg("daemon stopped")
	return nil
}

// maintain runs the periodic housekeeping: loop guard pruning and the
// stale-temp sweep over every watch root.
func (d *Daemon) maintain(ctx context.Context) {
	logger := logging.GetLogger("daemon")

	d.sweep()

	pruneTicker := time.NewTicker(d.cfg.GuardTTL())
	defer pruneTicker.Stop()
	sweepTicker := time.NewTicker(d.cfg.TempSweepInterval())
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pruneTicker.C:
			d.guard.Prune()
		case <-sweepTicker.C:
			removed := d.sweep()
			if removed > 0 {
				logger.Info().Int("removed", removed).Msg("swept stale conversion temps")
			}
		}
	}
}

func (d *Daemon) sweep() int {
	removed := 0
	for _, root := range d.cfg.Watch.Roots {
		removed += fileops.SweepStaleTemps(root, d.cfg.TempMaxAge())
	}
	return removed
}
