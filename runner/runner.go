// Package runner drives the scheduled store tasks: a minute ticker
// evaluates every store's schedule and runs due stores concurrently, each
// walk feeding change detection and a transactional commit.
package runner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"storewatch/catalog"
	"storewatch/config"
	"storewatch/notify"
	"storewatch/schedule"
	"storewatch/storage"
	"storewatch/useragent"
)

// CatalogWalker produces the full current item list for one store run.
// Implemented by the HTML pagination walker and the feed walker.
type CatalogWalker interface {
	Walk(ctx context.Context, store *config.StoreConfig) ([]catalog.Item, error)
}

// Runner orchestrates all configured stores.
type Runner struct {
	stores     []*config.StoreConfig
	walker     CatalogWalker
	feedWalker CatalogWalker
	store      *storage.Store
	rotator    *useragent.Rotator
	notifier   notify.Notifier
	log        *zap.Logger

	// sem bounds the number of store tasks in flight at once.
	sem chan struct{}
}

// New wires a runner. maxConcurrent bounds simultaneous store tasks;
// fetches are I/O bound, so a small bound keeps the process polite without
// serializing everything.
func New(stores []*config.StoreConfig, walker, feedWalker CatalogWalker,
	store *storage.Store, rotator *useragent.Rotator,
	notifier notify.Notifier, maxConcurrent int, log *zap.Logger) *Runner {
	return &Runner{
		stores:     stores,
		walker:     walker,
		feedWalker: feedWalker,
		store:      store,
		rotator:    rotator,
		notifier:   notifier,
		log:        log,
		sem:        make(chan struct{}, maxConcurrent),
	}
}

// Run ticks once per minute until the context is cancelled, launching a
// task for every store whose schedule matches the tick. In-flight tasks
// drain before Run returns; the rotation index gets a final flush.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var wg sync.WaitGroup
	r.launchDue(ctx, &wg, time.Now())

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			if err := r.rotator.Flush(); err != nil {
				r.log.Error("final rotation index flush failed", zap.Error(err))
			}
			return ctx.Err()
		case now := <-ticker.C:
			r.launchDue(ctx, &wg, now)
		}
	}
}

// RunAll runs every store exactly once, ignoring schedules. Used for
// manual one-shot invocations.
func (r *Runner) RunAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, store := range r.stores {
		r.launch(ctx, &wg, store)
	}
	wg.Wait()
	if err := r.rotator.Flush(); err != nil {
		r.log.Error("final rotation index flush failed", zap.Error(err))
	}
}

// launchDue starts a task for each store due at the given minute. The
// ticker fires once per minute, so a schedule never double-fires within
// one matching minute.
func (r *Runner) launchDue(ctx context.Context, wg *sync.WaitGroup, now time.Time) {
	for _, store := range r.stores {
		if schedule.Due(store.Schedule, now) {
			r.launch(ctx, wg, store)
		}
	}
}

func (r *Runner) launch(ctx context.Context, wg *sync.WaitGroup, store *config.StoreConfig) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case r.sem <- struct{}{}:
			defer func() { <-r.sem }()
		case <-ctx.Done():
			return
		}
		r.runStore(ctx, store)
	}()
}

// runStore executes one complete run for one store. Failures are reported
// and isolated: nothing a single store does affects the others' schedule.
func (r *Runner) runStore(ctx context.Context, store *config.StoreConfig) {
	log := r.log.With(zap.String("store", store.Name))
	log.Debug("store run starting")

	defer func() {
		// Persist rotation progress even when the walk failed; the fetches
		// already happened.
		if err := r.rotator.Flush(); err != nil {
			log.Error("failed to flush rotation index", zap.Error(err))
		}
	}()

	walker := r.walker
	if store.IsFeed() {
		walker = r.feedWalker
	}

	items, err := walker.Walk(ctx, store)
	if err != nil {
		r.notifier.RunFailed(store.Name, err)
		return
	}

	firstRun, err := r.store.FirstRun(store.Name)
	if err != nil {
		r.notifier.RunFailed(store.Name, err)
		return
	}

	previous, err := r.store.State(store.Name)
	if err != nil {
		r.notifier.RunFailed(store.Name, err)
		return
	}

	events, next := catalog.Diff(store.Name, items, previous)
	if firstRun {
		// The first walk seeds the baseline; reporting the entire catalog
		// as new would be noise.
		log.Info("first run, seeding catalog state", zap.Int("items", len(next)))
		events = nil
	}

	if err := r.store.Commit(store.Name, next, events); err != nil {
		r.notifier.RunFailed(store.Name, err)
		return
	}

	for _, ev := range events {
		r.notifier.Change(ev)
	}
	log.Debug("store run complete",
		zap.Int("items", len(next)),
		zap.Int("events", len(events)))
}
