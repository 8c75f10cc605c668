// Package runtime holds the resources the application needs while it runs
// and acquires and releases them from the lifespan hooks.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"appgate/application/lifespan"
	"appgate/resources/datastore"
	"appgate/resources/metrics"
	"appgate/resources/notify"
	"appgate/resources/settings"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// SnapshotPrefix is the datastore prefix of metrics snapshots.
const SnapshotPrefix = "metrics/"

type Datastore interface {
	Open(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

type ObjectStore interface {
	Connect(ctx context.Context) error
	Enabled() bool
	Put(ctx context.Context, key string, data []byte) error
}

type Cache interface {
	Connect(ctx context.Context) error
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Close() error
}

type Deps struct {
	Store   Datastore
	Objects ObjectStore
	Cache   Cache
	Metrics *metrics.Metrics
	// Notifier defaults to logging notifications.
	Notifier notify.Notifier
	Clock    clock.Clock
}

type Runtime struct {
	deps   Deps
	logger *slog.Logger

	mu          sync.Mutex
	settings    settings.Dynamic
	worker      *metrics.Worker
	storeOpen   bool
	cacheOpen   bool
	objectsOpen bool
}

var _ lifespan.Hooks = (*Runtime)(nil)

func New(deps Deps, logger *slog.Logger) *Runtime {
	if deps.Notifier == nil {
		deps.Notifier = notify.Log{Logger: logger}
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	return &Runtime{
		deps:     deps,
		logger:   logger,
		settings: settings.Defaults(),
	}
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// Startup acquires every resource in order. On failure, whatever was
// acquired is released again before returning.
func (r *Runtime) Startup(ctx context.Context) error {
	steps := []step{
		{"datastore connect", r.openStore},
		{"object store connect", r.connectObjects},
		{"cache connect", r.connectCache},
		{"read dynamic settings", r.readSettings},
		{"settings sanity check", r.checkSettings},
		{"spawn metrics worker", r.spawnWorker},
	}

	for _, s := range steps {
		r.logger.Debug("startup step", "step", s.name)
		if err := s.run(ctx); err != nil {
			r.rollback()
			return errors.Wrap(err, s.name)
		}
	}
	return nil
}

func (r *Runtime) openStore(ctx context.Context) error {
	if err := r.deps.Store.Open(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	r.storeOpen = true
	r.mu.Unlock()
	return nil
}

func (r *Runtime) connectObjects(ctx context.Context) error {
	if r.deps.Objects == nil {
		return nil
	}
	if err := r.deps.Objects.Connect(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	r.objectsOpen = true
	r.mu.Unlock()
	return nil
}

func (r *Runtime) connectCache(ctx context.Context) error {
	if err := r.deps.Cache.Connect(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	r.cacheOpen = true
	r.mu.Unlock()
	return nil
}

func (r *Runtime) readSettings(ctx context.Context) error {
	d, err := r.loadSettings(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.settings = d
	r.mu.Unlock()
	return nil
}

func (r *Runtime) checkSettings(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings.Validate()
}

func (r *Runtime) spawnWorker(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deps.Metrics == nil {
		return nil
	}
	r.worker = r.deps.Metrics.StartWorker(r.deps.Clock, r.settings.MetricsInterval, r.logger)
	return nil
}

func (r *Runtime) rollback() {
	if err := r.stopWorker(context.Background()); err != nil {
		r.logger.Warn("rollback failed", "step", "stop metrics worker", "error", err)
	}
	if err := r.closeCache(context.Background()); err != nil {
		r.logger.Warn("rollback failed", "step", "close cache", "error", err)
	}
	if err := r.closeStore(context.Background()); err != nil {
		r.logger.Warn("rollback failed", "step", "close datastore", "error", err)
	}
}

// Shutdown releases every resource. A failing step does not stop the
// remaining ones; all failures are returned together.
func (r *Runtime) Shutdown(ctx context.Context) error {
	steps := []step{
		{"stop metrics worker", r.stopWorker},
		{"flush metrics", r.flushMetrics},
		{"notify operators", r.notifyShutdown},
		{"close cache", r.closeCache},
		{"close datastore", r.closeStore},
	}

	var err error
	for _, s := range steps {
		r.logger.Debug("shutdown step", "step", s.name)
		if serr := s.run(ctx); serr != nil {
			r.logger.Warn("shutdown step failed", "step", s.name, "error", serr)
			err = multierr.Append(err, errors.Wrap(serr, s.name))
		}
	}
	return err
}

func (r *Runtime) stopWorker(ctx context.Context) error {
	r.mu.Lock()
	w := r.worker
	r.worker = nil
	r.mu.Unlock()

	if w != nil {
		w.Stop()
	}
	return nil
}

// flushMetrics stores a snapshot, prunes old ones and archives the new one
// when an object store is configured.
func (r *Runtime) flushMetrics(ctx context.Context) error {
	r.mu.Lock()
	storeOpen, objectsOpen := r.storeOpen, r.objectsOpen
	retention := r.settings.SnapshotRetention
	r.mu.Unlock()

	if r.deps.Metrics == nil || !storeOpen {
		return nil
	}

	snap, err := r.deps.Metrics.Snapshot()
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s%020d", SnapshotPrefix, r.deps.Clock.Now().UnixNano())
	if err := r.deps.Store.Put(ctx, key, snap); err != nil {
		return err
	}

	keys, err := r.deps.Store.Keys(ctx, SnapshotPrefix)
	if err != nil {
		return err
	}
	for len(keys) > retention {
		if err := r.deps.Store.Delete(ctx, keys[0]); err != nil {
			return err
		}
		keys = keys[1:]
	}

	if objectsOpen && r.deps.Objects.Enabled() {
		return r.deps.Objects.Put(ctx, key, snap)
	}
	return nil
}

func (r *Runtime) notifyShutdown(ctx context.Context) error {
	r.mu.Lock()
	enabled := r.settings.NotifyOnShutdown
	r.mu.Unlock()

	if !enabled {
		return nil
	}
	return r.deps.Notifier.Notify(ctx, "shutdown", "appgate is shutting down")
}

func (r *Runtime) closeCache(ctx context.Context) error {
	r.mu.Lock()
	open := r.cacheOpen
	r.cacheOpen = false
	r.mu.Unlock()

	if !open {
		return nil
	}
	return r.deps.Cache.Close()
}

func (r *Runtime) closeStore(ctx context.Context) error {
	r.mu.Lock()
	open := r.storeOpen
	r.storeOpen = false
	r.objectsOpen = false
	r.mu.Unlock()

	if !open {
		return nil
	}
	return r.deps.Store.Close()
}

// Settings returns the dynamic settings, read through the cache.
func (r *Runtime) Settings(ctx context.Context) (settings.Dynamic, error) {
	return r.loadSettings(ctx)
}

func (r *Runtime) loadSettings(ctx context.Context) (settings.Dynamic, error) {
	if data, ok := r.deps.Cache.Get(settings.Key); ok {
		return settings.Parse(data)
	}

	d, err := settings.Read(ctx, r.deps.Store, isNotFound)
	if err != nil {
		return settings.Dynamic{}, err
	}

	data, err := d.Marshal()
	if err != nil {
		return settings.Dynamic{}, err
	}
	if err := r.deps.Cache.Set(settings.Key, data); err != nil {
		r.logger.Debug("settings not cached", "error", err)
	}
	return d, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, datastore.ErrNotFound)
}
