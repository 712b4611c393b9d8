package sandbox

// ABOUTME: Process-wide registry of preview containers: record bookkeeping,
// ABOUTME: TTL sweeping, and persistence across restarts.

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/drydock-dev/drydock/internal/runtime"
)

// teardownTimeout bounds the daemon round-trips for one container
// teardown inside sweep and stop paths.
const teardownTimeout = 30 * time.Second

// Registry tracks the preview containers this host is running. One
// instance per process; foreground mutations and the background sweep
// serialize on a single lock.
type Registry struct {
	cfg    *Config
	rt     runtime.Runtime
	logger *slog.Logger

	mu      sync.Mutex
	records map[string]*PreviewInstance

	stopSweep chan struct{}
	sweepDone chan struct{}
	closeOnce sync.Once
}

// NewRegistry loads persisted records and starts the TTL sweep. A nil
// runtime disables container teardown; record bookkeeping still works,
// which keeps read-only commands usable when the daemon is down.
func NewRegistry(cfg *Config, rt runtime.Runtime, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	records, err := loadRecords(cfg.RegistryPath())
	if err != nil {
		// A corrupt registry file must not brick every preview command.
		logger.Warn("registry file unreadable, starting empty", "error", err)
		records = map[string]*PreviewInstance{}
	}

	r := &Registry{
		cfg:       cfg,
		rt:        rt,
		logger:    logger,
		records:   records,
		stopSweep: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry, constructing it on
// first call. Arguments passed on later calls are ignored.
func DefaultRegistry(cfg *Config, rt runtime.Runtime, logger *slog.Logger) *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry(cfg, rt, logger)
	})
	return defaultRegistry
}

func (r *Registry) sweepLoop() {
	defer close(r.sweepDone)

	interval := time.Duration(r.cfg.SweepInterval) * time.Second
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopSweep:
			return
		case <-ticker.C:
			if swept := r.SweepExpired(context.Background()); len(swept) > 0 {
				r.logger.Info("swept expired previews", "count", len(swept))
			}
		}
	}
}

// Close stops the background sweep. Records stay persisted.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.stopSweep)
		<-r.sweepDone
	})
}

// Register adds or replaces a record and persists the registry.
func (r *Registry) Register(rec *PreviewInstance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *rec
	r.records[rec.ContainerID] = &clone
	r.persistLocked()
}

// UpdateStatus moves a record to a new status and persists. A terminal
// record never regresses to an active status; stale poll results must
// not resurrect a stopped preview.
func (r *Registry) UpdateStatus(containerID string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[containerID]
	if !ok {
		return
	}
	if rec.Status.Terminal() && status.Active() {
		r.logger.Warn("ignoring status regression",
			"container", shortID(containerID), "from", rec.Status, "to", status)
		return
	}
	rec.Status = status
	r.persistLocked()
}

// Get returns a copy of the record for a container ID.
func (r *Registry) Get(containerID string) (PreviewInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[containerID]
	if !ok {
		return PreviewInstance{}, false
	}
	return *rec, true
}

// GetBySession returns the session's active record, if any. A session
// holds at most one active preview.
func (r *Registry) GetBySession(sessionID string) (PreviewInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.SessionID == sessionID && rec.Status.Active() {
			return *rec, true
		}
	}
	return PreviewInstance{}, false
}

// All returns every record, sorted by port for stable listings.
func (r *Registry) All() []PreviewInstance {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PreviewInstance, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}

// Active returns the records whose containers should be live.
func (r *Registry) Active() []PreviewInstance {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PreviewInstance
	for _, rec := range r.records {
		if rec.Status.Active() {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}

// SweepExpired tears down every active record past its TTL and marks it
// expired. Returns the container IDs swept.
func (r *Registry) SweepExpired(ctx context.Context) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var swept []string
	for _, rec := range r.records {
		if !rec.Status.Active() || !rec.Expired() {
			continue
		}
		r.teardown(ctx, rec.ContainerID)
		rec.Status = StatusExpired
		swept = append(swept, rec.ContainerID)
	}
	if len(swept) > 0 {
		r.persistLocked()
	}
	return swept
}

// PruneStaleTerminal drops terminal records so dead entries do not
// accumulate in the registry file. Returns the number removed.
func (r *Registry) PruneStaleTerminal() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, rec := range r.records {
		if rec.Status.Terminal() {
			delete(r.records, id)
			removed++
		}
	}
	if removed > 0 {
		r.persistLocked()
	}
	return removed
}

// Stop tears down a preview container and marks its record stopped.
// Unknown IDs still get a teardown attempt; the daemon may hold a
// container the registry lost track of. Reports whether this call
// transitioned a record out of an active status.
func (r *Registry) Stop(ctx context.Context, containerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[containerID]
	if !ok {
		r.teardown(ctx, containerID)
		return false
	}

	wasActive := rec.Status.Active()
	r.teardown(ctx, containerID)
	if wasActive {
		rec.Status = StatusStopped
		r.persistLocked()
	}
	return wasActive
}

// StopSession stops every active container for a session, returning the
// count stopped.
func (r *Registry) StopSession(ctx context.Context, sessionID string) int {
	r.mu.Lock()
	var ids []string
	for id, rec := range r.records {
		if rec.SessionID == sessionID && rec.Status.Active() {
			ids = append(ids, id)
		}
	}
	r.mu.Unlock()

	count := 0
	for _, id := range ids {
		if r.Stop(ctx, id) {
			count++
		}
	}
	return count
}

// StopAll stops every registered container, terminal records included;
// their daemon containers may still exist. Returns the count of records
// transitioned.
func (r *Registry) StopAll(ctx context.Context) int {
	r.mu.Lock()
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	count := 0
	for _, id := range ids {
		if r.Stop(ctx, id) {
			count++
		}
	}
	return count
}

// teardown best-effort stops and removes the daemon container. Callers
// hold r.mu; failures are logged and swallowed, cleanup never masks the
// primary result.
func (r *Registry) teardown(ctx context.Context, containerID string) {
	if r.rt == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, teardownTimeout)
	defer cancel()
	if err := r.rt.Stop(ctx, containerID); err != nil {
		r.logger.Debug("stop container", "container", shortID(containerID), "error", err)
	}
	if err := r.rt.Remove(ctx, containerID); err != nil {
		r.logger.Debug("remove container", "container", shortID(containerID), "error", err)
	}
}

func (r *Registry) persistLocked() {
	if err := saveRecords(r.cfg.RegistryPath(), r.records); err != nil {
		r.logger.Warn("persist registry", "error", err)
	}
}

// shortID truncates a container ID for log lines.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
