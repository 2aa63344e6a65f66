package hooks

import (
	"sync"

	"github.com/yairfalse/memtrace/pkg/domain"
	"go.uber.org/zap"
)

// CallbackRegistry is an in-process Registry for hosts that do not bring
// their own instrumentation facility. It also acts as the dispatch point the
// host allocator calls into: Report fans a single allocator report out to
// every registered reporter that has profiling enabled.
type CallbackRegistry struct {
	mu         sync.RWMutex
	nextHandle Handle
	reporters  map[Handle]Reporter
	logger     *zap.Logger
}

// NewCallbackRegistry creates an empty registry. logger may be nil.
func NewCallbackRegistry(logger *zap.Logger) *CallbackRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallbackRegistry{
		reporters: make(map[Handle]Reporter),
		logger:    logger.Named("callback-registry"),
	}
}

// Register installs a reporter and returns its handle. Handles are positive
// and never reused within one registry.
func (cr *CallbackRegistry) Register(r Reporter) Handle {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	cr.nextHandle++
	h := cr.nextHandle
	cr.reporters[h] = r

	cr.logger.Debug("Reporter registered", zap.Int64("handle", int64(h)))
	return h
}

// Unregister removes a registration. Unknown handles are a benign no-op so
// instrumentation teardown never destabilizes the host.
func (cr *CallbackRegistry) Unregister(h Handle) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if _, ok := cr.reporters[h]; !ok {
		cr.logger.Debug("Unregister of unknown handle ignored", zap.Int64("handle", int64(h)))
		return
	}
	delete(cr.reporters, h)
	cr.logger.Debug("Reporter unregistered", zap.Int64("handle", int64(h)))
}

// ProfilingEnabled reports whether any registered reporter wants reports.
// Hosts check this before gathering call metadata.
func (cr *CallbackRegistry) ProfilingEnabled() bool {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	for _, r := range cr.reporters {
		if r.MemoryProfilingEnabled() {
			return true
		}
	}
	return false
}

// Report dispatches one allocator report to all registered reporters. The
// reporter set is snapshotted before dispatch: a hook that re-enters Report
// (a trace capturer allocating through the host allocator) must never
// read-lock behind a pending Unregister, or the allocator thread freezes.
func (cr *CallbackRegistry) Report(addr uint64, delta, totalAllocated, totalReserved int64, device domain.Device) {
	cr.mu.RLock()
	reporters := make([]Reporter, 0, len(cr.reporters))
	for _, r := range cr.reporters {
		reporters = append(reporters, r)
	}
	cr.mu.RUnlock()

	for _, r := range reporters {
		if r.MemoryProfilingEnabled() {
			r.ReportMemoryUsage(addr, delta, totalAllocated, totalReserved, device)
		}
	}
}

// Size returns the number of active registrations.
func (cr *CallbackRegistry) Size() int {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return len(cr.reporters)
}
