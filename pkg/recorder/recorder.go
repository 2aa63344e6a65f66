// Package recorder implements the allocation event recorder: the per-window
// recording state invoked synchronously from inside the host allocator, and
// the enable/disable lifecycle that installs it.
package recorder

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/yairfalse/memtrace/internal/observers/base"
	"github.com/yairfalse/memtrace/pkg/domain"
	"github.com/yairfalse/memtrace/pkg/hooks"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// frameContext is one entry of the context stack: the frame's identity for
// attribution and the bracket event still being filled.
type frameContext struct {
	nodeID *domain.FrameNodeID
	event  *domain.FrameBracketEvent
}

// Recorder accumulates allocation and frame-bracket events for one enable
// window. It is the single mutation point: the host allocator calls
// ReportMemoryUsage on every allocate/free, the host engine brackets each
// tracked invocation with EnterFrame/ExitFrame. All methods are safe for
// concurrent use; the critical section is kept to the append itself.
type Recorder struct {
	*base.BaseObserver

	config *Config
	logger *zap.Logger

	mu           sync.Mutex
	events       []domain.RecordedEvent
	contextStack []*frameContext

	handle atomic.Int64

	// Re-entrancy guard: goroutine ids currently inside ReportMemoryUsage.
	// A report triggered by the hook's own capture work would recurse
	// without this.
	inflight sync.Map

	// Wall micros at creation plus the monotonic delta gives per-goroutine
	// non-decreasing timestamps even across wall clock steps.
	startWall  time.Time
	startMicro int64

	traceCache *lru.Cache

	// Recorder-specific metrics beyond BaseObserver
	allocationsRecorded metric.Int64Counter
	freesRecorded       metric.Int64Counter
	framesRecorded      metric.Int64Counter
	suppressedReports   metric.Int64Counter
}

// NewRecorder creates the recording state for one enable window. The config
// must already be validated.
func NewRecorder(config *Config, logger *zap.Logger) *Recorder {
	baseObserver := base.NewBaseObserverWithConfig(base.BaseObserverConfig{
		Name:               config.Name,
		HealthCheckTimeout: config.HealthCheckTimeout,
		ErrorRateThreshold: config.ErrorRateThreshold,
		Logger:             logger,
	})

	now := time.Now()
	r := &Recorder{
		BaseObserver: baseObserver,
		config:       config,
		logger:       logger.Named(config.Name),
		events:       make([]domain.RecordedEvent, 0, config.BufferCapacity),
		startWall:    now,
		startMicro:   now.UnixMicro(),
	}

	if config.CaptureStackTraces {
		cache, err := lru.New(config.TraceCacheSize)
		if err != nil {
			r.logger.Warn("Failed to create trace cache, capturing uncached", zap.Error(err))
		} else {
			r.traceCache = cache
		}
	}

	meter := baseObserver.GetMeter()

	var err error
	r.allocationsRecorded, err = meter.Int64Counter(
		"memtrace_allocations_recorded_total",
		metric.WithDescription("Total allocation events recorded"),
	)
	if err != nil {
		r.logger.Warn("Failed to create allocations counter", zap.Error(err))
	}

	r.freesRecorded, err = meter.Int64Counter(
		"memtrace_frees_recorded_total",
		metric.WithDescription("Total free events recorded"),
	)
	if err != nil {
		r.logger.Warn("Failed to create frees counter", zap.Error(err))
	}

	r.framesRecorded, err = meter.Int64Counter(
		"memtrace_frames_recorded_total",
		metric.WithDescription("Total frame bracket events recorded"),
	)
	if err != nil {
		r.logger.Warn("Failed to create frames counter", zap.Error(err))
	}

	r.suppressedReports, err = meter.Int64Counter(
		"memtrace_suppressed_reports_total",
		metric.WithDescription("Total re-entrant reports suppressed"),
	)
	if err != nil {
		r.logger.Warn("Failed to create suppressed reports counter", zap.Error(err))
	}

	return r
}

// nowMicros returns microseconds anchored at creation time, advanced by the
// monotonic clock.
func (r *Recorder) nowMicros() int64 {
	return r.startMicro + time.Since(r.startWall).Microseconds()
}

// ReportMemoryUsage records one allocate or free. Direction is decided by
// the injected DirectionPolicy; the innermost active frame, if any, becomes
// the event's origin. Implements hooks.Reporter.
func (r *Recorder) ReportMemoryUsage(addr uint64, delta, totalAllocated, totalReserved int64, device domain.Device) {
	gid := goroutineID()
	if _, nested := r.inflight.LoadOrStore(gid, struct{}{}); nested {
		if r.suppressedReports != nil {
			r.suppressedReports.Add(context.Background(), 1)
		}
		return
	}
	defer r.inflight.Delete(gid)

	kind := r.config.DirectionPolicy(delta, totalAllocated, totalReserved)
	event := &domain.AllocationEvent{
		Timestamp: r.nowMicros(),
		Address:   addr,
		Size:      delta,
		Kind:      kind,
	}

	r.mu.Lock()
	if top := r.topContext(); top != nil {
		event.Origin = top.nodeID
	}
	r.mu.Unlock()

	// Capture outside the lock; the inflight guard suppresses any report
	// the capturer itself triggers.
	if r.config.CaptureStackTraces {
		event.StackTrace = r.captureTrace(event.Origin)
	}

	r.mu.Lock()
	r.events = append(r.events, domain.NewMemoryEvent(event))
	r.mu.Unlock()

	r.RecordEvent()
	attrs := metric.WithAttributes(attribute.String("device", string(device)))
	switch kind {
	case domain.EventAllocate:
		if r.allocationsRecorded != nil {
			r.allocationsRecorded.Add(context.Background(), 1, attrs)
		}
	case domain.EventFree:
		if r.freesRecorded != nil {
			r.freesRecorded.Add(context.Background(), 1, attrs)
		}
	}
}

// topContext returns the innermost active frame context. Caller holds mu.
func (r *Recorder) topContext() *frameContext {
	if len(r.contextStack) == 0 {
		return nil
	}
	return r.contextStack[len(r.contextStack)-1]
}

// captureTrace materializes a stack trace, interning by origin pc when a
// frame is active so repeated allocations from one site pay capture once.
func (r *Recorder) captureTrace(origin *domain.FrameNodeID) string {
	if origin != nil && r.traceCache != nil {
		if cached, ok := r.traceCache.Get(origin.PC); ok {
			return cached.(string)
		}
		trace := r.config.TraceCapturer()
		r.traceCache.Add(origin.PC, trace)
		return trace
	}
	return r.config.TraceCapturer()
}

// EnterFrame pushes a frame context and records the partially-filled bracket
// event at its entry position. node may be nil when the host has no static
// descriptor for the invocation.
func (r *Recorder) EnterFrame(name string, node domain.Node, pc uint64, inputAddrs []uint64, inputNames []string) {
	if len(inputAddrs) != len(inputNames) {
		r.logger.Warn("Frame inputs out of step, truncating to shorter side",
			zap.String("frame", name),
			zap.Int("addrs", len(inputAddrs)),
			zap.Int("names", len(inputNames)))
		n := min(len(inputAddrs), len(inputNames))
		inputAddrs, inputNames = inputAddrs[:n], inputNames[:n]
	}

	event := &domain.FrameBracketEvent{
		FnName:     name,
		StartTime:  r.nowMicros(),
		InputAddrs: inputAddrs,
		InputNames: inputNames,
	}
	fc := &frameContext{
		nodeID: &domain.FrameNodeID{PC: pc, Node: node},
		event:  event,
	}

	r.mu.Lock()
	r.events = append(r.events, domain.NewFrameEvent(event))
	r.contextStack = append(r.contextStack, fc)
	r.mu.Unlock()

	r.RecordEvent()
	if r.framesRecorded != nil {
		r.framesRecorded.Add(context.Background(), 1)
	}
}

// ExitFrame pops the innermost frame context and completes its bracket
// event with the end timestamp and outputs. An exit without a matching
// enter is a logged no-op.
func (r *Recorder) ExitFrame(outputAddrs []uint64, outputNames []string) {
	if len(outputAddrs) != len(outputNames) {
		r.logger.Warn("Frame outputs out of step, truncating to shorter side",
			zap.Int("addrs", len(outputAddrs)),
			zap.Int("names", len(outputNames)))
		n := min(len(outputAddrs), len(outputNames))
		outputAddrs, outputNames = outputAddrs[:n], outputNames[:n]
	}

	end := r.nowMicros()

	r.mu.Lock()
	if len(r.contextStack) == 0 {
		r.mu.Unlock()
		r.logger.Warn("ExitFrame without matching EnterFrame ignored")
		return
	}
	fc := r.contextStack[len(r.contextStack)-1]
	r.contextStack = r.contextStack[:len(r.contextStack)-1]
	fc.event.EndTime = end
	fc.event.OutputAddrs = outputAddrs
	fc.event.OutputNames = outputNames
	r.mu.Unlock()
}

// MemoryProfilingEnabled implements hooks.Reporter. A live recorder always
// wants reports; installation is controlled by registration.
func (r *Recorder) MemoryProfilingEnabled() bool {
	return true
}

// SetCallbackHandle stores the registration token.
func (r *Recorder) SetCallbackHandle(h hooks.Handle) {
	r.handle.Store(int64(h))
}

// CallbackHandle returns the registration token.
func (r *Recorder) CallbackHandle() hooks.Handle {
	return hooks.Handle(r.handle.Load())
}

// HasCallbackHandle reports whether the recorder holds a live registration.
func (r *Recorder) HasCallbackHandle() bool {
	return r.CallbackHandle().IsRegistered()
}

// MoveEvents transfers the accumulated buffer to the caller and leaves the
// recorder empty. Called once, at disable.
func (r *Recorder) MoveEvents() []domain.RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := r.events
	r.events = nil
	if n := len(r.contextStack); n > 0 {
		r.logger.Warn("Frames still open at disable", zap.Int("open_frames", n))
		r.contextStack = nil
	}
	return events
}
