package recorder

import (
	"context"
	"fmt"
	"sync"

	"github.com/yairfalse/memtrace/pkg/domain"
	"github.com/yairfalse/memtrace/pkg/hooks"
	"go.uber.org/zap"
)

// Observer is the caller-facing lifecycle surface. Enable installs a fresh
// Recorder into the host's registration facility; Disable removes it and
// hands the captured buffer back. The observer owns the recorder for the
// whole enabled window; the returned buffer belongs to the caller.
type Observer struct {
	mu       sync.Mutex
	config   *Config
	registry hooks.Registry
	logger   *zap.Logger
	recorder *Recorder
}

// NewObserver creates a lifecycle observer bound to the host's registration
// facility. config may be nil for defaults; logger may be nil. The config is
// copied, so the caller's struct is never written to.
func NewObserver(registry hooks.Registry, config *Config, logger *zap.Logger) (*Observer, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}

	cfg := DefaultConfig()
	if config != nil {
		c := *config
		cfg = &c
	}
	if cfg.DirectionPolicy == nil {
		cfg.DirectionPolicy = hooks.SignDirectionPolicy
	}
	if cfg.TraceCapturer == nil {
		cfg.TraceCapturer = hooks.RuntimeTraceCapturer
	}
	if cfg.CaptureStackTraces && cfg.TraceCacheSize == 0 {
		cfg.TraceCacheSize = DefaultConfig().TraceCacheSize
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	return &Observer{
		config:   cfg,
		registry: registry,
		logger:   logger.Named(cfg.Name),
	}, nil
}

// Enable constructs a fresh recorder and registers it with the host's
// callback facility. Enabling an enabled observer is a no-op: one
// registration, one buffer.
func (o *Observer) Enable() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.recorder != nil {
		o.logger.Debug("Enable while already enabled ignored")
		return
	}

	rec := NewRecorder(o.config, o.logger)

	_, span := rec.StartSpan(context.Background(), "memtrace.enable")
	defer span.End()

	handle := o.registry.Register(rec)
	rec.SetCallbackHandle(handle)
	rec.SetHealthy(true)
	o.recorder = rec

	o.logger.Info("Memory observer enabled",
		zap.String("name", o.config.Name),
		zap.Int64("handle", int64(handle)),
		zap.Bool("capture_stack_traces", o.config.CaptureStackTraces),
	)
}

// Disable unregisters the recorder and returns the captured events in the
// order observed. Disabling a disabled observer returns an empty sequence
// and does nothing else. Hook invocations already past their entry check on
// another goroutine may complete against the old state; no recording occurs
// for hooks invoked after Disable returns.
func (o *Observer) Disable() []domain.RecordedEvent {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.recorder == nil {
		return nil
	}

	rec := o.recorder

	_, span := rec.StartSpan(context.Background(), "memtrace.disable")
	defer span.End()

	o.registry.Unregister(rec.CallbackHandle())
	rec.SetCallbackHandle(0)
	rec.SetHealthy(false)

	events := rec.MoveEvents()
	o.recorder = nil

	o.logger.Info("Memory observer disabled",
		zap.String("name", o.config.Name),
		zap.Int("events", len(events)),
	)
	return events
}

// IsEnabled reports whether a recorder is currently installed.
func (o *Observer) IsEnabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.recorder != nil
}

// Recorder returns the active recorder for frame bracketing, or nil while
// disabled.
func (o *Observer) Recorder() *Recorder {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.recorder
}

// Statistics returns the active window's statistics, or nil while disabled.
func (o *Observer) Statistics() *domain.RecorderStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.recorder == nil {
		return nil
	}
	return o.recorder.Statistics()
}

// Health returns the active window's health, or a healthy "disabled" status.
func (o *Observer) Health() *domain.HealthStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.recorder == nil {
		return domain.NewHealthyStatus("memory observer disabled")
	}
	return o.recorder.Health()
}
