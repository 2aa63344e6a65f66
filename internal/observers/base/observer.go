// Package base provides common statistics, health, and OTEL instrumentation
// for memtrace recorders. Embed BaseObserver to get Statistics() and Health()
// automatically.
package base

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/yairfalse/memtrace/pkg/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// BaseObserver tracks statistics and health for a recording component.
type BaseObserver struct {
	// Basic info
	name      string
	startTime time.Time

	// Statistics tracking (atomic for thread safety)
	eventsRecorded atomic.Int64
	errorCount     atomic.Int64

	// Atomic values for complex types
	lastEventTime atomic.Value // stores time.Time
	lastError     atomic.Value // stores error

	// Health tracking
	isHealthy          atomic.Bool
	healthCheckTimeout time.Duration
	errorRateThreshold float64

	// OTEL instrumentation
	tracer trace.Tracer
	meter  metric.Meter

	// Standard OTEL metrics
	eventsRecordedCounter metric.Int64Counter
	errorCounter          metric.Int64Counter
	healthStatus          metric.Int64Gauge

	logger *zap.Logger
}

// BaseObserverConfig holds configuration for BaseObserver
type BaseObserverConfig struct {
	Name               string
	HealthCheckTimeout time.Duration
	ErrorRateThreshold float64 // Default 0.1 (10%)
	Logger             *zap.Logger
}

// NewBaseObserver creates a new base observer with the given name.
// healthCheckTimeout determines how long without events before marking degraded.
func NewBaseObserver(name string, healthCheckTimeout time.Duration) *BaseObserver {
	return NewBaseObserverWithConfig(BaseObserverConfig{
		Name:               name,
		HealthCheckTimeout: healthCheckTimeout,
		ErrorRateThreshold: 0.1,
	})
}

// NewBaseObserverWithConfig creates a new base observer with full configuration
func NewBaseObserverWithConfig(config BaseObserverConfig) *BaseObserver {
	if config.ErrorRateThreshold == 0 {
		config.ErrorRateThreshold = 0.1
	}

	bo := &BaseObserver{
		name:               config.Name,
		startTime:          time.Now(),
		healthCheckTimeout: config.HealthCheckTimeout,
		errorRateThreshold: config.ErrorRateThreshold,
		tracer:             otel.Tracer(config.Name),
		meter:              otel.Meter(config.Name),
		logger:             config.Logger,
	}
	bo.isHealthy.Store(true)
	bo.lastEventTime.Store(time.Now())

	bo.initializeMetrics()

	return bo
}

// initializeMetrics registers standard OTEL metrics. Metric creation failure
// is logged and tolerated; metrics are optional.
func (bo *BaseObserver) initializeMetrics() {
	var err error

	bo.eventsRecordedCounter, err = bo.meter.Int64Counter(
		fmt.Sprintf("%s_events_recorded_total", bo.name),
		metric.WithDescription("Total events recorded"),
		metric.WithUnit("1"),
	)
	if err != nil {
		if bo.logger != nil {
			bo.logger.Debug("Failed to create events recorded counter",
				zap.String("observer", bo.name),
				zap.Error(err))
		}
		bo.eventsRecordedCounter = nil
	}

	bo.errorCounter, err = bo.meter.Int64Counter(
		fmt.Sprintf("%s_errors_total", bo.name),
		metric.WithDescription("Total errors encountered"),
		metric.WithUnit("1"),
	)
	if err != nil {
		if bo.logger != nil {
			bo.logger.Debug("Failed to create error counter",
				zap.String("observer", bo.name),
				zap.Error(err))
		}
		bo.errorCounter = nil
	}

	bo.healthStatus, err = bo.meter.Int64Gauge(
		fmt.Sprintf("%s_health_status", bo.name),
		metric.WithDescription("Health status (0=unhealthy, 1=degraded, 2=healthy)"),
		metric.WithUnit("1"),
	)
	if err != nil {
		if bo.logger != nil {
			bo.logger.Debug("Failed to create health status gauge",
				zap.String("observer", bo.name),
				zap.Error(err))
		}
		bo.healthStatus = nil
	}
}

// RecordEvent should be called when an event is successfully recorded
func (bo *BaseObserver) RecordEvent() {
	bo.eventsRecorded.Add(1)
	bo.lastEventTime.Store(time.Now())

	if bo.eventsRecordedCounter != nil {
		bo.eventsRecordedCounter.Add(context.Background(), 1)
	}
}

// RecordError should be called when an error occurs
func (bo *BaseObserver) RecordError(err error) {
	bo.errorCount.Add(1)
	if err != nil {
		bo.lastError.Store(err)
	}

	if bo.errorCounter != nil {
		attrs := []attribute.KeyValue{}
		if err != nil {
			attrs = append(attrs, attribute.String("error_type", fmt.Sprintf("%T", err)))
		}
		bo.errorCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	}
}

// StartSpan starts a new span for a lifecycle transition or recording step
func (bo *BaseObserver) StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return bo.tracer.Start(ctx, spanName, opts...)
}

// GetTracer returns the tracer for custom instrumentation
func (bo *BaseObserver) GetTracer() trace.Tracer {
	return bo.tracer
}

// GetMeter returns the meter for custom metrics
func (bo *BaseObserver) GetMeter() metric.Meter {
	return bo.meter
}

// SetHealthy sets the observer health status
func (bo *BaseObserver) SetHealthy(healthy bool) {
	bo.isHealthy.Store(healthy)
}

// IsHealthy returns true if the observer is healthy
func (bo *BaseObserver) IsHealthy() bool {
	return bo.isHealthy.Load()
}

// Statistics returns observer statistics
func (bo *BaseObserver) Statistics() *domain.RecorderStats {
	lastEventTime := time.Time{}
	if t, ok := bo.lastEventTime.Load().(time.Time); ok {
		lastEventTime = t
	}

	return &domain.RecorderStats{
		EventsRecorded: bo.eventsRecorded.Load(),
		ErrorCount:     bo.errorCount.Load(),
		LastEventTime:  lastEventTime,
		Uptime:         time.Since(bo.startTime),
	}
}

// Health returns health status
func (bo *BaseObserver) Health() *domain.HealthStatus {
	if !bo.isHealthy.Load() {
		var lastErr error
		if e := bo.lastError.Load(); e != nil {
			lastErr = e.(error)
		}
		return domain.NewUnhealthyStatus(
			fmt.Sprintf("%s observer is unhealthy", bo.name),
			lastErr,
		)
	}

	// Check if we're receiving events (only if we've recorded at least one)
	if bo.eventsRecorded.Load() > 0 {
		lastEventTime := time.Time{}
		if t, ok := bo.lastEventTime.Load().(time.Time); ok {
			lastEventTime = t
		}

		timeSinceLastEvent := time.Since(lastEventTime)
		if bo.healthCheckTimeout > 0 && timeSinceLastEvent > bo.healthCheckTimeout {
			return domain.NewHealthStatus(
				domain.HealthDegraded,
				fmt.Sprintf("No events recorded for %v", timeSinceLastEvent),
			)
		}
	}

	// Check error rate
	errorRate := float64(0)
	if recorded := bo.eventsRecorded.Load(); recorded > 0 {
		errorRate = float64(bo.errorCount.Load()) / float64(recorded)
	}

	if errorRate > bo.errorRateThreshold {
		if bo.healthStatus != nil {
			bo.healthStatus.Record(context.Background(), 1, // 1 = degraded
				metric.WithAttributes(attribute.String("reason", "high_error_rate")))
		}
		return domain.NewHealthStatus(
			domain.HealthDegraded,
			fmt.Sprintf("High error rate: %.1f%% (threshold: %.1f%%)",
				errorRate*100, bo.errorRateThreshold*100),
		)
	}

	if bo.healthStatus != nil {
		bo.healthStatus.Record(context.Background(), 2) // 2 = healthy
	}

	return domain.NewHealthyStatus(fmt.Sprintf("%s observer operating normally", bo.name))
}

// GetName returns the observer name
func (bo *BaseObserver) GetName() string {
	return bo.name
}

// GetUptime returns how long the observer has been running
func (bo *BaseObserver) GetUptime() time.Duration {
	return time.Since(bo.startTime)
}

// GetEventCount returns the total number of events recorded
func (bo *BaseObserver) GetEventCount() int64 {
	return bo.eventsRecorded.Load()
}

// GetErrorCount returns the total number of errors
func (bo *BaseObserver) GetErrorCount() int64 {
	return bo.errorCount.Load()
}
