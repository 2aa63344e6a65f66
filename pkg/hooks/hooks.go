// Package hooks defines the boundary contracts between memtrace and the host
// execution engine: the allocator reporting callback, the registration
// facility it is installed into, and the pluggable policies the host supplies.
package hooks

import (
	"runtime/debug"

	"github.com/yairfalse/memtrace/pkg/domain"
)

// Handle is an opaque token identifying one active reporter registration.
// Values <= 0 mean "not registered".
type Handle int64

// IsRegistered reports whether the handle refers to an active registration.
func (h Handle) IsRegistered() bool {
	return h > 0
}

// Reporter receives allocation reports synchronously from inside the host
// allocator. Implementations must not block beyond a brief critical section
// and must never return control-flow errors into the allocator.
type Reporter interface {
	// ReportMemoryUsage is invoked on every allocate and free. addr is an
	// opaque region identifier; delta is the signed size of this call;
	// totalAllocated and totalReserved are the allocator's running totals.
	ReportMemoryUsage(addr uint64, delta, totalAllocated, totalReserved int64, device domain.Device)

	// MemoryProfilingEnabled tells the host whether it should pay the cost
	// of gathering call metadata before invoking the reporting hooks.
	MemoryProfilingEnabled() bool
}

// Registry is the host's callback facility: one registration at enable, one
// release at disable.
type Registry interface {
	Register(r Reporter) Handle
	Unregister(h Handle)
}

// DirectionPolicy decides whether a report is an allocation or a free. The
// exact arithmetic rule is a boundary contract with the host allocator, so
// it is injected rather than assumed.
type DirectionPolicy func(delta, totalAllocated, totalReserved int64) domain.EventKind

// SignDirectionPolicy treats a negative size delta as a free. This matches
// hosts that report frees as negative deltas against the running total.
func SignDirectionPolicy(delta, totalAllocated, totalReserved int64) domain.EventKind {
	if delta < 0 {
		return domain.EventFree
	}
	return domain.EventAllocate
}

// TraceCapturer materializes a symbolic stack trace at event time. The
// capture machinery belongs to the host; RuntimeTraceCapturer is a default
// for hosts running on the Go runtime.
type TraceCapturer func() string

// RuntimeTraceCapturer captures the calling goroutine's stack.
func RuntimeTraceCapturer() string {
	return string(debug.Stack())
}
