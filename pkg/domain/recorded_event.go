package domain

// RecordedEventKind tags the active variant of a RecordedEvent.
type RecordedEventKind uint8

const (
	RecordedMemoryEvent RecordedEventKind = iota
	RecordedFrameEvent
)

// String returns string representation of the recorded event kind
func (k RecordedEventKind) String() string {
	switch k {
	case RecordedMemoryEvent:
		return "memory_event"
	case RecordedFrameEvent:
		return "function_event"
	default:
		return "unknown"
	}
}

// RecordedEvent is the tagged union stored in a recorder buffer: exactly one
// of Mem or Frame is non-nil, matching Kind.
type RecordedEvent struct {
	kind  RecordedEventKind
	mem   *AllocationEvent
	frame *FrameBracketEvent
}

// NewMemoryEvent wraps an allocation event for storage.
func NewMemoryEvent(e *AllocationEvent) RecordedEvent {
	return RecordedEvent{kind: RecordedMemoryEvent, mem: e}
}

// NewFrameEvent wraps a frame-bracket event for storage.
func NewFrameEvent(e *FrameBracketEvent) RecordedEvent {
	return RecordedEvent{kind: RecordedFrameEvent, frame: e}
}

// Kind reports which variant this event holds.
func (r RecordedEvent) Kind() RecordedEventKind {
	return r.kind
}

// Memory returns the allocation variant, or nil if this is a frame event.
func (r RecordedEvent) Memory() *AllocationEvent {
	return r.mem
}

// Frame returns the frame-bracket variant, or nil if this is a memory event.
func (r RecordedEvent) Frame() *FrameBracketEvent {
	return r.frame
}

// Describe dispatches to the held variant.
func (r RecordedEvent) Describe(includeStackTrace bool) string {
	switch r.kind {
	case RecordedMemoryEvent:
		return r.mem.Describe(includeStackTrace)
	case RecordedFrameEvent:
		return r.frame.Describe()
	default:
		return "EMPTY_EVENT"
	}
}
