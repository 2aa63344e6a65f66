// Package domain holds the value types shared across memtrace: the
// allocation and frame-bracket event model plus recorder health and stats.
package domain

import (
	"fmt"
	"strings"
)

// EventKind says whether a memory event is an allocation or a free.
type EventKind uint8

const (
	EventAllocate EventKind = iota
	EventFree
)

// String returns string representation of the event kind
func (k EventKind) String() string {
	switch k {
	case EventAllocate:
		return "ALLOCATE"
	case EventFree:
		return "FREE"
	default:
		return fmt.Sprintf("unknown_%d", k)
	}
}

// Device is an opaque identifier of the device the host allocator served
// the request on (e.g. "cpu", "cuda:0"). It is passed through untouched.
type Device string

// Node is the host program's static descriptor of an operation. A node may
// optionally expose a type signature ("schema"); Header is always available.
type Node interface {
	Header() string
	Schema() (string, bool)
}

// FrameNodeID identifies the call frame that was active when an allocation
// event was observed: a program-counter-like position plus the descriptor of
// the originating node.
type FrameNodeID struct {
	PC   uint64
	Node Node
}

// NoSchemaText is rendered when an origin node exposes no type signature.
const NoSchemaText = "no schema"

// AllocationEvent is one allocate or free observed inside the host
// allocator. Address is an opaque correlation key, never a live pointer;
// memtrace neither dereferences nor frees it. Origin is set only when at
// least one frame bracket was active on the reporting goroutine.
type AllocationEvent struct {
	Timestamp  int64 // microseconds, non-decreasing per goroutine
	StackTrace string
	Address    uint64
	Size       int64
	Kind       EventKind
	Origin     *FrameNodeID
}

// HasStackTrace reports whether a stack trace was captured for this event.
func (e *AllocationEvent) HasStackTrace() bool {
	return e.StackTrace != ""
}

// Describe renders the event for human inspection. The stack trace is
// appended only when includeStackTrace is set and one was captured.
func (e *AllocationEvent) Describe(includeStackTrace bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "MEMORY_EVENT: type: %s, ts: %d, size: %d, addr: 0x%x",
		e.Kind, e.Timestamp, e.Size, e.Address)
	if e.Origin != nil {
		schema := NoSchemaText
		header := "no header"
		if e.Origin.Node != nil {
			header = e.Origin.Node.Header()
			if s, ok := e.Origin.Node.Schema(); ok {
				schema = s
			}
		}
		fmt.Fprintf(&b, "\npc: %d\nnode_schema: %s\nnode_header: %s",
			e.Origin.PC, schema, header)
	}
	if includeStackTrace && e.HasStackTrace() {
		fmt.Fprintf(&b, "\nstack trace: %s", e.StackTrace)
	}
	return b.String()
}
