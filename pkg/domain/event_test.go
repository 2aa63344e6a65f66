package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeNode struct {
	header    string
	schema    string
	hasSchema bool
}

func (n fakeNode) Header() string { return n.header }

func (n fakeNode) Schema() (string, bool) { return n.schema, n.hasSchema }

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "ALLOCATE", EventAllocate.String())
	assert.Equal(t, "FREE", EventFree.String())
	assert.Equal(t, "unknown_7", EventKind(7).String())
}

func TestAllocationEventDescribe(t *testing.T) {
	t.Run("without origin", func(t *testing.T) {
		e := &AllocationEvent{
			Timestamp: 1000,
			Address:   0x100,
			Size:      64,
			Kind:      EventAllocate,
		}

		out := e.Describe(false)

		assert.Contains(t, out, "MEMORY_EVENT: type: ALLOCATE")
		assert.Contains(t, out, "ts: 1000")
		assert.Contains(t, out, "size: 64")
		assert.Contains(t, out, "addr: 0x100")
		assert.NotContains(t, out, "pc:")
		assert.NotContains(t, out, "stack trace")
	})

	t.Run("origin with schema", func(t *testing.T) {
		node := fakeNode{header: "aten::matmul", schema: "matmul(Tensor a, Tensor b) -> Tensor", hasSchema: true}
		e := &AllocationEvent{
			Kind:   EventFree,
			Size:   -64,
			Origin: &FrameNodeID{PC: 3, Node: node},
		}

		out := e.Describe(false)

		assert.Contains(t, out, "type: FREE")
		assert.Contains(t, out, "pc: 3")
		assert.Contains(t, out, "node_schema: matmul(Tensor a, Tensor b) -> Tensor")
		assert.Contains(t, out, "node_header: aten::matmul")
	})

	t.Run("origin without schema renders placeholder", func(t *testing.T) {
		node := fakeNode{header: "prim::Loop"}
		e := &AllocationEvent{Origin: &FrameNodeID{PC: 1, Node: node}}

		assert.Contains(t, e.Describe(false), "node_schema: no schema")
	})

	t.Run("stack trace only on request", func(t *testing.T) {
		e := &AllocationEvent{StackTrace: "goroutine 1 [running]"}

		assert.NotContains(t, e.Describe(false), "stack trace")
		assert.Contains(t, e.Describe(true), "stack trace: goroutine 1 [running]")
	})

	t.Run("missing stack trace never rendered", func(t *testing.T) {
		e := &AllocationEvent{}

		assert.False(t, e.HasStackTrace())
		assert.NotContains(t, e.Describe(true), "stack trace")
	})
}

func TestRecordedEventDispatch(t *testing.T) {
	t.Run("memory variant", func(t *testing.T) {
		mem := &AllocationEvent{Kind: EventAllocate}
		r := NewMemoryEvent(mem)

		assert.Equal(t, RecordedMemoryEvent, r.Kind())
		assert.Same(t, mem, r.Memory())
		assert.Nil(t, r.Frame())
		assert.Contains(t, r.Describe(false), "MEMORY_EVENT")
	})

	t.Run("frame variant", func(t *testing.T) {
		frame := &FrameBracketEvent{FnName: "matmul"}
		r := NewFrameEvent(frame)

		assert.Equal(t, RecordedFrameEvent, r.Kind())
		assert.Same(t, frame, r.Frame())
		assert.Nil(t, r.Memory())
		assert.Contains(t, r.Describe(false), "FUNCTION_EVENT")
	})

	t.Run("kind strings", func(t *testing.T) {
		assert.Equal(t, "memory_event", RecordedMemoryEvent.String())
		assert.Equal(t, "function_event", RecordedFrameEvent.String())
	})
}
