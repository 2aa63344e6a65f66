package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameBracketEventDescribe(t *testing.T) {
	t.Run("empty sequences render placeholders", func(t *testing.T) {
		e := &FrameBracketEvent{FnName: "matmul", StartTime: 10, EndTime: 20}

		out := e.Describe()

		assert.Contains(t, out, "FUNCTION_EVENT: fn_name: matmul, start_time: 10, end_time: 20")
		assert.Contains(t, out, "input_val_names: no val names")
		assert.Contains(t, out, "output_val_names: no val names")
		assert.Contains(t, out, "input_ival_addrs: no ival addrs")
		assert.Contains(t, out, "output_ival_addrs: no ival addrs")
	})

	t.Run("populated sequences are joined", func(t *testing.T) {
		e := &FrameBracketEvent{
			FnName:      "add",
			InputAddrs:  []uint64{0x10, 0x20},
			InputNames:  []string{"a", "b"},
			OutputAddrs: []uint64{0x30},
			OutputNames: []string{"out"},
		}

		out := e.Describe()

		assert.Contains(t, out, "input_val_names: a, b")
		assert.Contains(t, out, "input_ival_addrs: 0x10, 0x20")
		assert.Contains(t, out, "output_val_names: out")
		assert.Contains(t, out, "output_ival_addrs: 0x30")
	})
}

func TestFrameBracketEventValidate(t *testing.T) {
	t.Run("parallel sequences pass", func(t *testing.T) {
		e := &FrameBracketEvent{
			InputAddrs: []uint64{0x10},
			InputNames: []string{"a"},
		}
		require.NoError(t, e.Validate())
	})

	t.Run("empty sides are valid", func(t *testing.T) {
		require.NoError(t, (&FrameBracketEvent{}).Validate())
	})

	t.Run("mismatched inputs fail", func(t *testing.T) {
		e := &FrameBracketEvent{FnName: "f", InputAddrs: []uint64{0x10}}
		assert.Error(t, e.Validate())
	})

	t.Run("mismatched outputs fail", func(t *testing.T) {
		e := &FrameBracketEvent{FnName: "f", OutputNames: []string{"out"}}
		assert.Error(t, e.Validate())
	})
}
