package domain

import (
	"fmt"
	"strings"
)

// Placeholder literals rendered for empty frame sequences.
const (
	NoValNamesText  = "no val names"
	NoIvalAddrsText = "no ival addrs"
)

// FrameBracketEvent brackets one invocation of a tracked function or
// operator. The address and name slices of each direction are parallel:
// InputAddrs[i] is the concrete address realized for the abstract value
// InputNames[i]. Empty slices mean "no values on that side".
type FrameBracketEvent struct {
	FnName      string
	StartTime   int64 // microseconds
	EndTime     int64 // microseconds, zero while the frame is still open
	InputAddrs  []uint64
	InputNames  []string
	OutputAddrs []uint64
	OutputNames []string
}

// Validate checks the parallel-length invariant on both directions.
func (e *FrameBracketEvent) Validate() error {
	if len(e.InputAddrs) != len(e.InputNames) {
		return fmt.Errorf("frame %q: %d input addrs vs %d input names",
			e.FnName, len(e.InputAddrs), len(e.InputNames))
	}
	if len(e.OutputAddrs) != len(e.OutputNames) {
		return fmt.Errorf("frame %q: %d output addrs vs %d output names",
			e.FnName, len(e.OutputAddrs), len(e.OutputNames))
	}
	return nil
}

// Describe renders the frame bracket for human inspection.
func (e *FrameBracketEvent) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "FUNCTION_EVENT: fn_name: %s, start_time: %d, end_time: %d",
		e.FnName, e.StartTime, e.EndTime)
	fmt.Fprintf(&b, "\ninput_val_names: %s", joinNames(e.InputNames))
	fmt.Fprintf(&b, "\noutput_val_names: %s", joinNames(e.OutputNames))
	fmt.Fprintf(&b, "\ninput_ival_addrs: %s", joinAddrs(e.InputAddrs))
	fmt.Fprintf(&b, "\noutput_ival_addrs: %s", joinAddrs(e.OutputAddrs))
	return b.String()
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return NoValNamesText
	}
	return strings.Join(names, ", ")
}

func joinAddrs(addrs []uint64) string {
	if len(addrs) == 0 {
		return NoIvalAddrsText
	}
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = fmt.Sprintf("0x%x", a)
	}
	return strings.Join(parts, ", ")
}
