package recorder

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID extracts the current goroutine id from the runtime stack
// header ("goroutine 123 [running]:"). It keys the re-entrancy guard; Go
// exposes no goroutine-local storage.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
