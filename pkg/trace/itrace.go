package trace

import (
	"fmt"
	"io"
)

// InstrTrace persists every retired instruction's already-formatted
// trace line to an unbounded stream, independent of Ring's bounded
// in-memory buffer. Grounded on trace.c's itrace stream (gated behind
// CONFIG_ITRACE there; here it simply discards lines when w is nil,
// since spec.md section 4.E always formats and emits the trace line —
// only whether it is persisted to a file is conditional).
type InstrTrace struct {
	w io.Writer
}

// NewInstrTrace creates an instruction-trace logger writing to w. A nil
// w discards every line.
func NewInstrTrace(w io.Writer) *InstrTrace {
	return &InstrTrace{w: w}
}

// Log appends one already-formatted instruction trace line.
func (t *InstrTrace) Log(line string) {
	if t.w == nil {
		return
	}
	fmt.Fprintln(t.w, line)
}
