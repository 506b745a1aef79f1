package trace

import (
	"fmt"
	"io"
)

// MemTrace logs every guest memory access when enabled. Grounded on
// trace.c's mtrace hooks (gated behind CONFIG_MTRACE there, behind an
// Enabled flag here).
type MemTrace struct {
	Enabled bool
	w       io.Writer
}

// NewMemTrace creates a memory-access logger writing to w.
func NewMemTrace(w io.Writer) *MemTrace {
	return &MemTrace{w: w}
}

// Log records one access. It has the same signature as pkg/cpu.CPU's
// OnMemAccess hook so it can be wired in directly.
func (t *MemTrace) Log(addr uint32, length int, value uint32, write bool) {
	if !t.Enabled || t.w == nil {
		return
	}
	dir := "R"
	if write {
		dir = "W"
	}
	fmt.Fprintf(t.w, "0x%08x, %s, len=%d, 0x%x\n", addr, dir, length, value)
}
