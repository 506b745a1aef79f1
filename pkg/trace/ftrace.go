package trace

import (
	"fmt"
	"io"

	"github.com/coding-potatoo/rv32emu/pkg/isa"
)

// FuncEntry is one function in the symbol-derived function table.
type FuncEntry struct {
	Name  string
	Begin uint32
	End   uint32
}

// FuncTable is the immutable set of known functions, built once by
// pkg/elfsym and consumed (never mutated) here.
type FuncTable []FuncEntry

func (t FuncTable) lookup(addr uint32) (FuncEntry, bool) {
	for _, e := range t {
		if e.Begin == addr {
			return e, true
		}
	}
	return FuncEntry{}, false
}

// FuncTracer maintains the ftrace call stack and emits call/return
// lines. Grounded on trace.c's ftrace_call/ftrace_ret, generalized
// from fixed 10000-entry C arrays to a Go slice-backed stack.
type FuncTracer struct {
	Enabled bool
	table   FuncTable
	stack   []FuncEntry
	w       io.Writer
}

// NewFuncTracer creates a tracer over the given function table,
// writing ftrace lines to w.
func NewFuncTracer(table FuncTable, w io.Writer) *FuncTracer {
	return &FuncTracer{table: table, w: w}
}

// jumpStyleNames are the opcodes that can change control flow and are
// therefore worth classifying, per spec.md section 4.F.
var jumpStyleNames = map[string]bool{
	"jal": true, "jalr": true,
	"beq": true, "bne": true, "blt": true, "bge": true, "bltu": true, "bgeu": true,
}

// isCanonicalReturn matches JALR rd=0, rs1=1 (ra), imm=0 — the standard
// RISC-V function-return idiom.
func isCanonicalReturn(name string, d isa.Decoded) bool {
	return name == "jalr" && d.Rd == 0 && d.Rs1 == 1 && d.Imm == 0
}

// Observe classifies a retired instruction as a call, a return, or
// neither, per spec.md section 4.F. pc is the instruction's address,
// dnpc the address control flow actually transferred to. Unknown call
// targets are silently ignored, matching the original's heuristic
// behavior.
func (f *FuncTracer) Observe(pc, dnpc uint32, name string, d isa.Decoded) {
	if !jumpStyleNames[name] {
		return
	}
	if isCanonicalReturn(name, d) {
		f.ret(pc)
		return
	}
	if entry, ok := f.table.lookup(dnpc); ok {
		f.call(pc, entry)
	}
}

func (f *FuncTracer) call(pc uint32, callee FuncEntry) {
	f.stack = append(f.stack, callee)
	f.emit(pc, len(f.stack)-1, fmt.Sprintf("call [%s@0x%08x]", callee.Name, callee.Begin))
}

func (f *FuncTracer) ret(pc uint32) {
	if len(f.stack) == 0 {
		// A return with no matching call on the stack: the original
		// treats this as a fatal assertion, but since the call stack
		// is heuristic here (it depends entirely on the symbol table),
		// silently ignoring it is safer than aborting the emulator.
		return
	}
	top := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	f.emit(pc, len(f.stack), fmt.Sprintf("ret [%s]", top.Name))
}

func (f *FuncTracer) emit(pc uint32, depth int, msg string) {
	if !f.Enabled || f.w == nil {
		return
	}
	fmt.Fprintf(f.w, "PC@0x%08x: ", pc)
	for i := 0; i < depth; i++ {
		fmt.Fprint(f.w, "\t")
	}
	fmt.Fprintln(f.w, msg)
}

// Depth reports the current call-stack depth, for tests and for the
// TUI's status line.
func (f *FuncTracer) Depth() int { return len(f.stack) }
