// Package isa implements the RV32IM pattern decoder and per-opcode
// executors. Decoding follows the field layout of the unprivileged
// RISC-V ISA; the dispatch table itself is the data-driven
// reexpression of a priority-ordered "if pattern matches, execute"
// table (see original_source/nemu/src/isa/riscv32/inst.c's INSTPAT
// macro), generalized the way spec.md's Design Notes ask for.
package isa

// Type is the instruction format used to extract operands.
type Type int

// The six formats named in spec.md section 4.C, plus N for formats
// with no operands (EBREAK, illegal).
const (
	TypeR Type = iota
	TypeI
	TypeS
	TypeB
	TypeU
	TypeJ
	TypeN
)

// Decoded holds every field of a decoded instruction. Register reads
// for Src1/Src2 are only meaningful for formats that use them.
type Decoded struct {
	Type       Type
	Rd         uint32
	Rs1        uint32
	Rs2        uint32
	Imm        uint32
	Src1       uint32
	Src2       uint32
	Name       string
	ExecuteFn  Executor
}

// Machine is the subset of CPU state an executor needs. pkg/cpu.CPU
// implements this interface; keeping it narrow lets pkg/isa stay free
// of an import cycle on pkg/cpu.
type Machine interface {
	ReadReg(i uint32) uint32
	WriteReg(i uint32, v uint32)
	PC() uint32
	SetDNPC(v uint32)
	ReadMem(addr uint32, length int) (uint32, error)
	WriteMem(addr uint32, length int, v uint32) error
	Halt(a0 uint32)
	Abort(reason string)
}

// Executor mutates machine state given decoded operands. It is the Go
// equivalent of the per-INSTPAT execute body in inst.c.
type Executor func(m Machine, d Decoded)
