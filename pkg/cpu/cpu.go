package cpu

import (
	"fmt"

	"github.com/coding-potatoo/rv32emu/pkg/isa"
)

// State is the machine's run state, per spec.md section 4.E.
type State int

const (
	StateRunning State = iota
	StateStop
	StateEnd
	StateAbort
	StateQuit
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateStop:
		return "STOP"
	case StateEnd:
		return "END"
	case StateAbort:
		return "ABORT"
	case StateQuit:
		return "QUIT"
	default:
		return "UNKNOWN"
	}
}

// Unbounded is the exec(n) sentinel meaning "run until halt", per
// spec.md section 4.E.
const Unbounded = -1

// Step is the transient per-instruction record described in spec.md
// section 3.
type Step struct {
	PC     uint32
	SNPC   uint32
	DNPC   uint32
	Inst   uint32
	LogBuf string
}

// CPU drives fetch/decode/execute and owns the register file and
// memory. Grounded on cmd/vm/main.go and cmd/interp/main.go's
// Fetch/Execute loop, restructured into the explicit state machine
// spec.md section 4.E requires so the debugger can step it, watch it,
// and halt it from the outside.
type CPU struct {
	Mem  *Memory
	Regs *Registers

	State    State
	ExitCode uint32
	AbortMsg string

	Step        Step
	LastName    string
	LastDecoded isa.Decoded

	// OnRetire fires once per retired instruction, after execute and
	// trace-line formatting but before PC commits (Step.PC/Step.DNPC
	// still hold the instruction just retired) and before the
	// watchpoint check.
	OnRetire func(c *CPU)
	// CheckWatch runs after OnRetire; returning true halts the CPU in
	// StateStop for this exec() call.
	CheckWatch func() bool
	// OnMemAccess fires for every load/store executed by the running
	// program (not instruction fetch), feeding the mtrace log.
	OnMemAccess func(addr uint32, length int, value uint32, write bool)
	// OnFatal fires once, when the CPU transitions to StateAbort,
	// before Exec returns. Used to dump the instruction ring buffer.
	OnFatal func()
}

// New creates a CPU with the given memory, PC initialized to the
// memory's base address (the first instruction executed, per spec.md
// section 6).
func New(mem *Memory) *CPU {
	return &CPU{
		Mem:   mem,
		Regs:  &Registers{PC: mem.Base},
		State: StateRunning,
	}
}

// ReadReg implements isa.Machine.
func (c *CPU) ReadReg(i uint32) uint32 { return c.Regs.Read(i) }

// WriteReg implements isa.Machine.
func (c *CPU) WriteReg(i uint32, v uint32) { c.Regs.Write(i, v) }

// PC implements isa.Machine; it is the address of the instruction
// currently executing, not the committed register-file PC.
func (c *CPU) PC() uint32 { return c.Step.PC }

// SetDNPC implements isa.Machine.
func (c *CPU) SetDNPC(v uint32) { c.Step.DNPC = v }

// ReadMem implements isa.Machine, feeding OnMemAccess for mtrace.
func (c *CPU) ReadMem(addr uint32, length int) (uint32, error) {
	v, err := c.Mem.Read(addr, length)
	if err == nil && c.OnMemAccess != nil {
		c.OnMemAccess(addr, length, v, false)
	}
	return v, err
}

// WriteMem implements isa.Machine, feeding OnMemAccess for mtrace.
func (c *CPU) WriteMem(addr uint32, length int, v uint32) error {
	err := c.Mem.Write(addr, length, v)
	if err == nil && c.OnMemAccess != nil {
		c.OnMemAccess(addr, length, v, true)
	}
	return err
}

// Halt implements isa.Machine (EBREAK).
func (c *CPU) Halt(a0 uint32) {
	c.State = StateEnd
	c.ExitCode = a0
}

// Abort implements isa.Machine (illegal instruction or memory fault
// raised from inside an executor, e.g. a load/store out of range).
func (c *CPU) Abort(reason string) {
	c.State = StateAbort
	c.AbortMsg = reason
}

// FormatTrace renders the itrace line for inst fetched at pc: address,
// the instruction's bytes in big-endian order (human reading order for
// a little-endian machine, per spec.md section 6), and its
// disassembly.
func FormatTrace(pc, inst uint32) string {
	return fmt.Sprintf("0x%08x: %02x %02x %02x %02x  %s",
		pc, byte(inst>>24), byte(inst>>16), byte(inst>>8), byte(inst),
		isa.Disassemble(inst))
}

// step executes exactly one instruction, per the seven substeps of
// spec.md section 4.E.
func (c *CPU) step() {
	pc := c.Regs.PC
	c.Step = Step{PC: pc, SNPC: pc + 4, DNPC: pc + 4}

	inst, err := c.Mem.Read(pc, 4)
	if err != nil {
		c.State = StateAbort
		c.AbortMsg = err.Error()
		c.fatal()
		return
	}
	c.Step.Inst = inst
	c.Step.SNPC = pc + 4

	name, d := isa.Decode(c, inst)
	c.LastName = name
	c.LastDecoded = d
	isa.Execute(c, d)

	c.Step.LogBuf = FormatTrace(pc, inst)
	if c.OnRetire != nil {
		c.OnRetire(c)
	}

	c.Regs.ResetZero()
	c.Regs.PC = c.Step.DNPC

	if c.State == StateAbort {
		c.fatal()
		return
	}
	if c.State != StateRunning {
		return
	}
	if c.CheckWatch != nil && c.CheckWatch() {
		c.State = StateStop
	}
}

func (c *CPU) fatal() {
	if c.OnFatal != nil {
		c.OnFatal()
	}
}

// Exec runs up to n instructions (Unbounded runs until a non-Running
// state), per spec.md section 4.E. It returns the state the CPU ended
// up in.
func (c *CPU) Exec(n int) State {
	if c.State != StateRunning {
		return c.State
	}
	for i := 0; n == Unbounded || i < n; i++ {
		c.step()
		if c.State != StateRunning {
			break
		}
	}
	return c.State
}
