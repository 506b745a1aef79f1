package cpu

import (
	"testing"

	"github.com/coding-potatoo/rv32emu/pkg/isa"
)

func TestMemoryReadWriteRoundTrip(t *testing.T) {
	m := NewMemory(0x80000000, 16)
	if err := m.Write(0x80000000, 4, 0xdeadbeef); err != nil {
		t.Fatalf("write: %v", err)
	}
	v, err := m.Read(0x80000000, 4)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v != 0xdeadbeef {
		t.Fatalf("got 0x%x, want 0xdeadbeef", v)
	}
	if err := m.Write(0x80000004, 2, 0xbeef); err != nil {
		t.Fatalf("halfword write: %v", err)
	}
	v, err = m.Read(0x80000004, 2)
	if err != nil || v != 0xbeef {
		t.Fatalf("got %v, %v, want 0xbeef, nil", v, err)
	}
}

func TestMemoryBadAddress(t *testing.T) {
	m := NewMemory(0x80000000, 16)
	if _, err := m.Read(0x7fffffff, 4); err == nil {
		t.Fatal("expected error for address below base")
	}
	if _, err := m.Read(0x80000010, 4); err == nil {
		t.Fatal("expected error for address past end")
	}
}

func TestRegisterZeroInvariant(t *testing.T) {
	r := &Registers{}
	r.Write(0, 42)
	if got := r.Read(0); got != 0 {
		t.Fatalf("x0 read %d, want 0", got)
	}
	r.GPR[0] = 42
	r.ResetZero()
	if r.GPR[0] != 0 {
		t.Fatalf("ResetZero left x0 = %d", r.GPR[0])
	}
}

func newTestCPU(t *testing.T, words ...uint32) *CPU {
	t.Helper()
	mem := NewMemory(0x80000000, 4096)
	for i, w := range words {
		if err := mem.Write(0x80000000+uint32(i*4), 4, w); err != nil {
			t.Fatalf("preload: %v", err)
		}
	}
	return New(mem)
}

func TestExecAddiAndPCAdvance(t *testing.T) {
	// addi x10, x0, 5; ebreak
	addi := isa.EncodeI(isa.OpOpImm, 0, 10, 0, 5)
	ebreak := uint32(0x00100073)
	c := newTestCPU(t, addi, ebreak)

	c.Exec(Unbounded)

	if c.Regs.Read(10) != 5 {
		t.Fatalf("x10 = %d, want 5", c.Regs.Read(10))
	}
	if c.State != StateEnd {
		t.Fatalf("state = %v, want End", c.State)
	}
	if c.ExitCode != 5 {
		t.Fatalf("exit code (a0) = %d, want 5", c.ExitCode)
	}
	if c.Regs.PC != 0x80000008 {
		t.Fatalf("pc = 0x%x, want 0x80000008", c.Regs.PC)
	}
}

func TestExecBranchTaken(t *testing.T) {
	// addi x1, x0, 1
	// beq x1, x1, +8   (skip the next instruction)
	// addi x2, x0, 99  (skipped)
	// addi x3, x0, 7
	// ebreak
	addi1 := isa.EncodeI(isa.OpOpImm, 0, 1, 0, 1)
	beq := isa.EncodeB(0, 1, 1, 8)
	skipped := isa.EncodeI(isa.OpOpImm, 0, 2, 0, 99)
	addi3 := isa.EncodeI(isa.OpOpImm, 0, 3, 0, 7)
	ebreak := uint32(0x00100073)

	c := newTestCPU(t, addi1, beq, skipped, addi3, ebreak)
	c.Exec(Unbounded)

	if c.Regs.Read(2) != 0 {
		t.Fatalf("x2 = %d, want 0 (branch should have skipped it)", c.Regs.Read(2))
	}
	if c.Regs.Read(3) != 7 {
		t.Fatalf("x3 = %d, want 7", c.Regs.Read(3))
	}
}

func TestExecJalLinksReturnAddress(t *testing.T) {
	// jal x1, +8
	jal := isa.EncodeJ(1, 8)
	skipped := isa.EncodeI(isa.OpOpImm, 0, 2, 0, 99)
	ebreak := uint32(0x00100073)
	c := newTestCPU(t, jal, skipped, ebreak)

	c.Exec(1)
	if c.Regs.Read(1) != 0x80000004 {
		t.Fatalf("ra = 0x%x, want 0x80000004", c.Regs.Read(1))
	}
	if c.Regs.PC != 0x80000008 {
		t.Fatalf("pc = 0x%x, want 0x80000008", c.Regs.PC)
	}
}

func TestExecIllegalAborts(t *testing.T) {
	c := newTestCPU(t, 0xffffffff)
	fataled := false
	c.OnFatal = func() { fataled = true }

	c.Exec(Unbounded)

	if c.State != StateAbort {
		t.Fatalf("state = %v, want Abort", c.State)
	}
	if !fataled {
		t.Fatal("OnFatal was not invoked on abort")
	}
}

func TestExecLoadStoreRoundTrip(t *testing.T) {
	// 0x80000000 can't fit in addi's imm12, so lui builds the address in x1;
	// addi puts the value 123 in x2.
	lui := isa.EncodeU(isa.OpLUI, 1, 0x80000000)
	addi := isa.EncodeI(isa.OpOpImm, 0, 2, 0, 123)
	sw := isa.EncodeS(2, 1, 2, 64)
	lw := isa.EncodeI(isa.OpLoad, 2, 3, 1, 64)
	ebreak := uint32(0x00100073)
	c := newTestCPU(t, lui, addi, sw, lw, ebreak)

	c.Exec(Unbounded)

	if c.Regs.Read(3) != 123 {
		t.Fatalf("x3 = %d, want 123", c.Regs.Read(3))
	}
}

func TestExecStopHonorsInstructionCount(t *testing.T) {
	addi := isa.EncodeI(isa.OpOpImm, 0, 1, 1, 1) // addi x1, x1, 1
	c := newTestCPU(t, addi, addi, addi, addi)
	c.Exec(2)
	if c.Regs.Read(1) != 2 {
		t.Fatalf("x1 = %d, want 2 after two single steps", c.Regs.Read(1))
	}
	if c.State != StateRunning {
		t.Fatalf("state = %v, want still Running", c.State)
	}
}

func TestCheckWatchStopsExecution(t *testing.T) {
	addi := isa.EncodeI(isa.OpOpImm, 0, 1, 0, 1)
	c := newTestCPU(t, addi, addi, addi)
	calls := 0
	c.CheckWatch = func() bool {
		calls++
		return calls == 1
	}
	c.Exec(Unbounded)
	if c.State != StateStop {
		t.Fatalf("state = %v, want Stop", c.State)
	}
	if c.Regs.Read(1) != 1 {
		t.Fatalf("x1 = %d, want 1 (stopped after first instruction)", c.Regs.Read(1))
	}
}

func TestOnRetireSeesLastDecoded(t *testing.T) {
	addi := isa.EncodeI(isa.OpOpImm, 0, 1, 0, 1)
	c := newTestCPU(t, addi)
	var seenName string
	c.OnRetire = func(cc *CPU) { seenName = cc.LastName }
	c.Exec(1)
	if seenName != "addi" {
		t.Fatalf("OnRetire saw name %q, want addi", seenName)
	}
}
