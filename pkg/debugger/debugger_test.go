package debugger

import (
	"bytes"
	"testing"

	"github.com/coding-potatoo/rv32emu/pkg/cpu"
	"github.com/coding-potatoo/rv32emu/pkg/isa"
	"github.com/coding-potatoo/rv32emu/pkg/trace"
)

func newTestDebugger(t *testing.T, words ...uint32) (*Debugger, *bytes.Buffer) {
	t.Helper()
	mem := cpu.NewMemory(0x80000000, 4096)
	for i, w := range words {
		if err := mem.Write(0x80000000+uint32(i*4), 4, w); err != nil {
			t.Fatalf("preload: %v", err)
		}
	}
	c := cpu.New(mem)
	var buf bytes.Buffer
	d := New(c, 8, nil, &buf)
	return d, &buf
}

func TestStepAndInfoRegisters(t *testing.T) {
	addi := isa.EncodeI(isa.OpOpImm, 0, 5, 0, 7)
	d, _ := newTestDebugger(t, addi)
	d.Step(1)
	out := d.InfoRegisters()
	if !bytes.Contains([]byte(out), []byte("t0")) {
		t.Fatalf("register display missing ABI names: %q", out)
	}
}

func TestPrintEvaluatesRegisterExpression(t *testing.T) {
	addi := isa.EncodeI(isa.OpOpImm, 0, 10, 0, 5) // addi a0, x0, 5
	d, _ := newTestDebugger(t, addi)
	d.Step(1)
	got, err := d.Print("$a0+1", 10)
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	if got != "6" {
		t.Fatalf("got %q, want 6", got)
	}
}

func TestReassigningITraceAfterNewTakesEffect(t *testing.T) {
	addi := isa.EncodeI(isa.OpOpImm, 0, 5, 0, 7)
	d, _ := newTestDebugger(t, addi)

	var itraceBuf bytes.Buffer
	d.ITrace = trace.NewInstrTrace(&itraceBuf)

	d.Step(1)
	if itraceBuf.Len() == 0 {
		t.Fatal("expected the reassigned ITrace writer to receive the retired instruction's line")
	}
}

func TestReassigningMTraceAfterNewTakesEffect(t *testing.T) {
	sw := isa.EncodeS(2, 1, 2, 0)
	lui := isa.EncodeU(isa.OpLUI, 1, 0x80000000)
	d, _ := newTestDebugger(t, lui, sw)

	var mtraceBuf bytes.Buffer
	d.MTrace = trace.NewMemTrace(&mtraceBuf)
	d.MTrace.Enabled = true

	d.Step(2)
	if mtraceBuf.Len() == 0 {
		t.Fatal("expected the reassigned MTrace writer to receive the store access")
	}
}

func TestPrintEvaluatesXNumberedRegister(t *testing.T) {
	addi := isa.EncodeI(isa.OpOpImm, 0, 1, 0, 5) // addi ra, x0, 5 (x1 = ra)
	d, _ := newTestDebugger(t, addi)
	d.Step(1)
	got, err := d.Print("$x1", 10)
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	if got != "5" {
		t.Fatalf("got %q, want 5", got)
	}
}

func TestWatchpointStopsExecution(t *testing.T) {
	addi1 := isa.EncodeI(isa.OpOpImm, 0, 10, 0, 1)
	addi2 := isa.EncodeI(isa.OpOpImm, 0, 10, 10, 1)
	addi3 := isa.EncodeI(isa.OpOpImm, 0, 10, 10, 1)
	d, buf := newTestDebugger(t, addi1, addi2, addi3)

	d.Step(1) // a0 = 1, seed watchpoint against this value
	if _, err := d.WatchExpr("$a0"); err != nil {
		t.Fatalf("watch: %v", err)
	}

	state := d.Continue()
	if state != cpu.StateStop {
		t.Fatalf("state = %v, want Stop", state)
	}
	if buf.Len() == 0 {
		t.Fatal("expected a watchpoint change line")
	}
}

func TestExamineReadsMemory(t *testing.T) {
	lui := isa.EncodeU(isa.OpLUI, 1, 0x80000000)
	addi := isa.EncodeI(isa.OpOpImm, 0, 2, 0, 9)
	sw := isa.EncodeS(2, 1, 2, 32)
	d, _ := newTestDebugger(t, lui, addi, sw)
	d.Step(3)

	out, err := d.Examine(1, "0x80000020")
	if err != nil {
		t.Fatalf("examine: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("0x00000009")) {
		t.Fatalf("examine output missing stored value: %q", out)
	}
}

func TestDeleteUnknownWatchpointFails(t *testing.T) {
	d, _ := newTestDebugger(t)
	if err := d.Delete(5); err == nil {
		t.Fatal("expected error deleting a non-existent watchpoint")
	}
}

func TestHelpExactLookup(t *testing.T) {
	d, _ := newTestDebugger(t)
	got := d.Help("si")
	if got != "si - Step N instructions (default 1) and pause" {
		t.Fatalf("got %q", got)
	}
	if d.Help("bogus") == got {
		t.Fatal("unknown command should not match a real one")
	}
}

func TestFatalDumpsRingBuffer(t *testing.T) {
	d, buf := newTestDebugger(t, 0xffffffff) // illegal instruction
	d.Continue()
	if d.CPU.State != cpu.StateAbort {
		t.Fatalf("state = %v, want Abort", d.CPU.State)
	}
	if !bytes.Contains(buf.Bytes(), []byte("fatal error")) {
		t.Fatalf("expected fatal dump in output, got %q", buf.String())
	}
}

func TestFuncTracerWiredThroughDebugger(t *testing.T) {
	funcs := trace.FuncTable{{Name: "callee", Begin: 0x80000008}}
	jal := isa.EncodeJ(1, 8) // jal ra, +8
	ret := isa.EncodeI(isa.OpJALR, 0, 0, 1, 0)

	mem := cpu.NewMemory(0x80000000, 4096)
	mem.Write(0x80000000, 4, jal)
	mem.Write(0x80000008, 4, ret)
	c := cpu.New(mem)
	var buf bytes.Buffer
	d := New(c, 8, funcs, &buf)
	d.FTrace.Enabled = true

	d.Step(2)
	if !bytes.Contains(buf.Bytes(), []byte("call [callee")) {
		t.Fatalf("expected ftrace call line, got %q", buf.String())
	}
}
