// Package asm is a two-pass text assembler for the RV32IM subset this
// emulator executes, producing the little-endian raw-word guest images
// pkg/cpu consumes. Adapted from the teacher's RiSC-32
// assembler: the same Instruction interface (Err/Label/Line/Encode),
// the same two-pass "collect labels during one streaming pass, encode
// against the resolved table on a second pass" driver, and the same
// channel-streaming StartAssembler/AssemblerAsync shape, but driving
// Encode off pkg/isa's R/I/S/B/U/J field-encoding helpers instead of
// RiSC-32's fixed opcode|ra|rb|imm word layout, and emitting raw bytes
// instead of the teacher's "0xHEX # comment" text lines.
package asm

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// InstructionOrError contains either an assembled instruction word or
// an error that occurred during assembly.
type InstructionOrError struct {
	Instruction uint32
	Error       error
	Lineno      int
}

// Bytes returns the instruction's little-endian encoding, or its error.
func (ioe InstructionOrError) Bytes() ([]byte, error) {
	if ioe.Error != nil {
		return nil, ioe.Error
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], ioe.Instruction)
	return b[:], nil
}

// StartAssembler starts the assembler in a background goroutine and
// returns a sequence of InstructionOrError.
func StartAssembler(r io.Reader) <-chan InstructionOrError {
	out := make(chan InstructionOrError)
	go AssemblerAsync(r, out)
	return out
}

// AssemblerAsync runs the assembler. It reads from the input reader
// and it writes InstructionOrError on the output channel.
func AssemblerAsync(r io.Reader, out chan<- InstructionOrError) {
	defer close(out)
	var idx int64
	labels := make(map[string]int64)
	var instructions []Instruction
	for instr := range StartParsing(StartLexing(r)) {
		if instr.Err() != nil {
			out <- InstructionOrError{Error: instr.Err(), Lineno: instr.Line()}
			return
		}
		if instr.Label() != nil {
			labels[*instr.Label()] = idx
		}
		instructions = append(instructions, instr)
		idx++
	}
	for pc, instr := range instructions {
		if pc > math.MaxUint32 {
			out <- InstructionOrError{Error: ErrTooManyInstructions, Lineno: instr.Line()}
			return
		}
		encoded, err := instr.Encode(labels, uint32(pc))
		if err != nil {
			out <- InstructionOrError{Error: err, Lineno: instr.Line()}
			continue
		}
		out <- InstructionOrError{Instruction: encoded, Lineno: instr.Line()}
	}
}

// Assemble reads an entire assembly source and returns its raw
// little-endian image, stopping at the first error encountered.
func Assemble(r io.Reader) ([]byte, error) {
	var image []byte
	for ioe := range StartAssembler(r) {
		b, err := ioe.Bytes()
		if err != nil {
			return nil, fmt.Errorf("asm: line %d: %w", ioe.Lineno, err)
		}
		image = append(image, b...)
	}
	return image, nil
}
