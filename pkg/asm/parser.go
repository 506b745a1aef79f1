package asm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/coding-potatoo/rv32emu/pkg/cpu"
	"github.com/coding-potatoo/rv32emu/pkg/isa"
)

// offsetPattern matches the "offset(reg)" operand syntax loads and
// stores use, e.g. "8(sp)" or "-4(t0)".
var offsetPattern = regexp.MustCompile(`^(-?[0-9a-zA-Z_]+)\(([a-zA-Z][0-9a-zA-Z]*)\)$`)

// StartParsing starts the parser in a background goroutine and returns
// a sequence of Instruction, consuming rawLine from in.
func StartParsing(in <-chan rawLine) <-chan Instruction {
	out := make(chan Instruction)
	go ParserAsync(in, out)
	return out
}

// ParserAsync builds one Instruction per rawLine it reads from in.
func ParserAsync(in <-chan rawLine, out chan<- Instruction) {
	defer close(out)
	for line := range in {
		if line.Err != nil {
			out <- InstructionErr{Error: line.Err, Lineno: line.Lineno}
			return
		}
		if line.Mnemonic == "" {
			// a bare "label:" line with no instruction on it
			continue
		}
		instr, err := buildInstruction(line)
		if err != nil {
			out <- InstructionErr{Error: err, Lineno: line.Lineno}
			continue
		}
		out <- instr
	}
}

// buildInstruction dispatches on mnemonic shape: directives first, then
// the register/immediate arrangement each opcodeTable format expects.
func buildInstruction(line rawLine) (Instruction, error) {
	if line.Mnemonic == ".word" {
		return buildData(line)
	}

	info, ok := opcodeTable[line.Mnemonic]
	if !ok {
		return nil, fmt.Errorf("%w because mnemonic '%s' is unknown on line %d", ErrCannotEncode, line.Mnemonic, line.Lineno)
	}

	switch info.Type {
	case isa.TypeN:
		return GenericInstruction{Lineno: line.Lineno, MaybeLabel: line.MaybeLabel, Mnemonic: line.Mnemonic}, nil
	case isa.TypeR:
		return buildRType(line)
	case isa.TypeU:
		return buildUType(line)
	case isa.TypeJ:
		return buildJType(line)
	case isa.TypeB:
		return buildBType(line)
	case isa.TypeS:
		return buildSType(line)
	case isa.TypeI:
		if line.Mnemonic == "lb" || line.Mnemonic == "lh" || line.Mnemonic == "lw" || line.Mnemonic == "lbu" || line.Mnemonic == "lhu" {
			return buildLoad(line)
		}
		return buildIType(line)
	default:
		return nil, fmt.Errorf("%w because format is unhandled on line %d", ErrCannotEncode, line.Lineno)
	}
}

func buildData(line rawLine) (Instruction, error) {
	if len(line.Operands) != 1 {
		return nil, fmt.Errorf("%w: .word wants exactly one operand on line %d", ErrCannotEncode, line.Lineno)
	}
	v, err := strconv.ParseUint(line.Operands[0], 0, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: .word operand %q on line %d: %v", ErrCannotEncode, line.Operands[0], line.Lineno, err)
	}
	return InstructionDATA{Lineno: line.Lineno, MaybeLabel: line.MaybeLabel, Value: uint32(v)}, nil
}

func buildRType(line rawLine) (Instruction, error) {
	if len(line.Operands) != 3 {
		return nil, fmt.Errorf("%w: '%s' wants rd, rs1, rs2 on line %d", ErrCannotEncode, line.Mnemonic, line.Lineno)
	}
	rd, err := parseReg(line.Operands[0])
	if err != nil {
		return nil, lineErr(err, line.Lineno)
	}
	rs1, err := parseReg(line.Operands[1])
	if err != nil {
		return nil, lineErr(err, line.Lineno)
	}
	rs2, err := parseReg(line.Operands[2])
	if err != nil {
		return nil, lineErr(err, line.Lineno)
	}
	return GenericInstruction{Lineno: line.Lineno, MaybeLabel: line.MaybeLabel, Mnemonic: line.Mnemonic, Rd: rd, Rs1: rs1, Rs2: rs2}, nil
}

func buildIType(line rawLine) (Instruction, error) {
	if len(line.Operands) != 3 {
		return nil, fmt.Errorf("%w: '%s' wants rd, rs1, imm on line %d", ErrCannotEncode, line.Mnemonic, line.Lineno)
	}
	rd, err := parseReg(line.Operands[0])
	if err != nil {
		return nil, lineErr(err, line.Lineno)
	}
	rs1, err := parseReg(line.Operands[1])
	if err != nil {
		return nil, lineErr(err, line.Lineno)
	}
	return GenericInstruction{Lineno: line.Lineno, MaybeLabel: line.MaybeLabel, Mnemonic: line.Mnemonic, Rd: rd, Rs1: rs1, Imm: line.Operands[2]}, nil
}

func buildLoad(line rawLine) (Instruction, error) {
	if len(line.Operands) != 2 {
		return nil, fmt.Errorf("%w: '%s' wants rd, offset(rs1) on line %d", ErrCannotEncode, line.Mnemonic, line.Lineno)
	}
	rd, err := parseReg(line.Operands[0])
	if err != nil {
		return nil, lineErr(err, line.Lineno)
	}
	imm, rs1name, err := parseOffset(line.Operands[1])
	if err != nil {
		return nil, lineErr(err, line.Lineno)
	}
	rs1, err := parseReg(rs1name)
	if err != nil {
		return nil, lineErr(err, line.Lineno)
	}
	return GenericInstruction{Lineno: line.Lineno, MaybeLabel: line.MaybeLabel, Mnemonic: line.Mnemonic, Rd: rd, Rs1: rs1, Imm: imm}, nil
}

func buildSType(line rawLine) (Instruction, error) {
	if len(line.Operands) != 2 {
		return nil, fmt.Errorf("%w: '%s' wants rs2, offset(rs1) on line %d", ErrCannotEncode, line.Mnemonic, line.Lineno)
	}
	rs2, err := parseReg(line.Operands[0])
	if err != nil {
		return nil, lineErr(err, line.Lineno)
	}
	imm, rs1name, err := parseOffset(line.Operands[1])
	if err != nil {
		return nil, lineErr(err, line.Lineno)
	}
	rs1, err := parseReg(rs1name)
	if err != nil {
		return nil, lineErr(err, line.Lineno)
	}
	return GenericInstruction{Lineno: line.Lineno, MaybeLabel: line.MaybeLabel, Mnemonic: line.Mnemonic, Rs1: rs1, Rs2: rs2, Imm: imm}, nil
}

func buildBType(line rawLine) (Instruction, error) {
	if len(line.Operands) != 3 {
		return nil, fmt.Errorf("%w: '%s' wants rs1, rs2, label on line %d", ErrCannotEncode, line.Mnemonic, line.Lineno)
	}
	rs1, err := parseReg(line.Operands[0])
	if err != nil {
		return nil, lineErr(err, line.Lineno)
	}
	rs2, err := parseReg(line.Operands[1])
	if err != nil {
		return nil, lineErr(err, line.Lineno)
	}
	return GenericInstruction{Lineno: line.Lineno, MaybeLabel: line.MaybeLabel, Mnemonic: line.Mnemonic, Rs1: rs1, Rs2: rs2, Imm: line.Operands[2]}, nil
}

func buildJType(line rawLine) (Instruction, error) {
	if len(line.Operands) != 2 {
		return nil, fmt.Errorf("%w: '%s' wants rd, label on line %d", ErrCannotEncode, line.Mnemonic, line.Lineno)
	}
	rd, err := parseReg(line.Operands[0])
	if err != nil {
		return nil, lineErr(err, line.Lineno)
	}
	return GenericInstruction{Lineno: line.Lineno, MaybeLabel: line.MaybeLabel, Mnemonic: line.Mnemonic, Rd: rd, Imm: line.Operands[1]}, nil
}

func buildUType(line rawLine) (Instruction, error) {
	if len(line.Operands) != 2 {
		return nil, fmt.Errorf("%w: '%s' wants rd, imm on line %d", ErrCannotEncode, line.Mnemonic, line.Lineno)
	}
	rd, err := parseReg(line.Operands[0])
	if err != nil {
		return nil, lineErr(err, line.Lineno)
	}
	return GenericInstruction{Lineno: line.Lineno, MaybeLabel: line.MaybeLabel, Mnemonic: line.Mnemonic, Rd: rd, Imm: line.Operands[1]}, nil
}

// parseOffset splits "imm(reg)" into its two parts.
func parseOffset(operand string) (imm, reg string, err error) {
	m := offsetPattern.FindStringSubmatch(operand)
	if m == nil {
		return "", "", fmt.Errorf("%w: malformed memory operand %q", ErrCannotEncode, operand)
	}
	return m[1], m[2], nil
}

// parseReg accepts either "x<n>" or a RISC-V ABI register name.
func parseReg(tok string) (uint32, error) {
	tok = strings.TrimSpace(tok)
	if len(tok) > 1 && (tok[0] == 'x' || tok[0] == 'X') {
		if n, err := strconv.ParseUint(tok[1:], 10, 32); err == nil && n < cpu.NumRegisters {
			return uint32(n), nil
		}
	}
	for i, name := range cpu.RegNames {
		if name == tok {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown register %q", ErrCannotEncode, tok)
}

func lineErr(err error, lineno int) error {
	return fmt.Errorf("%w on line %d", err, lineno)
}
