package asm

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/coding-potatoo/rv32emu/pkg/isa"
)

// ErrCannotEncode is returned when an instruction cannot be encoded,
// e.g. an unknown mnemonic or an unresolved label.
var ErrCannotEncode = errors.New("asm: cannot encode instruction")

// ErrOutOfRange is returned when an immediate does not fit the target
// field width.
var ErrOutOfRange = errors.New("asm: immediate out of range")

// ErrTooManyInstructions is returned when the program has more
// instructions than a 32-bit program counter can index.
var ErrTooManyInstructions = errors.New("asm: too many instructions")

// Instruction is a parsed instruction.
type Instruction interface {
	// Err returns the error occurred processing the instruction. If this
	// function returns nil, then the instruction is valid.
	Err() error

	// Label returns the label associated with the instruction. If this
	// function returns nil, then there is no label.
	Label() *string

	// Line returns the line where the instruction appears in the input file.
	Line() int

	// Encode encodes the instruction. The table passed in input maps each
	// label to the corresponding instruction index (not byte address); pc
	// is this instruction's own index.
	Encode(labels map[string]int64, pc uint32) (uint32, error)
}

// InstructionErr is an error.
type InstructionErr struct {
	Error  error
	Lineno int
}

// Err implements Instruction.Err
func (ia InstructionErr) Err() error {
	return ia.Error
}

// Label implements Instruction.Label
func (ia InstructionErr) Label() *string {
	return nil
}

// Line implements Instruction.Line
func (ia InstructionErr) Line() int {
	return ia.Lineno
}

// Encode implements Instruction.Encode
func (ia InstructionErr) Encode(labels map[string]int64, pc uint32) (uint32, error) {
	return 0, fmt.Errorf("%w because this is an error", ErrCannotEncode)
}

// NewParseError constructs a new parsed instruction
// that actually wraps a parsing error.
func NewParseError(err error) []Instruction {
	return []Instruction{InstructionErr{Error: err}}
}

var _ Instruction = InstructionErr{}

// opcodeInfo is one row of the mnemonic-to-encoding table: the inverse
// of pkg/isa/decode.go's pattern table, keyed by mnemonic instead of
// bit pattern.
type opcodeInfo struct {
	Opcode, Funct3, Funct7 uint32
	Type                   isa.Type
	PCRelative             bool
}

var opcodeTable = map[string]opcodeInfo{
	"lui":   {Opcode: isa.OpLUI, Type: isa.TypeU},
	"auipc": {Opcode: isa.OpAUIPC, Type: isa.TypeU},
	"jal":   {Opcode: isa.OpJAL, Type: isa.TypeJ, PCRelative: true},
	"jalr":  {Opcode: isa.OpJALR, Type: isa.TypeI},

	"beq":  {Opcode: isa.OpBranch, Funct3: 0, Type: isa.TypeB, PCRelative: true},
	"bne":  {Opcode: isa.OpBranch, Funct3: 1, Type: isa.TypeB, PCRelative: true},
	"blt":  {Opcode: isa.OpBranch, Funct3: 4, Type: isa.TypeB, PCRelative: true},
	"bge":  {Opcode: isa.OpBranch, Funct3: 5, Type: isa.TypeB, PCRelative: true},
	"bltu": {Opcode: isa.OpBranch, Funct3: 6, Type: isa.TypeB, PCRelative: true},
	"bgeu": {Opcode: isa.OpBranch, Funct3: 7, Type: isa.TypeB, PCRelative: true},

	"lb":  {Opcode: isa.OpLoad, Funct3: 0, Type: isa.TypeI},
	"lh":  {Opcode: isa.OpLoad, Funct3: 1, Type: isa.TypeI},
	"lw":  {Opcode: isa.OpLoad, Funct3: 2, Type: isa.TypeI},
	"lbu": {Opcode: isa.OpLoad, Funct3: 4, Type: isa.TypeI},
	"lhu": {Opcode: isa.OpLoad, Funct3: 5, Type: isa.TypeI},

	"sb": {Opcode: isa.OpStore, Funct3: 0, Type: isa.TypeS},
	"sh": {Opcode: isa.OpStore, Funct3: 1, Type: isa.TypeS},
	"sw": {Opcode: isa.OpStore, Funct3: 2, Type: isa.TypeS},

	"addi":  {Opcode: isa.OpOpImm, Funct3: 0, Type: isa.TypeI},
	"slti":  {Opcode: isa.OpOpImm, Funct3: 2, Type: isa.TypeI},
	"sltiu": {Opcode: isa.OpOpImm, Funct3: 3, Type: isa.TypeI},
	"xori":  {Opcode: isa.OpOpImm, Funct3: 4, Type: isa.TypeI},
	"ori":   {Opcode: isa.OpOpImm, Funct3: 6, Type: isa.TypeI},
	"andi":  {Opcode: isa.OpOpImm, Funct3: 7, Type: isa.TypeI},
	"slli":  {Opcode: isa.OpOpImm, Funct3: 1, Funct7: 0x00, Type: isa.TypeI},
	"srli":  {Opcode: isa.OpOpImm, Funct3: 5, Funct7: 0x00, Type: isa.TypeI},
	"srai":  {Opcode: isa.OpOpImm, Funct3: 5, Funct7: 0x20, Type: isa.TypeI},

	"add":  {Opcode: isa.OpOp, Funct3: 0, Funct7: 0x00, Type: isa.TypeR},
	"sub":  {Opcode: isa.OpOp, Funct3: 0, Funct7: 0x20, Type: isa.TypeR},
	"sll":  {Opcode: isa.OpOp, Funct3: 1, Funct7: 0x00, Type: isa.TypeR},
	"slt":  {Opcode: isa.OpOp, Funct3: 2, Funct7: 0x00, Type: isa.TypeR},
	"sltu": {Opcode: isa.OpOp, Funct3: 3, Funct7: 0x00, Type: isa.TypeR},
	"xor":  {Opcode: isa.OpOp, Funct3: 4, Funct7: 0x00, Type: isa.TypeR},
	"srl":  {Opcode: isa.OpOp, Funct3: 5, Funct7: 0x00, Type: isa.TypeR},
	"sra":  {Opcode: isa.OpOp, Funct3: 5, Funct7: 0x20, Type: isa.TypeR},
	"or":   {Opcode: isa.OpOp, Funct3: 6, Funct7: 0x00, Type: isa.TypeR},
	"and":  {Opcode: isa.OpOp, Funct3: 7, Funct7: 0x00, Type: isa.TypeR},

	"mul":    {Opcode: isa.OpOp, Funct3: 0, Funct7: 0x01, Type: isa.TypeR},
	"mulh":   {Opcode: isa.OpOp, Funct3: 1, Funct7: 0x01, Type: isa.TypeR},
	"mulhsu": {Opcode: isa.OpOp, Funct3: 2, Funct7: 0x01, Type: isa.TypeR},
	"mulhu":  {Opcode: isa.OpOp, Funct3: 3, Funct7: 0x01, Type: isa.TypeR},
	"div":    {Opcode: isa.OpOp, Funct3: 4, Funct7: 0x01, Type: isa.TypeR},
	"divu":   {Opcode: isa.OpOp, Funct3: 5, Funct7: 0x01, Type: isa.TypeR},
	"rem":    {Opcode: isa.OpOp, Funct3: 6, Funct7: 0x01, Type: isa.TypeR},
	"remu":   {Opcode: isa.OpOp, Funct3: 7, Funct7: 0x01, Type: isa.TypeR},

	"ebreak": {Opcode: isa.OpSystem, Type: isa.TypeN},
}

// immediateBits reports the signed field width enforced on an
// immediate operand of the given format: a literal or label value
// resolved by ResolveImmediate, or a pc-relative byte delta.
func immediateBits(t isa.Type) int {
	switch t {
	case isa.TypeU:
		return 20
	case isa.TypeJ:
		return 21
	case isa.TypeB:
		return 13
	default:
		return 12
	}
}

// GenericInstruction is a single parsed instruction awaiting encoding.
// One struct shape serves every RV32IM format: the opcodeTable entry
// for Mnemonic supplies the opcode/funct3/funct7 and encoding format,
// so this package needs one Encode method instead of the one-struct-
// per-opcode set the RiSC-32 instruction set used.
type GenericInstruction struct {
	Lineno       int
	MaybeLabel   *string
	Mnemonic     string
	Rd, Rs1, Rs2 uint32
	Imm          string // "" if this format carries no immediate operand
}

// Err implements Instruction.Err
func (ia GenericInstruction) Err() error {
	return nil
}

// Label implements Instruction.Label
func (ia GenericInstruction) Label() *string {
	return ia.MaybeLabel
}

// Line implements Instruction.Line
func (ia GenericInstruction) Line() int {
	return ia.Lineno
}

// Encode implements Instruction.Encode
func (ia GenericInstruction) Encode(labels map[string]int64, pc uint32) (uint32, error) {
	info, ok := opcodeTable[ia.Mnemonic]
	if !ok {
		return 0, fmt.Errorf("%w because mnemonic '%s' is unknown", ErrCannotEncode, ia.Mnemonic)
	}

	var imm uint32
	if ia.Imm != "" {
		if info.PCRelative {
			target, err := resolveLabelIndex(labels, ia.Imm, ia.Lineno)
			if err != nil {
				return 0, err
			}
			delta := (target - int64(pc)) * 4
			v, err := CastToUint32(delta, immediateBits(info.Type), ia.Lineno)
			if err != nil {
				return 0, err
			}
			imm = v
		} else {
			v, err := ResolveImmediate(labels, ia.Imm, immediateBits(info.Type), ia.Lineno)
			if err != nil {
				return 0, err
			}
			imm = v
		}
	}

	switch {
	case info.Type == isa.TypeN:
		return isa.EncodeI(isa.OpSystem, 0, 0, 0, 1), nil // ebreak
	case ia.Mnemonic == "slli" || ia.Mnemonic == "srli" || ia.Mnemonic == "srai":
		return isa.EncodeShiftI(info.Funct3, info.Funct7, ia.Rd, ia.Rs1, imm), nil
	case info.Type == isa.TypeR:
		return isa.EncodeR(info.Opcode, info.Funct3, info.Funct7, ia.Rd, ia.Rs1, ia.Rs2), nil
	case info.Type == isa.TypeI:
		return isa.EncodeI(info.Opcode, info.Funct3, ia.Rd, ia.Rs1, imm), nil
	case info.Type == isa.TypeS:
		return isa.EncodeS(info.Funct3, ia.Rs1, ia.Rs2, imm), nil
	case info.Type == isa.TypeB:
		return isa.EncodeB(info.Funct3, ia.Rs1, ia.Rs2, imm), nil
	case info.Type == isa.TypeU:
		// lui/auipc take a 20-bit upper immediate in source; EncodeU wants
		// it already shifted into bits 31:12, matching isa.immU's decode.
		return isa.EncodeU(info.Opcode, ia.Rd, imm<<12), nil
	case info.Type == isa.TypeJ:
		return isa.EncodeJ(ia.Rd, imm), nil
	default:
		return 0, fmt.Errorf("%w because format is unsupported for '%s'", ErrCannotEncode, ia.Mnemonic)
	}
}

var _ Instruction = GenericInstruction{}

// InstructionDATA is the .word pseudo-instruction.
type InstructionDATA struct {
	Lineno     int
	MaybeLabel *string
	Value      uint32
}

// Err implements Instruction.Err
func (ia InstructionDATA) Err() error {
	return nil
}

// Label implements Instruction.Label
func (ia InstructionDATA) Label() *string {
	return ia.MaybeLabel
}

// Line implements Instruction.Line
func (ia InstructionDATA) Line() int {
	return ia.Lineno
}

// Encode implements Instruction.Encode
func (ia InstructionDATA) Encode(labels map[string]int64, pc uint32) (uint32, error) {
	return ia.Value, nil
}

var _ Instruction = InstructionDATA{}

// resolveLabelIndex resolves name as a label's instruction index; it
// does not accept a bare numeric literal, since pc-relative operands
// in this assembler are always written as a label (jal/branch targets
// are not expressed as raw byte deltas in source text).
func resolveLabelIndex(labels map[string]int64, name string, lineno int) (int64, error) {
	value, found := labels[name]
	if !found {
		return 0, fmt.Errorf("%w because label '%s' is missing on line %d", ErrCannotEncode, name, lineno)
	}
	return value, nil
}

// ResolveImmediate resolves the value of an immediate: a decimal/hex
// literal, or a label's instruction index.
func ResolveImmediate(
	labels map[string]int64, name string, bits, lineno int) (uint32, error) {
	value, err := strconv.ParseInt(name, 0, 64)
	if err != nil {
		var found bool
		value, found = labels[name]
		if !found {
			return 0, fmt.Errorf("%w because label '%s' is missing", ErrCannotEncode, name)
		}
		// fallthrough
	}
	return CastToUint32(value, bits, lineno)
}

// CastToUint32 casts the given value to uint32, checking it fits a
// signed field of the given bit width.
func CastToUint32(value int64, bits, lineno int) (uint32, error) {
	if bits < 1 || bits > 32 {
		panic("bits value out of range")
	}
	if value < -(1<<(bits-1)) || value > ((1<<(bits-1))-1) {
		return 0, fmt.Errorf("%w for %d-bit range on line %d", ErrOutOfRange, bits, lineno)
	}
	return uint32(value), nil
}
