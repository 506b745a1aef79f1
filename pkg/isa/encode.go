package isa

// Opcode/funct3/funct7 constants used by pkg/asm to build instruction
// words for RV32IM formats. These are the inverse of the field
// extraction in decode.go.
const (
	OpLoad   = 0b0000011
	OpStore  = 0b0100011
	OpOpImm  = 0b0010011
	OpOp     = 0b0110011
	OpLUI    = 0b0110111
	OpAUIPC  = 0b0010111
	OpBranch = 0b1100011
	OpJAL    = 0b1101111
	OpJALR   = 0b1100111
	OpSystem = 0b1110011
)

// EncodeR builds an R-type word.
func EncodeR(opcode, funct3, funct7, rd, rs1, rs2 uint32) uint32 {
	return (funct7 << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

// EncodeI builds an I-type word. imm is truncated to 12 bits.
func EncodeI(opcode, funct3, rd, rs1, imm uint32) uint32 {
	return ((imm & 0xfff) << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

// EncodeShiftI builds the I-type shift-immediate encoding, where the
// top 7 bits carry a funct7 (0000000 or 0100000) instead of sign-
// extended immediate bits.
func EncodeShiftI(funct3, funct7, rd, rs1, shamt uint32) uint32 {
	return (funct7 << 25) | ((shamt & 0x1f) << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | OpOpImm
}

// EncodeS builds an S-type word.
func EncodeS(funct3, rs1, rs2, imm uint32) uint32 {
	return ((imm>>5)&0x7f)<<25 | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | ((imm & 0x1f) << 7) | OpStore
}

// EncodeB builds a B-type word. imm must be even.
func EncodeB(funct3, rs1, rs2, imm uint32) uint32 {
	b12 := (imm >> 12) & 1
	b11 := (imm >> 11) & 1
	b10_5 := (imm >> 5) & 0x3f
	b4_1 := (imm >> 1) & 0xf
	return (b12 << 31) | (b10_5 << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) |
		(b4_1 << 8) | (b11 << 7) | OpBranch
}

// EncodeU builds a U-type word. imm holds the already-shifted 32-bit
// value; only the top 20 bits are kept.
func EncodeU(opcode, rd, imm uint32) uint32 {
	return (imm & 0xfffff000) | (rd << 7) | opcode
}

// EncodeJ builds a J-type word. imm must be even.
func EncodeJ(rd, imm uint32) uint32 {
	b20 := (imm >> 20) & 1
	b19_12 := (imm >> 12) & 0xff
	b11 := (imm >> 11) & 1
	b10_1 := (imm >> 1) & 0x3ff
	return (b20 << 31) | (b10_1 << 21) | (b11 << 20) | (b19_12 << 12) | (rd << 7) | OpJAL
}
