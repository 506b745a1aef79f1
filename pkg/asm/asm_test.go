package asm

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func assembleOK(t *testing.T, src string) []uint32 {
	t.Helper()
	image, err := Assemble(strings.NewReader(src))
	require.NoError(t, err)
	require.Zero(t, len(image)%4, "image length %d not word-aligned", len(image))

	words := make([]uint32, len(image)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(image[i*4:])
	}
	return words
}

func TestAssembleRTypeAndIType(t *testing.T) {
	words := assembleOK(t, `
		addi a0, x0, 5
		addi a1, x0, 7
		add  a2, a0, a1
	`)
	require.Len(t, words, 3)
	// add a2, a0, a1: opcode 0110011, funct3 0, funct7 0, rd=12(a2), rs1=10(a0), rs2=11(a1)
	want := uint32(0)<<25 | 11<<20 | 10<<15 | 0<<12 | 12<<7 | 0b0110011
	require.Equal(t, want, words[2])
}

func TestAssembleBranchResolvesBackwardLabel(t *testing.T) {
	words := assembleOK(t, `
	loop:
		addi a0, a0, -1
		bne  a0, x0, loop
		ebreak
	`)
	require.Len(t, words, 3)

	// bne at index 1 targets index 0: byte delta = (0-1)*4 = -4
	b12 := (words[1] >> 31) & 1
	b10_5 := (words[1] >> 25) & 0x3f
	b4_1 := (words[1] >> 8) & 0xf
	b11 := (words[1] >> 7) & 1
	imm := int32(uint32(b12)<<12 | uint32(b11)<<11 | uint32(b10_5)<<5 | uint32(b4_1)<<1)
	imm = (imm << 19) >> 19 // sign-extend from bit 12
	require.EqualValues(t, -4, imm)
}

func TestAssembleLoadStoreOffsetSyntax(t *testing.T) {
	words := assembleOK(t, `
		lw sp, 8(sp)
		sw sp, 8(sp)
	`)
	require.Len(t, words, 2)
}

func TestAssembleLUIShiftsIntoUpperBits(t *testing.T) {
	words := assembleOK(t, "lui t0, 1\n")
	require.Len(t, words, 1)
	// lui t0, 1 loads 0x00001000 into t0 (rd=5): imm lands in bits 31:12.
	want := uint32(0x00001000) | 5<<7 | 0b0110111
	require.Equal(t, want, words[0])
}

func TestAssembleUnknownMnemonicFails(t *testing.T) {
	_, err := Assemble(strings.NewReader("frobnicate a0, a1, a2\n"))
	require.Error(t, err)
}

func TestAssembleUndefinedLabelFails(t *testing.T) {
	_, err := Assemble(strings.NewReader("jal ra, nowhere\n"))
	require.Error(t, err)
}

func TestAssembleWordDirective(t *testing.T) {
	words := assembleOK(t, ".word 0xcafef00d\n")
	require.Equal(t, []uint32{0xcafef00d}, words)
}

func TestInstructionOrErrorBytesPropagatesError(t *testing.T) {
	ioe := InstructionOrError{Error: ErrCannotEncode}
	_, err := ioe.Bytes()
	require.Error(t, err)
}

func TestAssembleEmptyProgramProducesEmptyImage(t *testing.T) {
	var buf bytes.Buffer
	image, err := Assemble(&buf)
	require.NoError(t, err)
	require.Empty(t, image)
}
