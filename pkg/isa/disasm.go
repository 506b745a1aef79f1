package isa

import "fmt"

// Disassemble renders inst as RV32IM assembly text. Grounded on
// pkg/vm/vm.go's Disassemble (a switch over decoded fields producing
// "mnemonic operands"), generalized from the RiSC-32 opcode set to
// RV32IM formats by driving the same switch off Type instead of one
// case per opcode.
func Disassemble(inst uint32) string {
	name, typ, _, _ := Lookup(inst)
	r := rd(inst)
	s1 := rs1(inst)
	s2 := rs2(inst)
	switch typ {
	case TypeR:
		return fmt.Sprintf("%s x%d, x%d, x%d", name, r, s1, s2)
	case TypeI:
		if name == "jalr" {
			return fmt.Sprintf("%s x%d, x%d, %d", name, r, s1, int32(immI(inst)))
		}
		switch name {
		case "slli", "srli", "srai":
			return fmt.Sprintf("%s x%d, x%d, %d", name, r, s1, bits(inst, 24, 20))
		}
		return fmt.Sprintf("%s x%d, x%d, %d", name, r, s1, int32(immI(inst)))
	case TypeS:
		return fmt.Sprintf("%s x%d, %d(x%d)", name, s2, int32(immS(inst)), s1)
	case TypeB:
		return fmt.Sprintf("%s x%d, x%d, %d", name, s1, s2, int32(immB(inst)))
	case TypeU:
		return fmt.Sprintf("%s x%d, %d", name, r, int32(immU(inst))>>12)
	case TypeJ:
		return fmt.Sprintf("%s x%d, %d", name, r, int32(immJ(inst)))
	default:
		if name == "ebreak" {
			return "ebreak"
		}
		return fmt.Sprintf("<unknown instruction: %#08x>", inst)
	}
}
