package isa

import "strings"

// SignExtend replicates bit (bits-1) of v into every bit above it,
// producing the 32-bit two's-complement value. Grounded on inst.c's
// SEXT macro.
func SignExtend(v uint32, bits int) uint32 {
	if bits <= 0 || bits >= 32 {
		return v
	}
	shift := uint(32 - bits)
	return uint32(int32(v<<shift) >> shift)
}

func bits(inst uint32, hi, lo uint) uint32 {
	return (inst >> lo) & ((1 << (hi - lo + 1)) - 1)
}

// fields common to every format.
func rd(inst uint32) uint32  { return bits(inst, 11, 7) }
func rs1(inst uint32) uint32 { return bits(inst, 19, 15) }
func rs2(inst uint32) uint32 { return bits(inst, 24, 20) }

func immI(inst uint32) uint32 {
	return SignExtend(bits(inst, 31, 20), 12)
}

func immS(inst uint32) uint32 {
	v := (bits(inst, 31, 25) << 5) | bits(inst, 11, 7)
	return SignExtend(v, 12)
}

func immB(inst uint32) uint32 {
	v := (bits(inst, 31, 31) << 12) | (bits(inst, 7, 7) << 11) |
		(bits(inst, 30, 25) << 5) | (bits(inst, 11, 8) << 1)
	return SignExtend(v, 13)
}

func immU(inst uint32) uint32 {
	return SignExtend(bits(inst, 31, 12), 20) << 12
}

func immJ(inst uint32) uint32 {
	v := (bits(inst, 31, 31) << 20) | (bits(inst, 19, 12) << 12) |
		(bits(inst, 20, 20) << 11) | (bits(inst, 30, 25) << 5) |
		(bits(inst, 24, 21) << 1)
	return SignExtend(v, 21)
}

// DecodeOperands extracts rd/rs1/rs2/imm for the given instruction
// format. Register reads of src1/src2 happen here only for the
// formats that use them, as spec.md section 4.C requires.
func DecodeOperands(m Machine, inst uint32, t Type) Decoded {
	d := Decoded{Type: t, Rd: rd(inst), Rs1: rs1(inst), Rs2: rs2(inst)}
	switch t {
	case TypeR:
		d.Src1 = m.ReadReg(d.Rs1)
		d.Src2 = m.ReadReg(d.Rs2)
	case TypeI:
		d.Src1 = m.ReadReg(d.Rs1)
		d.Imm = immI(inst)
	case TypeS:
		d.Src1 = m.ReadReg(d.Rs1)
		d.Src2 = m.ReadReg(d.Rs2)
		d.Imm = immS(inst)
	case TypeB:
		d.Src1 = m.ReadReg(d.Rs1)
		d.Src2 = m.ReadReg(d.Rs2)
		d.Imm = immB(inst)
	case TypeU:
		d.Imm = immU(inst)
	case TypeJ:
		d.Imm = immJ(inst)
	}
	return d
}

// pattern is one row of the decode table: a 32-character 0/1/?
// pattern (whitespace ignored) with the opcode's name, format and
// executor.
type pattern struct {
	bits uint32 // fixed bits, with don't-cares set to 0
	mask uint32 // 1 where the pattern constrains a bit
	name string
	typ  Type
	exec Executor
}

func compilePattern(s string) (bits, mask uint32) {
	s = strings.ReplaceAll(s, " ", "")
	if len(s) != 32 {
		panic("isa: pattern must be 32 characters: " + s)
	}
	for i := 0; i < 32; i++ {
		pos := uint(31 - i)
		switch s[i] {
		case '0':
			mask |= 1 << pos
		case '1':
			bits |= 1 << pos
			mask |= 1 << pos
		case '?':
			// don't care
		default:
			panic("isa: invalid pattern character: " + string(s[i]))
		}
	}
	return bits, mask
}

// table is the priority-ordered pattern list, most-frequent first,
// with the catch-all illegal pattern last, as spec.md section 4.C and
// the Design Notes require. It is populated by init() in exec.go, in the
// same declared order as inst.c's INSTPAT_START()...INSTPAT_END()
// block so that evaluation order matches the original.
var table []pattern

func addPattern(bitstr, name string, typ Type, exec Executor) {
	b, mask := compilePattern(bitstr)
	table = append(table, pattern{bits: b, mask: mask, name: name, typ: typ, exec: exec})
}

// Lookup returns the first pattern whose fixed bits match inst, trying
// patterns in declared priority order. The caller is guaranteed a
// match because the table ends with a catch-all illegal pattern.
func Lookup(inst uint32) (name string, typ Type, exec Executor, ok bool) {
	for _, p := range table {
		if inst&p.mask == p.bits {
			return p.name, p.typ, p.exec, p.name != "illegal"
		}
	}
	// unreachable: the catch-all pattern always matches.
	return "illegal", TypeN, execIllegal, false
}

// Decode decodes and fully resolves operands (including register
// reads) for inst, ready for Execute.
func Decode(m Machine, inst uint32) (name string, d Decoded) {
	name, typ, exec, _ := Lookup(inst)
	d = DecodeOperands(m, inst, typ)
	d.Name = name
	d.ExecuteFn = exec
	return name, d
}

// Execute runs the decoded instruction's executor against m.
func Execute(m Machine, d Decoded) {
	d.ExecuteFn(m, d)
}
