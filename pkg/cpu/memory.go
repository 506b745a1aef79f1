// Package cpu implements the flat guest memory, the 32-register file,
// the per-instruction step record, and the fetch/decode/execute loop
// (spec.md components A, B, E). Grounded on pkg/vm/vm.go's Memory/
// Fetch/GPR/Execute shape, generalized from RiSC-32's word-addressed
// memory to RV32's byte-addressed, variably-sized memory accesses.
package cpu

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrBadAddress is returned for any access outside the configured
// memory window. Grounded on pkg/vm/vm.go's ErrSIGSEGV.
var ErrBadAddress = errors.New("cpu: bad address")

// Memory is a flat byte-addressable guest RAM window starting at Base.
type Memory struct {
	Base uint32
	Data []byte
}

// NewMemory allocates a zeroed memory window of size bytes starting
// at base. The conventional base for this emulator is 0x80000000, per
// spec.md section 3.
func NewMemory(base uint32, size int) *Memory {
	return &Memory{Base: base, Data: make([]byte, size)}
}

func (m *Memory) offset(addr uint32, length int) (int, error) {
	if addr < m.Base {
		return 0, fmt.Errorf("%w: 0x%08x below base 0x%08x", ErrBadAddress, addr, m.Base)
	}
	off := int(addr - m.Base)
	if off < 0 || off+length > len(m.Data) {
		return 0, fmt.Errorf("%w: 0x%08x (len %d)", ErrBadAddress, addr, length)
	}
	return off, nil
}

// Read returns the zero-extended little-endian word at addr..addr+length.
// Unaligned accesses behave as sequential byte reads, per spec.md 4.A.
func (m *Memory) Read(addr uint32, length int) (uint32, error) {
	off, err := m.offset(addr, length)
	if err != nil {
		return 0, err
	}
	var buf [4]byte
	copy(buf[:length], m.Data[off:off+length])
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// Write stores the low length bytes of v at addr.
func (m *Memory) Write(addr uint32, length int, v uint32) error {
	off, err := m.offset(addr, length)
	if err != nil {
		return err
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	copy(m.Data[off:off+length], buf[:length])
	return nil
}

// LoadImage copies a raw guest image into memory starting at Base.
func (m *Memory) LoadImage(img []byte) error {
	if len(img) > len(m.Data) {
		return fmt.Errorf("%w: image of %d bytes exceeds memory size %d", ErrBadAddress, len(img), len(m.Data))
	}
	copy(m.Data, img)
	return nil
}
