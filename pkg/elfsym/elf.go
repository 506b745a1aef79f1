// Package elfsym reads just enough of an ELF32 little-endian file to
// build the function table ftrace needs: the section header table, the
// section-name string table (to find ".strtab" unambiguously), the
// symbol table, and its associated string table. Grounded on
// original_source/nemu/src/utils/elf_data_func.c's init_elf, which
// performs the identical walk by hand; no ecosystem ELF32 parsing
// library appears anywhere in the retrieved corpus, so this stays a
// direct field-level read via encoding/binary rather than a stdlib
// debug/elf substitute (debug/elf targets the host's object format
// assumptions and is a poor fit for parsing an arbitrary guest ELF by
// hand the way the original does).
package elfsym

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/coding-potatoo/rv32emu/pkg/trace"
)

// ErrNotELF is returned when the file's magic bytes don't match the
// ELF identifier.
var ErrNotELF = errors.New("elfsym: not an ELF file")

const (
	elfMagic0, elfMagic1, elfMagic2, elfMagic3 = 0x7f, 'E', 'L', 'F'

	shtSymtab = 2
	sttFunc   = 2

	ehdrSize = 52
	shdrSize = 40
	symSize  = 16
)

type elf32Ehdr struct {
	Ident     [16]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint32
	Phoff     uint32
	Shoff     uint32
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

type elf32Shdr struct {
	Name      uint32
	Type      uint32
	Flags     uint32
	Addr      uint32
	Offset    uint32
	Size      uint32
	Link      uint32
	Info      uint32
	Addralign uint32
	Entsize   uint32
}

type elf32Sym struct {
	Name  uint32
	Value uint32
	Size  uint32
	Info  uint8
	Other uint8
	Shndx uint16
}

// Load reads path and returns the populated, immutable function table
// consumed by pkg/trace.FuncTracer. Any failure is fatal, matching
// init_elf's Assert-on-error behavior.
func Load(path string) (trace.FuncTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("elfsym: open %s: %w", path, err)
	}
	defer f.Close()
	return load(f)
}

func load(r io.ReadSeeker) (trace.FuncTable, error) {
	ehdr, err := readEhdr(r)
	if err != nil {
		return nil, err
	}

	shdrs, err := readShdrs(r, ehdr)
	if err != nil {
		return nil, err
	}

	names, err := readSection(r, shdrs[ehdr.Shstrndx])
	if err != nil {
		return nil, fmt.Errorf("elfsym: read section name string table: %w", err)
	}

	var symRaw, strRaw []byte
	for _, sh := range shdrs {
		if sh.Type == shtSymtab {
			symRaw, err = readSection(r, sh)
			if err != nil {
				return nil, fmt.Errorf("elfsym: read symtab: %w", err)
			}
			if sh.Entsize != symSize {
				return nil, fmt.Errorf("elfsym: unexpected symbol entry size %d", sh.Entsize)
			}
		}
		if sectionName(names, sh.Name) == ".strtab" {
			strRaw, err = readSection(r, sh)
			if err != nil {
				return nil, fmt.Errorf("elfsym: read strtab: %w", err)
			}
		}
	}
	if symRaw == nil || strRaw == nil {
		return nil, errors.New("elfsym: missing .symtab or .strtab section")
	}

	return buildFuncTable(symRaw, strRaw), nil
}

func readEhdr(r io.ReadSeeker) (elf32Ehdr, error) {
	var ehdr elf32Ehdr
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return ehdr, err
	}
	if err := binary.Read(r, binary.LittleEndian, &ehdr); err != nil {
		return ehdr, fmt.Errorf("elfsym: read header: %w", err)
	}
	if ehdr.Ident[0] != elfMagic0 || ehdr.Ident[1] != elfMagic1 ||
		ehdr.Ident[2] != elfMagic2 || ehdr.Ident[3] != elfMagic3 {
		return ehdr, ErrNotELF
	}
	return ehdr, nil
}

func readShdrs(r io.ReadSeeker, ehdr elf32Ehdr) ([]elf32Shdr, error) {
	if _, err := r.Seek(int64(ehdr.Shoff), io.SeekStart); err != nil {
		return nil, err
	}
	shdrs := make([]elf32Shdr, ehdr.Shnum)
	for i := range shdrs {
		if err := binary.Read(r, binary.LittleEndian, &shdrs[i]); err != nil {
			return nil, fmt.Errorf("elfsym: read section header %d: %w", i, err)
		}
	}
	return shdrs, nil
}

func readSection(r io.ReadSeeker, sh elf32Shdr) ([]byte, error) {
	if _, err := r.Seek(int64(sh.Offset), io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, sh.Size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func sectionName(names []byte, off uint32) string {
	if int(off) >= len(names) {
		return ""
	}
	end := bytes.IndexByte(names[off:], 0)
	if end < 0 {
		return string(names[off:])
	}
	return string(names[off : int(off)+end])
}

func buildFuncTable(symRaw, strRaw []byte) trace.FuncTable {
	var table trace.FuncTable
	count := len(symRaw) / symSize
	br := bytes.NewReader(symRaw)
	for i := 0; i < count; i++ {
		var sym elf32Sym
		if err := binary.Read(br, binary.LittleEndian, &sym); err != nil {
			break
		}
		if sym.Info&0xf != sttFunc {
			continue
		}
		table = append(table, trace.FuncEntry{
			Name:  sectionName(strRaw, sym.Name),
			Begin: sym.Value,
			End:   sym.Value + sym.Size,
		})
	}
	return table
}
