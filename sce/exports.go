package sce

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/computerman00/vitaelf/elf"
	"github.com/computerman00/vitaelf/encoding"
)

const (
	// Reserved NIDs of the synthetic NONAME export library.
	NIDModuleStart     = 0x935CD196
	NIDModuleInfo      = 0x6C2224BA
	NIDModuleProcParam = 0x70FBA1E7

	NonameLibrary = "NONAME"

	attrSyslibNoname = 0x8000
)

// LibraryExport is one variable-length export library record. Size is
// self-describing and drives the table's iteration stride.
type LibraryExport struct {
	Size         uint8
	AuxAttribute uint8
	Version      uint16
	Attribute    uint16
	FuncCount    uint16
	VarCount     uint16
	TLSVarCount  uint16
	HashInfo     uint8
	HashInfoTLS  uint8
	Reserved     uint8
	NIDAltSets   uint8
	LibraryNID   uint32
	NameAddr     uint32
	NIDTable     uint32
	EntryTable   uint32

	Name string `encoding:"ignore"`
	Addr uint64 `encoding:"ignore"`
}

// Noname reports whether this is the synthetic nameless system library.
func (l *LibraryExport) Noname() bool {
	return l.Attribute&attrSyslibNoname != 0 && l.NameAddr == 0
}

type EntryKind int

const (
	EntryFunction EntryKind = iota
	EntryVariable
)

// Entry is one resolved slot of a library's parallel NID/address tables.
type Entry struct {
	Kind EntryKind
	NID  uint32
	Addr uint32
}

// WalkExports iterates the export library records between ent_top and
// ent_end, invoking visit for every readable function and variable entry.
// A malformed record aborts the walk with an error; entries and records
// already visited stand.
func WalkExports(f *elf.File, mi *ModuleInfo, visit func(*LibraryExport, Entry)) error {
	if mi.ExportTop == 0 || mi.ExportEnd == 0 || len(f.Progs) == 0 {
		return nil
	}
	base := uint64(f.Progs[0].Off)
	cursor := base + uint64(mi.ExportTop)
	end := base + uint64(mi.ExportEnd)
	order := f.ByteOrder()
	minSize := encoding.Size(LibraryExport{})

	for cursor < end {
		sizeData, err := f.ReadRaw(cursor, 2)
		if err != nil {
			return fmt.Errorf("%w: export size at offset %#x", ErrTruncatedRecord, cursor)
		}
		size := order.Uint16(sizeData)
		if int(size) < minSize {
			return fmt.Errorf("%w: export record of %#x bytes at offset %#x", ErrTruncatedRecord, size, cursor)
		}
		data, err := f.ReadRaw(cursor, int(size))
		if err != nil {
			return fmt.Errorf("%w: export record at offset %#x", ErrTruncatedRecord, cursor)
		}
		var lib LibraryExport
		if _, err := encoding.Decode(data, order, &lib); err != nil {
			return fmt.Errorf("%w: export record at offset %#x", ErrTruncatedRecord, cursor)
		}
		if lib.Noname() {
			lib.Name = NonameLibrary
		} else {
			lib.Name = f.ReadCString(uint64(lib.NameAddr))
		}
		lib.Addr, _ = f.AddrForRaw(cursor)
		slog.Debug("export library", "name", lib.Name, "functions", lib.FuncCount, "variables", lib.VarCount)

		walkEntries(f, &lib, uint64(lib.NIDTable), uint64(lib.EntryTable),
			int(lib.FuncCount), int(lib.VarCount), visit)

		cursor += uint64(size)
	}
	return nil
}

// walkEntries reads the parallel NID and address tables shared by both
// walkers. Variables follow functions in the same tables. A short read
// of a single 4-byte pair skips that entry only.
func walkEntries[L any](f *elf.File, lib L, nidTable, entryTable uint64, funcs, vars int, visit func(L, Entry)) {
	read := func(table uint64, i int) (uint32, bool) {
		data, err := f.ReadAddr(table+uint64(i)*4, 4)
		if err != nil {
			return 0, false
		}
		// Table entries are little-endian regardless of the header's
		// data encoding.
		return binary.LittleEndian.Uint32(data), true
	}
	for i := 0; i < funcs; i++ {
		nid, ok1 := read(nidTable, i)
		addr, ok2 := read(entryTable, i)
		if !ok1 || !ok2 {
			continue
		}
		visit(lib, Entry{EntryFunction, nid, addr})
	}
	for i := 0; i < vars; i++ {
		nid, ok1 := read(nidTable, funcs+i)
		addr, ok2 := read(entryTable, funcs+i)
		if !ok1 || !ok2 {
			continue
		}
		visit(lib, Entry{EntryVariable, nid, addr})
	}
}
