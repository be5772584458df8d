package sce

import (
	"fmt"
	"log/slog"

	"github.com/computerman00/vitaelf/elf"
	"github.com/computerman00/vitaelf/encoding"
)

const (
	importShapeExtended = 0x34
	importShapeCompact  = 0x24
)

// libraryImportExt is the richer on-disk import shape, carrying an SDK
// version and TLS tables. TLS tables are decoded but not walked.
type libraryImportExt struct {
	Size         uint8
	Reserved1    uint8
	Version      uint16
	Attribute    uint16
	FuncCount    uint16
	VarCount     uint16
	TLSVarCount  uint16
	Reserved2    [4]byte
	LibraryNID   uint32
	NameAddr     uint32
	SDKVersion   uint32
	FuncNIDTable uint32
	FuncTable    uint32
	VarNIDTable  uint32
	VarTable     uint32
	TLSNIDTable  uint32
	TLSTable     uint32
}

// libraryImportCompact is the later, smaller shape without TLS or SDK
// fields. The field list past the counts has not been cross-checked
// against the vendor's layout; treat as provisional.
type libraryImportCompact struct {
	Size         uint8
	Reserved1    uint8
	Version      uint16
	Attribute    uint16
	FuncCount    uint16
	VarCount     uint16
	Unknown      uint16
	LibraryNID   uint32
	NameAddr     uint32
	FuncNIDTable uint32
	FuncTable    uint32
	VarNIDTable  uint32
	VarTable     uint32
}

// LibraryImport is one import library record, normalized across the two
// on-disk shapes.
type LibraryImport struct {
	Size         uint16
	Version      uint16
	Attribute    uint16
	FuncCount    uint16
	VarCount     uint16
	TLSVarCount  uint16
	LibraryNID   uint32
	NameAddr     uint32
	SDKVersion   uint32
	FuncNIDTable uint32
	FuncTable    uint32
	VarNIDTable  uint32
	VarTable     uint32
	TLSNIDTable  uint32
	TLSTable     uint32

	Name string
	Addr uint64
}

// WalkImports iterates the import library records between stub_top and
// stub_end. The on-disk shape of each record is selected by its leading
// size field; an unrecognized size aborts the walk with
// ErrUnknownImportShape, keeping records gathered so far.
func WalkImports(f *elf.File, mi *ModuleInfo, visit func(*LibraryImport, Entry)) error {
	if mi.ImportTop == 0 || mi.ImportEnd == 0 || len(f.Progs) == 0 {
		return nil
	}
	base := uint64(f.Progs[0].Off)
	cursor := base + uint64(mi.ImportTop)
	end := base + uint64(mi.ImportEnd)
	order := f.ByteOrder()

	for cursor < end {
		sizeData, err := f.ReadRaw(cursor, 2)
		if err != nil {
			return fmt.Errorf("%w: import size at offset %#x", ErrTruncatedRecord, cursor)
		}
		size := order.Uint16(sizeData)
		if size != importShapeExtended && size != importShapeCompact {
			return fmt.Errorf("%w: %#x bytes at offset %#x", ErrUnknownImportShape, size, cursor)
		}
		data, err := f.ReadRaw(cursor, int(size))
		if err != nil {
			return fmt.Errorf("%w: import record at offset %#x", ErrTruncatedRecord, cursor)
		}
		var lib LibraryImport
		switch size {
		case importShapeExtended:
			var rec libraryImportExt
			if _, err := encoding.Decode(data, order, &rec); err != nil {
				return fmt.Errorf("%w: import record at offset %#x", ErrTruncatedRecord, cursor)
			}
			lib = LibraryImport{
				Size:         uint16(rec.Size),
				Version:      rec.Version,
				Attribute:    rec.Attribute,
				FuncCount:    rec.FuncCount,
				VarCount:     rec.VarCount,
				TLSVarCount:  rec.TLSVarCount,
				LibraryNID:   rec.LibraryNID,
				NameAddr:     rec.NameAddr,
				SDKVersion:   rec.SDKVersion,
				FuncNIDTable: rec.FuncNIDTable,
				FuncTable:    rec.FuncTable,
				VarNIDTable:  rec.VarNIDTable,
				VarTable:     rec.VarTable,
				TLSNIDTable:  rec.TLSNIDTable,
				TLSTable:     rec.TLSTable,
			}
		case importShapeCompact:
			var rec libraryImportCompact
			if _, err := encoding.Decode(data, order, &rec); err != nil {
				return fmt.Errorf("%w: import record at offset %#x", ErrTruncatedRecord, cursor)
			}
			lib = LibraryImport{
				Size:         uint16(rec.Size),
				Version:      rec.Version,
				Attribute:    rec.Attribute,
				FuncCount:    rec.FuncCount,
				VarCount:     rec.VarCount,
				LibraryNID:   rec.LibraryNID,
				NameAddr:     rec.NameAddr,
				FuncNIDTable: rec.FuncNIDTable,
				FuncTable:    rec.FuncTable,
				VarNIDTable:  rec.VarNIDTable,
				VarTable:     rec.VarTable,
			}
		}
		lib.Name = f.ReadCString(uint64(lib.NameAddr))
		lib.Addr, _ = f.AddrForRaw(cursor)
		slog.Debug("import library", "name", lib.Name, "functions", lib.FuncCount, "variables", lib.VarCount)

		walkEntries(f, &lib, uint64(lib.FuncNIDTable), uint64(lib.FuncTable),
			int(lib.FuncCount), 0, visit)
		walkEntries(f, &lib, uint64(lib.VarNIDTable), uint64(lib.VarTable),
			0, int(lib.VarCount), visit)

		cursor += uint64(size)
	}
	return nil
}
