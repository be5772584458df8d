package sce

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/computerman00/vitaelf/elf"
	"github.com/computerman00/vitaelf/encoding"
)

const (
	TypeExec       = 0xFE00
	TypeRelExec    = 0xFE04
	TypeARMRelExec = 0xFFA5

	moduleInfoSize = 0x5C
)

var (
	ErrModuleInfoNotFound  = errors.New("sce: module info offset not found")
	ErrTruncatedModuleInfo = errors.New("sce: truncated module info")
	ErrTruncatedRecord     = errors.New("sce: truncated library record")
	ErrUnknownImportShape  = errors.New("sce: unknown import record shape")
)

// ModuleInfo is the module-metadata structure embedded in the first
// loadable segment, bounding the export and import library tables.
type ModuleInfo struct {
	Attributes  uint16
	Version     [2]uint8
	RawName     [26]byte
	Type        uint8
	InfoVersion uint8
	Reserve     uint32
	ExportTop   uint32
	ExportEnd   uint32
	ImportTop   uint32
	ImportEnd   uint32
	NID         uint32
	TLSTop      uint32
	TLSFileSize uint32
	TLSMemSize  uint32
	StartEntry  uint32
	StopEntry   uint32
	ExidxTop    uint32
	ExidxEnd    uint32
	ExtabTop    uint32
	ExtabEnd    uint32

	Name string `encoding:"ignore"`
	Off  uint64 `encoding:"ignore"`
	Addr uint64 `encoding:"ignore"`
}

// LocateModuleInfo computes the raw file offset of the module-metadata
// structure. For the three SCE executable types the upper two bits of
// e_entry index a loadable segment and the low 30 bits are the offset
// inside it.
func LocateModuleInfo(f *elf.File) (uint64, error) {
	switch f.Header.Type {
	case TypeExec, TypeRelExec, TypeARMRelExec:
	default:
		return 0, fmt.Errorf("%w: executable type %#x", ErrModuleInfoNotFound, f.Header.Type)
	}
	segIdx := (f.Header.Entry >> 30) & 0x3
	segOff := uint64(f.Header.Entry & 0x3FFFFFFF)
	if int(segIdx) >= len(f.Progs) {
		return 0, fmt.Errorf("%w: segment index %d out of range", ErrModuleInfoNotFound, segIdx)
	}
	ph := f.Progs[segIdx]
	if ph.Type != elf.PTLoad {
		return 0, fmt.Errorf("%w: segment %d not loadable", ErrModuleInfoNotFound, segIdx)
	}
	return uint64(ph.Off) + segOff, nil
}

// ReadModuleInfo locates and decodes the module-metadata structure.
func ReadModuleInfo(f *elf.File) (*ModuleInfo, error) {
	off, err := LocateModuleInfo(f)
	if err != nil {
		return nil, err
	}
	data, err := f.ReadRaw(off, moduleInfoSize)
	if err != nil {
		return nil, fmt.Errorf("%w at offset %#x", ErrTruncatedModuleInfo, off)
	}
	mi := new(ModuleInfo)
	if _, err := encoding.Decode(data, f.ByteOrder(), mi); err != nil {
		return nil, fmt.Errorf("%w at offset %#x", ErrTruncatedModuleInfo, off)
	}
	mi.Off = off
	mi.Addr, _ = f.AddrForRaw(off)
	mi.Name = decodeName(mi.RawName[:])
	if mi.ExportTop > mi.ExportEnd || mi.ImportTop > mi.ImportEnd {
		slog.Warn("module info has inverted table range, wrong structure located?",
			"module", mi.Name,
			"exports", fmt.Sprintf("%#x-%#x", mi.ExportTop, mi.ExportEnd),
			"imports", fmt.Sprintf("%#x-%#x", mi.ImportTop, mi.ImportEnd))
	}
	return mi, nil
}

func decodeName(raw []byte) string {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	name := make([]byte, 0, len(raw))
	for _, b := range raw {
		if b < 0x80 {
			name = append(name, b)
		}
	}
	return string(name)
}
