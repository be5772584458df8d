package elf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/computerman00/vitaelf/encoding"
)

const (
	Class32          = 1
	DataLittleEndian = 1
	DataBigEndian    = 2

	PTLoad = 1

	identSize  = 16
	headerSize = 52
)

var (
	ErrUnsupportedClass = errors.New("elf: unsupported class (only 32-bit)")
	ErrUnknownEncoding  = errors.New("elf: unknown data encoding")
	ErrTruncatedHeader  = errors.New("elf: truncated header")
	ErrAddressUnmapped  = errors.New("elf: address not mapped")
	ErrShortRead        = errors.New("elf: short read")
)

type Header struct {
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

func (h *Header) Class() byte { return h.Ident[4] }

func (h *Header) Data() byte { return h.Ident[5] }

type ProgHeader struct {
	Type   uint32
	Off    uint32
	Vaddr  uint32
	Paddr  uint32
	Filesz uint32
	Memsz  uint32
	Flags  uint32
	Align  uint32
}

// File is a parsed 32-bit executable image. Raw file offsets and loaded
// virtual addresses are separate address spaces; ReadRaw and ReadAddr
// never substitute for one another.
type File struct {
	Header Header
	Progs  []ProgHeader

	raw   []byte
	order binary.ByteOrder
}

func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(data)
}

func New(data []byte) (*File, error) {
	if len(data) < headerSize {
		return nil, ErrTruncatedHeader
	}
	if data[4] != Class32 {
		return nil, ErrUnsupportedClass
	}
	var order binary.ByteOrder
	switch data[5] {
	case DataLittleEndian:
		order = binary.LittleEndian
	case DataBigEndian:
		order = binary.BigEndian
	default:
		return nil, ErrUnknownEncoding
	}
	f := &File{raw: data, order: order}
	if _, err := encoding.Decode(data, order, &f.Header); err != nil {
		return nil, ErrTruncatedHeader
	}
	f.readProgHeaders()
	return f, nil
}

func (f *File) readProgHeaders() {
	for i := 0; i < int(f.Header.Phnum); i++ {
		off := uint64(f.Header.Phoff) + uint64(i)*uint64(f.Header.Phentsize)
		data, err := f.ReadRaw(off, int(f.Header.Phentsize))
		if err != nil {
			slog.Warn("incomplete program header", "index", i, "offset", fmt.Sprintf("%#x", off))
			continue
		}
		var ph ProgHeader
		if _, err := encoding.Decode(data, f.order, &ph); err != nil {
			slog.Warn("incomplete program header", "index", i, "offset", fmt.Sprintf("%#x", off))
			continue
		}
		f.Progs = append(f.Progs, ph)
	}
}

func (f *File) ByteOrder() binary.ByteOrder { return f.order }

// ReadRaw reads n bytes at a raw file offset.
func (f *File) ReadRaw(off uint64, n int) ([]byte, error) {
	end := off + uint64(n)
	if off > uint64(len(f.raw)) || end > uint64(len(f.raw)) || end < off {
		return nil, fmt.Errorf("%w: %d bytes at raw offset %#x", ErrShortRead, n, off)
	}
	return f.raw[off:end], nil
}

// ReadAddr reads n bytes from the loaded view at a virtual address,
// mapping through the loadable segments. Bytes past a segment's file
// size but inside its memory size read as zero.
func (f *File) ReadAddr(vaddr uint64, n int) ([]byte, error) {
	for _, ph := range f.Progs {
		if ph.Type != PTLoad {
			continue
		}
		start, memEnd := uint64(ph.Vaddr), uint64(ph.Vaddr)+uint64(ph.Memsz)
		if vaddr < start || vaddr >= memEnd {
			continue
		}
		if vaddr+uint64(n) > memEnd {
			return nil, fmt.Errorf("%w: %d bytes at address %#x", ErrShortRead, n, vaddr)
		}
		delta := vaddr - start
		out := make([]byte, n)
		if delta < uint64(ph.Filesz) {
			avail := uint64(ph.Filesz) - delta
			take := uint64(n)
			if take > avail {
				take = avail
			}
			src, err := f.ReadRaw(uint64(ph.Off)+delta, int(take))
			if err != nil {
				return nil, err
			}
			copy(out, src)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %#x", ErrAddressUnmapped, vaddr)
}

// ReadCString reads a NUL-terminated ASCII string from the loaded view,
// truncating at the first unreadable byte.
func (f *File) ReadCString(vaddr uint64) string {
	var s []byte
	for {
		b, err := f.ReadAddr(vaddr, 1)
		if err != nil || b[0] == 0 {
			break
		}
		if b[0] < 0x80 {
			s = append(s, b[0])
		}
		vaddr++
	}
	return string(s)
}

// AddrForRaw maps a raw file offset to its loaded virtual address.
func (f *File) AddrForRaw(off uint64) (uint64, bool) {
	for _, ph := range f.Progs {
		if ph.Type != PTLoad {
			continue
		}
		if off >= uint64(ph.Off) && off < uint64(ph.Off)+uint64(ph.Filesz) {
			return uint64(ph.Vaddr) + (off - uint64(ph.Off)), true
		}
	}
	return 0, false
}

// BaseAddr is the virtual address of the first loadable segment.
func (f *File) BaseAddr() uint64 {
	for _, ph := range f.Progs {
		if ph.Type == PTLoad {
			return uint64(ph.Vaddr)
		}
	}
	return 0
}
