package encoding

import (
	"encoding/binary"
	"errors"
	"reflect"
	"unsafe"

	"github.com/modern-go/reflect2"
)

var ErrShortData = errors.New("encoding: short data")

// Decode fills val, a pointer to a fixed-layout value, from the packed
// on-disk representation at the start of data. Fields tagged
// `encoding:"ignore"` hold no wire bytes. Returns the number of bytes
// consumed.
func Decode(data []byte, order binary.ByteOrder, val any) (int, error) {
	typ := reflect.TypeOf(val)
	if typ.Kind() != reflect.Pointer {
		panic("encoding: Decode target must be a pointer")
	}
	p := planFor(typ.Elem())
	if len(data) < p.size {
		return 0, ErrShortData
	}
	ptr := reflect2.PtrOf(val)
	for i := range p.steps {
		s := &p.steps[i]
		s.read(data[s.wireOff:], order, unsafe.Add(ptr, s.goOff))
	}
	return p.size, nil
}

// Size reports the packed wire size of val's type.
func Size(val any) int {
	typ := reflect.TypeOf(val)
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return planFor(typ).size
}
