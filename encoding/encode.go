package encoding

import (
	"encoding/binary"
	"reflect"
	"unsafe"

	"github.com/modern-go/reflect2"
)

// Append appends the packed on-disk representation of val to buf.
func Append(buf []byte, order binary.ByteOrder, val any) []byte {
	typ := reflect.TypeOf(val)
	if typ.Kind() != reflect.Pointer {
		panic("encoding: Append source must be a pointer")
	}
	p := planFor(typ.Elem())
	base := len(buf)
	buf = append(buf, make([]byte, p.size)...)
	ptr := reflect2.PtrOf(val)
	for i := range p.steps {
		s := &p.steps[i]
		s.write(buf[base+s.wireOff:], order, unsafe.Add(ptr, s.goOff))
	}
	return buf
}
