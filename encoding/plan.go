package encoding

import (
	"encoding/binary"
	"reflect"
	"sync"
	"unsafe"

	"github.com/modern-go/reflect2"
)

type readFn func(data []byte, order binary.ByteOrder, ptr unsafe.Pointer)

type writeFn func(data []byte, order binary.ByteOrder, ptr unsafe.Pointer)

type step struct {
	goOff   uintptr
	wireOff int
	size    int
	read    readFn
	write   writeFn
}

type plan struct {
	size  int
	steps []step
}

var plans sync.Map

func planFor(typ reflect.Type) *plan {
	key := reflect2.Type2(typ).RType()
	if v, ok := plans.Load(key); ok {
		return v.(*plan)
	}
	p := new(plan)
	compile(typ, 0, p)
	plans.Store(key, p)
	return p
}

func compile(typ reflect.Type, goOff uintptr, p *plan) {
	switch typ.Kind() {
	case reflect.Int8, reflect.Uint8, reflect.Bool:
		p.add(goOff, 1,
			func(d []byte, o binary.ByteOrder, ptr unsafe.Pointer) {
				*(*uint8)(ptr) = d[0]
			},
			func(d []byte, o binary.ByteOrder, ptr unsafe.Pointer) {
				d[0] = *(*uint8)(ptr)
			})
	case reflect.Int16, reflect.Uint16:
		p.add(goOff, 2,
			func(d []byte, o binary.ByteOrder, ptr unsafe.Pointer) {
				*(*uint16)(ptr) = o.Uint16(d)
			},
			func(d []byte, o binary.ByteOrder, ptr unsafe.Pointer) {
				o.PutUint16(d, *(*uint16)(ptr))
			})
	case reflect.Int32, reflect.Uint32:
		p.add(goOff, 4,
			func(d []byte, o binary.ByteOrder, ptr unsafe.Pointer) {
				*(*uint32)(ptr) = o.Uint32(d)
			},
			func(d []byte, o binary.ByteOrder, ptr unsafe.Pointer) {
				o.PutUint32(d, *(*uint32)(ptr))
			})
	case reflect.Int64, reflect.Uint64:
		p.add(goOff, 8,
			func(d []byte, o binary.ByteOrder, ptr unsafe.Pointer) {
				*(*uint64)(ptr) = o.Uint64(d)
			},
			func(d []byte, o binary.ByteOrder, ptr unsafe.Pointer) {
				o.PutUint64(d, *(*uint64)(ptr))
			})
	case reflect.Array:
		elem := typ.Elem()
		if elem.Kind() == reflect.Uint8 {
			n := typ.Len()
			p.add(goOff, n,
				func(d []byte, o binary.ByteOrder, ptr unsafe.Pointer) {
					copy(unsafe.Slice((*byte)(ptr), n), d[:n])
				},
				func(d []byte, o binary.ByteOrder, ptr unsafe.Pointer) {
					copy(d[:n], unsafe.Slice((*byte)(ptr), n))
				})
			return
		}
		for i := 0; i < typ.Len(); i++ {
			compile(elem, goOff+uintptr(i)*elem.Size(), p)
		}
	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			field := typ.Field(i)
			if field.Tag.Get("encoding") == "ignore" {
				continue
			}
			compile(field.Type, goOff+field.Offset, p)
		}
	default:
		panic("encoding: unsupported type " + typ.String())
	}
}

func (p *plan) add(goOff uintptr, size int, read readFn, write writeFn) {
	p.steps = append(p.steps, step{goOff, p.size, size, read, write})
	p.size += size
}
