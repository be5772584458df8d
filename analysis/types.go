package analysis

import (
	"fmt"
	"strings"
)

type TypeClass int

const (
	Void TypeClass = iota
	Integer
	Char
	Pointer
	Array
	Struct
	Func
)

// Type is a minimal value-level type model: enough to express scalar
// data vars, structure overlays, and function signatures on a 32-bit
// target.
type Type struct {
	Class    TypeClass
	Name     string
	Width    int
	Signed   bool
	Elem     *Type
	Count    int
	Fields   []Field
	Return   *Type
	Params   []Param
	Variadic bool
}

type Field struct {
	Name string
	Type Type
}

type Param struct {
	Name string
	Type Type
}

func VoidType() Type { return Type{Class: Void} }

func IntType(width int, signed bool) Type {
	return Type{Class: Integer, Width: width, Signed: signed}
}

func CharType() Type { return Type{Class: Char, Width: 1} }

func PointerType(elem Type) Type {
	return Type{Class: Pointer, Width: 4, Elem: &elem}
}

func ArrayType(elem Type, count int) Type {
	return Type{Class: Array, Elem: &elem, Count: count}
}

func StructType(name string, fields ...Field) Type {
	return Type{Class: Struct, Name: name, Fields: fields}
}

func FuncType(ret Type, params []Param, variadic bool) Type {
	return Type{Class: Func, Return: &ret, Params: params, Variadic: variadic}
}

// Size is the packed byte size of the type; zero for void and functions.
func (t Type) Size() int {
	switch t.Class {
	case Integer, Char, Pointer:
		return t.Width
	case Array:
		return t.Elem.Size() * t.Count
	case Struct:
		var n int
		for _, f := range t.Fields {
			n += f.Type.Size()
		}
		return n
	}
	return 0
}

func (t Type) String() string {
	switch t.Class {
	case Void:
		return "void"
	case Integer:
		if t.Signed {
			return fmt.Sprintf("int%d_t", t.Width*8)
		}
		return fmt.Sprintf("uint%d_t", t.Width*8)
	case Char:
		return "char"
	case Pointer:
		return t.Elem.String() + "*"
	case Array:
		return fmt.Sprintf("%s[%d]", t.Elem, t.Count)
	case Struct:
		if t.Name != "" {
			return "struct " + t.Name
		}
		return "struct"
	case Func:
		params := make([]string, 0, len(t.Params)+1)
		for _, p := range t.Params {
			params = append(params, p.Type.String())
		}
		if t.Variadic {
			params = append(params, "...")
		}
		return fmt.Sprintf("%s(%s)", t.Return, strings.Join(params, ", "))
	}
	return "?"
}
