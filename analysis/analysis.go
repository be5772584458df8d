// Package analysis defines the boundary to the host's code/data model.
// The decode pipeline only commands these interfaces; it never owns
// symbol state of its own.
package analysis

import (
	"context"
	"errors"
)

var (
	ErrFunctionNotFound = errors.New("analysis: function not found")
	ErrSymbolNotFound   = errors.New("analysis: symbol not found")
	ErrTypeNotFound     = errors.New("analysis: type not found")
)

type SymbolKind int

const (
	FunctionSymbol SymbolKind = iota
	ImportedFunctionSymbol
	DataSymbol
)

func (k SymbolKind) String() string {
	switch k {
	case FunctionSymbol:
		return "function"
	case ImportedFunctionSymbol:
		return "import"
	case DataSymbol:
		return "data"
	}
	return "unknown"
}

type Symbol struct {
	Kind SymbolKind
	Addr uint64
	Name string
}

type Function interface {
	Start() uint64
	Type() Type
	SetType(Type)
}

// Analyzer is the host's mutable symbol/type/function model. Mutation is
// only legal from the goroutine owning the model; see Executor.
type Analyzer interface {
	FindFunction(addr uint64) (Function, error)
	CreateFunction(addr uint64) Function
	// FunctionsContaining reports every function spanning addr. The
	// empty result is a slice, never an error; retracting a function
	// that was never there is a legitimate no-op.
	FunctionsContaining(addr uint64) []Function
	RemoveFunction(fn Function)
	Functions() []Function

	DefineImportedFunction(sym Symbol, fn Function)
	DefineUserSymbol(sym Symbol)
	FindSymbol(name string) (Symbol, error)
	Symbols() []Symbol

	DefineDataVar(addr uint64, typ Type)
	FindDataVar(addr uint64) (Type, error)
	DefineType(name string, typ Type)
	FindType(name string) (Type, error)
}

// CodeDiscovery is the opaque service that identifies candidate function
// boundaries. UpdateAndWait blocks until the current pass settles and
// must not be called from the goroutine owning the model.
type CodeDiscovery interface {
	UpdateAndWait(ctx context.Context) error
	AddAnalysisOption(name string)
}

// Executor dispatches fn onto the goroutine owning the model and waits
// for it to finish. The host forbids model mutation from any other
// goroutine.
type Executor interface {
	Execute(fn func())
}

type Host interface {
	Analyzer
	CodeDiscovery
	Executor
}
