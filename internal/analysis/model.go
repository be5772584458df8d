package analysis

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/computerman00/vitaelf/analysis"
)

// Model is an in-memory analysis.Host. A single owner goroutine applies
// every Execute callback, matching the host contract that two contexts
// never mutate the model concurrently.
type Model struct {
	mu        sync.Mutex
	functions []*function
	symbols   map[symKey]analysis.Symbol
	dataVars  map[uint64]analysis.Type
	types     map[string]analysis.Type
	options   []string
	sweep     func(pass int)
	pass      int
	run       chan func()
}

type symKey struct {
	addr uint64
	name string
}

type function struct {
	start uint64
	size  uint64
	typ   analysis.Type
}

func (f *function) Start() uint64           { return f.start }
func (f *function) Type() analysis.Type     { return f.typ }
func (f *function) SetType(t analysis.Type) { f.typ = t }

func NewModel() *Model {
	m := &Model{
		symbols:  make(map[symKey]analysis.Symbol),
		dataVars: make(map[uint64]analysis.Type),
		types:    make(map[string]analysis.Type),
		run:      make(chan func()),
	}
	go m.loop()
	return m
}

func (m *Model) loop() {
	for fn := range m.run {
		fn()
	}
}

func (m *Model) Close() error {
	close(m.run)
	return nil
}

func (m *Model) Execute(fn func()) {
	done := make(chan struct{})
	m.run <- func() {
		defer close(done)
		fn()
	}
	<-done
}

func (m *Model) FindFunction(addr uint64) (analysis.Function, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.functions {
		if f.start == addr {
			return f, nil
		}
	}
	return nil, analysis.ErrFunctionNotFound
}

func (m *Model) CreateFunction(addr uint64) analysis.Function {
	return m.CreateFunctionSpan(addr, 1)
}

// CreateFunctionSpan creates a function covering [addr, addr+size),
// rounded up to instruction-unit granularity. Discovery hooks use it to
// script swept-up function bodies.
func (m *Model) CreateFunctionSpan(addr, size uint64) analysis.Function {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.functions {
		if f.start == addr {
			return f
		}
	}
	f := &function{start: addr, size: analysis.Align(size, 4)}
	m.functions = append(m.functions, f)
	return f
}

func (m *Model) FunctionsContaining(addr uint64) []analysis.Function {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []analysis.Function
	for _, f := range m.functions {
		if addr >= f.start && addr < f.start+f.size {
			out = append(out, f)
		}
	}
	return out
}

func (m *Model) RemoveFunction(fn analysis.Function) {
	m.mu.Lock()
	m.functions = slices.DeleteFunc(m.functions, func(f *function) bool {
		return analysis.Function(f) == fn
	})
	m.mu.Unlock()
}

func (m *Model) Functions() []analysis.Function {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]analysis.Function, len(m.functions))
	for i, f := range m.functions {
		out[i] = f
	}
	return out
}

func (m *Model) DefineImportedFunction(sym analysis.Symbol, fn analysis.Function) {
	m.mu.Lock()
	m.symbols[symKey{sym.Addr, sym.Name}] = sym
	m.mu.Unlock()
}

func (m *Model) DefineUserSymbol(sym analysis.Symbol) {
	m.mu.Lock()
	m.symbols[symKey{sym.Addr, sym.Name}] = sym
	m.mu.Unlock()
}

func (m *Model) FindSymbol(name string) (analysis.Symbol, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, sym := range m.symbols {
		if k.name == name {
			return sym, nil
		}
	}
	return analysis.Symbol{}, analysis.ErrSymbolNotFound
}

func (m *Model) Symbols() []analysis.Symbol {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]analysis.Symbol, 0, len(m.symbols))
	for _, sym := range m.symbols {
		out = append(out, sym)
	}
	slices.SortFunc(out, func(a, b analysis.Symbol) int {
		if a.Addr != b.Addr {
			if a.Addr < b.Addr {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

func (m *Model) DefineDataVar(addr uint64, typ analysis.Type) {
	m.mu.Lock()
	m.dataVars[addr] = typ
	m.mu.Unlock()
}

func (m *Model) FindDataVar(addr uint64) (analysis.Type, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if typ, ok := m.dataVars[addr]; ok {
		return typ, nil
	}
	return analysis.Type{}, analysis.ErrTypeNotFound
}

func (m *Model) DefineType(name string, typ analysis.Type) {
	m.mu.Lock()
	m.types[name] = typ
	m.mu.Unlock()
}

func (m *Model) FindType(name string) (analysis.Type, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if typ, ok := m.types[name]; ok {
		return typ, nil
	}
	return analysis.Type{}, analysis.ErrTypeNotFound
}

func (m *Model) AddAnalysisOption(name string) {
	m.mu.Lock()
	if !slices.Contains(m.options, name) {
		m.options = append(m.options, name)
	}
	m.mu.Unlock()
}

// SetSweep installs a discovery hook invoked by UpdateAndWait once the
// linearsweep option is enabled; pass counts from zero.
func (m *Model) SetSweep(fn func(pass int)) {
	m.mu.Lock()
	m.sweep = fn
	m.mu.Unlock()
}

func (m *Model) UpdateAndWait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	sweep := m.sweep
	enabled := slices.Contains(m.options, "linearsweep")
	pass := m.pass
	m.pass++
	m.mu.Unlock()
	if sweep != nil && enabled {
		sweep(pass)
	}
	return nil
}
