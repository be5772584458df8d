// Package loader drives the decode-and-resolve pipeline: locate the
// module metadata, walk the export and import library tables, resolve
// identifiers through the database, and materialize the results into
// the host's analysis model.
package loader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/computerman00/vitaelf/analysis"
	"github.com/computerman00/vitaelf/elf"
	"github.com/computerman00/vitaelf/nid"
	"github.com/computerman00/vitaelf/sce"
	"github.com/computerman00/vitaelf/sdk"
)

const (
	// MarkerSymbol is defined at the module-info address after a
	// successful run, so a later run can detect prior injection.
	MarkerSymbol = "__vitaelf_nids"

	maxSweeps = 3
)

type Loader struct {
	file *elf.File
	db   *nid.Database
	sigs sdk.Signatures
	host analysis.Host
	log  *slog.Logger

	mod         *sce.ModuleInfo
	moduleStart uint64
	emitted     int
}

type Option func(*Loader)

func WithSignatures(sigs sdk.Signatures) Option {
	return func(l *Loader) { l.sigs = sigs }
}

func WithLogger(log *slog.Logger) Option {
	return func(l *Loader) { l.log = log }
}

func New(f *elf.File, db *nid.Database, host analysis.Host, opts ...Option) *Loader {
	l := &Loader{file: f, db: db, host: host, log: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ModuleInfo is the decoded module metadata, available after injection.
func (l *Loader) ModuleInfo() *sce.ModuleInfo { return l.mod }

// ModuleStart is the unadjusted process entry address retained for code
// discovery, distinct from the emitted module_start symbol address.
func (l *Loader) ModuleStart() uint64 { return l.moduleStart }

// Injected reports whether a previous run left its marker symbol.
func (l *Loader) Injected() bool {
	_, err := l.host.FindSymbol(MarkerSymbol)
	return err == nil
}

// InjectSymbols stabilizes code discovery, then resolves and injects
// every export and import symbol. Must not be called from the goroutine
// owning the host model; the model-mutating pass is dispatched there.
func (l *Loader) InjectSymbols(ctx context.Context) error {
	return l.inject(ctx, false)
}

// InjectSymbolsClean additionally retracts code entities past the end
// of the import-stub region, which on this platform is always data.
func (l *Loader) InjectSymbolsClean(ctx context.Context) error {
	return l.inject(ctx, true)
}

func (l *Loader) inject(ctx context.Context, clean bool) error {
	if l.db == nil {
		return nid.ErrDatabaseMissing
	}
	l.emitted = 0
	if err := l.stabilize(ctx); err != nil {
		return err
	}
	var err error
	l.host.Execute(func() {
		err = l.run(clean)
	})
	if err != nil {
		if l.emitted > 0 {
			l.log.Error("symbol injection incomplete", "error", err, "symbols", l.emitted)
		} else {
			l.log.Error("symbol injection failed", "error", err)
		}
		return err
	}
	l.log.Info("symbols added", "module", l.mod.Name, "symbols", l.emitted)
	return nil
}

// run executes the decode-and-resolve pass on the model owner. Malformed
// input must never take the host down, so any escaped panic is reported
// as an error instead.
func (l *Loader) run(clean bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("loader: panic during injection: %v", r)
		}
	}()

	mi, err := sce.ReadModuleInfo(l.file)
	if err != nil {
		return err
	}
	l.mod = mi
	l.log.Info("module info located", "module", mi.Name, "offset", fmt.Sprintf("%#x", mi.Off))

	l.defineOverlayTypes()
	l.placeOverlay(typeModuleInfo, mi.Addr)

	if err := sce.WalkExports(l.file, mi, l.emitExport); err != nil {
		l.log.Warn("export walk aborted", "error", err)
	}
	if err := sce.WalkImports(l.file, mi, l.emitImport); err != nil {
		l.log.Warn("import walk aborted", "error", err)
	}
	if clean {
		l.cleanTrailingCode()
	}
	l.host.DefineUserSymbol(analysis.Symbol{Kind: analysis.DataSymbol, Addr: mi.Addr, Name: MarkerSymbol})
	return nil
}

func (l *Loader) emitExport(lib *sce.LibraryExport, ent sce.Entry) {
	if lib.Addr != 0 {
		l.placeOverlayOnce(typeLibEntry, lib.Addr)
	}
	switch ent.Kind {
	case sce.EntryFunction:
		addr := uint64(ent.Addr)
		var name string
		if lib.Name == sce.NonameLibrary && ent.NID == sce.NIDModuleStart {
			name = "module_start"
			l.moduleStart = addr
			// The entry-table value for this synthetic export is off
			// by one byte on disk.
			addr--
		} else {
			name = l.db.Function(lib.LibraryNID, ent.NID, lib.Name)
		}
		l.defineFunction(addr, name)
	case sce.EntryVariable:
		addr := uint64(ent.Addr)
		var name string
		if lib.Name == sce.NonameLibrary {
			switch ent.NID {
			case sce.NIDModuleInfo:
				name = "module_info"
			case sce.NIDModuleProcParam:
				name = "module_proc_param"
				l.placeOverlay(typeProcessParam, addr)
			default:
				name = l.db.Variable(lib.LibraryNID, ent.NID, lib.Name)
			}
		} else {
			name = l.db.Variable(lib.LibraryNID, ent.NID, lib.Name)
		}
		l.defineData(addr, name)
	}
}

func (l *Loader) emitImport(lib *sce.LibraryImport, ent sce.Entry) {
	if lib.Addr != 0 {
		l.placeOverlayOnce(typeLibStub, lib.Addr)
	}
	switch ent.Kind {
	case sce.EntryFunction:
		name := l.db.Function(lib.LibraryNID, ent.NID, lib.Name)
		l.defineFunction(uint64(ent.Addr), name)
	case sce.EntryVariable:
		name := l.db.Variable(lib.LibraryNID, ent.NID, lib.Name)
		l.defineData(uint64(ent.Addr), name)
	}
}

func (l *Loader) defineFunction(addr uint64, name string) {
	fn, err := l.host.FindFunction(addr)
	if err != nil {
		fn = l.host.CreateFunction(addr)
	}
	sig, ok := l.sigs[name]
	if !ok {
		sig = analysis.FuncType(analysis.VoidType(), nil, true)
	}
	fn.SetType(sig)
	l.host.DefineImportedFunction(analysis.Symbol{
		Kind: analysis.ImportedFunctionSymbol,
		Addr: addr,
		Name: name,
	}, fn)
	l.emitted++
	l.log.Debug("function symbol", "addr", fmt.Sprintf("%#x", addr), "name", name)
}

func (l *Loader) defineData(addr uint64, name string) {
	l.host.DefineUserSymbol(analysis.Symbol{
		Kind: analysis.DataSymbol,
		Addr: addr,
		Name: name,
	})
	if _, err := l.host.FindDataVar(addr); err != nil {
		l.host.DefineDataVar(addr, analysis.IntType(4, false))
	}
	// Earlier discovery passes may have misread this data as code.
	for _, fn := range l.host.FunctionsContaining(addr) {
		l.host.RemoveFunction(fn)
	}
	l.emitted++
	l.log.Debug("data symbol", "addr", fmt.Sprintf("%#x", addr), "name", name)
}

// cleanTrailingCode retracts every code entity past the end of the
// import-stub region; on this platform everything beyond it is data.
func (l *Loader) cleanTrailingCode() {
	end := l.file.BaseAddr() + uint64(l.mod.ImportEnd)
	removed := 0
	for _, fn := range l.host.Functions() {
		if fn.Start() > end {
			l.host.RemoveFunction(fn)
			removed++
		}
	}
	if removed > 0 {
		l.log.Info("retracted trailing code entities", "count", removed, "past", fmt.Sprintf("%#x", end))
	}
}
