package analysis_test

import (
	"context"
	"testing"

	"github.com/computerman00/vitaelf/analysis"
	model "github.com/computerman00/vitaelf/internal/analysis"
)

func TestExecuteRunsOnOwner(t *testing.T) {
	m := model.NewModel()
	defer m.Close()

	var ran bool
	m.Execute(func() { ran = true })
	if !ran {
		t.Error("Execute returned before the callback ran")
	}
}

func TestFunctions(t *testing.T) {
	m := model.NewModel()
	defer m.Close()

	fn := m.CreateFunctionSpan(0x1000, 8)
	if fn.Start() != 0x1000 {
		t.Errorf("Start = %#x", fn.Start())
	}
	if again := m.CreateFunction(0x1000); again != fn {
		t.Error("CreateFunction at an existing start made a second function")
	}
	if _, err := m.FindFunction(0x1000); err != nil {
		t.Error("FindFunction:", err)
	}
	if _, err := m.FindFunction(0x2000); err != analysis.ErrFunctionNotFound {
		t.Errorf("got %v, want ErrFunctionNotFound", err)
	}

	if got := m.FunctionsContaining(0x1004); len(got) != 1 {
		t.Errorf("FunctionsContaining inside span = %d functions", len(got))
	}
	if got := m.FunctionsContaining(0x1008); len(got) != 0 {
		t.Errorf("FunctionsContaining past span = %d functions", len(got))
	}

	m.RemoveFunction(fn)
	if got := m.Functions(); len(got) != 0 {
		t.Errorf("functions after removal: %d", len(got))
	}
	// Removing again is a no-op.
	m.RemoveFunction(fn)
}

func TestSymbolsSorted(t *testing.T) {
	m := model.NewModel()
	defer m.Close()

	m.DefineUserSymbol(analysis.Symbol{Kind: analysis.DataSymbol, Addr: 0x2000, Name: "b"})
	m.DefineUserSymbol(analysis.Symbol{Kind: analysis.DataSymbol, Addr: 0x1000, Name: "a"})
	m.DefineUserSymbol(analysis.Symbol{Kind: analysis.DataSymbol, Addr: 0x1000, Name: "a"})

	syms := m.Symbols()
	if len(syms) != 2 {
		t.Fatalf("got %d symbols, want 2 (redefinition deduplicated)", len(syms))
	}
	if syms[0].Name != "a" || syms[1].Name != "b" {
		t.Errorf("symbols out of order: %v", syms)
	}
	if _, err := m.FindSymbol("a"); err != nil {
		t.Error("FindSymbol:", err)
	}
	if _, err := m.FindSymbol("missing"); err != analysis.ErrSymbolNotFound {
		t.Errorf("got %v, want ErrSymbolNotFound", err)
	}
}

func TestSweepHook(t *testing.T) {
	m := model.NewModel()
	defer m.Close()

	var passes []int
	m.SetSweep(func(pass int) { passes = append(passes, pass) })

	ctx := context.Background()
	if err := m.UpdateAndWait(ctx); err != nil {
		t.Fatal(err)
	}
	if len(passes) != 0 {
		t.Error("sweep ran before the linearsweep option was added")
	}
	m.AddAnalysisOption("linearsweep")
	m.AddAnalysisOption("linearsweep")
	if err := m.UpdateAndWait(ctx); err != nil {
		t.Fatal(err)
	}
	if len(passes) != 1 || passes[0] != 1 {
		t.Errorf("passes = %v", passes)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := m.UpdateAndWait(cancelled); err == nil {
		t.Error("UpdateAndWait ignored a cancelled context")
	}
}
