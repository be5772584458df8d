package nid_test

import (
	"strings"
	"testing"

	"github.com/computerman00/vitaelf/nid"
)

const testdb = `
modules:
  SceSysmem:
    nid: 0x3380B323
    libraries:
      SceKernel:
        nid: 0xCEADEA1C
        functions:
          sceKernelAllocMemBlock: 0xB9D5EBDE
          sceKernelFreeMemBlock: 0xA91E15EE
        variables:
          sceKernelStack: 0x11223344
  SceDisplay:
    libraries:
      SceDisplay:
        nid: 0x5ED8F994
        kernel: false
        functions:
          sceDisplaySetFrameBuf: 0x7A410B64
`

func load(t *testing.T) *nid.Database {
	t.Helper()
	db, err := nid.Parse(strings.NewReader(testdb))
	if err != nil {
		t.Fatal("Parse:", err)
	}
	return db
}

func TestFunctionLookup(t *testing.T) {
	db := load(t)
	if got := db.Function(0xCEADEA1C, 0xB9D5EBDE, "SceKernel"); got != "sceKernelAllocMemBlock" {
		t.Errorf("Function = %q", got)
	}
	if got := db.Function(0x5ED8F994, 0x7A410B64, "SceDisplay"); got != "sceDisplaySetFrameBuf" {
		t.Errorf("Function = %q", got)
	}
}

func TestFunctionScopedToLibrary(t *testing.T) {
	db := load(t)
	// The identifier exists, but under a different library NID.
	got := db.Function(0x5ED8F994, 0xB9D5EBDE, "SceDisplay")
	if got != "SceDisplay_B9D5EBDE" {
		t.Errorf("Function = %q, want synthetic fallback", got)
	}
}

func TestFunctionFallback(t *testing.T) {
	db := load(t)
	if got := db.Function(0xCEADEA1C, 0xDEADBEEF, "SceKernel"); got != "SceKernel_DEADBEEF" {
		t.Errorf("Function = %q, want %q", got, "SceKernel_DEADBEEF")
	}
}

func TestVariableLookup(t *testing.T) {
	db := load(t)
	if got := db.Variable(0xCEADEA1C, 0x11223344, "SceKernel"); got != "sceKernelStack" {
		t.Errorf("Variable = %q", got)
	}
	if got := db.Variable(0xCEADEA1C, 0x1, "SceKernel"); got != "SceKernel_00000001" {
		t.Errorf("Variable = %q", got)
	}
}

func TestLoadMissingPath(t *testing.T) {
	if _, err := nid.Load(""); err != nid.ErrDatabaseMissing {
		t.Errorf("got %v, want ErrDatabaseMissing", err)
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := nid.Parse(strings.NewReader("modules: [not\na map")); err == nil {
		t.Error("malformed document parsed without error")
	}
	if _, err := nid.Parse(strings.NewReader("modules:\n  A:\n    libraries:\n      B:\n        nid: notanumber\n")); err == nil {
		t.Error("non-numeric nid parsed without error")
	}
}
