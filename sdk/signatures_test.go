package sdk_test

import (
	"strings"
	"testing"

	"github.com/computerman00/vitaelf/analysis"
	"github.com/computerman00/vitaelf/sdk"
)

const header = `
// IO
SceUID sceIoOpen(const char *file, int flags, SceMode mode);
int sceClibPrintf(const char *fmt, ...);
void *sceClibMemset(void *dst, int ch, SceSize n);
void sceKernelExitProcess(int code); /* never returns */

typedef int SceUID;
#define SCE_OK (0)
this is not a prototype
`

func parse(t *testing.T) sdk.Signatures {
	t.Helper()
	sigs, err := sdk.Parse(strings.NewReader(header))
	if err != nil {
		t.Fatal("Parse:", err)
	}
	return sigs
}

func TestParsePrototypes(t *testing.T) {
	sigs := parse(t)
	for _, name := range []string{"sceIoOpen", "sceClibPrintf", "sceClibMemset", "sceKernelExitProcess"} {
		if _, ok := sigs[name]; !ok {
			t.Errorf("missing signature for %s", name)
		}
	}
	if len(sigs) != 4 {
		t.Errorf("parsed %d signatures, want 4: %v", len(sigs), sigs)
	}
}

func TestSignatureShape(t *testing.T) {
	sigs := parse(t)

	open := sigs["sceIoOpen"]
	if open.Class != analysis.Func || len(open.Params) != 3 || open.Variadic {
		t.Errorf("sceIoOpen = %s", open)
	}
	if open.Params[0].Type.Class != analysis.Pointer {
		t.Errorf("first param of sceIoOpen = %s", open.Params[0].Type)
	}

	printf := sigs["sceClibPrintf"]
	if !printf.Variadic || len(printf.Params) != 1 {
		t.Errorf("sceClibPrintf = %s", printf)
	}

	memset := sigs["sceClibMemset"]
	if memset.Return.Class != analysis.Pointer {
		t.Errorf("sceClibMemset returns %s", memset.Return)
	}

	exit := sigs["sceKernelExitProcess"]
	if exit.Return.Class != analysis.Void {
		t.Errorf("sceKernelExitProcess returns %s", exit.Return)
	}
}
