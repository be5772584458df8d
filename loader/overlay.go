package loader

import "github.com/computerman00/vitaelf/analysis"

const (
	typeModuleInfo   = "SceModuleInfo_prx2arm"
	typeLibEntry     = "SceLibEnt_prx2arm"
	typeLibStub      = "SceLibStub_prx2arm"
	typeProcessParam = "SceProcessParam"
)

func u16() analysis.Type { return analysis.IntType(2, false) }

func u32() analysis.Type { return analysis.IntType(4, false) }

func chars(n int) analysis.Type {
	return analysis.ArrayType(analysis.CharType(), n)
}

// defineOverlayTypes registers the platform structure layouts in the
// host's type model, so the metadata regions render as data instead of
// misdecoded instructions.
func (l *Loader) defineOverlayTypes() {
	l.host.DefineType(typeModuleInfo, analysis.StructType(typeModuleInfo,
		analysis.Field{Name: "modattribute", Type: u16()},
		analysis.Field{Name: "modversion", Type: chars(2)},
		analysis.Field{Name: "modname", Type: chars(26)},
		analysis.Field{Name: "terminal", Type: analysis.CharType()},
		analysis.Field{Name: "infoversion", Type: analysis.CharType()},
		analysis.Field{Name: "resreve", Type: u32()},
		analysis.Field{Name: "ent_top", Type: u32()},
		analysis.Field{Name: "ent_end", Type: u32()},
		analysis.Field{Name: "stub_top", Type: u32()},
		analysis.Field{Name: "stub_end", Type: u32()},
		analysis.Field{Name: "dbg_fingerprint", Type: u32()},
		analysis.Field{Name: "tls_top", Type: u32()},
		analysis.Field{Name: "tls_filesz", Type: u32()},
		analysis.Field{Name: "tls_memsz", Type: u32()},
		analysis.Field{Name: "start_entry", Type: u32()},
		analysis.Field{Name: "stop_entry", Type: u32()},
		analysis.Field{Name: "arm_exidx_top", Type: u32()},
		analysis.Field{Name: "arm_exidx_end", Type: u32()},
		analysis.Field{Name: "arm_extab_top", Type: u32()},
		analysis.Field{Name: "arm_extab_end", Type: u32()},
	))
	l.host.DefineType(typeLibEntry, analysis.StructType(typeLibEntry,
		analysis.Field{Name: "structsize", Type: analysis.CharType()},
		analysis.Field{Name: "auxattribute", Type: analysis.CharType()},
		analysis.Field{Name: "version", Type: u16()},
		analysis.Field{Name: "attribute", Type: u16()},
		analysis.Field{Name: "nfunc", Type: u16()},
		analysis.Field{Name: "nvar", Type: u16()},
		analysis.Field{Name: "ntlsvar", Type: u16()},
		analysis.Field{Name: "hashinfo", Type: analysis.CharType()},
		analysis.Field{Name: "hashinfotls", Type: analysis.CharType()},
		analysis.Field{Name: "reserved2", Type: analysis.CharType()},
		analysis.Field{Name: "nidaltsets", Type: analysis.CharType()},
		analysis.Field{Name: "libname_nid", Type: u32()},
		analysis.Field{Name: "libname", Type: u32()},
		analysis.Field{Name: "nidtable", Type: u32()},
		analysis.Field{Name: "addtable", Type: u32()},
	))
	l.host.DefineType(typeLibStub, analysis.StructType(typeLibStub,
		analysis.Field{Name: "structsize", Type: analysis.CharType()},
		analysis.Field{Name: "reserved1", Type: analysis.CharType()},
		analysis.Field{Name: "version", Type: u16()},
		analysis.Field{Name: "attribute", Type: u16()},
		analysis.Field{Name: "nfunc", Type: u16()},
		analysis.Field{Name: "nvar", Type: u16()},
		analysis.Field{Name: "ntlsvar", Type: u16()},
		analysis.Field{Name: "reserved2", Type: chars(4)},
		analysis.Field{Name: "libname_nid", Type: u32()},
		analysis.Field{Name: "libname", Type: u32()},
		analysis.Field{Name: "sce_sdk_version", Type: u32()},
		analysis.Field{Name: "func_nidtable", Type: u32()},
		analysis.Field{Name: "func_table", Type: u32()},
		analysis.Field{Name: "var_nidtable", Type: u32()},
		analysis.Field{Name: "var_table", Type: u32()},
		analysis.Field{Name: "tls_nidtable", Type: u32()},
		analysis.Field{Name: "tls_table", Type: u32()},
	))
	l.host.DefineType(typeProcessParam, analysis.StructType(typeProcessParam,
		analysis.Field{Name: "size", Type: u32()},
		analysis.Field{Name: "magic", Type: chars(4)},
		analysis.Field{Name: "version", Type: u32()},
		analysis.Field{Name: "sdk_version", Type: u32()},
		analysis.Field{Name: "main_thread_name", Type: u32()},
		analysis.Field{Name: "main_thread_priority", Type: u32()},
		analysis.Field{Name: "main_thread_stack_size", Type: u32()},
		analysis.Field{Name: "main_thread_attribute", Type: u32()},
		analysis.Field{Name: "process_name", Type: u32()},
		analysis.Field{Name: "preload_disabled", Type: u32()},
		analysis.Field{Name: "main_thread_cpu_affinity_mask", Type: u32()},
		analysis.Field{Name: "libc_param", Type: u32()},
	))
}

// placeOverlay overlays a registered structure at addr, retracting any
// function that discovery seeded there first. Both the retraction and
// the missing-type case are tolerated no-ops.
func (l *Loader) placeOverlay(name string, addr uint64) {
	typ, err := l.host.FindType(name)
	if err != nil {
		return
	}
	for _, fn := range l.host.FunctionsContaining(addr) {
		l.host.RemoveFunction(fn)
	}
	l.host.DefineDataVar(addr, typ)
}

// placeOverlayOnce skips addresses that already carry a structure, so a
// record visited once per table entry is only overlaid once.
func (l *Loader) placeOverlayOnce(name string, addr uint64) {
	if typ, err := l.host.FindDataVar(addr); err == nil && typ.Class == analysis.Struct {
		return
	}
	l.placeOverlay(name, addr)
}
