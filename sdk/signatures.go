// Package sdk parses C prototype text from an SDK header into a
// name-to-signature map. The map is best effort: lines that do not look
// like a prototype are skipped, never fatal, since every function can
// fall back to a default signature.
package sdk

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/computerman00/vitaelf/analysis"
)

type Signatures map[string]analysis.Type

func Load(path string) (Signatures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) (Signatures, error) {
	sigs := make(Signatures)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var pending string
	for sc.Scan() {
		line := stripComment(sc.Text())
		pending += " " + line
		if !strings.Contains(pending, ";") {
			continue
		}
		for _, decl := range strings.Split(pending, ";") {
			if name, sig, ok := parsePrototype(decl); ok {
				sigs[name] = sig
			}
		}
		pending = ""
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return sigs, nil
}

func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	for {
		start := strings.Index(line, "/*")
		if start < 0 {
			break
		}
		end := strings.Index(line[start:], "*/")
		if end < 0 {
			line = line[:start]
			break
		}
		line = line[:start] + line[start+end+2:]
	}
	return line
}

func parsePrototype(decl string) (string, analysis.Type, bool) {
	lp := strings.Index(decl, "(")
	rp := strings.LastIndex(decl, ")")
	if lp < 0 || rp < lp {
		return "", analysis.Type{}, false
	}
	head := strings.Fields(decl[:lp])
	if len(head) < 2 {
		return "", analysis.Type{}, false
	}
	name := strings.TrimLeft(head[len(head)-1], "*")
	if name == "" || !identifier(name) {
		return "", analysis.Type{}, false
	}
	ret := typeOf(head[:len(head)-1], strings.HasPrefix(head[len(head)-1], "*"))

	var params []analysis.Param
	variadic := false
	inner := strings.TrimSpace(decl[lp+1 : rp])
	if inner != "" && inner != "void" {
		for _, p := range strings.Split(inner, ",") {
			p = strings.TrimSpace(p)
			if p == "..." {
				variadic = true
				continue
			}
			toks := strings.Fields(p)
			if len(toks) == 0 {
				continue
			}
			pname := strings.TrimLeft(toks[len(toks)-1], "*")
			ptype := typeOf(toks[:len(toks)-1], strings.Contains(p, "*"))
			if !identifier(pname) {
				pname = ""
				ptype = typeOf(toks, strings.Contains(p, "*"))
			}
			params = append(params, analysis.Param{Name: pname, Type: ptype})
		}
	}
	return name, analysis.FuncType(ret, params, variadic), true
}

func typeOf(toks []string, pointer bool) analysis.Type {
	var base analysis.Type
	unsigned := false
	longs := 0
	named := ""
	for _, t := range toks {
		switch t {
		case "const", "volatile", "struct", "enum", "signed":
		case "unsigned":
			unsigned = true
		case "long":
			longs++
		default:
			named = strings.TrimRight(t, "*")
			if strings.HasSuffix(t, "*") {
				pointer = true
			}
		}
	}
	switch {
	case named == "void":
		base = analysis.VoidType()
	case named == "char":
		base = analysis.CharType()
	case named == "short":
		base = analysis.IntType(2, !unsigned)
	case longs >= 2:
		base = analysis.IntType(8, !unsigned)
	case named == "int" || named == "" || longs == 1:
		base = analysis.IntType(4, !unsigned)
	default:
		// Unknown typedef; on this target everything scalar is a word.
		base = analysis.IntType(4, !unsigned)
		base.Name = named
	}
	if pointer {
		return analysis.PointerType(base)
	}
	return base
}

func identifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return s != ""
}
