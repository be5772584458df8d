// Package nid resolves Sony's hashed identifiers to names through an
// externally supplied database.
package nid

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

var ErrDatabaseMissing = errors.New("nid: database required")

// Database is the pre-loaded identifier-to-name mapping. It is read-only
// after load and safe for concurrent readers.
type Database struct {
	Modules map[string]Module `yaml:"modules"`
}

type Module struct {
	NID       uint32             `yaml:"nid"`
	Libraries map[string]Library `yaml:"libraries"`
}

type Library struct {
	NID       uint32            `yaml:"nid"`
	Kernel    bool              `yaml:"kernel"`
	Functions map[string]uint32 `yaml:"functions"`
	Variables map[string]uint32 `yaml:"variables"`
}

// Load reads and parses a database document. Malformed documents fail
// the load as a whole; there is no partial result.
func Load(path string) (*Database, error) {
	if path == "" {
		return nil, ErrDatabaseMissing
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("nid: load database: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) (*Database, error) {
	db := new(Database)
	if err := yaml.NewDecoder(r).Decode(db); err != nil {
		return nil, fmt.Errorf("nid: parse database: %w", err)
	}
	return db, nil
}

// Function resolves a function identifier inside the library identified
// by libraryNID. Resolution never fails: an identifier absent from the
// database yields a deterministic synthetic name built from libraryName.
func (db *Database) Function(libraryNID, functionNID uint32, libraryName string) string {
	if name, ok := db.lookup(libraryNID, functionNID, func(l Library) map[string]uint32 { return l.Functions }); ok {
		return name
	}
	return Synthetic(libraryName, functionNID)
}

// Variable is Function's counterpart over the variable mapping.
func (db *Database) Variable(libraryNID, variableNID uint32, libraryName string) string {
	if name, ok := db.lookup(libraryNID, variableNID, func(l Library) map[string]uint32 { return l.Variables }); ok {
		return name
	}
	return Synthetic(libraryName, variableNID)
}

// lookup scans every module for libraries whose identifier matches,
// then scans that library's mapping. First match in sorted document
// order wins; the database is expected to be identifier-unique within a
// library, so the ordering only matters for degenerate inputs.
func (db *Database) lookup(libraryNID, nid uint32, pick func(Library) map[string]uint32) (string, bool) {
	if db == nil {
		return "", false
	}
	for _, modName := range slices.Sorted(maps.Keys(db.Modules)) {
		for _, libName := range slices.Sorted(maps.Keys(db.Modules[modName].Libraries)) {
			lib := db.Modules[modName].Libraries[libName]
			if lib.NID != libraryNID {
				continue
			}
			for _, name := range slices.Sorted(maps.Keys(pick(lib))) {
				if pick(lib)[name] == nid {
					return name, true
				}
			}
		}
	}
	return "", false
}

// Synthetic is the fallback name for identifiers the database lacks.
func Synthetic(libraryName string, nid uint32) string {
	return fmt.Sprintf("%s_%08X", libraryName, nid)
}
