package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// LoadError is a catalog-loading failure, positioned in the CUE source when
// a position is available.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Loader error codes.
const (
	ErrCodeNotFound    = "C001" // path missing or not a directory
	ErrCodeNoFiles     = "C002" // no CUE files found
	ErrCodeLoadFailed  = "C003" // CUE load failed
	ErrCodeBuildFailed = "C004" // CUE build failed
	ErrCodeBadEntity   = "C005" // entity declaration invalid
)

// Load reads entity mappings from the CUE files in dir and builds a
// catalog.
//
// Expected shape:
//
//	entity: Item: {
//		table: "items"
//		columns: {
//			Id:   {column: "id", type: "int"}
//			Name: {column: "name", type: "string", nullable: true}
//		}
//	}
//
// Column declaration order is preserved and becomes the column order of
// base selects.
func Load(dir string) (*MapCatalog, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	entitiesVal := value.LookupPath(cue.ParsePath("entity"))
	if !entitiesVal.Exists() {
		return nil, &LoadError{Code: ErrCodeBadEntity, Message: "no entity declarations found"}
	}

	var mappings []EntityMapping
	iter, err := entitiesVal.Fields()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBadEntity, Message: fmt.Sprintf("iterating entities: %v", err)}
	}
	for iter.Next() {
		m, err := decodeEntity(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}

	cat, err := NewMapCatalog(mappings...)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBadEntity, Message: err.Error()}
	}
	return cat, nil
}

func decodeEntity(name string, v cue.Value) (EntityMapping, error) {
	fail := func(msg string, pos token.Pos) (EntityMapping, error) {
		return EntityMapping{}, &LoadError{Code: ErrCodeBadEntity, Message: fmt.Sprintf("entity %s: %s", name, msg), Pos: pos}
	}

	tableVal := v.LookupPath(cue.ParsePath("table"))
	if !tableVal.Exists() {
		return fail("missing table", v.Pos())
	}
	table, err := tableVal.String()
	if err != nil {
		return fail(fmt.Sprintf("table must be a string: %v", err), tableVal.Pos())
	}

	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return fail("missing columns", v.Pos())
	}
	iter, err := colsVal.Fields()
	if err != nil {
		return fail(fmt.Sprintf("iterating columns: %v", err), colsVal.Pos())
	}

	var columns []ColumnMapping
	for iter.Next() {
		prop := iter.Label()
		cv := iter.Value()

		colNameVal := cv.LookupPath(cue.ParsePath("column"))
		if !colNameVal.Exists() {
			return fail(fmt.Sprintf("column %s: missing column name", prop), cv.Pos())
		}
		colName, err := colNameVal.String()
		if err != nil {
			return fail(fmt.Sprintf("column %s: column name must be a string: %v", prop, err), colNameVal.Pos())
		}

		typeVal := cv.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return fail(fmt.Sprintf("column %s: missing type", prop), cv.Pos())
		}
		typeName, err := typeVal.String()
		if err != nil {
			return fail(fmt.Sprintf("column %s: type must be a string: %v", prop, err), typeVal.Pos())
		}

		nullable := false
		if nv := cv.LookupPath(cue.ParsePath("nullable")); nv.Exists() {
			nullable, err = nv.Bool()
			if err != nil {
				return fail(fmt.Sprintf("column %s: nullable must be a bool: %v", prop, err), nv.Pos())
			}
		}

		t, err := ParseType(typeName, nullable)
		if err != nil {
			return fail(fmt.Sprintf("column %s: %v", prop, err), typeVal.Pos())
		}

		columns = append(columns, ColumnMapping{Property: prop, Column: colName, Type: t})
	}

	return EntityMapping{Name: name, Table: table, Columns: columns}, nil
}

// findCUEFiles walks the directory and returns all .cue file paths.
func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
