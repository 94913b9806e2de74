package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/gridcalc/internal/compiler"
	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/harness"
	"github.com/roach88/gridcalc/internal/ir"
)

// LoadError represents an error that occurred while reading a workbook
// or ops file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Line returns the source line of the error, or 0 when unknown.
func (e *LoadError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// splitLoadError returns the code and message of a LoadError, or
// ErrCodeGeneric and the error text.
func splitLoadError(err error) (code, message string) {
	var le *LoadError
	if errors.As(err, &le) {
		if le.Pos.IsValid() {
			return le.Code, fmt.Sprintf("%s:%d:%d: %s", le.Pos.Filename(), le.Pos.Line(), le.Pos.Column(), le.Message)
		}
		return le.Code, le.Message
	}
	return ErrCodeGeneric, err.Error()
}

// LoadWorkbook reads a workbook file. The extension picks the format:
// .yaml/.yml and .json decode straight into a Snapshot (unknown fields
// rejected); .cue is built with the CUE SDK and checked against the
// workbook schema.
func LoadWorkbook(path string) (*engine.Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("workbook not found: %s", path)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading workbook: %v", err)}
		}
		return decodeYAMLWorkbook(data)
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading workbook: %v", err)}
		}
		return decodeJSONWorkbook(data)
	case ".cue":
		return loadCUEWorkbook(path)
	default:
		return nil, &LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("unsupported workbook extension %q (want .yaml, .yml, .json or .cue)", ext)}
	}
}

func decodeYAMLWorkbook(data []byte) (*engine.Snapshot, error) {
	var snap engine.Snapshot
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "workbook is empty"}
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parsing YAML: %v", err)}
	}
	return &snap, nil
}

func decodeJSONWorkbook(data []byte) (*engine.Snapshot, error) {
	var snap engine.Snapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parsing JSON: %v", err)}
	}
	return &snap, nil
}

func loadCUEWorkbook(path string) (*engine.Snapshot, error) {
	ctx := cuecontext.New()
	cfg := &load.Config{Dir: filepath.Dir(path)}
	instances := load.Instances([]string{"./" + filepath.Base(path)}, cfg)
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE file: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	snap, err := compiler.CompileWorkbook(value)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return snap, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeBuildFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}
}

// WriteWorkbook stores snap at path as YAML or JSON, by extension.
func WriteWorkbook(path string, snap *engine.Snapshot) error {
	var data []byte
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(snap)
	case ".json":
		data, err = json.MarshalIndent(snap, "", "  ")
		data = append(data, '\n')
	default:
		return &LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("cannot write workbook as %q (want .yaml, .yml or .json)", ext)}
	}
	if err != nil {
		return &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("encoding workbook: %v", err)}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing workbook: %v", err)}
	}
	return nil
}

// OpsFile is a batch of edits read by the apply command:
//
//	atomic: true
//	ops:
//	  - { op: set_cell_value, sheet: 0, cell: A1, text: "5" }
//	  - { op: set_cell_formula, cell: B1, text: "=A1*2" }
type OpsFile struct {
	Atomic bool         `yaml:"atomic"`
	Ops    []harness.Op `yaml:"ops"`
}

// LoadOps reads and checks an ops file.
func LoadOps(path string) (*OpsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("ops file not found: %s", path)}
	}
	var f OpsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parsing ops: %v", err)}
	}
	if len(f.Ops) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "ops list is required and must be non-empty"}
	}
	if err := harness.ValidateOps(f.Ops); err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	return &f, nil
}

// resolveCell parses "A1" (first sheet) or "Name!A1" against eng.
func resolveCell(eng *engine.Engine, ref string) (ir.CellID, error) {
	sheetName, addr, qualified := strings.Cut(ref, "!")
	if !qualified {
		addr = sheetName
	}

	var sheet ir.SheetID
	if qualified {
		id, ok := eng.SheetIDByName(strings.Trim(sheetName, "'"))
		if !ok {
			return ir.CellID{}, fmt.Errorf("sheet %q not found", sheetName)
		}
		sheet = id
	} else {
		id, ok := eng.SheetIDAt(0)
		if !ok {
			return ir.CellID{}, fmt.Errorf("workbook has no sheets")
		}
		sheet = id
	}

	a, err := ir.ParseA1(addr)
	if err != nil {
		return ir.CellID{}, err
	}
	return ir.NewCellID(sheet, a.Row, a.Col), nil
}

// openWorkbook loads path into a recomputed engine. Failures are
// reported through f and returned as command errors.
func (o *RootOptions) openWorkbook(f *OutputFormatter, path string, extra ...engine.Option) (*engine.Engine, error) {
	snap, err := LoadWorkbook(path)
	if err != nil {
		code, msg := splitLoadError(err)
		_ = f.Error(code, msg, nil)
		return nil, WrapExitError(ExitCommandError, "failed to load workbook", err)
	}
	eng, err := engine.FromSnapshot(snap, o.engineOptions(extra...)...)
	if err != nil {
		_ = f.Error(ErrCodeInvalidWorkbook, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to build workbook", err)
	}
	f.VerboseLog("Loaded %s: %d sheet(s), revision %d", path, len(eng.Sheets()), eng.Revision())
	return eng, nil
}
