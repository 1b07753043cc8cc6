// Package seed loads catalog definitions and applies them through the
// mutation engine.
//
// A catalog file is CUE, JSON or YAML. Whatever the format, the document is
// unified with the embedded #Catalog schema, so type and range errors are
// reported with a file position and nothing is written.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/kitchensync/internal/model"
)

const schemaFile = "schema.cue"

//go:embed schema.cue
var schemaSource string

// Catalog is a decoded seed file.
type Catalog struct {
	Categories  []model.Category `json:"categories"`
	Products    []model.Product  `json:"products"`
	Stations    []model.Station  `json:"stations"`
	Events      []model.Event    `json:"events"`
	ActiveEvent string           `json:"active_event,omitempty"`
}

// SchemaError is a seed document that does not satisfy the catalog schema.
type SchemaError struct {
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// LoadFile reads and validates the catalog at path. The format is chosen by
// extension: .yaml and .yml are YAML, anything else is compiled as CUE.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(path, data)
}

// Parse validates data against the catalog schema and decodes it. name is
// used for error positions and to pick the format.
func Parse(name string, data []byte) (*Catalog, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename(schemaFile))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Catalog"))

	var doc cue.Value
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
		doc = ctx.Encode(raw)
	default:
		doc = ctx.CompileBytes(data, cue.Filename(name))
	}
	if err := doc.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var cat Catalog
	if err := unified.Decode(&cat); err != nil {
		return nil, formatCUEError(err)
	}
	return &cat, nil
}

// formatCUEError keeps the first CUE error. Its position is the first one
// inside the seed document, falling back to the schema.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	se := &SchemaError{Message: first.Error()}
	for _, pos := range errors.Positions(first) {
		if !se.Pos.IsValid() {
			se.Pos = pos
		}
		if pos.Filename() != schemaFile {
			se.Pos = pos
			break
		}
	}
	return se
}
