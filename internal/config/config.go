// Package config loads stated.cue project configuration.
//
// A configuration file is plain CUE unified with the embedded #Config
// schema, which supplies defaults and rejects unknown fields:
//
//	tag:       "typestate"
//	redundant: "warn"
//	docs: description: true
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/stated/internal/ir"
)

// FileName is the configuration file looked up in a project directory.
const FileName = "stated.cue"

//go:embed schema.cue
var schemaSource string

// Redundant rule severities.
const (
	RedundantError = "error"
	RedundantWarn  = "warn"
)

// Config is a validated project configuration.
type Config struct {
	Tag          string `json:"tag"`
	Suffix       string `json:"suffix"`
	Field        string `json:"field"`
	StatePackage string `json:"state_package"`
	Strict       bool   `json:"strict"`
	Redundant    string `json:"redundant"`
	Docs         Docs   `json:"docs"`
	Cache        string `json:"cache"`
	Jobs         int    `json:"jobs"`
	Reachability bool   `json:"reachability"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `json:"-"`
}

// Docs holds the default documentation toggles.
type Docs struct {
	Description bool `json:"description"`
	Ugly        bool `json:"ugly"`
}

// IR converts the toggles to their ir form.
func (d Docs) IR() ir.Docs {
	return ir.Docs{Description: d.Description, Ugly: d.Ugly}
}

// WarnRedundant reports whether redundant rules are downgraded to warnings.
func (c *Config) WarnRedundant() bool {
	return c.Redundant == RedundantWarn
}

// Value converts the configuration to a canonical value for fingerprinting.
func (c *Config) Value() ir.Object {
	return ir.Object{
		"tag":           ir.String(c.Tag),
		"suffix":        ir.String(c.Suffix),
		"field":         ir.String(c.Field),
		"state_package": ir.String(c.StatePackage),
		"strict":        ir.Bool(c.Strict),
		"redundant":     ir.String(c.Redundant),
		"docs": ir.Object{
			"description": ir.Bool(c.Docs.Description),
			"ugly":        ir.Bool(c.Docs.Ugly),
		},
	}
}

// Error is a configuration error with its CUE position.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c, err := Parse("", nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return c
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(path, src)
	if err != nil {
		return nil, err
	}
	c.Path = path
	return c, nil
}

// Find returns the configuration of dir: its stated.cue when present,
// defaults otherwise.
func Find(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Parse validates src against the schema. A nil src yields the defaults.
func Parse(filename string, src []byte) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err, filename)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, filename)
	}
	merged := def.Unify(v)
	if err := merged.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err, filename)
	}

	c := &Config{}
	if err := merged.Decode(c); err != nil {
		return nil, formatCUEError(err, filename)
	}
	return c, nil
}

// formatCUEError keeps the first CUE error, positioned in filename when
// one of its positions is.
func formatCUEError(err error, filename string) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	var pos token.Pos
	for i, p := range cueerrors.Positions(first) {
		if i == 0 || p.Filename() == filename {
			pos = p
		}
		if p.Filename() == filename {
			break
		}
	}
	return &Error{
		Field:   "config",
		Message: first.Error(),
		Pos:     pos,
	}
}
