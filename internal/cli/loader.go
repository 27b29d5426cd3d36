package cli

import (
	"bytes"
	"errors"
	"fmt"
	"go/build/constraint"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/stated/internal/engine"
	"github.com/roach88/stated/internal/ir"
)

// Package is one directory of templates, expanded together.
type Package struct {
	Dir       string
	Templates []engine.Source // sorted by path
}

// InputHash fingerprints every template of the package. Templates of one
// package share a registry, so editing any of them invalidates all outputs.
func (p *Package) InputHash() string {
	var buf bytes.Buffer
	for _, src := range p.Templates {
		buf.WriteString(filepath.Base(src.Path))
		buf.WriteByte(0)
		buf.Write(src.Src)
		buf.WriteByte(0)
	}
	return ir.InputFingerprint(buf.Bytes())
}

// LoadError represents an error that occurred while finding templates.
type LoadError struct {
	Code    string
	Message string
	Path    string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands. Template
// diagnostics carry their own E1xx codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No templates found
	ErrCodeConfig      = "E004" // Configuration invalid
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeStale       = "E006" // Generated file out of date
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeCache       = "E008" // Generation cache unavailable
)

// FindPackages returns the template packages named by patterns. A pattern
// is a directory, or a directory followed by "/..." to include every
// directory below it. Directories without templates are skipped; finding
// none at all is an error.
func FindPackages(patterns []string, tag string) ([]Package, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}

	dirs := map[string]bool{}
	for _, pattern := range patterns {
		root, recursive := strings.CutSuffix(filepath.ToSlash(pattern), "/...")
		if recursive && root == "" {
			root = "."
		}
		root = filepath.Clean(filepath.FromSlash(root))

		info, err := os.Stat(root)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: "directory not found", Path: root}
		}
		if !info.IsDir() {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: "not a directory", Path: root}
		}

		if !recursive {
			dirs[root] = true
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata" || name == "vendor") {
				return filepath.SkipDir
			}
			dirs[path] = true
			return nil
		})
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err), Path: root}
		}
	}

	sorted := make([]string, 0, len(dirs))
	for dir := range dirs {
		sorted = append(sorted, dir)
	}
	sort.Strings(sorted)

	var pkgs []Package
	for _, dir := range sorted {
		pkg, err := LoadPackage(dir, tag)
		if err != nil {
			return nil, err
		}
		if len(pkg.Templates) > 0 {
			pkgs = append(pkgs, *pkg)
		}
	}
	if len(pkgs) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no templates with build tag %q found in %s", tag, strings.Join(patterns, " "))}
	}
	return pkgs, nil
}

// LoadPackage reads the templates of one directory.
func LoadPackage(dir, tag string) (*Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error reading directory: %v", err), Path: dir}
	}
	pkg := &Package{Dir: dir}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		path := filepath.Join(dir, name)
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error reading file: %v", err), Path: path}
		}
		if IsTemplate(src, tag) {
			pkg.Templates = append(pkg.Templates, engine.Source{Path: path, Src: src})
		}
	}
	return pkg, nil
}

// IsTemplate reports whether src is built only with tag: its build
// constraint holds when tag is set and fails when it is not.
func IsTemplate(src []byte, tag string) bool {
	for _, line := range headerLines(src) {
		if !constraint.IsGoBuild(line) {
			continue
		}
		expr, err := constraint.Parse(line)
		if err != nil {
			return false
		}
		with := expr.Eval(func(t string) bool { return t == tag })
		without := expr.Eval(func(string) bool { return false })
		return with && !without
	}
	return false
}

// headerLines returns the comment lines before the package clause.
func headerLines(src []byte) []string {
	var lines []string
	inBlock := false
	for _, raw := range strings.Split(string(src), "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case inBlock:
			if strings.Contains(line, "*/") {
				inBlock = false
			}
		case line == "" || strings.HasPrefix(line, "//"):
			lines = append(lines, line)
		case strings.HasPrefix(line, "/*"):
			inBlock = !strings.Contains(line, "*/")
		default:
			return lines
		}
	}
	return lines
}

// loadErrorCode returns the code of a LoadError, ErrCodeGeneric otherwise.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}
