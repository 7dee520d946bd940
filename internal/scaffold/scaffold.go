// Package scaffold generates project and component skeletons from template
// directory trees.
package scaffold

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/contextcraft/context-craft/internal/templates"
)

// ErrTemplateNotFound is returned when the requested template directory
// does not exist.
var ErrTemplateNotFound = errors.New("template directory not found")

// ErrInvalid is returned for requests with unusable names.
var ErrInvalid = errors.New("invalid scaffold request")

// Types lists the scaffold types offered by the scaffold tool.
var Types = []string{"web-api", "microservice", "frontend-comp", "cli"}

// builtin holds the templates shipped with the binary. A directory of the
// same type under the templates dir takes priority.
//
//go:embed builtin
var builtin embed.FS

// excludedNames are skipped while walking a template tree.
var excludedNames = map[string]bool{
	"node_modules": true,
	".git":         true,
	".DS_Store":    true,
}

// Request describes one generation.
type Request struct {
	Type     string
	Name     string
	Lang     string
	Features []string
}

// GeneratedFile is one file written by Generate.
type GeneratedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Result holds the outcome of a scaffold generation.
type Result struct {
	OutputDir string          `json:"outputDir"`
	Source    string          `json:"source"`
	Files     []GeneratedFile `json:"files"`
}

// Generator renders template trees found under templatesDir into
// outputRoot/<name>.
type Generator struct {
	templatesDir string
	outputRoot   string
}

// NewGenerator creates a Generator.
func NewGenerator(templatesDir, outputRoot string) *Generator {
	return &Generator{templatesDir: templatesDir, outputRoot: outputRoot}
}

// Data returns the rendering context for a request: the name verbatim,
// capitalized and hyphenated, the language and the comma-joined features.
func Data(req Request) map[string]string {
	return map[string]string{
		"name":       req.Name,
		"PascalName": capitalize(req.Name),
		"kebabName":  kebab(req.Name),
		"lang":       req.Lang,
		"features":   strings.Join(req.Features, ", "),
	}
}

// Generate copies the template tree for req.Type into the output directory,
// rendering file contents and path segments. Existing files are
// overwritten without warning.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := validateSegment("type", req.Type); err != nil {
		return nil, err
	}
	if err := validateSegment("name", req.Name); err != nil {
		return nil, err
	}

	tree, source, err := g.templateFS(req.Type)
	if err != nil {
		return nil, err
	}

	outputDir := filepath.Join(g.outputRoot, req.Name)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	if req.Lang == "" {
		req.Lang = "ts"
	}
	data := Data(req)
	result := &Result{OutputDir: outputDir, Source: source}

	err = fs.WalkDir(tree, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == "." {
			return nil
		}
		if excludedNames[d.Name()] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := templates.RenderPath(path, data)
		if err != nil {
			return err
		}

		raw, err := fs.ReadFile(tree, path)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", path, err)
		}
		rendered := templates.Render(string(raw), data)

		outPath := filepath.Join(outputDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(outPath), err)
		}
		if err := os.WriteFile(outPath, []byte(rendered), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}

		result.Files = append(result.Files, GeneratedFile{Path: rel, Content: rendered})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", req.Type, err)
	}
	return result, nil
}

// templateFS returns the template tree for typ and a description of where
// it came from: the on-disk directory when present, else the built-in copy.
func (g *Generator) templateFS(typ string) (fs.FS, string, error) {
	dir := filepath.Join(g.templatesDir, typ)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return os.DirFS(dir), dir, nil
	}
	if info, err := fs.Stat(builtin, "builtin/"+typ); err == nil && info.IsDir() {
		sub, err := fs.Sub(builtin, "builtin/"+typ)
		if err != nil {
			return nil, "", err
		}
		return sub, "builtin:" + typ, nil
	}
	return nil, "", fmt.Errorf("%w: template type %q (looked in %s)", ErrTemplateNotFound, typ, dir)
}

// validateSegment rejects values that would escape their parent directory.
func validateSegment(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: '%s' is required", ErrInvalid, field)
	}
	if v == "." || v == ".." || strings.ContainsAny(v, `/\`) {
		return fmt.Errorf("%w: %s %q", ErrInvalid, field, v)
	}
	return nil
}

// capitalize upper-cases the first rune and keeps the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return cases.Upper(language.Und).String(string(r)) + s[size:]
}

// kebab inserts a hyphen before every upper-case letter and lower-cases
// the result: "userProfile" becomes "user-profile".
func kebab(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
