// Package capture snapshots a project into a reusable saved template: a
// copy of selected files, a metadata document and a structure tree.
package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// TemplateFile holds the template metadata.
	TemplateFile = "template.json"
	// StructureFile holds the project structure tree.
	StructureFile = "structure.json"

	maxNameLen        = 50
	maxDescriptionLen = 200
	maxConfigFiles    = 10
)

// ErrInvalid marks a request rejected before anything is written.
var ErrInvalid = errors.New("invalid capture request")

// DefaultInclude is used when a request names no include patterns.
var DefaultInclude = []string{
	"package.json",
	"tsconfig.json",
	"go.mod",
	"**/*.config.*",
	".eslintrc.*",
	".prettierrc.*",
	"src/**/*",
	"tests/**/*",
	"docs/**/*",
}

// DefaultExclude is used when a request names no exclude patterns.
var DefaultExclude = []string{
	"node_modules/**",
	"dist/**",
	".git/**",
	"*.log",
	"coverage/**",
}

// Metadata describes the captured project. Empty stack or feature lists
// are filled by detection.
type Metadata struct {
	TechStack []string `json:"techStack"`
	Features  []string `json:"features"`
	Tags      []string `json:"tags,omitempty"`
}

// Request describes one capture.
type Request struct {
	Name            string
	Description     string
	IncludePatterns []string
	ExcludePatterns []string
	Metadata        *Metadata
}

// Stats counts the files seen by a capture.
type Stats struct {
	TotalFiles int `json:"totalFiles"`
	TotalLines int `json:"totalLines"`
}

// ProjectInfo is the project summary stored in template.json.
type ProjectInfo struct {
	Package     map[string]any `json:"package"`
	ConfigFiles []string       `json:"configFiles"`
	Stats       Stats          `json:"stats"`
}

// Template is the content of template.json.
type Template struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	CreatedAt   time.Time   `json:"createdAt"`
	ProjectInfo ProjectInfo `json:"projectInfo"`
	Metadata    Metadata    `json:"metadata"`
}

// Result is the outcome of a capture.
type Result struct {
	Template  *Template `json:"template"`
	Dir       string    `json:"dir"`
	Files     []string  `json:"files"`
	Skipped   []string  `json:"skipped,omitempty"`
	Structure *Node     `json:"structure"`
}

// Capturer captures the project at root into savedDir/<name>.
type Capturer struct {
	root     string
	savedDir string
	logger   *slog.Logger
}

// New creates a Capturer.
func New(root, savedDir string, logger *slog.Logger) *Capturer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Capturer{root: root, savedDir: savedDir, logger: logger}
}

// Capture copies the files selected by the request's patterns, detects the
// tech stack and features unless supplied, and writes template.json and
// structure.json. Files that cannot be read are skipped. An existing
// template with the same name is overwritten file by file.
func (c *Capturer) Capture(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	include := req.IncludePatterns
	if len(include) == 0 {
		include = DefaultInclude
	}
	exclude := append([]string{}, req.ExcludePatterns...)
	if len(exclude) == 0 {
		exclude = append(exclude, DefaultExclude...)
	}
	if rel, ok := c.relToRoot(c.savedDir); ok {
		exclude = append(exclude, rel+"/**")
	}

	fsys := os.DirFS(c.root)
	files, err := globAll(fsys, include, exclude)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(c.savedDir, req.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating template directory: %w", err)
	}

	result := &Result{Dir: dir, Files: []string{}}
	totalLines := 0
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := fs.ReadFile(fsys, rel)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping unreadable file", "file", rel, "error", err)
			result.Skipped = append(result.Skipped, rel)
			continue
		}
		totalLines += strings.Count(string(content), "\n") + 1

		target := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, content, 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", target, err)
		}
		result.Files = append(result.Files, rel)
	}

	info, err := c.projectInfo(fsys, exclude)
	if err != nil {
		return nil, err
	}
	info.Stats.TotalLines = totalLines

	meta := Metadata{}
	if req.Metadata != nil {
		meta = *req.Metadata
	}
	if len(meta.TechStack) == 0 {
		meta.TechStack = DetectTechStack(c.root)
	}
	if len(meta.Features) == 0 {
		meta.Features = DetectFeatures(c.root)
	}

	tmpl := &Template{
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   timeNow().UTC(),
		ProjectInfo: *info,
		Metadata:    meta,
	}
	if err := writeJSON(filepath.Join(dir, TemplateFile), tmpl); err != nil {
		return nil, err
	}

	tree, err := BuildTree(c.root)
	if err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(dir, StructureFile), tree); err != nil {
		return nil, err
	}

	result.Template = tmpl
	result.Structure = tree
	c.logger.DebugContext(ctx, "template captured", "name", req.Name, "files", len(result.Files), "skipped", len(result.Skipped))
	return result, nil
}

// projectInfo reads package.json, lists config files and counts every
// non-excluded file.
func (c *Capturer) projectInfo(fsys fs.FS, exclude []string) (*ProjectInfo, error) {
	info := &ProjectInfo{Package: map[string]any{}, ConfigFiles: []string{}}

	if data, err := fs.ReadFile(fsys, "package.json"); err == nil {
		_ = json.Unmarshal(data, &info.Package)
	}

	configs, err := globAll(fsys, []string{"**/*.{json,yml,yaml,js,ts,toml,mod}"}, exclude)
	if err != nil {
		return nil, err
	}
	for _, f := range configs {
		if len(info.ConfigFiles) == maxConfigFiles {
			break
		}
		if strings.Contains(f, "config") || strings.HasPrefix(f, ".") {
			info.ConfigFiles = append(info.ConfigFiles, f)
		}
	}

	all, err := globAll(fsys, []string{"**/*"}, exclude)
	if err != nil {
		return nil, err
	}
	info.Stats.TotalFiles = len(all)
	return info, nil
}

// relToRoot returns path relative to the project root in slash form when
// it lies inside the root.
func (c *Capturer) relToRoot(path string) (string, bool) {
	rel, err := filepath.Rel(c.root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// globAll returns the regular files matching any include pattern and no
// exclude pattern, deduplicated in match order.
func globAll(fsys fs.FS, include, exclude []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: include pattern %q", ErrInvalid, pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("globbing %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || excluded(m, exclude) {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	return out, nil
}

func excluded(path string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

func validate(req Request) error {
	name := req.Name
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: 'name' is required", ErrInvalid)
	case utf8.RuneCountInString(name) > maxNameLen:
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalid, maxNameLen)
	case name == "." || name == ".." || strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: template name %q", ErrInvalid, name)
	case utf8.RuneCountInString(req.Description) > maxDescriptionLen:
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalid, maxDescriptionLen)
	}
	for _, p := range req.IncludePatterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: include pattern %q", ErrInvalid, p)
		}
	}
	for _, p := range req.ExcludePatterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: exclude pattern %q", ErrInvalid, p)
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// timeNow is a package-level variable for testability.
var timeNow = time.Now
