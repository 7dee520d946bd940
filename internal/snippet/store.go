package snippet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	// MetaFile is the snippet metadata document.
	MetaFile = "snippet.json"
	// TemplateFile holds the raw template text.
	TemplateFile = "template.code"
	// ExampleFile holds the human-readable usage example.
	ExampleFile = "example.md"
	// QuickInsertFile holds the quick insert descriptor.
	QuickInsertFile = "quick-insert.json"

	// maxNameLen bounds snippet names, which double as directory names.
	maxNameLen = 50

	// listConcurrency bounds parallel metadata reads during List.
	listConcurrency = 8
)

// Store defines the persistence interface for snippets.
// Abstracted for testability.
type Store interface {
	// Replace removes any existing directory for s.Name and writes every
	// artifact for s.
	Replace(s *Snippet) error
	// Load reads the metadata of a snippet.
	Load(name string) (*Snippet, error)
	// LoadTemplate reads the raw template text of a snippet.
	LoadTemplate(name string) (string, error)
	// SaveMeta rewrites only the metadata document.
	SaveMeta(s *Snippet) error
	// List reads every readable snippet. Directories whose metadata
	// cannot be read are reported in skipped.
	List(ctx context.Context) (snippets []Snippet, skipped []string, err error)
	// Dir returns the directory of a snippet.
	Dir(name string) string
}

// FileStore implements Store on the local filesystem.
type FileStore struct {
	root string
}

// NewFileStore creates a filesystem-backed snippet store rooted at root.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Root returns the repository directory.
func (fs *FileStore) Root() string { return fs.root }

// Dir returns the directory of a snippet.
func (fs *FileStore) Dir(name string) string {
	return filepath.Join(fs.root, name)
}

// ValidateName rejects names that are empty, too long, or would escape the
// repository directory.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return invalidf("'name' is required")
	case len([]rune(name)) > maxNameLen:
		return invalidf("name %q exceeds %d characters", name, maxNameLen)
	case name == "." || name == "..":
		return invalidf("name %q is reserved", name)
	case strings.ContainsAny(name, `/\`):
		return invalidf("name %q must not contain path separators", name)
	}
	return nil
}

// Replace writes all artifacts for s. The previous directory, if any, is
// removed first so nothing from an earlier save survives. A failure part
// way through leaves whatever was already written.
func (fs *FileStore) Replace(s *Snippet) error {
	if err := ValidateName(s.Name); err != nil {
		return err
	}
	dir := fs.Dir(s.Name)
	if err := os.RemoveAll(dir); err != nil {
		return fsErr("removing", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fsErr("creating", dir, err)
	}

	if err := fs.SaveMeta(s); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, TemplateFile), []byte(s.Template.Code)); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, ExampleFile), []byte(ExampleUsage(s))); err != nil {
		return err
	}

	quick, err := json.MarshalIndent(NewQuickInsert(s), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling quick insert: %w", err)
	}
	return writeFile(filepath.Join(dir, QuickInsertFile), quick)
}

// Load reads a snippet's metadata by name.
func (fs *FileStore) Load(name string) (*Snippet, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	path := filepath.Join(fs.Dir(name), MetaFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, fsErr("reading", path, err)
	}

	var s Snippet
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s for %q: %w", MetaFile, name, err)
	}
	return &s, nil
}

// LoadTemplate reads a snippet's template.code.
func (fs *FileStore) LoadTemplate(name string) (string, error) {
	path := filepath.Join(fs.Dir(name), TemplateFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %q has no %s", ErrNotFound, name, TemplateFile)
		}
		return "", fsErr("reading", path, err)
	}
	return string(data), nil
}

// SaveMeta marshals and writes a snippet's snippet.json.
func (fs *FileStore) SaveMeta(s *Snippet) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snippet: %w", err)
	}
	return writeFile(filepath.Join(fs.Dir(s.Name), MetaFile), data)
}

// List loads every snippet directory under the root. A missing root is an
// empty repository, not an error.
func (fs *FileStore) List(ctx context.Context) ([]Snippet, []string, error) {
	entries, err := os.ReadDir(fs.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fsErr("reading", fs.root, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}

	loaded := make([]*Snippet, len(names))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, name := range names {
		g.Go(func() error {
			s, err := fs.Load(name)
			if err != nil {
				return nil // skipped below
			}
			loaded[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var snippets []Snippet
	var skipped []string
	for i, s := range loaded {
		if s == nil {
			skipped = append(skipped, names[i])
			continue
		}
		snippets = append(snippets, *s)
	}
	sort.Strings(skipped)
	return snippets, skipped, nil
}

// writeFile writes data to path, creating parent directories as needed.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fsErr("creating", dir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fsErr("writing", path, err)
	}
	return nil
}
