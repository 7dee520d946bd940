package devtools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxResults caps search results when a request names no limit.
	DefaultMaxResults = 10

	linesPerFile   = 5
	searchPreview  = 300
	searchReadJobs = 8
)

// DefaultFileTypes are searched when a request names none.
var DefaultFileTypes = []string{".ts", ".js", ".tsx", ".jsx", ".py", ".java", ".go", ".rs"}

var searchIgnore = []string{"**/node_modules/**", "**/dist/**", "**/.git/**"}

// SearchRequest describes one keyword search.
type SearchRequest struct {
	Query      string
	Path       string
	FileTypes  []string
	MaxResults int
}

// LineMatch is one matching line.
type LineMatch struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
}

// FileMatch groups the matches found in one file.
type FileMatch struct {
	File    string      `json:"file"`
	Matches []LineMatch `json:"matches"`
	Preview string      `json:"preview"`
}

// SearchResult is the outcome of a search.
type SearchResult struct {
	Query   string      `json:"query"`
	Matches []FileMatch `json:"matches"`
}

// Search does a case-insensitive substring scan of source files under
// req.Path. At most twice MaxResults files are read and at most MaxResults
// files are returned, each with up to five matching lines. Unreadable files
// are skipped.
func (t *Toolbox) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("'query' is required")
	}
	limit := req.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	types := req.FileTypes
	if len(types) == 0 {
		types = DefaultFileTypes
	}

	root := req.Path
	if root == "" {
		root = "."
	}
	if !filepath.IsAbs(root) {
		root = filepath.Join(t.Dir, root)
	}
	fsys := os.DirFS(root)

	files, err := sourceFiles(fsys, types)
	if err != nil {
		return nil, err
	}
	if len(files) > limit*2 {
		files = files[:limit*2]
	}

	query := strings.ToLower(req.Query)
	found := make([]*FileMatch, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(searchReadJobs)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := fs.ReadFile(fsys, f)
			if err != nil {
				return nil
			}
			found[i] = matchFile(f, string(data), query)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &SearchResult{Query: req.Query, Matches: []FileMatch{}}
	for _, m := range found {
		if m == nil {
			continue
		}
		if len(result.Matches) == limit {
			break
		}
		result.Matches = append(result.Matches, *m)
	}
	return result, nil
}

// sourceFiles lists the files with one of the given extensions, in walk
// order, outside the ignored directories.
func sourceFiles(fsys fs.FS, types []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, ext := range types {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		pattern := "**/*" + ext
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid file type %q", ext)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("listing %s files: %w", ext, err)
		}
		for _, m := range matches {
			if seen[m] || ignored(m) {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	return files, nil
}

func ignored(path string) bool {
	for _, p := range searchIgnore {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

// matchFile returns the file's matches for a lower-cased query, or nil.
func matchFile(file, content, query string) *FileMatch {
	if !strings.Contains(strings.ToLower(content), query) {
		return nil
	}
	var lines []LineMatch
	for i, line := range strings.Split(content, "\n") {
		if strings.Contains(strings.ToLower(line), query) {
			lines = append(lines, LineMatch{Line: i + 1, Content: strings.TrimSpace(line)})
			if len(lines) == linesPerFile {
				break
			}
		}
	}
	if len(lines) == 0 {
		return nil
	}

	preview := content
	if r := []rune(content); len(r) > searchPreview {
		preview = string(r[:searchPreview]) + "..."
	}
	return &FileMatch{File: file, Matches: lines, Preview: preview}
}
