package snippet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/contextcraft/context-craft/internal/templates"
)

const (
	// DefaultListLimit is used when List is called without a limit.
	DefaultListLimit = 10

	maxDescriptionLen = 200
	previewLen        = 200
)

// Engine orchestrates scanning, merging, validation, rendering and
// repository access for snippets.
//
// Save and Insert are serialized per snippet name, and Insert writes are
// serialized per target path, so concurrent inserts never lose a usage
// increment and concurrent appends to one file both land. List reads
// without locking.
type Engine struct {
	store   Store
	workDir string
	locks   *keyedMutex
	logger  *slog.Logger
}

// NewEngine creates an Engine over store. Relative insertion targets
// resolve against workDir, or the process working directory when workDir
// is empty.
func NewEngine(store Store, workDir string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		store:   store,
		workDir: workDir,
		locks:   newKeyedMutex(),
		logger:  logger,
	}
}

// --- Save ---

// Save persists a new snippet, replacing any snippet with the same name.
func (e *Engine) Save(ctx context.Context, p SaveParams) (*Snippet, error) {
	if err := ValidateName(p.Name); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Code) == "" {
		return nil, invalidf("'code' is required")
	}
	if utf8.RuneCountInString(p.Description) > maxDescriptionLen {
		return nil, invalidf("description exceeds %d characters", maxDescriptionLen)
	}
	language := p.Language
	if language == "" {
		language = DefaultLanguage
	}

	variables, err := reconcileVariables(p.Code, p.Variables)
	if err != nil {
		return nil, err
	}

	var sc Context
	if p.Context != nil {
		sc = *p.Context
	}
	sc.CreatedAt = timeNow().UTC()
	sc.OriginalCode = p.Code
	sc.LineCount = strings.Count(p.Code, "\n") + 1
	sc.Size = utf8.RuneCountInString(p.Code)

	tags := append(append([]string{}, p.Tags...), AutoTags(p.Code, language)...)

	s := &Snippet{
		ID:          newID(),
		Name:        p.Name,
		Description: p.Description,
		Language:    language,
		Tags:        dedupe(tags),
		Variables:   variables,
		Context:     sc,
		Usage:       Usage{Count: 0},
		Template: Template{
			Code:         p.Code,
			Placeholders: placeholders(p.Code),
		},
	}

	unlock := e.locks.Lock("snippet:" + s.Name)
	defer unlock()

	if err := e.store.Replace(s); err != nil {
		return nil, fmt.Errorf("saving snippet %q: %w", s.Name, err)
	}
	e.logger.DebugContext(ctx, "snippet saved", "name", s.Name, "id", s.ID, "variables", len(s.Variables))
	return s, nil
}

// reconcileVariables returns declared variables followed by one required
// entry for every placeholder not already declared. Duplicate declared
// names keep their first entry.
func reconcileVariables(code string, declared []Variable) ([]Variable, error) {
	out := make([]Variable, 0, len(declared))
	seen := make(map[string]bool, len(declared))
	for _, v := range declared {
		if strings.TrimSpace(v.Name) == "" {
			return nil, invalidf("every variable needs a name")
		}
		if seen[v.Name] {
			continue
		}
		seen[v.Name] = true
		out = append(out, v)
	}
	for _, name := range templates.Names(code) {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, Variable{
			Name:        name,
			Description: "Auto-detected variable: " + name,
			Required:    true,
		})
	}
	return out, nil
}

// placeholders returns the scanned names as a non-nil slice so the
// document always carries an array.
func placeholders(code string) []string {
	names := templates.Scan(code)
	if names == nil {
		return []string{}
	}
	return names
}

// --- Insert ---

// Insert renders a snippet into a target file and records the usage.
//
// When a required variable has no value after merging defaults with
// caller values, Insert returns a result whose Missing field lists them.
// Nothing is written and usage is unchanged in that case.
func (e *Engine) Insert(ctx context.Context, p InsertParams) (*InsertResult, error) {
	if err := ValidateMode(p.Mode); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	unlock := e.locks.Lock("snippet:" + p.Name)
	defer unlock()

	s, err := e.store.Load(p.Name)
	if err != nil {
		return nil, err
	}

	merged := MergeVariables(s.Variables, p.Variables)
	if missing := MissingRequired(s.Variables, merged); len(missing) > 0 {
		e.logger.DebugContext(ctx, "snippet insert missing variables", "name", s.Name, "missing", len(missing))
		return &InsertResult{Missing: missing}, nil
	}

	source, err := e.store.LoadTemplate(s.Name)
	if err != nil {
		return nil, err
	}
	rendered := templates.Render(source, merged)

	target, err := e.resolveTarget(p.TargetPath, s)
	if err != nil {
		return nil, err
	}

	unlockFile := e.locks.Lock("file:" + target)
	defer unlockFile()

	content, operation, err := combine(target, rendered, p.Mode)
	if err != nil {
		return nil, err
	}
	if err := writeFile(target, []byte(content)); err != nil {
		return nil, err
	}

	now := timeNow().UTC()
	s.Usage.Count++
	s.Usage.LastUsed = &now
	if err := e.store.SaveMeta(s); err != nil {
		return nil, fmt.Errorf("updating usage for %q: %w", s.Name, err)
	}

	return &InsertResult{
		FilePath:   target,
		Operation:  operation,
		Rendered:   rendered,
		LineCount:  strings.Count(rendered, "\n") + 1,
		Variables:  merged,
		UsageCount: s.Usage.Count,
		Language:   s.Language,
	}, nil
}

// MergeVariables starts from each declared default (empty when unset) and
// overlays caller values. Caller values win, including undeclared keys.
func MergeVariables(declared []Variable, supplied map[string]string) map[string]string {
	merged := make(map[string]string, len(declared)+len(supplied))
	for _, v := range declared {
		merged[v.Name] = v.DefaultValue
	}
	for k, v := range supplied {
		merged[k] = v
	}
	return merged
}

// MissingRequired returns the required variables whose merged value is
// empty, in declaration order.
func MissingRequired(declared []Variable, merged map[string]string) []Variable {
	var missing []Variable
	for _, v := range declared {
		if v.Required && merged[v.Name] == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// resolveTarget returns the absolute insertion target.
func (e *Engine) resolveTarget(targetPath string, s *Snippet) (string, error) {
	if targetPath == "" {
		targetPath = s.Name + "." + Extension(s.Language)
	}
	if filepath.IsAbs(targetPath) {
		return filepath.Clean(targetPath), nil
	}
	base := e.workDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		base = wd
	}
	return filepath.Join(base, targetPath), nil
}

// combine merges rendered content with the existing target per mode. A
// missing target always yields the rendered content alone.
func combine(target, rendered string, mode InsertMode) (content, operation string, err error) {
	existing, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rendered, "created", nil
		}
		return "", "", fsErr("reading", target, err)
	}

	switch mode {
	case ModeAppend:
		return string(existing) + Separator + rendered, "appended to", nil
	case ModePrepend:
		return rendered + Separator + string(existing), "prepended to", nil
	default:
		return rendered, "replaced", nil
	}
}

// --- List ---

// List returns the snippets matching every supplied filter, sorted and
// truncated to the limit. Total counts matches before truncation.
func (e *Engine) List(ctx context.Context, p ListParams) (*ListResult, error) {
	if err := ValidateSortKey(p.SortBy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	all, skipped, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	for _, dir := range skipped {
		e.logger.WarnContext(ctx, "skipping invalid snippet", "dir", dir)
	}

	var matched []Snippet
	for _, s := range all {
		if matches(s, p) {
			matched = append(matched, s)
		}
	}
	sortSnippets(matched, p.SortBy)

	result := &ListResult{Total: len(matched), Snippets: []ListEntry{}}
	for i, s := range matched {
		if i >= limit {
			break
		}
		result.Snippets = append(result.Snippets, ListEntry{
			Snippet: s,
			Dir:     s.Name,
			Preview: preview(s.Template.Code),
		})
	}
	return result, nil
}

// matches applies the language, tag and search filters conjunctively.
func matches(s Snippet, p ListParams) bool {
	if p.Language != "" && !strings.Contains(strings.ToLower(s.Language), strings.ToLower(p.Language)) {
		return false
	}
	if len(p.Tags) > 0 && !anyTag(s.Tags, p.Tags) {
		return false
	}
	if p.Search != "" {
		q := strings.ToLower(p.Search)
		if !strings.Contains(strings.ToLower(s.Name), q) &&
			!strings.Contains(strings.ToLower(s.Description), q) &&
			!anyTagContains(s.Tags, q) {
			return false
		}
	}
	return true
}

func anyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func anyTagContains(tags []string, q string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

func sortSnippets(snippets []Snippet, key SortKey) {
	sort.SliceStable(snippets, func(i, j int) bool {
		a, b := snippets[i], snippets[j]
		switch key {
		case SortName:
			return a.Name < b.Name
		case SortUsage:
			return a.Usage.Count > b.Usage.Count
		case SortSize:
			return a.Context.Size > b.Context.Size
		default:
			return a.Context.CreatedAt.After(b.Context.CreatedAt)
		}
	})
}

func preview(code string) string {
	r := []rune(code)
	if len(r) > previewLen {
		r = r[:previewLen]
	}
	return string(r) + "..."
}
