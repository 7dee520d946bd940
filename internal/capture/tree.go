package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Node is one entry of a structure tree.
type Node struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Path     string  `json:"path,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// BuildTree walks root and returns its structure. Dot entries,
// node_modules and dist are skipped, as are unreadable subdirectories.
func BuildTree(root string) (*Node, error) {
	tree := &Node{Name: "project", Type: "directory", Children: []*Node{}}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	buildTree(root, root, entries, tree)
	return tree, nil
}

func buildTree(root, dir string, entries []os.DirEntry, parent *Node) {
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || name == "node_modules" || name == "dist" {
			continue
		}
		full := filepath.Join(dir, name)

		if e.IsDir() {
			child := &Node{Name: name, Type: "directory", Children: []*Node{}}
			parent.Children = append(parent.Children, child)
			sub, err := os.ReadDir(full)
			if err != nil {
				continue
			}
			buildTree(root, full, sub, child)
			continue
		}

		rel, err := filepath.Rel(root, full)
		if err != nil {
			rel = name
		}
		parent.Children = append(parent.Children, &Node{Name: name, Type: "file", Path: filepath.ToSlash(rel)})
	}
}
