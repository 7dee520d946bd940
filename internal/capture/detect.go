package capture

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// packageDeps maps package.json dependency names to stack entries.
var packageDeps = []struct{ dep, tech string }{
	{"react", "React"},
	{"vue", "Vue"},
	{"fastify", "Fastify"},
	{"express", "Express"},
	{"typescript", "TypeScript"},
	{"vitest", "Vitest"},
	{"jest", "Jest"},
}

// configMarkers maps marker files to stack entries.
var configMarkers = []struct{ file, tech string }{
	{"tsconfig.json", "TypeScript"},
	{"vite.config.ts", "Vite"},
	{"webpack.config.js", "Webpack"},
	{"tailwind.config.js", "Tailwind"},
	{".eslintrc.js", "ESLint"},
	{"prettier.config.js", "Prettier"},
	{"go.mod", "Go"},
}

// featureMarkers maps paths to detected features.
var featureMarkers = []struct{ path, feature string }{
	{"tests", "Testing"},
	{"src", "Modular Structure"},
	{"docker-compose.yml", "Docker Support"},
	{".github/workflows", "CI/CD"},
	{"docs", "Documentation"},
}

// DetectTechStack inspects package.json dependencies and well-known config
// files under root. The result is deduplicated in detection order.
func DetectTechStack(root string) []string {
	var stack []string
	add := func(tech string) {
		for _, s := range stack {
			if s == tech {
				return
			}
		}
		stack = append(stack, tech)
	}

	if data, err := os.ReadFile(filepath.Join(root, "package.json")); err == nil {
		var pkg struct {
			Dependencies    map[string]any `json:"dependencies"`
			DevDependencies map[string]any `json:"devDependencies"`
		}
		if json.Unmarshal(data, &pkg) == nil {
			for _, d := range packageDeps {
				_, dep := pkg.Dependencies[d.dep]
				_, dev := pkg.DevDependencies[d.dep]
				if dep || dev {
					add(d.tech)
				}
			}
		}
	}

	for _, m := range configMarkers {
		if exists(filepath.Join(root, m.file)) {
			add(m.tech)
		}
	}
	if stack == nil {
		return []string{}
	}
	return stack
}

// DetectFeatures reports project features from well-known paths under root.
func DetectFeatures(root string) []string {
	features := []string{}
	for _, m := range featureMarkers {
		if exists(filepath.Join(root, filepath.FromSlash(m.path))) {
			features = append(features, m.feature)
		}
	}
	return features
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
