package theme

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// importRegex matches @import "file.css"; or @import 'file.css'; or @import url("file.css");
var importRegex = regexp.MustCompile(`@import\s+(?:url\s*\(\s*)?["']([^"']+)["']\s*\)?;?`)

// Theme is a stylesheet with its imports inlined.
type Theme struct {
	Name    string
	Path    string // empty for bundled themes
	CSS     string
	Bundled bool
}

// NewTheme loads a CSS file and inlines its @import statements.
func NewTheme(name, path string) (*Theme, error) {
	css, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Theme{
		Name: name,
		Path: path,
		CSS:  ProcessImports(string(css), filepath.Dir(path), nil),
	}, nil
}

// Load resolves a theme by name. The user themes directory is searched
// first so a file there overrides a bundled theme of the same name.
// Unknown names fall back to the default theme.
func Load(name, themesDir string, logger *slog.Logger) *Theme {
	if logger == nil {
		logger = slog.Default()
	}
	if name == "" {
		name = DefaultThemeName
	}

	if themesDir != "" {
		path := filepath.Join(themesDir, name+".css")
		if _, err := os.Stat(path); err == nil {
			t, err := NewTheme(name, path)
			if err == nil {
				logger.Debug("loaded user theme", "name", name, "path", path)
				return t
			}
			logger.Warn("failed to load user theme, trying bundled", "theme", name, "error", err)
		}
	}

	if css, found := GetEmbeddedTheme(name); found {
		return &Theme{Name: name, CSS: ProcessImports(css, "", nil), Bundled: true}
	}

	logger.Warn("theme not found, using default", "theme", name)
	css, _ := GetEmbeddedTheme(DefaultThemeName)
	return &Theme{Name: DefaultThemeName, CSS: ProcessImports(css, "", nil), Bundled: true}
}

// ProcessImports resolves and inlines @import statements in CSS.
// Imports are resolved relative to baseDir, then against the bundled
// partials and themes. The seen map prevents circular imports.
func ProcessImports(css string, baseDir string, seen map[string]bool) string {
	if seen == nil {
		seen = make(map[string]bool)
	}

	return importRegex.ReplaceAllStringFunc(css, func(match string) string {
		submatch := importRegex.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}

		importPath := submatch[1]
		fullPath := importPath
		if !filepath.IsAbs(importPath) {
			fullPath = filepath.Join(baseDir, importPath)
		}

		if seen[fullPath] {
			return "/* circular import prevented: " + importPath + " */"
		}
		seen[fullPath] = true

		imported, err := os.ReadFile(fullPath)
		if err != nil || baseDir == "" {
			baseName := filepath.Base(importPath)
			if strings.HasPrefix(baseName, "_") {
				if embedded, found := GetEmbeddedPartial(baseName); found {
					return "/* imported (embedded): " + importPath + " */\n" + embedded
				}
			}
			if embedded, found := GetEmbeddedTheme(strings.TrimSuffix(baseName, ".css")); found {
				return "/* imported (embedded): " + importPath + " */\n" + ProcessImports(embedded, "", seen)
			}
			if err == nil {
				err = os.ErrNotExist
			}
			return "/* import failed: " + importPath + " - " + err.Error() + " */"
		}

		return "/* imported: " + importPath + " */\n" +
			ProcessImports(string(imported), filepath.Dir(fullPath), seen)
	})
}

// ThemeInfo provides basic theme information for listing.
type ThemeInfo struct {
	Name    string
	Path    string
	Bundled bool
}

// ListAvailableThemes lists bundled themes followed by user themes in themesDir.
func ListAvailableThemes(themesDir string) ([]ThemeInfo, error) {
	seen := make(map[string]bool)
	var themes []ThemeInfo

	for _, name := range ListEmbeddedThemes() {
		seen[name] = true
		themes = append(themes, ThemeInfo{Name: name, Bundled: true})
	}

	if themesDir == "" {
		return themes, nil
	}
	entries, err := os.ReadDir(themesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return themes, nil
		}
		return themes, err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".css" || strings.HasPrefix(name, "_") {
			continue
		}
		themeName := strings.TrimSuffix(name, ".css")
		if !seen[themeName] {
			seen[themeName] = true
			themes = append(themes, ThemeInfo{Name: themeName, Path: filepath.Join(themesDir, name)})
		}
	}

	return themes, nil
}
