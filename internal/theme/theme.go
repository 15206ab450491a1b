package theme

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// importRegex matches @import "file.css"; or @import 'file.css'; or @import url("file.css");
var importRegex = regexp.MustCompile(`@import\s+(?:url\s*\(\s*)?["']([^"']+)["']\s*\)?;?`)

// TintColor is the GTK named colour themes override to change the tint
// painted behind the clock.
const TintColor = "fsclock_tint"

// OverlaySelector selects every overlay window.
const OverlaySelector = "window.fsclock-overlay"

// Theme is a resolved CSS theme.
type Theme struct {
	Name      string
	Path      string    // Empty for bundled themes
	CSS       string    // Imports already inlined
	Imports   []string  // Files inlined from disk, watched alongside Path
	ModTime   time.Time // Newest modification time of Path and Imports
	IsBundled bool
	IsDefault bool
}

// NewTheme loads a theme from a CSS file and inlines its imports.
func NewTheme(name, path string) (*Theme, error) {
	t := &Theme{Name: name, Path: path}
	if _, err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewBundledTheme returns an embedded theme.
func NewBundledTheme(name string) (*Theme, bool) {
	css, found := GetEmbeddedTheme(name)
	if !found {
		return nil, false
	}
	return &Theme{
		Name:      name,
		CSS:       ProcessImports(css, "", nil),
		IsBundled: true,
		IsDefault: name == DefaultThemeName,
	}, true
}

// NewDefaultTheme returns the embedded default theme.
func NewDefaultTheme() *Theme {
	t, _ := NewBundledTheme(DefaultThemeName)
	return t
}

// Reload re-reads the theme if it or one of its imports changed on disk.
// Returns true if the resolved CSS changed.
func (t *Theme) Reload() (bool, error) {
	if t.IsBundled {
		return false, nil
	}

	newest, err := newestModTime(append([]string{t.Path}, t.Imports...))
	if err != nil {
		return false, err
	}
	if !newest.After(t.ModTime) {
		return false, nil
	}

	return t.load()
}

func (t *Theme) load() (bool, error) {
	data, err := os.ReadFile(t.Path)
	if err != nil {
		return false, fmt.Errorf("read theme %s: %w", t.Name, err)
	}

	var imports []string
	css := processImports(string(data), filepath.Dir(t.Path), nil, &imports)

	newest, err := newestModTime(append([]string{t.Path}, imports...))
	if err != nil {
		return false, fmt.Errorf("stat theme %s: %w", t.Name, err)
	}

	changed := css != t.CSS
	t.CSS = css
	t.Imports = imports
	t.ModTime = newest
	return changed, nil
}

// WithBackground returns the theme CSS followed by the background rule.
func (t *Theme) WithBackground(alpha float64) string {
	return t.CSS + "\n" + BackgroundRule(alpha)
}

// BackgroundRule returns the CSS rule painting the tint behind the clock at
// the given opacity. Out of range values are clamped.
func BackgroundRule(alpha float64) string {
	switch {
	case math.IsNaN(alpha) || alpha < 0:
		alpha = 0
	case alpha > 1:
		alpha = 1
	}
	a := strconv.FormatFloat(alpha, 'f', 3, 64)
	return OverlaySelector + " { background-color: alpha(@" + TintColor + ", " + a + "); }\n"
}

// ProcessImports resolves and inlines @import statements in CSS.
// Imports are resolved relative to baseDir, falling back to bundled partials
// and themes. The seen map prevents circular imports.
func ProcessImports(css string, baseDir string, seen map[string]bool) string {
	return processImports(css, baseDir, seen, nil)
}

func processImports(css, baseDir string, seen map[string]bool, files *[]string) string {
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
		if err != nil {
			baseName := filepath.Base(importPath)
			if strings.HasPrefix(baseName, "_") {
				if embedded, found := GetEmbeddedPartial(baseName); found {
					return "/* imported (embedded): " + importPath + " */\n" + embedded
				}
			}
			if embedded, found := GetEmbeddedTheme(strings.TrimSuffix(baseName, ".css")); found {
				return "/* imported (embedded): " + importPath + " */\n" +
					processImports(embedded, "", seen, nil)
			}
			return "/* import failed: " + importPath + " - " + err.Error() + " */"
		}

		if files != nil {
			*files = append(*files, fullPath)
		}
		nested := processImports(string(imported), filepath.Dir(fullPath), seen, files)
		return "/* imported: " + importPath + " */\n" + nested
	})
}

func newestModTime(paths []string) (time.Time, error) {
	var newest time.Time
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return time.Time{}, err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	return newest, nil
}

// ThemeInfo describes an available theme.
type ThemeInfo struct {
	Name      string
	Path      string
	IsDefault bool
	IsBundled bool
}

// ListAvailableThemes lists bundled themes followed by user themes in dir.
// A user theme with a bundled name overrides it.
func ListAvailableThemes(dir string) ([]ThemeInfo, error) {
	index := make(map[string]int)
	var themes []ThemeInfo

	for _, name := range ListEmbeddedThemes() {
		index[name] = len(themes)
		themes = append(themes, ThemeInfo{
			Name:      name,
			IsDefault: name == DefaultThemeName,
			IsBundled: true,
		})
	}

	if dir == "" {
		return themes, nil
	}
	entries, err := os.ReadDir(dir)
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
		info := ThemeInfo{
			Name: strings.TrimSuffix(name, ".css"),
			Path: filepath.Join(dir, name),
		}
		if i, ok := index[info.Name]; ok {
			themes[i] = info
			continue
		}
		index[info.Name] = len(themes)
		themes = append(themes, info)
	}

	return themes, nil
}

// ThemesDir returns the user's themes directory.
func ThemesDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "fsclock", "themes"), nil
}

// CreateThemesDir creates the themes directory if it doesn't exist.
func CreateThemesDir() error {
	dir, err := ThemesDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}
