package theme

import (
	"embed"
	"io/fs"
	"path"
	"slices"
	"strings"
)

// EmbeddedThemes holds the bundled overlay themes and partials.
//
//go:embed themes/*.css
var EmbeddedThemes embed.FS

// DefaultThemeName is the theme used when none is configured.
const DefaultThemeName = "default"

// BundledThemes names the embedded themes, partials excluded.
var BundledThemes = []string{"default", "midnight", "sepia"}

const embeddedDir = "themes"

func readEmbedded(file string) (string, bool) {
	data, err := EmbeddedThemes.ReadFile(path.Join(embeddedDir, file))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// GetEmbeddedTheme returns the raw CSS of a bundled theme. Partials are
// not themes and are never returned; @import is left unresolved.
func GetEmbeddedTheme(name string) (string, bool) {
	if name == "" || isPartial(name) {
		return "", false
	}
	return readEmbedded(name + ".css")
}

// GetEmbeddedPartial returns a bundled partial. "base", "_base" and
// "_base.css" all name the same file.
func GetEmbeddedPartial(name string) (string, bool) {
	name = strings.TrimSuffix(name, ".css")
	if !isPartial(name) {
		name = "_" + name
	}
	return readEmbedded(name + ".css")
}

// ListEmbeddedThemes returns the bundled theme names in sorted order.
func ListEmbeddedThemes() []string {
	files, err := fs.Glob(EmbeddedThemes, path.Join(embeddedDir, "*.css"))
	if err != nil || len(files) == 0 {
		return slices.Clone(BundledThemes)
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".css")
		if !isPartial(name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// IsEmbeddedTheme reports whether name is a bundled theme.
func IsEmbeddedTheme(name string) bool {
	_, ok := GetEmbeddedTheme(name)
	return ok
}

func isPartial(name string) bool {
	return strings.HasPrefix(name, "_")
}
