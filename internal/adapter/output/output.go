// Package output provides output formatters for the overlay status.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Formatter formats a status view for output.
type Formatter interface {
	// Format writes the formatted status to the writer.
	Format(w io.Writer, v *View) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain  FormatType = "plain"
	FormatJSON   FormatType = "json"
	FormatYAML   FormatType = "yaml"
	FormatWaybar FormatType = "waybar"
)

// FormatTypes lists the supported formats.
func FormatTypes() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatYAML, FormatWaybar}
}

// ParseFormatType parses a format name.
func ParseFormatType(s string) (FormatType, error) {
	for _, f := range FormatTypes() {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (use plain, json, yaml or waybar)", s)
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) (Formatter, error) {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatYAML:
		return NewYAMLFormatter(), nil
	case FormatWaybar:
		return NewWaybarFormatter(opts)
	case FormatPlain, "":
		return NewPlainFormatter(opts)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// FormatterOptions configures formatter behavior. Empty templates use the
// built-in defaults.
type FormatterOptions struct {
	Template      string // plain line template
	WaybarText    string // waybar "text" template
	WaybarTooltip string // waybar "tooltip" template
}
