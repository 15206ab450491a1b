package output

import (
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
)

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"percent": percent,
		"reltime": relativeTime,
		"join":    strings.Join,
		"upper":   strings.ToUpper,
		"truncate": func(s string, maxLen int) string {
			if maxLen <= 0 || len(s) <= maxLen {
				return s
			}
			if maxLen <= 3 {
				return s[:maxLen]
			}
			return s[:maxLen-3] + "..."
		},
	}
}

func parseTemplate(name, text, fallback string) (*template.Template, error) {
	if text == "" {
		text = fallback
	}
	tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid %s template: %w", name, err)
	}
	return tmpl, nil
}

func execute(tmpl *template.Template, v *View) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, v); err != nil {
		return "", fmt.Errorf("render %s template: %w", tmpl.Name(), err)
	}
	return sb.String(), nil
}

// percent formats an opacity as a whole percentage.
func percent(v float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(v*100)))
}

// relativeTime returns a human-readable relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}
