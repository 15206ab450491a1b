package output

import (
	"fmt"
	"io"
	"text/template"

	"github.com/jmylchreest/fsclock/internal/config"
)

// PlainFormatter writes one templated line.
type PlainFormatter struct {
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) (*PlainFormatter, error) {
	tmpl, err := parseTemplate("plain", opts.Template, config.DefaultPlainTmpl)
	if err != nil {
		return nil, err
	}
	return &PlainFormatter{template: tmpl}, nil
}

// Format writes the status as plain text.
func (f *PlainFormatter) Format(w io.Writer, v *View) error {
	line, err := execute(f.template, v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, line)
	return err
}
