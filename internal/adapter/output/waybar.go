package output

import (
	"encoding/json"
	"io"
	"math"
	"text/template"

	"github.com/jmylchreest/fsclock/internal/config"
)

// waybarOutput is the JSON object read by a waybar custom module with
// "return-type": "json".
type waybarOutput struct {
	Text       string `json:"text"`
	Alt        string `json:"alt"`
	Tooltip    string `json:"tooltip"`
	Class      string `json:"class"`
	Percentage int    `json:"percentage"`
}

// WaybarFormatter formats the status for a waybar custom module. The class
// and alt fields carry the state so the bar can style each one.
type WaybarFormatter struct {
	text    *template.Template
	tooltip *template.Template
}

// NewWaybarFormatter creates a new waybar formatter.
func NewWaybarFormatter(opts FormatterOptions) (*WaybarFormatter, error) {
	text, err := parseTemplate("waybar_text", opts.WaybarText, config.DefaultWaybarText)
	if err != nil {
		return nil, err
	}
	tooltip, err := parseTemplate("waybar_tooltip", opts.WaybarTooltip, config.DefaultWaybarTooltip)
	if err != nil {
		return nil, err
	}
	return &WaybarFormatter{text: text, tooltip: tooltip}, nil
}

// Format writes one line of waybar JSON.
func (f *WaybarFormatter) Format(w io.Writer, v *View) error {
	text, err := execute(f.text, v)
	if err != nil {
		return err
	}
	tooltip, err := execute(f.tooltip, v)
	if err != nil {
		return err
	}

	return json.NewEncoder(w).Encode(waybarOutput{
		Text:       text,
		Alt:        v.State,
		Tooltip:    tooltip,
		Class:      v.State,
		Percentage: int(math.Round(v.FaceAlpha * 100)),
	})
}
