// Package cli formats render views for terminal output.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mkrz/folio/internal/models"
)

// OutputFormat selects how a render view is written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates an --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

// WriteRenderView writes one page view to w in the given format.
func WriteRenderView(w io.Writer, view *models.RenderView, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	default:
		writeRenderViewText(w, view)
		return nil
	}
}

func writeRenderViewText(w io.Writer, view *models.RenderView) {
	fmt.Fprintf(w, "%s\n", view.Title)
	fmt.Fprintf(w, "%s\n\n", view.Author)
	fmt.Fprintf(w, "%s\n\n", view.PageText)
	fmt.Fprintf(w, "page %d/%d • %d%%\n", view.PageNumber, view.TotalPages, view.Percent)
}
