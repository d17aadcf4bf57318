// Package cli provides output formatting for the Latent-FS command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/latentfs/internal/models"
)

// OutputFormat selects how command output is rendered.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "text", "":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteClusterView writes the folder view to w in the given format.
func WriteClusterView(w io.Writer, view *models.ClusterResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	writeClusterViewText(w, view)
	return nil
}

func writeClusterViewText(w io.Writer, view *models.ClusterResponse) {
	docs := make(map[string]*models.Document, len(view.Documents))
	for _, d := range view.Documents {
		docs[d.ID] = d
	}
	fmt.Fprintf(w, "\n%d folder(s), %d document(s)\n", len(view.Folders), len(view.Documents))
	for _, f := range view.Folders {
		fmt.Fprintf(w, "\n%s  (%d documents)\n", f.Name, len(f.DocumentIDs))
		fmt.Fprintf(w, "  id: %s\n", f.ID)
		for _, id := range f.DocumentIDs {
			marker := "  "
			if id == f.RepresentativeDocID {
				marker = "* "
			}
			if d, ok := docs[id]; ok {
				fmt.Fprintf(w, "  %s%s  %s\n", marker, id, Truncate(d.Text, 60))
			} else {
				fmt.Fprintf(w, "  %s%s\n", marker, id)
			}
		}
	}
	fmt.Fprintln(w)
}

// WriteDocuments writes the document list to w in the given format.
func WriteDocuments(w io.Writer, resp *models.DocumentResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Fprintf(w, "\n%d document(s)\n\n", resp.Count)
	for _, d := range resp.Documents {
		fmt.Fprintf(w, "%s  [%s]\n  %s\n", d.ID, d.ClusterID, Truncate(d.Text, 100))
	}
	fmt.Fprintln(w)
	return nil
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
