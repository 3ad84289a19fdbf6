// Package cli renders command output for the citetalk CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/server"
	"github.com/ayush1014/CiteTalk-voice-Backend/pkg/utils"
)

// OutputFormat selects how command results are printed.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const (
	rule           = "─────────────────────────────────────────────────────────"
	snippetLength  = 200
	messagePreview = 500
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteChat writes an answer and the sources it was grounded on.
func WriteChat(w io.Writer, resp *server.ChatResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\n%s\n\n", resp.Response)
	fmt.Fprintf(w, "intent: %s | context used: %t | session: %s\n", resp.Intent, resp.ContextUsed, resp.SessionID)
	if !resp.ContextUsed {
		return nil
	}
	fmt.Fprintf(w, "\nSources (%d):\n", len(resp.Sources))
	for i, src := range resp.Sources {
		writeSource(w, i+1, src)
	}
	return nil
}

func writeSource(w io.Writer, rank int, src *models.RetrievedChunk) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "[%d] Similarity: %.4f", rank, src.Similarity)
	if source, ok := src.Metadata[models.MetaSource]; ok {
		fmt.Fprintf(w, " | Source: %v", source)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s\n", utils.Truncate(utils.OneLine(src.Content), snippetLength))
}

// WriteHistory writes the turns of a session, oldest first.
func WriteHistory(w io.Writer, resp *server.HistoryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	if resp.Count == 0 {
		fmt.Fprintf(w, "No conversations for session %s\n", resp.SessionID)
		return nil
	}
	fmt.Fprintf(w, "Session %s (%d turns)\n", resp.SessionID, resp.Count)
	for _, t := range resp.Conversations {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%s [%s]\n", t.CreatedAt.Local().Format("2006-01-02 15:04:05"), t.Intent)
		fmt.Fprintf(w, "you: %s\n", utils.Truncate(t.UserMessage, messagePreview))
		fmt.Fprintf(w, "bot: %s\n", utils.Truncate(t.AssistantMessage, messagePreview))
	}
	return nil
}

// WriteStatus writes store and configuration status.
func WriteStatus(w io.Writer, resp *server.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "Status:  %s\n", resp.Status)
	fmt.Fprintf(w, "Version: %s\n", resp.Version)
	fmt.Fprintf(w, "Chunks:  %d\n", resp.Chunks)
	if resp.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "Disk:    %s\n", FormatBytes(resp.DiskUsageBytes))
	}
	if len(resp.Config) > 0 {
		fmt.Fprintln(w, "\nConfiguration:")
		keys := make([]string, 0, len(resp.Config))
		for k := range resp.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %-22s %v\n", k+":", resp.Config[k])
		}
	}
	return nil
}

// WriteIngest writes the outcome of an ingest run.
func WriteIngest(w io.Writer, resp *server.IngestResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintln(w, resp.Message)
	fmt.Fprintf(w, "Stored %d chunks\n", len(resp.DocumentIDs))
	return nil
}

// FormatBytes renders n using binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
