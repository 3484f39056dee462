package ingest

import (
	"os"
	"strings"

	"ticketsmith/internal/services"
)

// ReadSummaries reads a semicolon-separated list of ticket summaries.
// Line breaks are treated as spaces and empty entries are dropped.
func ReadSummaries(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "summaries", "read "+path, err)
	}
	summaries := ParseSummaries(string(data))
	if len(summaries) == 0 {
		return nil, services.Wrap(services.ErrValidation, "ingest", "summaries", "no ticket descriptions found in "+path, nil)
	}
	return summaries, nil
}

// ParseSummaries splits text on semicolons.
func ParseSummaries(text string) []string {
	normalized := strings.NewReplacer("\r", " ", "\n", " ").Replace(text)
	parts := strings.Split(normalized, ";")
	summaries := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			summaries = append(summaries, trimmed)
		}
	}
	return summaries
}
