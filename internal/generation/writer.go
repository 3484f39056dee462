package generation

import (
	"fmt"
	"os"
	"path/filepath"

	"ticketsmith/internal/services"
)

// ResponseFileName returns the file name used for the result at position (1-based).
func ResponseFileName(position int) string {
	return fmt.Sprintf("ticket%d.txt", position)
}

// WriteResponses writes each result's raw reply to dir/ticket<N>.txt and
// returns the written paths in order.
func WriteResponses(dir string, results []Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrWrite, "generation", "write responses", "create "+dir, err)
	}
	paths := make([]string, 0, len(results))
	for i, result := range results {
		position := result.Index
		if position <= 0 {
			position = i + 1
		}
		path := filepath.Join(dir, ResponseFileName(position))
		if err := os.WriteFile(path, []byte(result.RawResponse), 0o644); err != nil {
			return paths, services.Wrap(services.ErrWrite, "generation", "write responses", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
