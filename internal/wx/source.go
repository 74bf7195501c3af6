package wx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Source produces the current batch of weather alerts for a refresh cycle.
// Implementations live outside this module (provider HTTP clients, fallback
// chains); FileSource below is the in-tree implementation used for replay
// and integration with external fetcher processes.
type Source interface {
	Fetch(ctx context.Context) ([]Alert, error)
}

// FileSource reads a JSON array of alerts from a file on every Fetch.
// An external fetcher process can atomically replace the file to hand a
// fresh batch to the engine without linking against it.
type FileSource struct {
	Path string
}

// NewFileSource creates a source reading alert batches from path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Fetch reads and decodes the alert batch. A missing file is treated as an
// empty batch rather than an error so the engine idles until the fetcher
// writes its first snapshot.
func (fs *FileSource) Fetch(ctx context.Context) ([]Alert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fs.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading alerts file: %w", err)
	}

	var batch []Alert
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("parsing alerts file: %w", err)
	}
	return batch, nil
}
