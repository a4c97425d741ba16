// Package config provides stream configuration loading and the
// configuration error type shared by registry construction.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// StreamEntry is one raw stream definition from the configuration file.
// Name selects the stream variant; Options carries variant-specific
// settings keyed case-insensitively.
type StreamEntry struct {
	Name    string         `json:"name"`
	Options map[string]any `json:"options"`
}

// Active reports whether this entry should be built. The ACTIVE option
// defaults to true; inactive entries are skipped entirely, not errors.
func (e StreamEntry) Active() bool {
	for key, value := range e.Options {
		if !strings.EqualFold(key, "active") {
			continue
		}
		if active, ok := value.(bool); ok {
			return active
		}
	}
	return true
}

// File is the top-level shape of the stream configuration file.
type File struct {
	Streams []StreamEntry `json:"streams"`
}

// Load reads the stream definitions from path, preserving file order.
// Order matters: it defines registry construction order and, for
// URL-based variants, topic order within the subscription target.
func Load(path string) ([]StreamEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream configuration %s: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse stream configuration %s: %w", path, err)
	}
	if len(f.Streams) == 0 {
		return nil, fmt.Errorf("stream configuration %s defines no streams", path)
	}

	for i, entry := range f.Streams {
		if entry.Name == "" {
			return nil, fmt.Errorf("stream configuration %s: entry %d has no name", path, i)
		}
	}
	return f.Streams, nil
}
