package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// OverridesFile is a YAML document mapping item ids to operator values:
//
//	1028606: 120000
//	19027209: 4500
//
// The file is re-read on every Load so edits apply on the next catalog
// refresh. A missing file means no overrides.
type OverridesFile struct {
	Path string
}

// Load parses the file. Non-positive values are rejected.
func (f OverridesFile) Load() (map[int64]int64, error) {
	if f.Path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read overrides: %w", err)
	}

	out := map[int64]int64{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("config: parse overrides %s: %w", f.Path, err)
	}
	for id, v := range out {
		if v <= 0 {
			return nil, fmt.Errorf("config: override for item %d must be positive, got %d", id, v)
		}
	}
	return out, nil
}
