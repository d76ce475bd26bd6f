package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/varsync/internal/canon"
)

// marshalOrigins converts originator tags to canonical JSON TEXT.
func marshalOrigins(origins []string) (string, error) {
	if origins == nil {
		origins = []string{}
	}
	data, err := canon.Marshal(origins)
	if err != nil {
		return "", fmt.Errorf("marshal origins: %w", err)
	}
	return string(data), nil
}

// unmarshalOrigins parses stored originator tags. Returns an empty slice,
// never nil.
func unmarshalOrigins(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return []string{}, nil
	}
	var origins []string
	if err := json.Unmarshal([]byte(data), &origins); err != nil {
		return nil, fmt.Errorf("unmarshal origins: %w", err)
	}
	if origins == nil {
		origins = []string{}
	}
	return origins, nil
}
