package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/guardgen/internal/ir"
)

// marshalOptions converts compile options to canonical JSON TEXT for storage.
func marshalOptions(opts map[string]any) (string, error) {
	if opts == nil {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(opts)
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}
	return string(data), nil
}

// unmarshalOptions parses stored options TEXT.
func unmarshalOptions(data string) (map[string]any, error) {
	opts := map[string]any{}
	if data == "" || data == "{}" {
		return opts, nil
	}
	if err := json.Unmarshal([]byte(data), &opts); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	return opts, nil
}
