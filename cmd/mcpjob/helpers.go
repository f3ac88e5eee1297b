package main

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseHeaderFlags converts repeated --header "Name: value" flags into a
// header map. "Name=value" is accepted as well.
func parseHeaderFlags(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(values))
	for _, raw := range values {
		name, value, ok := splitPair(raw, ":")
		if !ok {
			name, value, ok = splitPair(raw, "=")
		}
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (expected \"Name: value\")", raw)
		}
		headers[name] = value
	}
	return headers, nil
}

// parseArgFlags converts repeated --arg key=value flags into submit
// arguments. Values that parse as JSON keep their structure; everything
// else is passed through as a string.
func parseArgFlags(values []string) (map[string]any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	args := make(map[string]any, len(values))
	for _, raw := range values {
		key, value, ok := splitPair(raw, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q (expected key=value)", raw)
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			args[key] = decoded
		} else {
			args[key] = value
		}
	}
	return args, nil
}

func splitPair(raw, sep string) (string, string, bool) {
	name, value, ok := strings.Cut(raw, sep)
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(name), strings.TrimSpace(value), true
}

// mergeArgs layers overrides on top of base without mutating either.
func mergeArgs(base, overrides map[string]any) map[string]any {
	if len(base) == 0 && len(overrides) == 0 {
		return nil
	}
	merged := make(map[string]any, len(base)+len(overrides))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range overrides {
		merged[key] = value
	}
	return merged
}
