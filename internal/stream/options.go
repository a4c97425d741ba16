package stream

import (
	"strings"

	"alertstreams/internal/config"
)

// Options is the validated option set for one stream instance, keyed by
// canonical lowercase option name.
type Options map[string]any

// buildOptions validates a raw option map against a variant's allowed
// and required key sets. Every required key must be present (keys match
// case-insensitively); missing keys are a single fatal error listing
// both the missing and the supplied keys. Keys outside the allowed set
// are silently ignored so configurations can carry forward-compatible
// extras; allowed keys are copied under their lowercase names.
func buildOptions(variant string, raw map[string]any, allowed, required []string) (Options, error) {
	supplied := make(map[string]bool, len(raw))
	for key := range raw {
		supplied[strings.ToLower(key)] = true
	}

	var missing []string
	for _, key := range required {
		if !supplied[strings.ToLower(key)] {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		found := make([]string, 0, len(raw))
		for key := range raw {
			found = append(found, key)
		}
		return nil, config.NewMissingKeys(variant, missing, found)
	}

	allowedSet := make(map[string]bool, len(allowed))
	for _, key := range allowed {
		allowedSet[strings.ToLower(key)] = true
	}

	opts := make(Options, len(raw))
	for key, value := range raw {
		folded := strings.ToLower(key)
		if allowedSet[folded] {
			opts[folded] = value
		}
	}
	return opts, nil
}

// String returns the named option as a string.
func (o Options) String(key string) (string, bool) {
	value, ok := o[key].(string)
	return value, ok
}

// Strings returns the named option as a string list. JSON decoding
// yields []any, so both representations are accepted; element order is
// preserved exactly as configured.
func (o Options) Strings(key string) ([]string, bool) {
	switch value := o[key].(type) {
	case []string:
		return value, true
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
