package config

import (
	"fmt"
	"sort"
	"strings"
)

// Error is a fatal configuration problem found while building a stream.
// It always names the stream it belongs to; the remaining fields depend
// on what went wrong. Registry construction aborts on the first Error
// rather than skipping the broken entry, so operator mistakes surface
// at startup instead of running with a partial stream set.
type Error struct {
	Stream  string   // stream variant or entry name
	Missing []string // required option keys that were absent
	Found   []string // option keys that were supplied
	EnvVar  string   // required environment variable that was absent
	Reason  string   // free-form description for everything else
}

func (e *Error) Error() string {
	switch {
	case len(e.Missing) > 0:
		return fmt.Sprintf(
			"the following required keys are missing from the configuration options of %s: [%s]; these keys were found: [%s]; check your stream configuration",
			e.Stream, strings.Join(e.Missing, " "), strings.Join(e.Found, " "),
		)
	case e.EnvVar != "":
		return fmt.Sprintf(
			"the environment variable %s required by %s is not set; check your environment",
			e.EnvVar, e.Stream,
		)
	default:
		return fmt.Sprintf("invalid configuration for %s: %s", e.Stream, e.Reason)
	}
}

// NewMissingKeys builds the error for required option keys that were
// not supplied. Both key lists are sorted so the message is stable.
func NewMissingKeys(stream string, missing, found []string) *Error {
	missing = append([]string(nil), missing...)
	found = append([]string(nil), found...)
	sort.Strings(missing)
	sort.Strings(found)
	return &Error{Stream: stream, Missing: missing, Found: found}
}

// NewUnknownVariant builds the error for a stream name that resolves to
// no registered variant.
func NewUnknownVariant(name string) *Error {
	return &Error{
		Stream: name,
		Reason: fmt.Sprintf("%q is not a registered stream variant; check the name key of your stream configuration", name),
	}
}

// NewMissingEnv builds the error for a required credential environment
// variable that is not set. Only the missing variable is named; the
// value of its sibling is never included.
func NewMissingEnv(stream, envVar string) *Error {
	return &Error{Stream: stream, EnvVar: envVar}
}

// NewInvalidOption builds the error for an option that is present but
// malformed.
func NewInvalidOption(stream, reason string) *Error {
	return &Error{Stream: stream, Reason: reason}
}
