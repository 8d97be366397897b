package model

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status is the classification of one record in the report.
//
// Design decision: We use iota-based constants ordered by badness so that
// statuses can be compared directly ("worse than") when runs are diffed.
type Status int

const (
	// StatusMatch means the images match within tolerance.
	StatusMatch Status = iota

	// StatusWarning means there are no failing pixels beyond the limit,
	// but too many warning pixels for a match.
	StatusWarning

	// StatusNoBaseline means neither the primary nor the fallback baseline exists.
	StatusNoBaseline

	// StatusFail means the images differ beyond the failure limit.
	StatusFail

	// StatusError means the comparison itself could not be performed.
	StatusError
)

// statusNames maps statuses to their stable wire names.
var statusNames = map[Status]string{
	StatusMatch:      "match",
	StatusWarning:    "warning",
	StatusNoBaseline: "no_baseline",
	StatusFail:       "fail",
	StatusError:      "error",
}

// AllStatuses lists every status from best to worst.
var AllStatuses = []Status{StatusMatch, StatusWarning, StatusNoBaseline, StatusFail, StatusError}

// String returns the wire name of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Label returns a human-readable label such as "No Baseline".
// A Caser keeps state, so one is built per call.
func (s Status) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(s.String(), "_", " "))
}

// IsFailure reports whether the status should fail a CI run.
func (s Status) IsFailure() bool {
	return s == StatusFail || s == StatusError
}

// ParseStatus converts a wire name back into a Status.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return StatusError, fmt.Errorf("unknown status %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
