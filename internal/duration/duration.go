// Package duration parses the compact duration strings used by the drive
// table ("2d3h9s"). Units may appear in any order; unknown units are
// ignored so upstream config mistakes like "1w2d" degrade instead of
// aborting a whole batch.
package duration

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidDuration is returned when no recognized unit matched.
var ErrInvalidDuration = errors.New("invalid duration string")

type unit struct {
	name    string
	seconds int64
}

// Fixed evaluation order keeps log output stable.
var units = []unit{
	{"d", 86400},
	{"h", 3600},
	{"m", 60},
	{"s", 1},
}

var unitPatterns = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(units))
	for _, u := range units {
		m[u.name] = regexp.MustCompile(`(\d+)` + u.name)
	}
	return m
}()

// Parse converts a duration string to total seconds. The first
// occurrence of each unit contributes value*unit seconds. An input with
// no recognized unit at all fails with ErrInvalidDuration; "0s" is a
// valid match and returns 0.
func Parse(s string) (int64, error) {
	var total int64
	matched := false

	for _, u := range units {
		m := unitPatterns[u.name].FindStringSubmatch(s)
		if m == nil {
			continue
		}
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", s, ErrInvalidDuration)
		}
		total += v * u.seconds
		matched = true
	}

	if !matched {
		return 0, fmt.Errorf("no valid time units (d/h/m/s) in %q: %w", s, ErrInvalidDuration)
	}
	return total, nil
}
