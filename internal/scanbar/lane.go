package scanbar

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrUnresolvedLane is returned when a lane cannot be derived from its source.
var ErrUnresolvedLane = errors.New("cannot resolve lane")

// _laneRE matches the lane suffix of a device name, e.g. "3" in "TFRT_CPU_3".
var _laneRE = regexp.MustCompile(`\d+$`)

// Source identifies the lane an event came from.
type Source interface {
	// Resolve returns the lane id.
	Resolve() (int, error)
}

// Lane is a typed lane id.
type Lane int

// Resolve implements Source.
func (l Lane) Resolve() (int, error) { return int(l), nil }

// Device is an execution-context name whose trailing digits are the lane id.
type Device string

// Resolve implements Source.
func (d Device) Resolve() (int, error) { return ParseLane(string(d)) }

// ParseLane extracts the trailing decimal lane id from name.
func ParseLane(name string) (int, error) {
	m := _laneRE.FindString(name)
	if m == "" {
		return 0, fmt.Errorf("%w: no trailing digits in %q", ErrUnresolvedLane, name)
	}
	lane, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrUnresolvedLane, name, err)
	}
	return lane, nil
}
