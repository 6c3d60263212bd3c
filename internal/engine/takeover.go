package engine

import (
	"math"
	"time"
)

const (
	// takeoverThreshold is the distance, in normalized units, at which a pot
	// is considered away from the parameter.
	takeoverThreshold = 3.0 / 128
	// subsequentValueOverride lets fast pot movements pass even when they
	// jumped across the threshold between two messages.
	subsequentValueOverride = 50 * time.Millisecond
)

type softTakeover struct {
	enabled bool
	// tracking is false until a pot position has been seen since the last reset.
	tracking bool
	prev     float64
	time     time.Time
}

func newSoftTakeover() *softTakeover {
	return &softTakeover{}
}

// ignoreNext resets tracking: the next position becomes the reference and is
// accepted as is.
func (s *softTakeover) ignoreNext() {
	s.tracking = false
}

// ignore reports whether next must be dropped given the current parameter.
func (s *softTakeover) ignore(current, next float64, now time.Time) bool {
	if !s.tracking {
		s.tracking = true
		s.prev = next
		s.time = now
		return false
	}

	diff := current - next
	prevDiff := current - s.prev
	ignore := false
	if sameSide(diff, prevDiff) &&
		math.Abs(diff) > takeoverThreshold &&
		math.Abs(prevDiff) > takeoverThreshold &&
		now.Sub(s.time) > subsequentValueOverride {
		ignore = true
	}
	if !ignore {
		s.time = now
	}
	s.prev = next
	return ignore
}

func sameSide(a, b float64) bool {
	return (a < 0 && b < 0) || (a > 0 && b > 0)
}
