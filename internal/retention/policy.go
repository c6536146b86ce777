// Package retention decides whether a completed recording is kept.
package retention

// Decision is the outcome of evaluating a recording's measured duration.
type Decision int

const (
	// Keep means the recording met the minimum duration and proceeds to upload.
	Keep Decision = iota

	// Discard means the recording is shorter than the minimum and its files
	// must be deleted. This is a normal outcome, not an error.
	Discard

	// Indeterminate means the duration could not be measured at all. The file
	// may be corrupt, but it may also be fine; callers must preserve it
	// rather than risk destroying good data, and log at error level.
	// This is deliberately not the same as Discard.
	Indeterminate
)

// String returns the decision name for logging.
func (d Decision) String() string {
	switch d {
	case Keep:
		return "keep"
	case Discard:
		return "discard"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// Policy holds the minimum duration a recording must reach to be kept.
type Policy struct {
	MinDuration float64 // seconds
}

// Evaluate classifies a measured duration in seconds.
// measured == 0 means the duration could not be determined.
func (p Policy) Evaluate(measured float64) Decision {
	if measured == 0 {
		return Indeterminate
	}
	if measured < p.MinDuration {
		return Discard
	}
	return Keep
}
