package validate

import (
	"errors"
	"fmt"
)

// ErrValidation is the kind shared by every check failure in this package.
var ErrValidation = errors.New("validation failed")

// ConsistencyError reports images that disagree on required keys.
type ConsistencyError struct {
	Comparison Comparison
}

func (e *ConsistencyError) Error() string {
	n := 0
	for _, p := range e.Comparison.Pairs {
		if !p.Matched() {
			n++
		}
	}
	return fmt.Sprintf("parameter comparison failed: %d image pair(s) disagree on required keys", n)
}

func (e *ConsistencyError) Unwrap() error { return ErrValidation }

// OverlapError reports images whose memory ranges intersect.
type OverlapError struct {
	Regions  []Region
	Overlaps []Overlap
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("configuration range overlaps: %d overlapping pair(s)", len(e.Overlaps))
}

func (e *OverlapError) Unwrap() error { return ErrValidation }

// PlacementError reports a boot image outside every available window.
type PlacementError struct {
	Boot    BootRange
	Windows []Window
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("boot load range 0x%x-0x%x is not within any of %d available space window(s)", e.Boot.Start, e.Boot.End, len(e.Windows))
}

func (e *PlacementError) Unwrap() error { return ErrValidation }

// GateError reports a bootstrap configuration that cannot dispatch the
// packed image.
type GateError struct {
	Path string
	Msg  string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("bootstrap gate failed for %s: %s", e.Path, e.Msg)
}

func (e *GateError) Unwrap() error { return ErrValidation }
