package validate

import (
	"fmt"

	"github.com/vk/ampbuild/internal/kconfig"
)

// Keys locating an image in memory.
const (
	KeyLoadAddress = "CONFIG_IMAGE_LOAD_ADDRESS"
	KeyMaxLength   = "CONFIG_IMAGE_MAX_LENGTH"
)

// Region is the memory an image may occupy, [Load, Load+Length).
type Region struct {
	Image  string
	Name   string
	Load   uint64
	Length uint64
}

// End is the first address past the region.
func (r Region) End() uint64 { return r.Load + r.Length }

// Overlap is a pair of regions sharing at least one address.
type Overlap struct {
	A Region
	B Region
}

// Overlaps reports whether two half-open regions intersect. Regions that
// only touch at a boundary do not overlap.
func Overlaps(a, b Region) bool {
	return !(a.End() <= b.Load || b.End() <= a.Load)
}

// CheckAll returns every overlapping pair, in scan order.
func CheckAll(regions []Region) []Overlap {
	var out []Overlap
	for i := 0; i < len(regions); i++ {
		for j := i + 1; j < len(regions); j++ {
			if Overlaps(regions[i], regions[j]) {
				out = append(out, Overlap{A: regions[i], B: regions[j]})
			}
		}
	}
	return out
}

// CheckRegions runs CheckAll and wraps a non-empty result in an OverlapError.
func CheckRegions(regions []Region) error {
	if overlaps := CheckAll(regions); len(overlaps) > 0 {
		return &OverlapError{Regions: regions, Overlaps: overlaps}
	}
	return nil
}

// RegionName composes the board label of a configuration:
// SOC + TARGET + "_" + EXECUTION_STATE + "_" + BOARD. The target type is
// left out when absent.
func RegionName(s *kconfig.Snapshot) string {
	get := func(k string) string {
		v, _ := s.Get(k)
		return kconfig.Unquote(v)
	}
	name := get(KeySocName)
	if target, ok := s.Get(KeyTargetTypeName); ok {
		name += kconfig.Unquote(target)
	}
	return name + "_" + get(KeyExecutionState) + "_" + get(KeyBoardName)
}

// RegionFromSnapshot derives an image's memory region from its
// configuration. Both values are hexadecimal.
func RegionFromSnapshot(image string, s *kconfig.Snapshot) (Region, error) {
	load, err := hexValue(s, KeyLoadAddress)
	if err != nil {
		return Region{}, err
	}
	length, err := hexValue(s, KeyMaxLength)
	if err != nil {
		return Region{}, err
	}
	return Region{Image: image, Name: RegionName(s), Load: load, Length: length}, nil
}

func hexValue(s *kconfig.Snapshot, key string) (uint64, error) {
	raw, ok := s.First(key)
	if !ok {
		return 0, fmt.Errorf("%s: %s is not set", s.Path, key)
	}
	v, err := kconfig.ParseHex(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %s=%s is not a hexadecimal value: %w", s.Path, key, raw, err)
	}
	return v, nil
}
