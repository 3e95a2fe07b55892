package validate

import (
	"fmt"

	"github.com/vk/ampbuild/internal/kconfig"
)

// Prefixes of the indexed window macros in available_space.h.
const (
	WindowStartPrefix = "AVAILABLE_SPACE_START_"
	WindowEndPrefix   = "AVAILABLE_SPACE_END_"
)

// Window is one board-declared usable address range.
type Window struct {
	Index int
	Start uint64
	End   uint64
}

// BootRange is the span a boot image occupies. End is the address of its
// last byte.
type BootRange struct {
	Start uint64
	End   uint64
}

// IsPlaced returns the first window, in index order, that fully contains
// [bootStart, bootEnd].
func IsPlaced(bootStart, bootEnd uint64, windows []Window) (Window, bool) {
	for _, w := range windows {
		if w.Start <= bootStart && bootEnd <= w.End {
			return w, true
		}
	}
	return Window{}, false
}

// WindowsFromHeader reads AVAILABLE_SPACE_START_n / AVAILABLE_SPACE_END_n
// for n = 0, 1, ... until neither half is defined.
func WindowsFromHeader(s *kconfig.Snapshot) ([]Window, error) {
	var windows []Window
	for i := 0; ; i++ {
		startRaw, hasStart := s.Get(fmt.Sprintf("%s%d", WindowStartPrefix, i))
		endRaw, hasEnd := s.Get(fmt.Sprintf("%s%d", WindowEndPrefix, i))
		if !hasStart && !hasEnd {
			break
		}
		if hasStart != hasEnd {
			return nil, fmt.Errorf("%s: window %d is missing its start or end", s.Path, i)
		}
		start, err := kconfig.ParseUint(startRaw)
		if err != nil {
			return nil, fmt.Errorf("%s: window %d start: %w", s.Path, i, err)
		}
		end, err := kconfig.ParseUint(endRaw)
		if err != nil {
			return nil, fmt.Errorf("%s: window %d end: %w", s.Path, i, err)
		}
		windows = append(windows, Window{Index: i, Start: start, End: end})
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("%s: no %s0 window defined", s.Path, WindowStartPrefix)
	}
	return windows, nil
}

// BootRangeFromHeader reads the boot image span from sdkconfig.h.
func BootRangeFromHeader(s *kconfig.Snapshot) (BootRange, error) {
	get := func(k string) (uint64, error) {
		raw, ok := s.Get(k)
		if !ok {
			return 0, fmt.Errorf("%s: %s is not defined", s.Path, k)
		}
		return kconfig.ParseUint(raw)
	}
	load, err := get(KeyLoadAddress)
	if err != nil {
		return BootRange{}, err
	}
	length, err := get(KeyMaxLength)
	if err != nil {
		return BootRange{}, err
	}
	if length == 0 {
		return BootRange{}, fmt.Errorf("%s: %s is zero", s.Path, KeyMaxLength)
	}
	return BootRange{Start: load, End: load + length - 1}, nil
}

// Placement is a boot range and the window holding it.
type Placement struct {
	Boot   BootRange
	Window Window
}

// CheckPlacement validates the boot image described by sdkconfigHeader
// against the windows in availableHeader.
func CheckPlacement(sdkconfigHeader, availableHeader string) (Placement, error) {
	cfg, err := kconfig.LoadHeader(sdkconfigHeader)
	if err != nil {
		return Placement{}, err
	}
	avail, err := kconfig.LoadHeader(availableHeader)
	if err != nil {
		return Placement{}, err
	}
	boot, err := BootRangeFromHeader(cfg)
	if err != nil {
		return Placement{}, err
	}
	windows, err := WindowsFromHeader(avail)
	if err != nil {
		return Placement{}, err
	}
	w, ok := IsPlaced(boot.Start, boot.End, windows)
	if !ok {
		return Placement{}, &PlacementError{Boot: boot, Windows: windows}
	}
	return Placement{Boot: boot, Window: w}, nil
}
