package validate

import "github.com/vk/ampbuild/internal/kconfig"

// Keys that describe the physical board and must agree across every image
// of one validation set.
const (
	KeyArchName       = "CONFIG_ARCH_NAME"
	KeyBoardName      = "CONFIG_BOARD_NAME"
	KeyExecutionState = "CONFIG_ARCH_EXECUTION_STATE"
	KeySocName        = "CONFIG_SOC_NAME"
	KeyTargetTypeName = "CONFIG_TARGET_TYPE_NAME"
	KeySocCoreNum     = "CONFIG_SOC_CORE_NUM"
)

// RequiredKeys is the default consistency key set.
var RequiredKeys = []string{
	KeyArchName,
	KeyBoardName,
	KeyExecutionState,
	KeySocName,
	KeyTargetTypeName,
	KeySocCoreNum,
}

// Named pairs an image name with its loaded configuration.
type Named struct {
	Name     string
	Snapshot *kconfig.Snapshot
}

// Value is a raw configuration value that may be absent.
type Value struct {
	Raw     string
	Present bool
}

func (v Value) String() string {
	if !v.Present {
		return "<missing>"
	}
	return v.Raw
}

// Mismatch is one key on which two images disagree.
type Mismatch struct {
	Key   string
	Left  Value
	Right Value
}

// PairResult is the comparison of one unordered image pair. An empty
// Mismatches slice means the pair matched.
type PairResult struct {
	Left       string
	Right      string
	Mismatches []Mismatch
}

// Matched reports whether the pair agrees on every key.
func (p PairResult) Matched() bool { return len(p.Mismatches) == 0 }

// Comparison is the outcome of CompareRequired.
type Comparison struct {
	Keys     []string
	Pairs    []PairResult
	AllMatch bool
}

// Err returns a ConsistencyError when any pair disagreed.
func (c Comparison) Err() error {
	if c.AllMatch {
		return nil
	}
	return &ConsistencyError{Comparison: c}
}

// CompareRequired compares every unordered pair of images on the given
// keys. A key missing on one side is a mismatch against the other side's
// value; missing on both sides is a match.
func CompareRequired(images []Named, keys []string) Comparison {
	c := Comparison{Keys: keys, AllMatch: true}
	for i := 0; i < len(images); i++ {
		for j := i + 1; j < len(images); j++ {
			a, b := images[i], images[j]
			pair := PairResult{Left: a.Name, Right: b.Name}
			for _, k := range keys {
				left := lookup(a.Snapshot, k)
				right := lookup(b.Snapshot, k)
				if left != right {
					pair.Mismatches = append(pair.Mismatches, Mismatch{Key: k, Left: left, Right: right})
				}
			}
			if !pair.Matched() {
				c.AllMatch = false
			}
			c.Pairs = append(c.Pairs, pair)
		}
	}
	return c
}

// ExtractBootAdaptationValues reads the raw values of keys from one
// configuration file. They seed the bootstrap build.
func ExtractBootAdaptationValues(path string, keys []string) (map[string]string, error) {
	return kconfig.Lookup(path, keys)
}

func lookup(s *kconfig.Snapshot, key string) Value {
	if s == nil {
		return Value{}
	}
	raw, ok := s.First(key)
	return Value{Raw: raw, Present: ok}
}
