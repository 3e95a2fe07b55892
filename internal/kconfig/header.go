package kconfig

import (
	"os"
	"regexp"
	"strconv"
	"strings"
)

var defineRe = regexp.MustCompile(`^\s*#define\s+(\w+)\s+(.+?)\s*$`)

// LoadHeader parses the #define lines of a generated C header such as
// sdkconfig.h or available_space.h. Surrounding double quotes are stripped
// from values.
func LoadHeader(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	snap := &Snapshot{Path: path}
	for i, line := range strings.Split(string(data), "\n") {
		m := defineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		snap.Entries = append(snap.Entries, Entry{
			Key:   m[1],
			Value: strings.Trim(m[2], `"`),
			Line:  i + 1,
		})
	}
	return snap, nil
}

// ParseUint reads a decimal or 0x-prefixed hexadecimal value.
func ParseUint(raw string) (uint64, error) {
	s := strings.Trim(strings.TrimSpace(raw), `"`)
	s = strings.TrimSuffix(strings.TrimSuffix(s, "U"), "u")
	return strconv.ParseUint(s, 0, 64)
}

// ParseHex reads a hexadecimal value, with or without the 0x prefix.
func ParseHex(raw string) (uint64, error) {
	s := strings.Trim(strings.TrimSpace(raw), `"`)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

// Unquote strips one pair of surrounding double quotes.
func Unquote(raw string) string {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return raw[1 : len(raw)-1]
	}
	return raw
}
