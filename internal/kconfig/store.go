package kconfig

import (
	"bufio"
	"bytes"
	"os"
	"sort"
	"strings"
)

// DefaultFileName is the per-image configuration file produced by load_kconfig.
const DefaultFileName = "sdkconfig"

// Entry is a single KEY=VALUE assignment as it appeared in the file.
type Entry struct {
	Key   string
	Value string
	Line  int
}

// Snapshot is the parsed content of one configuration file. Entries keep
// their input order, so duplicate keys are preserved.
type Snapshot struct {
	Path    string
	Entries []Entry
}

// Get returns the last assignment of key.
func (s *Snapshot) Get(key string) (string, bool) {
	for i := len(s.Entries) - 1; i >= 0; i-- {
		if s.Entries[i].Key == key {
			return s.Entries[i].Value, true
		}
	}
	return "", false
}

// First returns the first assignment of key. Targeted reads use this.
func (s *Snapshot) First(key string) (string, bool) {
	for _, e := range s.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Map flattens the snapshot, the last assignment of each key wins.
func (s *Snapshot) Map() map[string]string {
	m := make(map[string]string, len(s.Entries))
	for _, e := range s.Entries {
		m[e.Key] = e.Value
	}
	return m
}

// Load parses a KEY=VALUE configuration file. Blank lines, comment lines and
// lines without '=' are skipped.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	return Parse(path, data), nil
}

// Parse is Load without the file system.
func Parse(path string, data []byte) *Snapshot {
	snap := &Snapshot{Path: path}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		snap.Entries = append(snap.Entries, Entry{
			Key:   strings.TrimSpace(key),
			Value: strings.TrimSpace(value),
			Line:  n,
		})
	}
	return snap
}

// Lookup scans path for the given keys and returns the first value found for
// each. Keys that are not present are absent from the result.
func Lookup(path string, keys []string) (map[string]string, error) {
	snap, err := Load(path)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := snap.First(k); ok {
			values[k] = v
		}
	}
	return values, nil
}

// Upsert rewrites path in place. Lines assigning one of the given keys are
// replaced where they stand, keys missing from the file are appended in
// sorted order, every other line is kept verbatim.
func Upsert(path string, values map[string]string) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(values))
	for i, line := range lines {
		for key, value := range values {
			if strings.HasPrefix(line, key+"=") {
				lines[i] = key + "=" + value
				seen[key] = true
				break
			}
		}
	}

	missing := make([]string, 0, len(values))
	for key := range values {
		if !seen[key] {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	for _, key := range missing {
		lines = append(lines, key+"="+values[key])
	}

	return writeLines(path, lines)
}

// RemoveLine deletes every line whose trimmed content equals exactLine and
// reports how many lines were dropped.
func RemoveLine(path, exactLine string) (int, error) {
	lines, err := readLines(path)
	if err != nil {
		return 0, err
	}
	kept := lines[:0]
	removed := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == exactLine {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, writeLines(path, kept)
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	if len(data) == 0 {
		return nil, nil
	}
	text := strings.TrimSuffix(string(data), "\n")
	return strings.Split(text, "\n"), nil
}

func writeLines(path string, lines []string) error {
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, buf.Bytes(), mode); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
