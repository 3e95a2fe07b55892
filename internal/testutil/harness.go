package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// WriteFiles creates every file below root. Names are slash separated
// relative paths; parent directories are created as needed.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// BoardKeys is a consistent set of board description keys shared by every
// image of the demo board.
var BoardKeys = map[string]string{
	"CONFIG_ARCH_NAME":            `"armv8"`,
	"CONFIG_BOARD_NAME":           `"demo"`,
	"CONFIG_ARCH_EXECUTION_STATE": `"aarch64"`,
	"CONFIG_SOC_NAME":             `"e2000"`,
	"CONFIG_TARGET_TYPE_NAME":     `"q"`,
	"CONFIG_SOC_CORE_NUM":         "4",
}

// SDKConfig renders a sdkconfig file from the board keys overlaid with
// extra. A value of "" in extra drops the key. Keys are sorted.
func SDKConfig(extra map[string]string) string {
	merged := make(map[string]string, len(BoardKeys)+len(extra))
	for k, v := range BoardKeys {
		merged[k] = v
	}
	for k, v := range extra {
		if v == "" {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("#\n# Automatically generated file; DO NOT EDIT.\n#\n")
	for _, k := range keys {
		sb.WriteString(k + "=" + merged[k] + "\n")
	}
	return sb.String()
}
