package legacyjson

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/ampbuild/internal/config"
)

const ampConfigJSON = `[
  {
    "configs": {
      "config_example": [
        { "bootstrap": ["./", 0, 0, "example.config"] }
      ]
    }
  },
  {
    "configs": {
      "config1": [
        { "bootstrap": ["./", 0, 0, "e2000q_boot.config"] }
      ],
      "config0": [
        { "bootstrap": ["./", 0, 0, "e2000q_boot.config"] },
        { "rpu": ["rpu_running", 2, 0, "rpu.config"],
          "apu": ["apu_running", 1, 1, "apu.config"],
          "spare": ["/abs/spare", -1, 0, "spare.config"] }
      ]
    }
  }
]`

func load(t *testing.T, name, content string) (*config.Document, string, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	doc, err := NewLoader().Load(context.Background(), path, config.Variables{ProjectDir: dir})
	return doc, dir, err
}

func TestLoader_LegacyJSON(t *testing.T) {
	doc, dir, err := load(t, "amp_config.json", ampConfigJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"config0", "config1"}, doc.Order)

	_, err = doc.Select("config_example")
	assert.Error(t, err, "the first array element only documents the format")

	topo, err := doc.Select("config0")
	require.NoError(t, err)
	require.Len(t, topo.Groups, 2)

	boot := topo.Groups[0].Units[0]
	assert.Equal(t, config.RoleBootstrap, boot.Role)
	assert.Equal(t, dir, boot.SourcePath)
	assert.Equal(t, "e2000q_boot", boot.ConfigName)

	units := topo.Groups[1].Units
	require.Len(t, units, 3)
	assert.Equal(t, "rpu", units[0].Name, "object key order is kept")
	assert.Equal(t, "apu", units[1].Name)
	assert.Equal(t, config.RoleMaster, units[1].Role)
	assert.Equal(t, config.Core(1), units[1].Core)
	assert.Equal(t, filepath.Join(dir, "apu_running"), units[1].SourcePath)
	assert.Equal(t, "/abs/spare", units[2].SourcePath)
	assert.False(t, units[2].Core.Assigned())
}

func TestLoader_YAML(t *testing.T) {
	doc, _, err := load(t, "amp_config.yaml", `
configs:
  config0:
    - bootstrap: ["./", 0, 0, "boot.config"]
    - apu: ["apu", 1, 1, "apu.config"]
      rpu: ["rpu", 2, 0, "rpu.config"]
`)
	require.NoError(t, err)
	topo, err := doc.Select("config0")
	require.NoError(t, err)
	require.Len(t, topo.Groups, 2)
	assert.Equal(t, "apu", topo.Groups[1].Units[0].Name)
	assert.NoError(t, topo.ValidateForBuild())
}

func TestLoader_BadUnits(t *testing.T) {
	testCases := []struct {
		name   string
		unit   string
		errMsg string
	}{
		{name: "short tuple", unit: `["a", 1, 0]`, errMsg: "expected [path, core, master, config]"},
		{name: "bad core", unit: `["a", -2, 0, "a.config"]`, errMsg: "core must be -1"},
		{name: "bad master", unit: `["a", 1, 2, "a.config"]`, errMsg: "master must be 0 or 1"},
		{name: "core not a number", unit: `["a", "one", 0, "a.config"]`, errMsg: "core: not an integer"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := load(t, "amp_config.json", `[{"configs": {"c": [{"a": `+tc.unit+`}]}}]`)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}
