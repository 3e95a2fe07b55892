package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/ampbuild/internal/config"
)

func writeTopology(t *testing.T, content string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "amp_config.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return dir, path
}

func TestLoader_Load(t *testing.T) {
	t.Setenv("AMP_TEST_BOARD", "e2000q")
	dir, path := writeTopology(t, `
config "config0" {
  group {
    image "bootstrap" {
      path   = "."
      core   = 0
      role   = "bootstrap"
      config = "boot.config"
    }
  }
  group {
    image "apu" {
      path   = "${sdk_dir}/apu_running"
      core   = 1
      role   = "master"
      config = "${env("AMP_TEST_BOARD")}_apu"
    }
    image "rpu" {
      path   = "rpu_running"
      core   = 2
      config = "rpu.config"
    }
    image "spare" {
      path   = "spare"
      config = "spare"
    }
  }
}

config "config1" {
  group {
    image "bootstrap" {
      path   = "."
      core   = 0
      role   = "bootstrap"
      config = "boot"
    }
  }
}
`)

	doc, err := NewLoader().Load(context.Background(), path, config.Variables{SDKDir: "/opt/sdk", ProjectDir: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{"config0", "config1"}, doc.Order)

	topo, err := doc.Select("config0")
	require.NoError(t, err)
	require.Len(t, topo.Groups, 2)

	boot := topo.Groups[0].Units[0]
	assert.Equal(t, config.RoleBootstrap, boot.Role)
	assert.Equal(t, dir, boot.SourcePath)
	assert.Equal(t, "boot", boot.ConfigName)

	g1 := topo.Groups[1]
	assert.Equal(t, 1, g1.Index)
	names := []string{}
	for _, u := range g1.Units {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"apu", "rpu", "spare"}, names, "declaration order is kept")

	apu, ok := g1.Lookup("apu")
	require.True(t, ok)
	assert.Equal(t, "/opt/sdk/apu_running", apu.SourcePath)
	assert.Equal(t, "e2000q_apu", apu.ConfigName)
	assert.Equal(t, config.RoleMaster, apu.Role)
	assert.Equal(t, config.Core(1), apu.Core)

	rpu, _ := g1.Lookup("rpu")
	assert.Equal(t, filepath.Join(dir, "rpu_running"), rpu.SourcePath)
	assert.Equal(t, config.RoleOrdinary, rpu.Role)

	spare, _ := g1.Lookup("spare")
	assert.False(t, spare.Core.Assigned())
}

func TestLoader_InvalidHCLIsRejected(t *testing.T) {
	_, path := writeTopology(t, `
config "config0" {
  group {
    image "a" {
  // Missing closing braces here
`)
	_, err := NewLoader().Load(context.Background(), path, config.Variables{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestLoader_RequiredAttributeMissing(t *testing.T) {
	_, path := writeTopology(t, `
config "config0" {
  group {
    image "a" {
      core = 1
    }
  }
}
`)
	_, err := NewLoader().Load(context.Background(), path, config.Variables{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
}

func TestLoader_BadRoleAndCore(t *testing.T) {
	testCases := []struct {
		name   string
		image  string
		errMsg string
	}{
		{name: "unknown role", image: `path = "a"
      config = "a"
      role = "leader"`, errMsg: "unknown role"},
		{name: "negative core", image: `path = "a"
      config = "a"
      core = -1`, errMsg: "core must not be negative"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, path := writeTopology(t, "config \"c\" {\n  group {\n    image \"a\" {\n      "+tc.image+"\n    }\n  }\n}\n")
			_, err := NewLoader().Load(context.Background(), path, config.Variables{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}
