package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/ampbuild/internal/buildtool"
	"github.com/vk/ampbuild/internal/config"
	"github.com/vk/ampbuild/internal/ctxlog"
	"github.com/vk/ampbuild/internal/kconfig"
	"github.com/vk/ampbuild/internal/report"
	"github.com/vk/ampbuild/internal/testutil"
	"github.com/vk/ampbuild/internal/validate"
)

const aarch32Line = "CONFIG_USE_AARCH64_L1_TO_AARCH32"

// fixture is a project directory with a bootstrap in the project root and
// a master/slave pair in group 1.
type fixture struct {
	project string
	topo    *config.Topology
	tool    *testutil.FakeTool
	logs    *testutil.SafeBuffer
}

func region(load, length string, extra map[string]string) map[string]string {
	m := map[string]string{
		validate.KeyLoadAddress: load,
		validate.KeyMaxLength:   length,
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	project := filepath.Join(t.TempDir(), "project")
	for _, d := range []string{"apu_running", "rpu_running"} {
		require.NoError(t, os.MkdirAll(filepath.Join(project, d), 0o755))
	}

	unit := func(name string, core config.CoreID, role config.Role, cfg string) *config.ImageUnit {
		dir := project
		if role != config.RoleBootstrap {
			dir = filepath.Join(project, name)
		}
		return &config.ImageUnit{Name: name, SourcePath: dir, Core: core, Role: role, ConfigName: cfg}
	}

	return &fixture{
		project: project,
		topo: &config.Topology{Name: "config0", Groups: []*config.BuildGroup{
			{Index: 0, Units: []*config.ImageUnit{unit("bootstrap", config.Core(0), config.RoleBootstrap, "boot")}},
			{Index: 1, Units: []*config.ImageUnit{
				unit("apu_running", config.Core(1), config.RoleMaster, "apu"),
				unit("rpu_running", config.Core(2), config.RoleOrdinary, "rpu"),
			}},
		}},
		tool: &testutil.FakeTool{Configs: map[string]string{
			"boot": testutil.SDKConfig(region("0x80000000", "0x100000", map[string]string{
				validate.KeyUseMSDF:    "y",
				validate.KeyMSDFCoreID: "0",
			})),
			"apu": testutil.SDKConfig(region("0x80100000", "0x1000000", nil)),
			"rpu": testutil.SDKConfig(region("0x90000000", "0x1000000", nil)),
		}},
		logs: &testutil.SafeBuffer{},
	}
}

func (f *fixture) ctx() context.Context {
	logger := slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger)
}

func (f *fixture) run(t *testing.T, opts Options) (*Result, error) {
	t.Helper()
	opts.ProjectDir = f.project
	return New(f.topo, f.tool, opts).Run(f.ctx())
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRun_MasterSlaveBootstrap(t *testing.T) {
	f := newFixture(t)
	res, err := f.run(t, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"project: clean",
		"project: load_kconfig LOAD_CONFIG_NAME=boot",
		"apu_running: clean",
		"apu_running: load_kconfig LOAD_CONFIG_NAME=apu",
		"rpu_running: clean",
		"rpu_running: load_kconfig LOAD_CONFIG_NAME=rpu",
		"rpu_running: all -j BUILD_IMAGE_CORE_NUM=2 BUILD_AMP_CORE=y",
		"apu_running: all -j BUILD_IMAGE_CORE_NUM=1 BUILD_AMP_CORE=y",
		"project: all -j BUILD_IMAGE_CORE_NUM=0 BUILD_AMP_CORE=y IMAGE_OUT_NAME=packed_image",
	}, f.tool.Commands())

	apu := filepath.Join(f.project, "apu_running")
	assert.Equal(t, "elf:rpu_running:2", readFile(t, filepath.Join(apu, "packed.bin")))
	assert.FileExists(t, filepath.Join(apu, "build", PackedSourceName))
	assert.Equal(t, "elf:apu_running:1", readFile(t, filepath.Join(f.project, "packed.bin")))
	assert.FileExists(t, filepath.Join(f.project, "build", PackedSourceName))
	assert.FileExists(t, filepath.Join(f.project, BootImageName+".elf"))

	require.Len(t, res.Groups, 2)
	assert.Equal(t, 1, res.Groups[0].Index)
	assert.Equal(t, "apu_running", res.Groups[0].Master)
	assert.Equal(t, []string{filepath.Join(apu, "apu_running.elf")}, res.Groups[0].Output)
	assert.Equal(t, 0, res.Groups[1].Index)
	assert.Empty(t, res.Groups[1].Output)
	assert.Equal(t, filepath.Join(f.project, "packed.bin"), res.PackedPath)
	assert.Nil(t, res.Placement, "no available_space.h, check skipped")

	assert.Contains(t, f.logs.String(), "unit=rpu_running")
	assert.Contains(t, f.logs.String(), "config=config0")
}

func TestRun_TestBuild(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, Options{Test: true, SkipLoad: true})
	require.Error(t, err, "nothing loaded the configurations")

	f = newFixture(t)
	_, err = f.run(t, Options{Test: true})
	require.NoError(t, err)
	cmds := f.tool.Commands()
	assert.Equal(t, "project: all -j BUILD_IMAGE_CORE_NUM=0 BUILD_AMP_CORE=y IMAGE_OUT_NAME=packed_image BUILD_AMP_CORE_TEST=y", cmds[len(cmds)-1])
}

func TestRun_Aarch32Fixup(t *testing.T) {
	f := newFixture(t)
	for name, content := range f.tool.Configs {
		content = strings.ReplaceAll(content, `"aarch64"`, `"aarch32"`)
		f.tool.Configs[name] = content + aarch32Line + "=y\n"
	}

	_, err := f.run(t, Options{})
	require.NoError(t, err)

	cmds := f.tool.Commands()
	assert.Equal(t, []string{
		"rpu_running: gen_kconfig",
		"apu_running: gen_kconfig",
		"rpu_running: all -j BUILD_IMAGE_CORE_NUM=2 BUILD_AMP_CORE=y",
		"apu_running: all -j BUILD_IMAGE_CORE_NUM=1 BUILD_AMP_CORE=y",
	}, cmds[6:10])

	for _, d := range []string{"apu_running", "rpu_running"} {
		assert.NotContains(t, readFile(t, filepath.Join(f.project, d, kconfig.DefaultFileName)), aarch32Line+"=y")
	}
	assert.Contains(t, readFile(t, filepath.Join(f.project, kconfig.DefaultFileName)), aarch32Line+"=y",
		"the bootstrap configuration is left alone")
}

func TestRun_BootstrapGate(t *testing.T) {
	f := newFixture(t)
	f.tool.Configs["boot"] = strings.Replace(f.tool.Configs["boot"], validate.KeyMSDFCoreID+"=0", validate.KeyMSDFCoreID+"=1", 1)

	_, err := f.run(t, Options{})
	var gateErr *validate.GateError
	require.True(t, errors.As(err, &gateErr))
	assert.ErrorIs(t, err, validate.ErrValidation)

	assert.FileExists(t, filepath.Join(f.project, "packed.bin"), "the top level pack precedes the gate")
	for _, c := range f.tool.Commands() {
		assert.NotContains(t, c, "IMAGE_OUT_NAME", "the bootstrap image must not be built")
	}
}

func TestRun_ToolExitCodeStopsTheRun(t *testing.T) {
	f := newFixture(t)
	f.tool.FailOn = func(dir string, args []string) int {
		if filepath.Base(dir) == "rpu_running" && args[0] == "all" {
			return 2
		}
		return 0
	}

	_, err := f.run(t, Options{})
	var toolErr *buildtool.ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, 2, toolErr.Code)
	assert.Contains(t, err.Error(), "unit rpu_running")

	cmds := f.tool.Commands()
	assert.Equal(t, "rpu_running: all -j BUILD_IMAGE_CORE_NUM=2 BUILD_AMP_CORE=y", cmds[len(cmds)-1])
	assert.NoFileExists(t, filepath.Join(f.project, "apu_running", "packed.bin"))
}

func TestRun_PreflightFailuresBuildNothing(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(cfgs map[string]string)
		check  func(t *testing.T, err error)
	}{
		{
			name: "inconsistent board",
			mutate: func(cfgs map[string]string) {
				cfgs["rpu"] = strings.Replace(cfgs["rpu"], `"e2000"`, `"d2000"`, 1)
			},
			check: func(t *testing.T, err error) {
				var ce *validate.ConsistencyError
				require.True(t, errors.As(err, &ce))
				var keys []string
				for _, p := range ce.Comparison.Pairs {
					for _, m := range p.Mismatches {
						keys = append(keys, p.Left+"/"+p.Right+"/"+m.Key)
					}
				}
				assert.Equal(t, []string{
					"bootstrap/rpu_running/" + validate.KeySocName,
					"apu_running/rpu_running/" + validate.KeySocName,
				}, keys)
			},
		},
		{
			name: "overlapping images",
			mutate: func(cfgs map[string]string) {
				cfgs["rpu"] = strings.Replace(cfgs["rpu"], "0x90000000", "0x80f00000", 1)
			},
			check: func(t *testing.T, err error) {
				var oe *validate.OverlapError
				require.True(t, errors.As(err, &oe))
				require.Len(t, oe.Overlaps, 1)
				assert.Equal(t, "apu_running", oe.Overlaps[0].A.Image)
				assert.Equal(t, "rpu_running", oe.Overlaps[0].B.Image)
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			tc.mutate(f.tool.Configs)
			_, err := f.run(t, Options{})
			require.Error(t, err)
			tc.check(t, err)
			for _, c := range f.tool.Commands() {
				assert.NotContains(t, c, " all ", "no build may start after a failed pre-flight check")
			}
		})
	}
}

func TestRun_InvalidTopologyRunsNoTool(t *testing.T) {
	f := newFixture(t)
	f.topo.Groups[1].Units[1].Role = config.RoleMaster

	_, err := f.run(t, Options{})
	assert.ErrorIs(t, err, config.ErrInvalidTopology)
	assert.Empty(t, f.tool.Calls())
}

func TestRun_ParallelOrdinaryBuilds(t *testing.T) {
	f := newFixture(t)
	var slaves []*config.ImageUnit
	for i, name := range []string{"s1", "s2", "s3"} {
		require.NoError(t, os.MkdirAll(filepath.Join(f.project, name), 0o755))
		slaves = append(slaves, &config.ImageUnit{
			Name: name, SourcePath: filepath.Join(f.project, name),
			Core: config.Core(3 + i), ConfigName: name,
		})
		f.tool.Configs[name] = testutil.SDKConfig(region("0x"+string(rune('a'+i))+"0000000", "0x1000000", nil))
	}
	g := f.topo.Groups[1]
	g.Units = []*config.ImageUnit{g.Units[0], slaves[0], slaves[1], slaves[2]}
	f.tool.Delay = 50 * time.Millisecond

	_, err := f.run(t, Options{Jobs: 3})
	require.NoError(t, err)

	assert.Equal(t, "elf:s1:3elf:s2:4elf:s3:5",
		readFile(t, filepath.Join(f.project, "apu_running", "packed.bin")),
		"artifacts keep declaration order")

	var ordinary []testutil.Invocation
	var master testutil.Invocation
	for _, c := range f.tool.Calls() {
		if c.Args[0] != "all" {
			continue
		}
		switch filepath.Base(c.Dir) {
		case "s1", "s2", "s3":
			ordinary = append(ordinary, c)
		case "apu_running":
			master = c
		}
	}
	require.Len(t, ordinary, 3)
	latestStart, earliestEnd := ordinary[0].Start, ordinary[0].End
	for _, c := range ordinary {
		if c.Start.After(latestStart) {
			latestStart = c.Start
		}
		if c.End.Before(earliestEnd) {
			earliestEnd = c.End
		}
		assert.False(t, master.Start.Before(c.End), "the master builds after every ordinary unit")
	}
	assert.True(t, latestStart.Before(earliestEnd), "ordinary builds ran concurrently")
}

func TestRun_GroupZeroExtrasBuildLast(t *testing.T) {
	f := newFixture(t)
	extra := filepath.Join(f.project, "extra")
	require.NoError(t, os.MkdirAll(extra, 0o755))
	f.topo.Groups[0].Units = append(f.topo.Groups[0].Units, &config.ImageUnit{
		Name: "extra", SourcePath: extra, Core: config.Core(3), ConfigName: "extra",
	})
	f.tool.Configs["extra"] = testutil.SDKConfig(region("0xa0000000", "0x1000", nil))

	res, err := f.run(t, Options{})
	require.NoError(t, err)

	require.Len(t, res.Groups, 2)
	assert.Equal(t, 0, res.Groups[1].Index)
	assert.Equal(t, "elf:apu_running:1elf:extra:3", readFile(t, res.PackedPath))
	require.Len(t, res.Segments, 2)
	assert.Equal(t, int64(len("elf:apu_running:1")), res.Segments[1].Offset)
}

func TestRun_SeedsProjectConfig(t *testing.T) {
	f := newFixture(t)
	boot := f.topo.Groups[0].Units[0]
	boot.SourcePath = filepath.Join(f.project, "boot")
	require.NoError(t, os.MkdirAll(boot.SourcePath, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.project, kconfig.DefaultFileName),
		[]byte("CONFIG_SOC_NAME=\"old\"\nCONFIG_OTHER=y\n"), 0o644))

	_, err := f.run(t, Options{})
	require.NoError(t, err)

	got := readFile(t, filepath.Join(f.project, kconfig.DefaultFileName))
	assert.True(t, strings.HasPrefix(got, "CONFIG_SOC_NAME=\"e2000\"\nCONFIG_OTHER=y\n"), got)
	assert.Contains(t, got, "CONFIG_BOARD_NAME=\"demo\"\n")
}

func TestRun_BootPlacement(t *testing.T) {
	writeHeaders := func(t *testing.T, project, length string) {
		testutil.WriteFiles(t, project, map[string]string{
			SDKConfigHeader: "#define CONFIG_IMAGE_LOAD_ADDRESS 0x80000000\n#define CONFIG_IMAGE_MAX_LENGTH " + length + "\n",
			AvailableHeader: "#define AVAILABLE_SPACE_START_0 0x80000000\n#define AVAILABLE_SPACE_END_0 0x800fffff\n",
		})
	}

	t.Run("fits", func(t *testing.T) {
		f := newFixture(t)
		writeHeaders(t, f.project, "0x100000")
		var out bytes.Buffer
		res, err := f.run(t, Options{Report: report.New(&out, false)})
		require.NoError(t, err)
		require.NotNil(t, res.Placement)
		assert.Equal(t, uint64(0x800fffff), res.Placement.Boot.End)
		assert.Contains(t, out.String(), "All parameters match")
		assert.Contains(t, out.String(), "No overlapping regions found")
		assert.Contains(t, out.String(), "fits available space 0")
	})

	t.Run("too large", func(t *testing.T) {
		f := newFixture(t)
		writeHeaders(t, f.project, "0x100001")
		_, err := f.run(t, Options{})
		var pe *validate.PlacementError
		require.True(t, errors.As(err, &pe))
	})

	t.Run("required but missing", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.run(t, Options{RequireBootCheck: true})
		var re *kconfig.ReadError
		require.True(t, errors.As(err, &re))
	})
}

func TestValidate_UsesFilesOnDisk(t *testing.T) {
	f := newFixture(t)
	testutil.WriteFiles(t, f.project, map[string]string{
		kconfig.DefaultFileName:                 f.tool.Configs["boot"],
		"apu_running/" + kconfig.DefaultFileName: f.tool.Configs["apu"],
		"rpu_running/" + kconfig.DefaultFileName: f.tool.Configs["rpu"],
	})
	o := New(f.topo, f.tool, Options{ProjectDir: f.project})
	require.NoError(t, o.Validate(f.ctx()))
	assert.Empty(t, f.tool.Calls())

	testutil.WriteFiles(t, f.project, map[string]string{
		"rpu_running/" + kconfig.DefaultFileName: strings.Replace(f.tool.Configs["rpu"], validate.KeySocCoreNum+"=4", validate.KeySocCoreNum+"=2", 1),
	})
	assert.ErrorIs(t, o.Validate(f.ctx()), validate.ErrValidation, "every call re-reads the files")
}

func TestClean(t *testing.T) {
	f := newFixture(t)
	o := New(f.topo, f.tool, Options{ProjectDir: f.project})
	require.NoError(t, o.Clean(f.ctx()))
	assert.Equal(t, []string{"project: clean", "apu_running: clean", "rpu_running: clean"}, f.tool.Commands())
}

func TestBootCheck(t *testing.T) {
	f := newFixture(t)
	testutil.WriteFiles(t, f.project, map[string]string{
		SDKConfigHeader: "#define CONFIG_IMAGE_LOAD_ADDRESS 0x90000000\n#define CONFIG_IMAGE_MAX_LENGTH 0x1000\n",
		AvailableHeader: "#define AVAILABLE_SPACE_START_0 0x80000000\n#define AVAILABLE_SPACE_END_0 0x800fffff\n" +
			"#define AVAILABLE_SPACE_START_1 0x90000000\n#define AVAILABLE_SPACE_END_1 0x9fffffff\n",
	})
	p, err := New(f.topo, f.tool, Options{ProjectDir: f.project}).BootCheck(f.ctx())
	require.NoError(t, err)
	assert.Equal(t, 1, p.Window.Index)
	assert.Empty(t, f.tool.Calls())
}
