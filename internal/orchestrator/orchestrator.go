package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/ampbuild/internal/buildtool"
	"github.com/vk/ampbuild/internal/config"
	"github.com/vk/ampbuild/internal/ctxlog"
	"github.com/vk/ampbuild/internal/fsutil"
	"github.com/vk/ampbuild/internal/kconfig"
	"github.com/vk/ampbuild/internal/metrics"
	"github.com/vk/ampbuild/internal/pack"
	"github.com/vk/ampbuild/internal/report"
	"github.com/vk/ampbuild/internal/snapshotstore"
	"github.com/vk/ampbuild/internal/validate"
)

// File names the build tool and the packing steps agree on.
const (
	PackedSourceName = "amp_packed.c"
	BootImageName    = "packed_image"
	SDKConfigHeader  = "sdkconfig.h"
	AvailableHeader  = "available_space.h"
	buildDirName     = "build"
)

// Options tune a run. The zero value builds sequentially with the default
// artifact pattern in the current directory.
type Options struct {
	ProjectDir      string
	ArtifactPattern string
	// Jobs bounds parallel ordinary builds inside one group. Values below 2
	// build sequentially.
	Jobs int
	// SkipLoad skips `make clean` + `make load_kconfig` and validates the
	// sdkconfig files already on disk.
	SkipLoad bool
	// Test adds BUILD_AMP_CORE_TEST=y to the bootstrap build.
	Test bool
	// RequireBootCheck fails the run when available_space.h is missing
	// instead of skipping the placement check.
	RequireBootCheck bool
	// Keys overrides validate.RequiredKeys.
	Keys []string

	Report  *report.Formatter
	Metrics *metrics.Recorder
}

// Orchestrator owns one topology, the tool that builds it and the snapshot
// cache of a run.
type Orchestrator struct {
	topo  *config.Topology
	tool  buildtool.Tool
	opts  Options
	store *snapshotstore.Store
}

// GroupResult is the output of one built group.
type GroupResult struct {
	Index  int
	Master string
	Output []string
}

// Result summarizes a successful Run.
type Result struct {
	Groups     []GroupResult
	PackedPath string
	Segments   []pack.Segment
	// Placement is nil when the boot placement check was skipped.
	Placement *validate.Placement
}

// New creates an orchestrator for topo.
func New(topo *config.Topology, tool buildtool.Tool, opts Options) *Orchestrator {
	if opts.ArtifactPattern == "" {
		opts.ArtifactPattern = fsutil.DefaultArtifactPattern
	}
	if opts.ProjectDir == "" {
		opts.ProjectDir = "."
	}
	if len(opts.Keys) == 0 {
		opts.Keys = validate.RequiredKeys
	}
	return &Orchestrator{topo: topo, tool: tool, opts: opts, store: snapshotstore.New()}
}

// Run executes the full build sequence and stops at the first failure.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	ctx = ctxlog.With(ctx, "config", o.topo.Name)
	logger := ctxlog.FromContext(ctx)
	logger.Info("Build started.", "groups", len(o.topo.Groups), "units", len(o.topo.Units()))

	if err := o.topo.ValidateForBuild(); err != nil {
		o.failed("topology")
		return nil, err
	}
	if !o.opts.SkipLoad {
		if err := o.loadConfigs(ctx); err != nil {
			return nil, err
		}
	}
	if err := o.preflight(ctx); err != nil {
		return nil, err
	}

	first := o.topo.Units()[0]
	bootValues, err := validate.ExtractBootAdaptationValues(o.sdkconfig(first), o.opts.Keys)
	if err != nil {
		return nil, fmt.Errorf("failed to read boot adaptation values: %w", err)
	}

	res := &Result{}
	var outputs []string
	for _, g := range o.buildOrder() {
		gr, err := o.BuildGroup(ctx, g, bootValues)
		if err != nil {
			return nil, err
		}
		res.Groups = append(res.Groups, *gr)
		outputs = append(outputs, gr.Output...)
	}

	res.PackedPath = filepath.Join(o.opts.ProjectDir, pack.DefaultFileName)
	res.Segments, err = o.pack(ctx, outputs, res.PackedPath)
	if err != nil {
		return nil, err
	}

	if err := o.buildBootstrap(ctx, bootValues); err != nil {
		return nil, err
	}

	res.Placement, err = o.checkPlacement(ctx, o.opts.RequireBootCheck)
	if err != nil {
		return nil, err
	}

	logger.Info("Build finished.", "packed", res.PackedPath, "bytes", pack.Size(res.Segments))
	return res, nil
}

// Validate runs the topology and pre-flight checks against the sdkconfig
// files on disk. The build tool is never invoked.
func (o *Orchestrator) Validate(ctx context.Context) error {
	ctx = ctxlog.With(ctx, "config", o.topo.Name)
	if err := o.topo.ValidateForBuild(); err != nil {
		o.failed("topology")
		return err
	}
	o.store = snapshotstore.New()
	return o.preflight(ctx)
}

// Clean runs `make clean` in every unit directory, in declaration order.
func (o *Orchestrator) Clean(ctx context.Context) error {
	if err := o.topo.Validate(); err != nil {
		return err
	}
	for _, u := range o.topo.Units() {
		if err := o.tool.Clean(ctxlog.With(ctx, "unit", u.Name), u.SourcePath); err != nil {
			return fmt.Errorf("unit %s: %w", u.Name, err)
		}
	}
	return nil
}

// BootCheck runs only the boot placement check in the project directory.
// Both headers are required.
func (o *Orchestrator) BootCheck(ctx context.Context) (validate.Placement, error) {
	p, err := o.checkPlacement(ctx, true)
	if err != nil {
		return validate.Placement{}, err
	}
	return *p, nil
}

// buildOrder is groups 1..n followed by group 0.
func (o *Orchestrator) buildOrder() []*config.BuildGroup {
	groups := append([]*config.BuildGroup(nil), o.topo.Groups[1:]...)
	return append(groups, o.topo.Groups[0])
}

func (o *Orchestrator) sdkconfig(u *config.ImageUnit) string {
	return filepath.Join(u.SourcePath, kconfig.DefaultFileName)
}

func (o *Orchestrator) failed(check string) {
	if o.opts.Metrics != nil {
		o.opts.Metrics.ValidationFailed(check)
	}
}
