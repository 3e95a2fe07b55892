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
	"github.com/vk/ampbuild/internal/pack"
	"github.com/vk/ampbuild/internal/validate"
	"golang.org/x/sync/errgroup"
)

// aarch64OnAarch32Line must not survive into a 32-bit configuration.
const aarch64OnAarch32Line = "CONFIG_USE_AARCH64_L1_TO_AARCH32=y"

// BuildGroup builds one group and returns its output artifacts. The
// bootstrap unit is never built here. Group 0 holding only the bootstrap
// yields an empty result.
func (o *Orchestrator) BuildGroup(ctx context.Context, g *config.BuildGroup, bootValues map[string]string) (*GroupResult, error) {
	ctx = ctxlog.With(ctx, "group", g.Index)
	logger := ctxlog.FromContext(ctx)
	res := &GroupResult{Index: g.Index}

	masters := g.Masters()
	if len(masters) > 1 {
		return nil, &config.TopologyError{Config: o.topo.Name, Group: g.Index, Msg: fmt.Sprintf("%d units claim the master role", len(masters))}
	}
	ordinary := g.Ordinary()
	if len(masters) == 0 && len(ordinary) == 0 {
		logger.Debug("Group has nothing to build.")
		return res, nil
	}

	if kconfig.Unquote(bootValues[validate.KeyExecutionState]) == "aarch32" {
		for _, u := range append(append([]*config.ImageUnit(nil), ordinary...), masters...) {
			if err := o.fixupAarch32(ctx, u); err != nil {
				return nil, err
			}
		}
	}

	artifacts, err := o.buildOrdinary(ctx, ordinary)
	if err != nil {
		return nil, err
	}

	if len(masters) == 0 {
		res.Output = artifacts
		logger.Info("Group built.", "artifacts", len(artifacts))
		return res, nil
	}

	master := masters[0]
	res.Master = master.Name
	if _, err := o.pack(ctx, artifacts, filepath.Join(master.SourcePath, pack.DefaultFileName)); err != nil {
		return nil, fmt.Errorf("group %d: %w", g.Index, err)
	}
	if err := preparePackedSource(master.SourcePath); err != nil {
		return nil, fmt.Errorf("unit %s: %w", master.Name, err)
	}
	out, err := o.buildUnit(ctx, master)
	if err != nil {
		return nil, err
	}
	res.Output = out
	logger.Info("Group built.", "master", master.Name, "artifacts", len(out))
	return res, nil
}

// fixupAarch32 strips the aarch64 L1 option and regenerates the derived
// configuration.
func (o *Orchestrator) fixupAarch32(ctx context.Context, u *config.ImageUnit) error {
	ctx = ctxlog.With(ctx, "unit", u.Name)
	path := o.sdkconfig(u)
	removed, err := kconfig.RemoveLine(path, aarch64OnAarch32Line)
	if err != nil {
		return fmt.Errorf("unit %s: %w", u.Name, err)
	}
	ctxlog.FromContext(ctx).Info("Applied aarch32 fixup.", "removed", removed)
	if err := o.tool.RegenerateConfig(ctx, u.SourcePath); err != nil {
		return fmt.Errorf("unit %s: %w", u.Name, err)
	}
	o.store.Invalidate(path)
	return nil
}

// buildOrdinary builds units and returns their artifacts in declaration
// order, regardless of completion order.
func (o *Orchestrator) buildOrdinary(ctx context.Context, units []*config.ImageUnit) ([]string, error) {
	perUnit := make([][]string, len(units))

	if o.opts.Jobs < 2 {
		for i, u := range units {
			out, err := o.buildUnit(ctx, u)
			if err != nil {
				return nil, err
			}
			perUnit[i] = out
		}
	} else {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(o.opts.Jobs)
		for i, u := range units {
			i, u := i, u
			eg.Go(func() error {
				out, err := o.buildUnit(egCtx, u)
				if err != nil {
					return err
				}
				perUnit[i] = out
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	var all []string
	for _, out := range perUnit {
		all = append(all, out...)
	}
	return all, nil
}

// buildUnit runs `make all` for one unit and collects its artifacts.
func (o *Orchestrator) buildUnit(ctx context.Context, u *config.ImageUnit) ([]string, error) {
	ctx = ctxlog.With(ctx, "unit", u.Name)
	err := o.tool.Build(ctx, buildtool.BuildRequest{Dir: u.SourcePath, Core: u.Core})
	if err != nil {
		return nil, fmt.Errorf("unit %s: %w", u.Name, err)
	}
	out, err := fsutil.FindArtifacts(u.SourcePath, o.opts.ArtifactPattern)
	if err != nil {
		return nil, fmt.Errorf("unit %s: %w", u.Name, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("unit %s: no artifacts matching %q in %s", u.Name, o.opts.ArtifactPattern, u.SourcePath)
	}
	o.store.SetArtifacts(u.Name, out)
	ctxlog.FromContext(ctx).Info("Unit built.", "core", u.Core.String(), "artifacts", out)
	return out, nil
}

// pack writes paths into out and records its size.
func (o *Orchestrator) pack(ctx context.Context, paths []string, out string) ([]pack.Segment, error) {
	segments, err := pack.Pack(paths, out)
	if err != nil {
		return nil, err
	}
	size := pack.Size(segments)
	if o.opts.Metrics != nil {
		o.opts.Metrics.ObservePacked(out, size)
	}
	ctxlog.FromContext(ctx).Info("Packed image written.", "path", out, "segments", len(segments), "bytes", size)
	return segments, nil
}

// preparePackedSource recreates <dir>/build holding an empty amp_packed.c,
// which tells the build tool to embed packed.bin.
func preparePackedSource(dir string) error {
	buildDir := filepath.Join(dir, buildDirName)
	if err := fsutil.ResetDir(buildDir); err != nil {
		return err
	}
	return fsutil.Touch(filepath.Join(buildDir, PackedSourceName))
}
