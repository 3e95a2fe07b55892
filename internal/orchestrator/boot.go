package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vk/ampbuild/internal/buildtool"
	"github.com/vk/ampbuild/internal/ctxlog"
	"github.com/vk/ampbuild/internal/kconfig"
	"github.com/vk/ampbuild/internal/validate"
)

// buildBootstrap gates and builds the final image in the project directory.
func (o *Orchestrator) buildBootstrap(ctx context.Context, bootValues map[string]string) error {
	boot, _ := o.topo.Bootstrap()
	ctx = ctxlog.With(ctx, "unit", boot.Name)
	logger := ctxlog.FromContext(ctx)
	core, _ := boot.Core.Get()

	snap, err := o.store.Snapshot(o.sdkconfig(boot))
	if err != nil {
		return fmt.Errorf("unit %s: %w", boot.Name, err)
	}
	if err := validate.CheckBootstrapGate(snap, core); err != nil {
		o.failed("bootstrap_gate")
		return err
	}

	projectConfig := filepath.Join(o.opts.ProjectDir, kconfig.DefaultFileName)
	if _, err := os.Stat(projectConfig); err == nil {
		if err := kconfig.Upsert(projectConfig, bootValues); err != nil {
			return err
		}
		o.store.Invalidate(projectConfig)
		logger.Debug("Seeded project configuration.", "path", projectConfig, "keys", len(bootValues))
	}

	if err := preparePackedSource(o.opts.ProjectDir); err != nil {
		return fmt.Errorf("project: %w", err)
	}
	err = o.tool.Build(ctx, buildtool.BuildRequest{
		Dir:          o.opts.ProjectDir,
		Core:         boot.Core,
		ImageOutName: BootImageName,
		Test:         o.opts.Test,
	})
	if err != nil {
		return fmt.Errorf("unit %s: %w", boot.Name, err)
	}
	logger.Info("Bootstrap image built.", "core", core, "test", o.opts.Test)
	return nil
}

// checkPlacement validates the boot image against the board windows. A
// missing available_space.h skips the check unless required. A nil result
// means the check was skipped.
func (o *Orchestrator) checkPlacement(ctx context.Context, required bool) (*validate.Placement, error) {
	logger := ctxlog.FromContext(ctx)
	avail := filepath.Join(o.opts.ProjectDir, AvailableHeader)
	if _, err := os.Stat(avail); errors.Is(err, fs.ErrNotExist) && !required {
		logger.Info("Boot placement check skipped.", "missing", avail)
		return nil, nil
	}

	header := filepath.Join(o.opts.ProjectDir, SDKConfigHeader)
	p, err := validate.CheckPlacement(header, avail)
	if err != nil {
		var pe *validate.PlacementError
		if errors.As(err, &pe) {
			o.failed("placement")
		}
		return nil, err
	}
	if o.opts.Report != nil {
		o.opts.Report.Placement(p)
	}
	logger.Info("Boot placement check passed.", "window", p.Window.Index)
	return &p, nil
}
