package orchestrator

import (
	"context"
	"fmt"

	"github.com/vk/ampbuild/internal/ctxlog"
	"github.com/vk/ampbuild/internal/validate"
)

// loadConfigs materializes every unit's sdkconfig from its named variant.
func (o *Orchestrator) loadConfigs(ctx context.Context) error {
	for _, u := range o.topo.Units() {
		uctx := ctxlog.With(ctx, "unit", u.Name)
		ctxlog.FromContext(uctx).Info("Loading configuration.", "name", u.ConfigName)
		if err := o.tool.Clean(uctx, u.SourcePath); err != nil {
			return fmt.Errorf("unit %s: %w", u.Name, err)
		}
		if err := o.tool.LoadConfig(uctx, u.SourcePath, u.ConfigName); err != nil {
			return fmt.Errorf("unit %s: %w", u.Name, err)
		}
		o.store.Invalidate(o.sdkconfig(u))
	}
	return nil
}

// preflight checks that every unit describes the same board and that no two
// units claim overlapping memory.
func (o *Orchestrator) preflight(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	units := o.topo.Units()

	named := make([]validate.Named, 0, len(units))
	for _, u := range units {
		snap, err := o.store.Snapshot(o.sdkconfig(u))
		if err != nil {
			return fmt.Errorf("unit %s: %w", u.Name, err)
		}
		named = append(named, validate.Named{Name: u.Name, Snapshot: snap})
	}

	cmp := validate.CompareRequired(named, o.opts.Keys)
	if err := cmp.Err(); err != nil {
		o.failed("consistency")
		return err
	}
	if o.opts.Report != nil {
		o.opts.Report.Comparison(cmp)
	}
	logger.Info("Configuration consistency check passed.", "pairs", len(cmp.Pairs))

	regions := make([]validate.Region, 0, len(named))
	for _, n := range named {
		r, err := validate.RegionFromSnapshot(n.Name, n.Snapshot)
		if err != nil {
			return fmt.Errorf("unit %s: %w", n.Name, err)
		}
		regions = append(regions, r)
	}
	if err := validate.CheckRegions(regions); err != nil {
		o.failed("overlap")
		return err
	}
	if o.opts.Report != nil {
		o.opts.Report.Regions(regions)
		o.opts.Report.Overlaps(nil)
	}
	logger.Info("Memory overlap check passed.", "regions", len(regions))
	return nil
}
