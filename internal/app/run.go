package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/vk/ampbuild/internal/config"
	"github.com/vk/ampbuild/internal/ctxlog"
	"github.com/vk/ampbuild/internal/kconfig"
	"github.com/vk/ampbuild/internal/orchestrator"
	"github.com/vk/ampbuild/internal/watch"
)

// Run executes the configured command. Structured validation failures are
// rendered to the output before the error is returned.
func (a *App) Run(ctx context.Context) (err error) {
	logger := a.logger.With("run_id", uuid.NewString(), "command", a.cfg.Command)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("App.Run method started.")

	defer func() {
		if err != nil {
			a.report.Error(err)
		}
		if a.metrics != nil {
			if werr := a.metrics.WriteFile(a.cfg.MetricsFile); werr != nil {
				logger.Error("Failed to write metrics file.", "path", a.cfg.MetricsFile, "error", werr)
			}
		}
	}()

	if a.cfg.Command == CommandBootCheck {
		p, err := orchestrator.New(nil, a.tool, a.options()).BootCheck(ctx)
		if err != nil {
			return err
		}
		logger.Info("Boot placement check passed.", "window", p.Window.Index)
		return nil
	}

	doc, err := a.loadDocument(ctx)
	if err != nil {
		return err
	}
	if a.cfg.Command == CommandList {
		a.printDocument(doc)
		return nil
	}
	if a.cfg.ConfigName == "" {
		a.printDocument(doc)
		return fmt.Errorf("%w: no configuration selected, set AMP_CONFIG or pass --config", ErrUsage)
	}
	topo, err := doc.Select(a.cfg.ConfigName)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	o := orchestrator.New(topo, a.tool, a.options())
	switch a.cfg.Command {
	case CommandBuild, CommandTest:
		res, err := o.Run(ctx)
		if err != nil {
			return err
		}
		logger.Info("🏁 AMP image ready.", "packed", res.PackedPath, "groups", len(res.Groups))
	case CommandValidate:
		if err := o.Validate(ctx); err != nil {
			return err
		}
		logger.Info("Pre-flight checks passed.")
	case CommandClean:
		return o.Clean(ctx)
	case CommandWatch:
		return a.watch(ctx, topo, o)
	}

	logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) options() orchestrator.Options {
	return orchestrator.Options{
		ProjectDir:       a.projectDir,
		ArtifactPattern:  a.cfg.ArtifactPattern,
		Jobs:             a.cfg.Jobs,
		SkipLoad:         a.cfg.SkipLoad,
		Test:             a.cfg.Command == CommandTest,
		RequireBootCheck: a.cfg.RequireBootCheck,
		Report:           a.report,
		Metrics:          a.metrics,
	}
}

// watch validates once, then again after every change to a unit's
// sdkconfig, until ctx is cancelled. Failures are reported, not returned.
func (a *App) watch(ctx context.Context, topo *config.Topology, o *orchestrator.Orchestrator) error {
	logger := ctxlog.FromContext(ctx)
	validateOnce := func(ctx context.Context) {
		if err := o.Validate(ctx); err != nil {
			logger.Error("Pre-flight checks failed.", "error", err)
			a.report.Error(err)
			return
		}
		logger.Info("Pre-flight checks passed.")
	}

	paths := make([]string, 0, len(topo.Units()))
	for _, u := range topo.Units() {
		paths = append(paths, filepath.Join(u.SourcePath, kconfig.DefaultFileName))
	}

	validateOnce(ctx)
	w := watch.New(paths, watch.DefaultWindow, func(ctx context.Context, changed []string) {
		logger.Info("Re-validating.", "changed", changed)
		validateOnce(ctx)
	})
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-w.Done()
	logger.Info("Watch stopped.")
	return nil
}
