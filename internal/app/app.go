package app

import (
	"io"
	"log/slog"
	"path/filepath"

	"github.com/gookit/color"
	"github.com/vk/ampbuild/internal/buildtool"
	"github.com/vk/ampbuild/internal/metrics"
	"github.com/vk/ampbuild/internal/report"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	cfg        *Config
	projectDir string
	tool       buildtool.Tool
	metrics    *metrics.Recorder
	report     *report.Formatter
}

// NewApp is the constructor for the main application. A nil tool selects
// the make subprocess runner. Logs, reports and build tool output all go
// to outW.
func NewApp(outW io.Writer, cfg *Config, tool buildtool.Tool) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	projectDir, err := filepath.Abs(cfg.ProjectDir)
	if err != nil {
		projectDir = filepath.Clean(cfg.ProjectDir)
	}

	if tool == nil {
		var env []string
		if cfg.SDKDir != "" {
			env = append(env, "SDK_DIR="+cfg.SDKDir)
		}
		tool = buildtool.NewMake(cfg.MakeBinary, outW, outW, env...)
	}

	var rec *metrics.Recorder
	if cfg.MetricsFile != "" {
		rec = metrics.New()
		tool = rec.WrapTool(tool)
	}

	return &App{
		outW:       outW,
		logger:     logger,
		cfg:        cfg,
		projectDir: projectDir,
		tool:       tool,
		metrics:    rec,
		report:     report.New(outW, !cfg.NoColor && color.SupportColor()),
	}
}
