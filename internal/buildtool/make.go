package buildtool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/vk/ampbuild/internal/ctxlog"
)

// DefaultBinary is the build tool executable looked up in PATH.
const DefaultBinary = "make"

// Make runs the build tool as a subprocess. Its output is streamed to
// Stdout and Stderr as it is produced.
type Make struct {
	Binary string
	Stdout io.Writer
	Stderr io.Writer
	// Env is appended to the inherited environment, e.g. SDK_DIR=/opt/sdk.
	Env []string
}

// NewMake returns a Make streaming to stdout and stderr.
func NewMake(binary string, stdout, stderr io.Writer, env ...string) *Make {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Make{Binary: binary, Stdout: stdout, Stderr: stderr, Env: env}
}

var _ Tool = (*Make)(nil)

func (m *Make) Clean(ctx context.Context, dir string) error {
	return m.Run(ctx, dir, "clean")
}

func (m *Make) LoadConfig(ctx context.Context, dir, configName string) error {
	return m.Run(ctx, dir, "load_kconfig", VarLoadConfigName+"="+configName)
}

func (m *Make) RegenerateConfig(ctx context.Context, dir string) error {
	return m.Run(ctx, dir, "gen_kconfig")
}

func (m *Make) Build(ctx context.Context, req BuildRequest) error {
	return m.Run(ctx, req.Dir, BuildArgs(req)...)
}

// Run executes the tool with args in dir and waits for it. Cancelling ctx
// kills the whole process group.
func (m *Make) Run(ctx context.Context, dir string, args ...string) error {
	logger := ctxlog.FromContext(ctx).With("dir", dir)
	logger.Info("Running build tool.", "args", args)

	cmd := exec.CommandContext(ctx, m.Binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), m.Env...)
	cmd.Stdout = m.Stdout
	cmd.Stderr = m.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)
	if err == nil {
		logger.Debug("Build tool finished.", "args", args, "elapsed", elapsed)
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("build tool cancelled in %s: %w", dir, ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		full := append([]string{m.Binary}, args...)
		logger.Error("Build tool failed.", "args", args, "code", exitErr.ExitCode(), "elapsed", elapsed)
		return &ToolError{Args: full, Dir: dir, Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("failed to start build tool %s: %w", m.Binary, err)
}
