package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vk/ampbuild/internal/buildtool"
)

// Invocation is one recorded call of the FakeTool.
type Invocation struct {
	Dir   string
	Args  []string
	Start time.Time
	End   time.Time
}

// Command renders the invocation as "<dir base>: <args>".
func (i Invocation) Command() string {
	return filepath.Base(i.Dir) + ": " + strings.Join(i.Args, " ")
}

// FakeTool stands in for make. Each call is recorded with its timing.
//
//   - LoadConfig writes Configs[configName] to <dir>/sdkconfig when present.
//   - Build writes <dir>/<name>.elf, where name is the image out name or the
//     directory base name. The content names the directory and core.
//   - Clean removes *.elf from dir.
//
// FailOn returns a non-zero code to make a call fail with a ToolError.
type FakeTool struct {
	Configs map[string]string
	FailOn  func(dir string, args []string) int
	Delay   time.Duration
	// OnBuild replaces the default artifact writer when set.
	OnBuild func(req buildtool.BuildRequest) error

	mu    sync.Mutex
	calls []Invocation
}

var _ buildtool.Tool = (*FakeTool)(nil)

// Calls returns a copy of every recorded invocation.
func (f *FakeTool) Calls() []Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Invocation(nil), f.calls...)
}

// Commands returns Command() of every recorded invocation.
func (f *FakeTool) Commands() []string {
	calls := f.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Command())
	}
	return out
}

func (f *FakeTool) record(ctx context.Context, dir string, args []string, fn func() error) error {
	inv := Invocation{Dir: dir, Args: args, Start: time.Now()}
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	var err error
	if f.FailOn != nil {
		if code := f.FailOn(dir, args); code != 0 {
			err = &buildtool.ToolError{Args: append([]string{"make"}, args...), Dir: dir, Code: code}
		}
	}
	if err == nil && fn != nil {
		err = fn()
	}
	inv.End = time.Now()
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	f.mu.Unlock()
	return err
}

func (f *FakeTool) Clean(ctx context.Context, dir string) error {
	return f.record(ctx, dir, []string{"clean"}, func() error {
		matches, _ := filepath.Glob(filepath.Join(dir, "*.elf"))
		for _, m := range matches {
			if err := os.Remove(m); err != nil {
				return err
			}
		}
		return nil
	})
}

func (f *FakeTool) LoadConfig(ctx context.Context, dir, configName string) error {
	return f.record(ctx, dir, []string{"load_kconfig", buildtool.VarLoadConfigName + "=" + configName}, func() error {
		content, ok := f.Configs[configName]
		if !ok {
			return nil
		}
		return os.WriteFile(filepath.Join(dir, "sdkconfig"), []byte(content), 0o644)
	})
}

func (f *FakeTool) RegenerateConfig(ctx context.Context, dir string) error {
	return f.record(ctx, dir, []string{"gen_kconfig"}, nil)
}

func (f *FakeTool) Build(ctx context.Context, req buildtool.BuildRequest) error {
	return f.record(ctx, req.Dir, buildtool.BuildArgs(req), func() error {
		if f.OnBuild != nil {
			return f.OnBuild(req)
		}
		name := req.ImageOutName
		if name == "" {
			name = filepath.Base(req.Dir)
		}
		content := "elf:" + filepath.Base(req.Dir) + ":" + req.Core.String()
		return os.WriteFile(filepath.Join(req.Dir, name+".elf"), []byte(content), 0o644)
	})
}
