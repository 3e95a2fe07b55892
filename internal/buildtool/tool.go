// Package buildtool drives the external per-core build tool. The Tool
// interface is what the orchestrator depends on; Make is the production
// implementation that runs `make` as a subprocess.
package buildtool

import (
	"context"
	"strconv"

	"github.com/vk/ampbuild/internal/config"
)

// Variables passed on the build tool command line.
const (
	VarCoreNum        = "BUILD_IMAGE_CORE_NUM"
	VarAMPCore        = "BUILD_AMP_CORE"
	VarAMPCoreTest    = "BUILD_AMP_CORE_TEST"
	VarImageOutName   = "IMAGE_OUT_NAME"
	VarLoadConfigName = "LOAD_CONFIG_NAME"
)

// BuildRequest describes one `make all` invocation.
type BuildRequest struct {
	Dir          string
	Core         config.CoreID
	ImageOutName string
	Test         bool
}

// Tool is the external build tool as seen by the orchestrator. Every method
// runs in dir and fails with a *ToolError on a non-zero exit.
type Tool interface {
	Clean(ctx context.Context, dir string) error
	LoadConfig(ctx context.Context, dir, configName string) error
	RegenerateConfig(ctx context.Context, dir string) error
	Build(ctx context.Context, req BuildRequest) error
}

// BuildArgs returns the make arguments of a build request. The core number
// is left out for units without an assigned core.
func BuildArgs(req BuildRequest) []string {
	args := []string{"all", "-j"}
	if core, ok := req.Core.Get(); ok {
		args = append(args, VarCoreNum+"="+strconv.Itoa(core))
	}
	args = append(args, VarAMPCore+"=y")
	if req.ImageOutName != "" {
		args = append(args, VarImageOutName+"="+req.ImageOutName)
	}
	if req.Test {
		args = append(args, VarAMPCoreTest+"=y")
	}
	return args
}
