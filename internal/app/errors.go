package app

import (
	"errors"

	"github.com/vk/ampbuild/internal/buildtool"
	"github.com/vk/ampbuild/internal/config"
	"github.com/vk/ampbuild/internal/validate"
)

// Process exit codes. A failing build tool's own code is passed through.
const (
	ExitFailure    = 1
	ExitUsage      = 2
	ExitValidation = 3
)

// ErrUsage marks errors caused by how the program was invoked.
var ErrUsage = errors.New("usage error")

// ExitCode maps an error returned by Run to a process exit code.
func ExitCode(err error) int {
	var toolErr *buildtool.ToolError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &toolErr) && toolErr.Code > 0:
		return toolErr.Code
	case errors.Is(err, validate.ErrValidation), errors.Is(err, config.ErrInvalidTopology):
		return ExitValidation
	case errors.Is(err, ErrUsage):
		return ExitUsage
	default:
		return ExitFailure
	}
}
