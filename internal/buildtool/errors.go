package buildtool

import (
	"fmt"
	"strings"
)

// ToolError is a build tool invocation that exited with a non-zero code.
type ToolError struct {
	Args []string
	Dir  string
	Code int
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%q in %s exited with code %d", strings.Join(e.Args, " "), e.Dir, e.Code)
}
