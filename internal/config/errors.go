package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTopology is the kind shared by every TopologyError.
var ErrInvalidTopology = errors.New("invalid topology")

// TopologyError describes an invalid group shape or a duplicate identifier.
// Group is -1 when the problem spans the whole configuration set.
type TopologyError struct {
	Config string
	Group  int
	Unit   string
	Msg    string
}

func (e *TopologyError) Error() string {
	if e == nil {
		return ""
	}
	var where []string
	if e.Config != "" {
		where = append(where, "config "+e.Config)
	}
	if e.Group >= 0 {
		where = append(where, fmt.Sprintf("group %d", e.Group))
	}
	if e.Unit != "" {
		where = append(where, "unit "+e.Unit)
	}
	if len(where) == 0 {
		return fmt.Sprintf("%s: %s", ErrInvalidTopology, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidTopology, strings.Join(where, ", "), e.Msg)
}

func (e *TopologyError) Unwrap() error { return ErrInvalidTopology }
