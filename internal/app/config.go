package app

import (
	"errors"
	"fmt"
	"strings"
)

// Commands understood by Run.
const (
	CommandBuild     = "build"
	CommandTest      = "test"
	CommandValidate  = "validate"
	CommandClean     = "clean"
	CommandBootCheck = "boot-check"
	CommandList      = "list"
	CommandWatch     = "watch"
)

// Commands lists every command in help order.
var Commands = []string{
	CommandBuild, CommandTest, CommandValidate, CommandClean,
	CommandBootCheck, CommandList, CommandWatch,
}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command      string
	TopologyPath string // empty: look for amp_config.{hcl,json,yaml,yml}
	ConfigName   string
	ProjectDir   string
	SDKDir       string

	Jobs             int
	SkipLoad         bool
	RequireBootCheck bool
	ArtifactPattern  string
	MakeBinary       string
	MetricsFile      string
	NoColor          bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Command == "" {
		cfg.Command = CommandBuild
	}
	known := false
	for _, c := range Commands {
		if c == cfg.Command {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("unknown command %q: must be one of %s", cfg.Command, strings.Join(Commands, ", "))
	}
	if cfg.Jobs < 1 {
		return nil, errors.New("jobs must be at least 1")
	}
	if cfg.ProjectDir == "" {
		cfg.ProjectDir = "."
	}
	return &cfg, nil
}
