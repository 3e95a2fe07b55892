package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vk/ampbuild/internal/app"
	"github.com/vk/ampbuild/internal/buildtool"
	"github.com/vk/ampbuild/internal/fsutil"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Environment variables consulted when the matching flag is not given.
var envBindings = map[string]string{
	"config":     "AMP_CONFIG",
	"sdk-dir":    "SDK_DIR",
	"log-level":  "AMP_LOG_LEVEL",
	"log-format": "AMP_LOG_FORMAT",
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := pflag.NewFlagSet("ampbuild", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.SortFlags = false

	flagSet.Usage = func() {
		fmt.Fprintf(output, `
ampbuild - validates, builds and packs AMP multi-core firmware images.

Usage:
  ampbuild [command] [options]

Commands:
  build       Load configurations, validate, build every group and the bootstrap image (default)
  test        Same as build, with the bootstrap image built for on-target tests
  validate    Check configuration consistency and memory overlap of the existing sdkconfig files
  clean       Run 'make clean' in every image directory
  boot-check  Check the boot image against available_space.h in the project directory
  list        Print the configurations declared in the topology file
  watch       Validate again whenever an image's sdkconfig changes

Environment:
  AMP_CONFIG, SDK_DIR, AMP_LOG_LEVEL, AMP_LOG_FORMAT

Options:
`)
		flagSet.PrintDefaults()
	}

	flagSet.StringP("file", "f", "", "Topology file. Defaults to amp_config.{hcl,json,yaml,yml} in the project directory.")
	flagSet.StringP("config", "c", "", "Name of the configuration to build (env AMP_CONFIG).")
	flagSet.StringP("project-dir", "C", ".", "Project directory holding the bootstrap build.")
	flagSet.String("sdk-dir", "", "SDK root, exported to the build tool and usable as ${sdk_dir} in HCL (env SDK_DIR).")
	flagSet.IntP("jobs", "j", 1, "Number of ordinary images of one group built in parallel.")
	flagSet.Bool("skip-load", false, "Do not run 'make clean' and 'make load_kconfig' before validating.")
	flagSet.Bool("require-boot-check", false, "Fail when available_space.h is missing instead of skipping the check.")
	flagSet.String("artifact-pattern", fsutil.DefaultArtifactPattern, "Glob matching the build artifacts in an image directory.")
	flagSet.String("make", buildtool.DefaultBinary, "Build tool executable.")
	flagSet.String("metrics-file", "", "Write Prometheus metrics of the run to this file.")
	flagSet.Bool("no-color", false, "Disable colored reports.")
	flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: app.ExitUsage, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	v := viper.New()
	if err := v.BindPFlags(flagSet); err != nil {
		return nil, false, &ExitError{Code: app.ExitUsage, Message: err.Error()}
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, false, &ExitError{Code: app.ExitUsage, Message: err.Error()}
		}
	}

	command := ""
	switch flagSet.NArg() {
	case 0:
	case 1:
		command = flagSet.Arg(0)
	default:
		return nil, false, &ExitError{Code: app.ExitUsage, Message: fmt.Sprintf("expected at most one command, got %q", flagSet.Args())}
	}
	slog.Debug("Command determined.", "command", command)

	logFormat := strings.ToLower(v.GetString("log-format"))
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: app.ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(v.GetString("log-level"))
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: app.ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Command:          command,
		TopologyPath:     v.GetString("file"),
		ConfigName:       v.GetString("config"),
		ProjectDir:       v.GetString("project-dir"),
		SDKDir:           v.GetString("sdk-dir"),
		Jobs:             v.GetInt("jobs"),
		SkipLoad:         v.GetBool("skip-load"),
		RequireBootCheck: v.GetBool("require-boot-check"),
		ArtifactPattern:  v.GetString("artifact-pattern"),
		MakeBinary:       v.GetString("make"),
		MetricsFile:      v.GetString("metrics-file"),
		NoColor:          v.GetBool("no-color"),
		LogFormat:        logFormat,
		LogLevel:         logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: app.ExitUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
