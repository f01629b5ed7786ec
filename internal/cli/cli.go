package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/vk/cookgrid/internal/app"
)

// ExitError is an error that carries the process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns the app configuration,
// whether the program should exit cleanly without running, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("cookgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
cookgrid - cooks a typed dataflow node graph.

Usage:
  cookgrid [options] SCENE_PATH

Arguments:
  SCENE_PATH
    A .hcl file, a directory of .hcl files, or a saved scene document
    (.json, .yaml, .yml or .msgpack, optionally compressed as .gz or .zst).

Options:
`)
		flagSet.PrintDefaults()
	}

	cookFlag := flagSet.String("cook", "", "Absolute path of the node to cook. Defaults to the root's display child, else every root child.")
	outFlag := flagSet.String("out", "", "Save the scene document to this file. The format follows the extension.")
	watchFlag := flagSet.Bool("watch", false, "Re-cook whenever SCENE_PATH changes.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the /health, /status and /metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	workersFlag := flagSet.Int("workers", app.DefaultWorkerCount, "Number of nodes cooked concurrently.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, true, nil
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected one SCENE_PATH, got %d arguments", flagSet.NArg())}
	}

	config, err := app.NewConfig(app.Config{
		ScenePath:       flagSet.Arg(0),
		CookPath:        *cookFlag,
		OutPath:         *outFlag,
		Watch:           *watchFlag,
		WorkerCount:     *workersFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       *logFormatFlag,
		LogLevel:        *logLevelFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return config, false, nil
}
