package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vk/modgrid/internal/app"
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

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("modgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
ModGrid - A declarative, dependency-aware unit loader.

Usage:
  modgrid [options] [UNITS_PATH]

Arguments:
  UNITS_PATH
    Path to a directory containing unit descriptor (.unit.hcl) files.

Options:
`)
		flagSet.PrintDefaults()
	}

	unitsFlag := flagSet.String("units", "", "Path to the unit descriptor directory.")
	uFlag := flagSet.String("u", "", "Path to the unit descriptor directory (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	concurrencyFlag := flagSet.Int("max-concurrency", 4, "Maximum number of units loading concurrently within a batch.")
	timeoutFlag := flagSet.Duration("timeout", 30*time.Second, "Default per-unit initialization timeout.")
	retriesFlag := flagSet.Int("retries", 3, "Initialization attempts per unit before giving up.")
	retryDelayFlag := flagSet.Duration("retry-delay", time.Second, "Delay between initialization attempts.")
	sandboxFlag := flagSet.Bool("sandbox", false, "Probe each factory in a throwaway worker before the real load.")
	watchFlag := flagSet.Bool("watch", false, "Watch descriptors and hot-reload units on change.")
	debounceFlag := flagSet.Duration("debounce", 500*time.Millisecond, "Debounce window for hot-reload file events.")
	redisURLFlag := flagSet.String("redis-url", "", "Redis URL for publishing lifecycle events. Empty keeps events in-process.")
	redisStreamFlag := flagSet.String("redis-stream", "", "Redis stream name for lifecycle events.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *unitsFlag != "" {
		path = *unitsFlag
	} else if *uFlag != "" {
		path = *uFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Units path determined.", "path", path)

	if path == "" {
		slog.Debug("No units path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		UnitsPath:       path,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		MaxConcurrency:  *concurrencyFlag,
		Timeout:         *timeoutFlag,
		RetryAttempts:   *retriesFlag,
		RetryDelay:      *retryDelayFlag,
		Sandbox:         *sandboxFlag,
		Watch:           *watchFlag,
		DebounceWindow:  *debounceFlag,
		RedisURL:        *redisURLFlag,
		RedisStream:     *redisStreamFlag,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
