// Package logging configures the pipeline's structured logger via
// github.com/go-pkgz/lgr, with an optional JSON output mode bridged
// through log/slog for operators piping logs into a JSON-aware collector.
// Every component takes a logger via constructor injection rather than
// a package-global.
package logging

import (
	"errors"
	"io"
	"os"
	"strings"

	"log/slog"

	"github.com/go-pkgz/lgr"
)

const (
	levelTrace = "trace"
	levelDebug = "debug"
	levelInfo  = "info"
	levelWarn  = "warn"
	levelError = "error"

	formatJSON = "json"
	formatText = "text"

	outputStdout = "stdout"
	outputStderr = "stderr"
)

// Config configures the service's logger: the level, the wire format
// (text for local operators, json for log aggregators), and the output
// stream (stdout, stderr, or a file path). In text format the level only
// decides whether debug output is on (trace or debug); info, warn and
// error log the same. In json format the slog handler drops records below
// the chosen level.
type Config struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// New builds a logger at level with text output to stdout, the fallback
// used wherever a caller doesn't need the full Config.
func New(level string) lgr.L {
	cfg := Config{
		Level:  level,
		Format: formatText,
		Output: outputStdout,
	}
	logger, err := NewWithConfig(cfg)
	if err != nil {
		return lgr.New(lgr.Debug, lgr.Msec, lgr.LevelBraces)
	}
	return logger
}

// NewWithConfig builds a logger from cfg.
func NewWithConfig(cfg Config) (lgr.L, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	var options []lgr.Option
	options = append(options, lgr.Msec)

	switch strings.ToLower(cfg.Level) {
	case levelTrace:
		options = append(options, lgr.Trace)
	case levelDebug:
		options = append(options, lgr.Debug)
	}

	output, err := getOutputWriter(cfg.Output)
	if err != nil {
		return nil, err
	}

	// JSON format uses a slog handler for structured logging; text format
	// keeps lgr's own brace-delimited rendering.
	switch strings.ToLower(cfg.Format) {
	case formatJSON:
		options = append(options, lgr.SlogHandler(createJSONHandler(cfg.Level, output)))
	default:
		options = append(options, lgr.LevelBraces, lgr.Out(output))
		if strings.ToLower(cfg.Output) != outputStderr {
			options = append(options, lgr.Err(os.Stderr))
		}
	}

	return lgr.New(options...), nil
}

// createJSONHandler builds a slog JSON handler at the slog level level
// maps to.
func createJSONHandler(level string, output io.Writer) *slog.JSONHandler {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case levelTrace, levelDebug:
		slogLevel = slog.LevelDebug
	case levelWarn:
		slogLevel = slog.LevelWarn
	case levelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	return slog.NewJSONHandler(output, &slog.HandlerOptions{Level: slogLevel})
}

func validateConfig(cfg Config) error {
	level := strings.ToLower(cfg.Level)
	validLevels := []string{levelTrace, levelDebug, levelInfo, levelWarn, levelError}
	if level != "" && !contains(validLevels, level) {
		return errors.New("invalid log level: " + cfg.Level + ", must be one of: trace, debug, info, warn, error")
	}

	format := strings.ToLower(cfg.Format)
	validFormats := []string{formatText, formatJSON}
	if format != "" && !contains(validFormats, format) {
		return errors.New("invalid log format: " + cfg.Format + ", must be one of: text, json")
	}

	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func getOutputWriter(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "", outputStdout:
		return os.Stdout, nil
	case outputStderr:
		return os.Stderr, nil
	default:
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, errors.New("failed to open log file " + output + ": " + err.Error())
		}
		return file, nil
	}
}
