// Package logger provides leveled logging for the recon CLI.
// Debug and informational messages are printed to stderr only when verbose
// mode is enabled via the --verbose flag; warnings and errors always are.
// Output is produced by zap, either as compact console lines or as JSON.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu         sync.RWMutex
	verbose    bool
	jsonOutput bool
	output     io.Writer = os.Stderr
	sugar                = build()
)

// build creates the zap logger for the current settings (caller must hold lock
// or be in package init).
func build() *zap.SugaredLogger {
	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}

	var encoder zapcore.Encoder
	if jsonOutput {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			MessageKey:       "msg",
			LevelKey:         "level",
			EncodeLevel:      bracketLevelEncoder,
			ConsoleSeparator: " ",
			LineEnding:       zapcore.DefaultLineEnding,
		})
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(output), level)
	return zap.New(core).Sugar()
}

// bracketLevelEncoder renders levels as "[DEBUG]", "[INFO]", ...
func bracketLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + l.CapitalString() + "]")
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	sugar = build()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetJSON switches between console lines and JSON records.
func SetJSON(v bool) {
	mu.Lock()
	defer mu.Unlock()
	jsonOutput = v
	sugar = build()
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	sugar = build()
}

// L returns the underlying sugared logger for structured key/value logging.
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// With returns a child logger that attaches the given key/value pairs to
// every entry, e.g. logger.With("tenant", id).Infof(...).
func With(keysAndValues ...any) *zap.SugaredLogger {
	return L().With(keysAndValues...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	L().Debugf(format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	L().Infof(format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	L().Warnf(format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	L().Errorf(format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose && !jsonOutput {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Sync flushes buffered log entries.
func Sync() {
	_ = L().Sync() //nolint:errcheck // stderr sync errors are not actionable
}
