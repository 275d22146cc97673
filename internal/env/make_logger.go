package env

import (
	zap "go.uber.org/zap"
)

// MakeLogger builds json logger writing to stderr.
// Verbose logger includes debug messages, such as frame traces.
func MakeLogger(verbose bool) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	logConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		logConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logConfig.Encoding = "json"

	return logConfig.Build()
}
