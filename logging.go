package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const logFileName = "hkd.log"

// logLevel picks the level from the -v count, falling back to the config.
func logLevel(verbosity int, configured string) (logrus.Level, error) {
	switch {
	case verbosity >= 2:
		return logrus.TraceLevel, nil
	case verbosity == 1:
		return logrus.DebugLevel, nil
	case configured != "":
		return logrus.ParseLevel(configured)
	}
	return logrus.InfoLevel, nil
}

// setupLogging configures the standard logger. The returned func closes the
// log file, if any.
func setupLogging(cfg *Config, verbosity int) (func(), error) {
	level, err := logLevel(verbosity, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stderr)

	if !cfg.LogToFile {
		return func() {}, nil
	}
	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(cfg.LogDir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, f))
	return func() { f.Close() }, nil
}
