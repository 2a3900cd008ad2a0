package logging

import (
	"io"
	"log/slog"
)

// SetupMCPMode initializes logging for serving MCP over stdio and installs
// the logger as the slog default.
//
// stdout carries JSON-RPC frames exclusively; any stray write there corrupts
// the protocol stream. Records therefore go to stderr (nil means os.Stderr),
// plus logFile when set.
func SetupMCPMode(stderr io.Writer, level, logFile string) (func(), error) {
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.FilePath = logFile
	cfg.Stderr = stderr

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)

	slog.Debug("MCP mode logging initialized",
		slog.String("log_file", logFile),
		slog.String("level", level))

	return cleanup, nil
}

// Bootstrap installs a stderr-only JSON logger at info level as the slog
// default. Serve uses it until configuration is resolved, so that even
// startup failures are single-line JSON records.
func Bootstrap(stderr io.Writer) {
	slog.SetDefault(slog.New(NewHandler(stderr, slog.LevelInfo)))
}
