package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gregLibert/transit-card/pkg/config"
	"github.com/gregLibert/transit-card/pkg/dump"
	"github.com/gregLibert/transit-card/pkg/rkf"
)

// Exit codes.
const (
	exitOK = iota
	exitFailure
	exitUsage
	exitNotRKF
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "usage: transit-card <dump>")
		return exitUsage
	}

	// --- 1. Setup ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitFailure
	}
	logger := newLogger(cfg.Log, stderr)

	lookup, err := loadIssuers(cfg.Issuers)
	if err != nil {
		logger.Error("failed to load issuer table", "path", cfg.Issuers.Path, "error", err)
		return exitFailure
	}

	// --- 2. Load the dump ---
	d, err := dump.Load(args[0])
	if err != nil {
		logger.Error("failed to load dump", "path", args[0], "error", err)
		return exitFailure
	}
	logger.Info("dump loaded", "name", d.Name, "kind", d.Kind)

	// --- 3. Decode ---
	switch d.Kind {
	case dump.KindClassic:
		s, err := rkf.NewDecoder(lookup, logger).Decode(d.Classic)
		switch {
		case errors.Is(err, rkf.ErrNotRKF):
			logger.Error("card is not an RKF card", "error", err)
			return exitNotRKF
		case err != nil:
			logger.Error("card header is unusable", "error", err)
			return exitFailure
		}
		fmt.Fprintln(stdout, s.Describe(cfg.Report.Verbose))
		if s.Partial() {
			logger.Warn("decode incomplete", "issues", len(s.Issues))
		}

	case dump.KindISO7816:
		fmt.Fprintln(stdout, d.ISO.Describe())
		fmt.Fprintln(stdout, ">> ISO7816 file storage is not handled by the RKF decoder.")
	}

	return exitOK
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func loadIssuers(cfg config.IssuersConfig) (*rkf.Lookup, error) {
	if cfg.Path == "" {
		return rkf.DefaultLookup(), nil
	}
	return rkf.LoadLookup(cfg.Path)
}
