// Package main is the entry point for the weft editor.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/dshills/weft/internal/app"
	"github.com/dshills/weft/internal/config"
	"github.com/dshills/weft/internal/renderer/backend"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

type flags struct {
	configPath string
	overrides  map[string]any
	files      []string
}

func run() int {
	f := parseFlags()

	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: weft needs a terminal")
		return 1
	}

	cfg, err := config.Load(config.Options{Path: f.configPath, Overrides: f.overrides})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	log, closeLog, err := app.OpenLogger(app.LoggerConfig{
		Level: app.ParseLogLevel(cfg.LogLevel),
		Path:  cfg.LogFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = closeLog() }()
	log.Info("starting", zap.String("version", version), zap.String("config", f.configPath))

	screen, err := backend.NewTerminal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create terminal: %v\n", err)
		return 1
	}

	application, err := app.New(app.Options{
		Config:  cfg,
		Backend: screen,
		Logger:  log,
		Files:   f.files,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := application.Run(ctx); err != nil && !errors.Is(err, app.ErrInputEnded) {
		log.Error("exited with error", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() flags {
	var (
		f           flags
		layout      string
		shell       string
		logLevel    string
		logFile     string
		metricsAddr string
		showVersion bool
	)

	flag.StringVar(&f.configPath, "config", os.Getenv("WEFT_CONFIG"), "Path to configuration file")
	flag.StringVar(&layout, "layout", "", "Initial layout (vertical, horizontal, mainstack, grid)")
	flag.StringVar(&shell, "shell", "", "Shell command for new terminals")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&logFile, "log-file", "", "Log file path")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on host:port")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "weft - terminal editor with tiled editors, shells and file browsers\n\n")
		fmt.Fprintf(os.Stderr, "Usage: weft [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  weft                        Open with a scratch editor\n")
		fmt.Fprintf(os.Stderr, "  weft main.go util.go        Open files side by side\n")
		fmt.Fprintf(os.Stderr, "  weft -layout grid           Start in the grid layout\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("weft %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	f.overrides = make(map[string]any)
	set := func(key, value string) {
		if value != "" {
			f.overrides[key] = value
		}
	}
	set("layout", layout)
	set("shell", shell)
	set("log_level", logLevel)
	set("log_file", logFile)
	set("metrics_addr", metricsAddr)

	f.files = flag.Args()
	return f
}
