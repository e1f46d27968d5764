package app

import (
	"go.uber.org/zap"

	"github.com/dshills/weft/internal/filewatch"
	"github.com/dshills/weft/internal/lsp"
	"github.com/dshills/weft/internal/reactor"
	"github.com/dshills/weft/internal/renderer"
	"github.com/dshills/weft/internal/session"
)

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *Application
	opts      Options
	initOrder []string
}

// newBootstrapper creates a new bootstrapper for the application.
func newBootstrapper(app *Application, opts Options) *bootstrapper {
	return &bootstrapper{
		app:       app,
		opts:      opts,
		initOrder: make([]string, 0, 6),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []struct {
		name string
		init func() error
	}{
		{"metrics", b.initMetrics},
		{"lsp", b.initLSP},
		{"files", b.initFiles},
		{"session", b.initSession},
		{"renderer", b.initRenderer},
		{"reactor", b.initReactor},
	}
	for _, step := range steps {
		if err := step.init(); err != nil {
			b.cleanup()
			return err
		}
		b.initOrder = append(b.initOrder, step.name)
	}
	return nil
}

// initMetrics creates the collectors and, when configured, the HTTP
// exporter.
func (b *bootstrapper) initMetrics() error {
	b.app.metrics = NewMetrics()
	if addr := b.app.cfg.MetricsAddr; addr != "" {
		srv, err := serveMetrics(addr, b.app.metrics, b.app.log.WithComponent("metrics"))
		if err != nil {
			return &InitError{Component: "metrics", Err: err}
		}
		b.app.exporter = srv
	}
	return nil
}

func (b *bootstrapper) initLSP() error {
	servers, err := b.app.cfg.Servers()
	if err != nil {
		return &InitError{Component: "lsp", Err: err}
	}
	// Servers whose command is missing are left out so their files open
	// as plain buffers.
	available := lsp.AvailableServers(servers)
	b.app.log.Debug("language servers", zap.Int("configured", len(servers)), zap.Int("available", len(available)))
	b.app.lsp = lsp.NewManager(b.opts.Root, &languageHandler{app: b.app},
		lsp.WithServers(available),
		lsp.WithLogger(b.app.log.WithComponent("lsp").Zap()),
		lsp.WithRetry(b.app.cfg.LSP.RetryDelay, b.app.cfg.LSP.MaxRetries),
		lsp.WithClock(b.app.now),
		lsp.WithMetrics(b.app.metrics),
	)
	return nil
}

// initFiles starts external modification detection. A watcher that
// cannot start is logged and leaves detection to the mtime check.
func (b *bootstrapper) initFiles() error {
	log := b.app.log.WithComponent("filewatch")
	w, err := filewatch.New(log.Zap())
	if err != nil {
		log.Warn("file watching disabled", zap.Error(err))
		w = nil
	}
	b.app.files = newOpenFiles(w, log)
	return nil
}

func (b *bootstrapper) initSession() error {
	opts := []session.Option{
		session.WithDocuments(b.app.lsp),
		session.WithShell(b.app.cfg.ShellArgv()...),
		session.WithLayout(b.app.cfg.LayoutMode()),
		session.WithLogger(b.app.log.WithComponent("session").Zap()),
	}
	if b.opts.Spawner != nil {
		opts = append(opts, session.WithSpawner(b.opts.Spawner))
	}
	b.app.session = session.NewManager(opts...)
	return nil
}

func (b *bootstrapper) initRenderer() error {
	border, active, status := b.app.cfg.Theme.Colors()
	b.app.renderer = renderer.New(b.app.backend,
		renderer.WithTheme(renderer.ThemeFromColors(border, active, status)))
	return nil
}

func (b *bootstrapper) initReactor() error {
	b.app.poller = reactor.NewPoller[source](b.app.cfg.Tick)
	return nil
}

// cleanup releases initialized components in reverse order.
func (b *bootstrapper) cleanup() {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		b.cleanupComponent(b.initOrder[i])
	}
}

// cleanupComponent cleans up a single component.
func (b *bootstrapper) cleanupComponent(component string) {
	switch component {
	case "metrics":
		if b.app.exporter != nil {
			_ = b.app.exporter.Close()
			b.app.exporter = nil
		}
	case "lsp":
		if b.app.lsp != nil {
			_ = b.app.lsp.Shutdown()
			b.app.lsp = nil
		}
	case "files":
		if b.app.files != nil {
			_ = b.app.files.Close()
			b.app.files = nil
		}
	case "session":
		if b.app.session != nil {
			_ = b.app.session.Close()
			b.app.session = nil
		}
	}
}
