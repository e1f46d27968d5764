// Package app owns the editor process: it builds the session tree and its
// collaborators, runs the reactor loop over keyboard, terminal and
// language server descriptors, and tears everything down on exit.
package app

import (
	"os"
	"time"

	"github.com/dshills/weft/internal/config"
	"github.com/dshills/weft/internal/filewatch"
	"github.com/dshills/weft/internal/lsp"
	"github.com/dshills/weft/internal/reactor"
	"github.com/dshills/weft/internal/renderer"
	"github.com/dshills/weft/internal/renderer/backend"
	"github.com/dshills/weft/internal/session"
)

// Application is the explicit context every component hangs off. It is
// used from a single goroutine.
type Application struct {
	cfg     *config.Config
	log     *Logger
	backend backend.Backend

	renderer *renderer.Renderer
	session  *session.Manager
	lsp      *lsp.Manager
	files    *openFiles
	metrics  *Metrics
	exporter *metricsServer

	keys   *reactor.Pump[backend.Event]
	poller *reactor.Poller[source]
	buf    []byte

	now          func() time.Time
	lastAutosave time.Time

	backendUp  bool
	started    bool
	closed     bool
	inputEnded bool

	opts Options
}

// Options configures the application.
type Options struct {
	// Config is the resolved configuration. Nil means config.Default().
	Config *config.Config

	// Backend is the display surface and keyboard source. Required.
	Backend backend.Backend

	// Logger receives every component's logs. Nil discards them.
	Logger *Logger

	// Root is the workspace root handed to language servers. Defaults to
	// the working directory.
	Root string

	// Files are opened in the first workspace on startup.
	Files []string

	// Spawner replaces terminal.Spawn, for tests.
	Spawner session.Spawner

	// Now replaces time.Now, for tests.
	Now func() time.Time
}

// New creates an Application with every component built but nothing
// started: the backend is initialized and the first workspace created by
// Run.
func New(opts Options) (*Application, error) {
	if opts.Backend == nil {
		return nil, &InitError{Component: "backend", Err: ErrNoBackend}
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Logger == nil {
		opts.Logger = NopLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Root == "" {
		if wd, err := os.Getwd(); err == nil {
			opts.Root = wd
		} else {
			opts.Root = "."
		}
	}

	app := &Application{
		cfg:     opts.Config,
		log:     opts.Logger,
		backend: opts.Backend,
		buf:     make([]byte, reactor.ChunkSize),
		now:     opts.Now,
		opts:    opts,
	}
	if err := newBootstrapper(app, opts).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Session returns the session tree.
func (app *Application) Session() *session.Manager { return app.session }

// LSP returns the language server manager.
func (app *Application) LSP() *lsp.Manager { return app.lsp }

// Metrics returns the metrics collectors.
func (app *Application) Metrics() *Metrics { return app.metrics }

// Renderer returns the renderer.
func (app *Application) Renderer() *renderer.Renderer { return app.renderer }

// Watcher returns the file watcher, nil when it could not be started.
func (app *Application) Watcher() *filewatch.Watcher {
	if app.files == nil {
		return nil
	}
	return app.files.watcher
}

// InitError represents an initialization error.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}
