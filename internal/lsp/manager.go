package lsp

import (
	"fmt"
	"path/filepath"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	// DefaultRetryDelay is the interval between startup retry ticks.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetries is the number of retry intervals a server gets to
	// answer initialize before it is declared dead.
	DefaultMaxRetries = 20
)

// Metrics receives protocol counters. The app wires a Prometheus
// implementation; the default discards everything.
type Metrics interface {
	BytesRead(server string, n int)
	Message(server, kind string)
	StartupTimeout(server string)
}

type nopMetrics struct{}

func (nopMetrics) BytesRead(string, int)  {}
func (nopMetrics) Message(string, string) {}
func (nopMetrics) StartupTimeout(string)  {}

// Manager owns every language server connection and the documents bound
// to them. Connections are shared: all documents of a language use one
// server. Manager is not safe for concurrent use; the reactor drives it.
type Manager struct {
	root    string
	handler Handler
	log     *zap.Logger
	metrics Metrics
	now     func() time.Time

	servers map[string]ServerConfig
	conns   map[string]*Connection
	order   []*Connection
	docs    map[string]*Document

	lastID     int32
	retryDelay time.Duration
	maxRetries int
}

// ManagerOption configures the manager.
type ManagerOption func(*Manager)

// WithServers sets the server table, keyed by server name.
func WithServers(servers map[string]ServerConfig) ManagerOption {
	return func(m *Manager) {
		m.servers = servers
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithRetry sets the startup retry interval and budget.
func WithRetry(delay time.Duration, max int) ManagerOption {
	return func(m *Manager) {
		if delay > 0 {
			m.retryDelay = delay
		}
		if max > 0 {
			m.maxRetries = max
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics Metrics) ManagerOption {
	return func(m *Manager) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

// NewManager creates a manager rooted at the workspace directory root.
func NewManager(root string, handler Handler, opts ...ManagerOption) *Manager {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	m := &Manager{
		root:       root,
		handler:    handler,
		log:        zap.NewNop(),
		metrics:    nopMetrics{},
		now:        time.Now,
		servers:    DefaultServers(),
		conns:      make(map[string]*Connection),
		docs:       make(map[string]*Document),
		retryDelay: DefaultRetryDelay,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the workspace root sent in initialize.
func (m *Manager) Root() string { return m.root }

// nextRequestID issues a process-unique, strictly increasing id.
func (m *Manager) nextRequestID() jsonrpc2.ID {
	m.lastID++
	return jsonrpc2.NewNumberID(m.lastID)
}

// serverFor finds the configured server for a language.
func (m *Manager) serverFor(languageID string) (string, ServerConfig, bool) {
	for _, name := range serverNames(m.servers) {
		cfg := m.servers[name]
		if cfg.Command != "" && cfg.Handles(name, languageID) {
			return name, cfg, true
		}
	}
	return "", ServerConfig{}, false
}

// Open binds a document for path to the server for its language, starting
// the server on first use. The document is returned even when the server
// fails to start so a later Restart can pick it up. ErrNoServer means no
// document was created.
func (m *Manager) Open(path string, src TextSource) (*Document, error) {
	if doc := m.DocumentFor(path); doc != nil {
		return doc, nil
	}
	lang := DetectLanguageID(path)
	if lang == "" {
		return nil, ErrNoServer
	}
	name, cfg, ok := m.serverFor(lang)
	if !ok {
		return nil, &ServerError{LanguageID: lang, Err: ErrNoServer}
	}

	doc := newDocument(path, lang, src)
	m.docs[doc.Path] = doc

	conn, ok := m.conns[name]
	if !ok {
		conn = newConnection(name, cfg, m)
		m.conns[name] = conn
		m.order = append(m.order, conn)
	}
	conn.bind(doc)
	m.log.Debug("document opened", zap.String("path", doc.Path), zap.String("server", name))

	if conn.state == StateNotStarted {
		if err := conn.start(m.now()); err != nil {
			return doc, err
		}
	}
	return doc, nil
}

// Change records a local edit: the version increases and, when the server
// is Ready, the full text is sent. Otherwise the document is flagged and
// synced on the next didOpen.
func (m *Manager) Change(doc *Document) {
	if doc == nil {
		return
	}
	doc.Version++
	doc.NeedsUpdate = true
	if conn := doc.conn; conn != nil && conn.state == StateReady && doc.opened {
		conn.sendChange(doc)
	}
}

// Close unbinds the document and sends didClose if the server has it.
func (m *Manager) Close(doc *Document) {
	if doc == nil {
		return
	}
	if doc.conn != nil {
		doc.conn.unbind(doc)
	}
	if m.docs[doc.Path] == doc {
		delete(m.docs, doc.Path)
	}
}

// DocumentFor returns the open document for path, or nil.
func (m *Manager) DocumentFor(path string) *Document {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return m.docs[filepath.Clean(path)]
}

// Connections returns every connection in creation order.
func (m *Manager) Connections() []*Connection {
	return m.order
}

// Connection returns the connection for a server name, or nil.
func (m *Manager) Connection(name string) *Connection {
	return m.conns[name]
}

// Restart tears the connection serving doc down and starts it again.
// Bound documents are reopened once the new server is Ready.
func (m *Manager) Restart(doc *Document) error {
	if doc == nil || doc.conn == nil {
		return ErrDocumentNotOpen
	}
	conn := doc.conn
	shutdownErr := conn.Shutdown()
	if shutdownErr != nil {
		m.log.Warn("shutdown before restart", zap.String("server", conn.name), zap.Error(shutdownErr))
	}
	m.log.Info("restarting server", zap.String("server", conn.name))
	return conn.start(m.now())
}

// Tick runs housekeeping on every connection.
func (m *Manager) Tick() {
	now := m.now()
	for _, conn := range m.order {
		conn.Tick(now)
	}
}

// Shutdown stops every server synchronously.
func (m *Manager) Shutdown() error {
	var err error
	for _, conn := range m.order {
		if serr := conn.Shutdown(); serr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", conn.name, serr))
		}
	}
	return err
}
