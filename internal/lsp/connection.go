package lsp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/dshills/weft/internal/reactor"
)

// Connection is one language server subprocess and its protocol state.
// It is driven entirely by the reactor: Service after the output descriptor
// polls readable, Tick during housekeeping.
type Connection struct {
	name string
	cfg  ServerConfig
	root string
	mgr  *Manager
	log  *zap.Logger

	state   State
	proc    *process
	dec     Decoder
	pending map[jsonrpc2.ID]pendingRequest
	docs    []*Document

	attempts    int
	lastAttempt time.Time
	lastErr     error

	capabilities string
	serverInfo   string
	stderrTail   []byte
}

func newConnection(name string, cfg ServerConfig, mgr *Manager) *Connection {
	return &Connection{
		name:    name,
		cfg:     cfg,
		root:    mgr.root,
		mgr:     mgr,
		log:     mgr.log.With(zap.String("server", name)),
		pending: make(map[jsonrpc2.ID]pendingRequest),
	}
}

// Name returns the configured server name.
func (c *Connection) Name() string { return c.name }

// State returns the lifecycle state.
func (c *Connection) State() State { return c.state }

// Err returns the error that killed the connection, if any.
func (c *Connection) Err() error { return c.lastErr }

// Attempts returns the number of startup retry intervals that elapsed
// without an initialize response.
func (c *Connection) Attempts() int { return c.attempts }

// Pending returns the number of outstanding requests.
func (c *Connection) Pending() int { return len(c.pending) }

// Documents returns the documents bound to the connection.
func (c *Connection) Documents() []*Document { return c.docs }

// ServerInfo returns the name the server reported in its initialize result.
func (c *Connection) ServerInfo() string { return c.serverInfo }

// Capabilities returns the server capabilities from the initialize result.
func (c *Connection) Capabilities() gjson.Result { return gjson.Parse(c.capabilities) }

// Fd returns the server output descriptor, or -1 if there is none.
func (c *Connection) Fd() int {
	if c.proc == nil {
		return -1
	}
	return c.proc.stdout
}

// Pid returns the server process id, or -1.
func (c *Connection) Pid() int {
	if c.proc == nil {
		return -1
	}
	return c.proc.pid
}

func (c *Connection) setState(next State) {
	prev := c.state
	if prev == next {
		return
	}
	c.state = next
	c.log.Debug("state change", zap.Stringer("from", prev), zap.Stringer("to", next))
	c.mgr.handler.StateChanged(c, prev, next)
}

// start spawns the server and sends initialize.
func (c *Connection) start(now time.Time) error {
	if c.state != StateNotStarted && c.state != StateDead {
		return nil
	}
	c.lastErr = nil
	c.attempts = 0
	c.lastAttempt = now
	c.dec.Reset()

	params, err := initializeParams(c.root, c.cfg.InitializationOptions)
	if err != nil {
		c.fail(err)
		return &ServerError{LanguageID: c.name, Err: err}
	}

	proc, err := startProcess(c.cfg, c.root)
	if err != nil {
		c.fail(err)
		return &ServerError{LanguageID: c.name, Err: err}
	}
	c.proc = proc
	c.log.Info("server started", zap.String("command", c.cfg.Command), zap.Int("pid", proc.pid))
	c.setState(StateStarting)

	if _, err := c.call(KindInitialize, json.RawMessage(params), nil); err != nil {
		return &ServerError{LanguageID: c.name, Err: err}
	}
	return nil
}

// fail records err and moves straight to Dead when no process exists.
func (c *Connection) fail(err error) {
	c.lastErr = err
	c.log.Warn("server failed", zap.Error(err))
	c.setState(StateDead)
}

// Service performs one bounded read of server output and dispatches every
// complete message. buf bounds the read size.
func (c *Connection) Service(buf []byte) {
	if c.proc == nil || c.proc.stdout < 0 || !c.state.Readable() {
		return
	}
	n, status, err := reactor.ReadChunk(c.proc.stdout, buf)
	switch status {
	case reactor.ReadWouldBlock:
		return
	case reactor.ReadClosed:
		if err == nil {
			err = ErrServerExited
		}
		c.die(err)
		return
	}
	c.mgr.metrics.BytesRead(c.name, n)
	c.dec.Write(buf[:n])
	c.drainFrames()
}

func (c *Connection) drainFrames() {
	for {
		body, err := c.dec.Next()
		if err != nil {
			c.log.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		if body == nil {
			return
		}
		c.dispatch(body)
	}
}

func (c *Connection) dispatch(body []byte) {
	msg, err := jsonrpc2.DecodeMessage(body)
	if err != nil {
		c.log.Warn("undecodable message", zap.Error(err), zap.Int("bytes", len(body)))
		return
	}
	switch m := msg.(type) {
	case *jsonrpc2.Response:
		c.mgr.metrics.Message(c.name, "response")
		c.handleResponse(m)
	case *jsonrpc2.Call:
		c.mgr.metrics.Message(c.name, "call")
		c.handleCall(m)
	case *jsonrpc2.Notification:
		c.mgr.metrics.Message(c.name, "notification")
		c.handleNotification(m)
	}
}

func (c *Connection) handleResponse(resp *jsonrpc2.Response) {
	id := resp.ID()
	req, ok := c.pending[id]
	if !ok {
		c.log.Debug("response for unknown request", zap.String("id", fmt.Sprint(id)))
		return
	}
	delete(c.pending, id)

	if req.kind == KindInitialize {
		c.handleInitialize(resp)
		return
	}
	if req.kind == KindShutdown {
		return
	}
	// The document was closed or rebound while the request was in flight.
	if req.doc == nil || req.doc.conn != c {
		return
	}
	if rerr := resp.Err(); rerr != nil {
		c.mgr.handler.RequestFailed(req.doc, req.kind, &RequestError{Kind: req.kind, Err: rerr})
		return
	}
	// Rename edits are byte ranges into the text the server saw.
	if req.kind == KindRename && req.version != req.doc.Version {
		c.log.Debug("stale rename result",
			zap.Int32("requested", req.version),
			zap.Int32("current", req.doc.Version))
		c.mgr.handler.RequestFailed(req.doc, req.kind, &RequestError{Kind: req.kind, Err: ErrStaleResponse})
		return
	}
	c.apply(req, resp.Result())
}

func (c *Connection) apply(req pendingRequest, raw json.RawMessage) {
	h := c.mgr.handler
	var err error
	switch req.kind {
	case KindCompletion:
		var items []CompletionItem
		if items, err = ParseCompletionResult(raw); err == nil {
			h.Completion(req.doc, items)
		}
	case KindDefinition:
		var locs []protocol.Location
		if locs, err = ParseLocationResult(raw); err == nil {
			h.Definition(req.doc, locs)
		}
	case KindReferences:
		var locs []protocol.Location
		if locs, err = ParseLocationResult(raw); err == nil {
			h.References(req.doc, locs)
		}
	case KindRename:
		var edit WorkspaceEdit
		if edit, err = ParseWorkspaceEdit(raw); err == nil {
			h.Rename(req.doc, edit)
		}
	case KindHover:
		var text string
		if text, err = ParseHoverResult(raw); err == nil {
			h.Hover(req.doc, text)
		}
	case KindDocumentSymbol:
		var syms []Symbol
		if syms, err = ParseSymbolResult(raw); err == nil {
			h.DocumentSymbols(req.doc, syms)
		}
	case KindInitialize, KindShutdown:
	}
	if err != nil {
		h.RequestFailed(req.doc, req.kind, &RequestError{Kind: req.kind, Err: err})
	}
}

func (c *Connection) handleInitialize(resp *jsonrpc2.Response) {
	if err := resp.Err(); err != nil {
		c.die(fmt.Errorf("initialize: %w", err))
		return
	}
	result := gjson.ParseBytes(resp.Result())
	c.capabilities = result.Get("capabilities").Raw
	c.serverInfo = strings.TrimSpace(result.Get("serverInfo.name").String() + " " + result.Get("serverInfo.version").String())

	c.setState(StateReady)
	if err := c.notify(protocol.MethodInitialized, struct{}{}); err != nil {
		return
	}
	c.log.Info("server ready", zap.String("info", c.serverInfo), zap.Int("attempts", c.attempts))
	for _, doc := range c.docs {
		if c.state != StateReady {
			return
		}
		c.sendOpen(doc)
	}
}

func (c *Connection) handleNotification(n *jsonrpc2.Notification) {
	switch n.Method() {
	case protocol.MethodTextDocumentPublishDiagnostics:
		var params protocol.PublishDiagnosticsParams
		if err := json.Unmarshal(n.Params(), &params); err != nil {
			c.log.Warn("bad diagnostics", zap.Error(err))
			return
		}
		c.publishDiagnostics(&params)
	case protocol.MethodWindowLogMessage, protocol.MethodWindowShowMessage:
		c.log.Info("server message", zap.String("message", gjson.GetBytes(n.Params(), "message").String()))
	default:
		c.log.Debug("ignored notification", zap.String("method", n.Method()))
	}
}

// publishDiagnostics replaces a document's diagnostics. A push for an
// older version than the document's current one is stale and dropped.
func (c *Connection) publishDiagnostics(params *protocol.PublishDiagnosticsParams) {
	for _, doc := range c.docs {
		if !doc.matches(params.URI) {
			continue
		}
		if params.Version != 0 && int32(params.Version) < doc.Version {
			c.log.Debug("stale diagnostics",
				zap.String("uri", string(params.URI)),
				zap.Uint32("version", params.Version),
				zap.Int32("current", doc.Version))
			return
		}
		doc.Diagnostics = params.Diagnostics
		c.mgr.handler.Diagnostics(doc)
		return
	}
}

// handleCall answers requests the server sends to the client.
func (c *Connection) handleCall(call *jsonrpc2.Call) {
	var (
		result any
		rerr   error
	)
	switch call.Method() {
	case protocol.MethodWorkspaceConfiguration:
		items := gjson.GetBytes(call.Params(), "items").Array()
		result = make([]any, len(items))
	case protocol.MethodWorkDoneProgressCreate,
		protocol.MethodClientRegisterCapability,
		protocol.MethodClientUnregisterCapability:
		result = nil
	case protocol.MethodWorkspaceApplyEdit:
		result = map[string]any{"applied": false, "failureReason": "unsupported"}
	default:
		rerr = jsonrpc2.NewError(jsonrpc2.MethodNotFound, "method not found: "+call.Method())
	}
	resp, err := jsonrpc2.NewResponse(call.ID(), result, rerr)
	if err != nil {
		c.log.Warn("build response", zap.Error(err))
		return
	}
	_ = c.send(resp)
}

// call registers a pending request and sends it.
func (c *Connection) call(kind RequestKind, params any, doc *Document) (jsonrpc2.ID, error) {
	id := c.mgr.nextRequestID()
	msg, err := jsonrpc2.NewCall(id, kind.Method(), params)
	if err != nil {
		return id, fmt.Errorf("%s: %w", kind, err)
	}
	req := pendingRequest{kind: kind, doc: doc}
	if doc != nil {
		req.version = doc.Version
	}
	c.pending[id] = req
	if err := c.send(msg); err != nil {
		delete(c.pending, id)
		return id, err
	}
	return id, nil
}

func (c *Connection) notify(method string, params any) error {
	msg, err := jsonrpc2.NewNotification(method, params)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return c.send(msg)
}

// send writes one framed message. A failed write means the server is gone.
func (c *Connection) send(msg jsonrpc2.Message) error {
	if c.proc == nil {
		return ErrServerDead
	}
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	if err := c.proc.write(data); err != nil {
		c.die(fmt.Errorf("%w: %v", ErrServerExited, err))
		return fmt.Errorf("%w: %v", ErrServerDead, err)
	}
	return nil
}

func (c *Connection) sendOpen(doc *Document) {
	err := c.notify(protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        doc.URI,
			LanguageID: protocol.LanguageIdentifier(doc.LanguageID),
			Version:    doc.Version,
			Text:       doc.source.Text(),
		},
	})
	if err == nil {
		doc.opened = true
		doc.NeedsUpdate = false
	}
}

// fullChange is a whole-document content change. It has no range.
type fullChange struct {
	Text string `json:"text"`
}

type didChangeParams struct {
	TextDocument   protocol.VersionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []fullChange                             `json:"contentChanges"`
}

func (c *Connection) sendChange(doc *Document) {
	err := c.notify(protocol.MethodTextDocumentDidChange, &didChangeParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: doc.URI},
			Version:                doc.Version,
		},
		ContentChanges: []fullChange{{Text: doc.source.Text()}},
	})
	if err == nil {
		doc.NeedsUpdate = false
	}
}

func (c *Connection) sendClose(doc *Document) {
	_ = c.notify(protocol.MethodTextDocumentDidClose, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
	})
}

func (c *Connection) bind(doc *Document) {
	doc.conn = c
	c.docs = append(c.docs, doc)
	if c.state == StateReady {
		c.sendOpen(doc)
	}
}

func (c *Connection) unbind(doc *Document) {
	for i, d := range c.docs {
		if d == doc {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			break
		}
	}
	if c.state == StateReady && doc.opened {
		c.sendClose(doc)
	}
	doc.opened = false
	doc.conn = nil
}

// Tick runs housekeeping: forwards server stderr to the log, notices a
// reaped child and counts startup retries.
func (c *Connection) Tick(now time.Time) {
	if c.proc == nil {
		return
	}
	c.drainStderr()

	if c.proc.reap() {
		// Deliver whatever the server wrote before exiting.
		buf := make([]byte, reactor.ChunkSize)
		for c.proc != nil && c.proc.stdout >= 0 {
			n, status, _ := reactor.ReadChunk(c.proc.stdout, buf)
			if status != reactor.ReadData {
				break
			}
			c.dec.Write(buf[:n])
			c.drainFrames()
		}
		c.die(ErrServerExited)
		return
	}

	if c.state != StateStarting {
		return
	}
	for now.Sub(c.lastAttempt) >= c.mgr.retryDelay && c.state == StateStarting {
		c.attempts++
		c.lastAttempt = c.lastAttempt.Add(c.mgr.retryDelay)
		c.log.Debug("waiting for initialize", zap.Int("attempt", c.attempts), zap.Int("max", c.mgr.maxRetries))
		if c.attempts >= c.mgr.maxRetries {
			c.die(ErrStartupTimeout)
		}
	}
}

func (c *Connection) drainStderr() {
	if c.proc == nil || c.proc.stderr < 0 {
		return
	}
	buf := make([]byte, reactor.ChunkSize)
	n, status, _ := reactor.ReadChunk(c.proc.stderr, buf)
	switch status {
	case reactor.ReadData:
		c.stderrTail = append(c.stderrTail, buf[:n]...)
		for {
			i := strings.IndexByte(string(c.stderrTail), '\n')
			if i < 0 {
				break
			}
			if line := strings.TrimSpace(string(c.stderrTail[:i])); line != "" {
				c.log.Debug("stderr", zap.String("line", line))
			}
			c.stderrTail = c.stderrTail[i+1:]
		}
	case reactor.ReadClosed:
		c.proc.stderr = reactor.CloseFd(c.proc.stderr)
	}
}

// Shutdown sends shutdown and exit to a live server, then kills and reaps
// it. Teardown completes before Shutdown returns.
func (c *Connection) Shutdown() error {
	if c.state == StateReady {
		c.setState(StateShuttingDown)
		if _, err := c.call(KindShutdown, nil, nil); err == nil {
			_ = c.notify(protocol.MethodExit, nil)
		}
	}
	return c.die(nil)
}

// die tears the server down and moves to Dead. Outstanding requests are
// dropped; nothing restarts automatically.
func (c *Connection) die(cause error) error {
	if c.state == StateDead && c.proc == nil {
		return nil
	}
	if c.state != StateShuttingDown {
		c.setState(StateShuttingDown)
	}
	if cause != nil {
		c.lastErr = cause
		c.log.Warn("server down", zap.Error(cause), zap.Int("pending", len(c.pending)))
	}

	var err error
	if c.proc != nil {
		err = c.proc.terminate()
		c.proc = nil
	}
	clear(c.pending)
	c.dec.Reset()
	c.stderrTail = nil
	for _, doc := range c.docs {
		doc.opened = false
	}
	c.setState(StateDead)
	if errors.Is(cause, ErrStartupTimeout) {
		c.mgr.metrics.StartupTimeout(c.name)
	}
	return err
}
