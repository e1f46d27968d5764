package lsp

import (
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// readyConnection returns the document's connection if a request can be
// sent now. A stale server copy is brought up to date first.
func (m *Manager) readyConnection(doc *Document, kind RequestKind) (*Connection, error) {
	if doc == nil || doc.conn == nil {
		return nil, &RequestError{Kind: kind, Err: ErrDocumentNotOpen}
	}
	conn := doc.conn
	if conn.state != StateReady || !doc.opened {
		return nil, &RequestError{Kind: kind, Err: ErrNotReady}
	}
	if doc.NeedsUpdate {
		conn.sendChange(doc)
	}
	return conn, nil
}

func positionParams(doc *Document, row, byteCol int) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
		Position:     ToProtocol(doc.source.Line(row), row, byteCol),
	}
}

// Hover requests hover text at a byte position.
func (m *Manager) Hover(doc *Document, row, byteCol int) (jsonrpc2.ID, error) {
	conn, err := m.readyConnection(doc, KindHover)
	if err != nil {
		return jsonrpc2.ID{}, err
	}
	return conn.call(KindHover, &protocol.HoverParams{
		TextDocumentPositionParams: positionParams(doc, row, byteCol),
	}, doc)
}

// Completion requests completion items at a byte position.
func (m *Manager) Completion(doc *Document, row, byteCol int) (jsonrpc2.ID, error) {
	conn, err := m.readyConnection(doc, KindCompletion)
	if err != nil {
		return jsonrpc2.ID{}, err
	}
	return conn.call(KindCompletion, &protocol.CompletionParams{
		TextDocumentPositionParams: positionParams(doc, row, byteCol),
	}, doc)
}

// Definition requests the definition locations of the symbol at a byte
// position.
func (m *Manager) Definition(doc *Document, row, byteCol int) (jsonrpc2.ID, error) {
	conn, err := m.readyConnection(doc, KindDefinition)
	if err != nil {
		return jsonrpc2.ID{}, err
	}
	return conn.call(KindDefinition, &protocol.DefinitionParams{
		TextDocumentPositionParams: positionParams(doc, row, byteCol),
	}, doc)
}

// References requests every reference to the symbol at a byte position,
// declaration included.
func (m *Manager) References(doc *Document, row, byteCol int) (jsonrpc2.ID, error) {
	conn, err := m.readyConnection(doc, KindReferences)
	if err != nil {
		return jsonrpc2.ID{}, err
	}
	return conn.call(KindReferences, &protocol.ReferenceParams{
		TextDocumentPositionParams: positionParams(doc, row, byteCol),
		Context:                    protocol.ReferenceContext{IncludeDeclaration: true},
	}, doc)
}

// Rename requests a workspace edit renaming the symbol at a byte position.
func (m *Manager) Rename(doc *Document, row, byteCol int, newName string) (jsonrpc2.ID, error) {
	conn, err := m.readyConnection(doc, KindRename)
	if err != nil {
		return jsonrpc2.ID{}, err
	}
	return conn.call(KindRename, &protocol.RenameParams{
		TextDocumentPositionParams: positionParams(doc, row, byteCol),
		NewName:                    newName,
	}, doc)
}

// DocumentSymbols requests the symbol outline of the document.
func (m *Manager) DocumentSymbols(doc *Document) (jsonrpc2.ID, error) {
	conn, err := m.readyConnection(doc, KindDocumentSymbol)
	if err != nil {
		return jsonrpc2.ID{}, err
	}
	return conn.call(KindDocumentSymbol, &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
	}, doc)
}
