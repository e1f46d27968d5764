// Package buffer is the editor's text model: a slice of lines, a cursor
// expressed as a row and byte column, whole-range edit application and file
// load/save.
//
// Columns are byte offsets into a line. Conversion to the character
// columns used by language servers happens in package lsp.
package buffer
