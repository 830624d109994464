// Package icterrors defines the error taxonomy for the parsing/lexing core:
// errors that carry enough position information (line, column, offending
// lexeme) to report a human-readable diagnostic, distinguishable by type so
// callers can react differently to a lex failure than to a syntax error.
package icterrors

import (
	"fmt"
	"strings"
)

// positioned is satisfied by any token type that can point at a location in
// source text. It exists so this package can build position-aware errors
// without importing the lex package (which itself needs to construct these
// errors, and would otherwise create an import cycle).
type positioned interface {
	Line() int
	LinePos() int
	FullLine() string
}

// Kind distinguishes the broad category of error produced by the
// lexing/parsing core, matching the taxonomy a caller needs to branch on:
// a malformed token, an unexpected token, a malformed indent structure, a
// tree invariant violated during incremental reuse, or an undo/redo log
// misuse.
type Kind int

const (
	KindLex Kind = iota
	KindSyntax
	KindIndent
	KindRetainability
	KindUndoUnderflow
	KindRedoOverflow
)

func (k Kind) String() string {
	switch k {
	case KindLex:
		return "lex error"
	case KindSyntax:
		return "syntax error"
	case KindIndent:
		return "indent error"
	case KindRetainability:
		return "retainability violation"
	case KindUndoUnderflow:
		return "undo underflow"
	case KindRedoOverflow:
		return "redo overflow"
	default:
		return "error"
	}
}

// CoreError is the concrete error type returned by every operation in this
// module. It always carries a Kind, and may carry an offending token's
// position for a diagnostic that points at source text.
type CoreError struct {
	Kind    Kind
	Message string

	// Line and LinePos are 1-indexed. Zero means "not applicable" (e.g. an
	// UndoUnderflow has no associated source position).
	Line    int
	LinePos int
	// FullLine is the source line the error occurred on, for building a
	// caret-pointer diagnostic; empty if not applicable.
	FullLine string

	wrapped error
}

func (e *CoreError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.wrapped
}

// FullMessage returns a multi-line diagnostic: the error message, followed by
// the offending source line and a caret pointing at the column, when position
// info is available. Falls back to Error() when it is not (e.g. a
// KindUndoUnderflow has no associated source position).
func (e *CoreError) FullMessage() string {
	if e.FullLine == "" {
		return e.Error()
	}

	caretPos := e.LinePos - 1
	if caretPos < 0 {
		caretPos = 0
	}

	return fmt.Sprintf("%s\n%d | %s\n%s^", e.Error(), e.Line, e.FullLine, strings.Repeat(" ", caretPos+len(fmt.Sprintf("%d | ", e.Line))))
}

// NewSyntaxErrorFromToken builds a KindSyntax CoreError positioned at tok,
// for an unexpected-token condition encountered mid-parse.
func NewSyntaxErrorFromToken(msg string, tok positioned) *CoreError {
	return &CoreError{
		Kind:     KindSyntax,
		Message:  msg,
		Line:     tok.Line(),
		LinePos:  tok.LinePos(),
		FullLine: tok.FullLine(),
	}
}

// NewLexErrorFromToken builds a KindLex CoreError positioned at tok, for a
// maximal span of input no DFA rule could match.
func NewLexErrorFromToken(msg string, tok positioned) *CoreError {
	return &CoreError{
		Kind:     KindLex,
		Message:  msg,
		Line:     tok.Line(),
		LinePos:  tok.LinePos(),
		FullLine: tok.FullLine(),
	}
}

// NewIndentError builds a KindIndent CoreError for a malformed indentation
// structure (e.g. a DEDENT that doesn't match any enclosing INDENT level).
func NewIndentError(msg string, line, linePos int, fullLine string) *CoreError {
	return &CoreError{Kind: KindIndent, Message: msg, Line: line, LinePos: linePos, FullLine: fullLine}
}

// NewRetainabilityViolation builds a KindRetainability CoreError: an
// incremental-reuse invariant (spec.md §3's six Node invariants) was found
// broken, most commonly a node whose children's states disagree with its
// own DFA state after a partial reparse.
func NewRetainabilityViolation(msg string) *CoreError {
	return &CoreError{Kind: KindRetainability, Message: msg}
}

// NewUndoUnderflow builds a KindUndoUnderflow CoreError: Undo was called
// with no prior versioned edit to undo.
func NewUndoUnderflow() *CoreError {
	return &CoreError{Kind: KindUndoUnderflow, Message: "no edit to undo"}
}

// NewRedoOverflow builds a KindRedoOverflow CoreError: Redo was called with
// no undone edit pending (either nothing was undone, or a new edit since
// the last undo cleared the redo log).
func NewRedoOverflow() *CoreError {
	return &CoreError{Kind: KindRedoOverflow, Message: "no edit to redo"}
}

// Wrap attaches a lower-level cause to an existing CoreError, preserving its
// Kind/position but allowing errors.Unwrap to reach the cause.
func Wrap(base *CoreError, cause error) error {
	cp := *base
	cp.wrapped = cause
	return &cp
}
