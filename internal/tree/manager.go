package tree

import (
	"fmt"

	"github.com/dekarrin/stitch/internal/indent"
)

// Manager is the single-grammar edit pipeline: it owns a Tree and drives it
// through lex -> indent -> incremental parse on every text edit, exposing
// the text-editing half of spec.md §6's operation set (insert, backspace,
// delete, paste, move_cursor, home, end, select_to, delete_selection, undo,
// redo, undo_snapshot, export_as_text, last_status). editor.Document sits on
// top of one Manager per active language box and adds add_language_box/
// leave_language_box, which need to switch which Manager is receiving
// keystrokes rather than anything a single Manager does internally.
type Manager struct {
	Tree   *Tree
	Lexer  *Lexer
	Indent *indent.Engine
	Parser *Parser

	Cursor Cursor

	LastStatus string
	Errors     []error
}

// NewManager wires a fresh, empty document around the given grammar's
// lexer/indent engine/parser.
func NewManager(lx *Lexer, ind *indent.Engine, p *Parser) *Manager {
	return &Manager{
		Tree:       NewTree(),
		Lexer:      lx,
		Indent:     ind,
		Parser:     p,
		LastStatus: "ok",
	}
}

// Insert splices text in at the cursor (replacing the active selection, if
// any), advances the cursor past it, and reparses.
func (m *Manager) Insert(text string) {
	if start, end, ok := m.Cursor.Selection(); ok {
		m.spliceSource(start, end, "")
		m.Cursor.MoveTo(start)
	}
	m.invalidateAt(m.Cursor.Pos)
	rs := []rune(text)
	m.spliceSource(m.Cursor.Pos, m.Cursor.Pos, text)
	m.Cursor.MoveTo(m.Cursor.Pos + len(rs))
	m.commit()
}

// Backspace deletes the character before the cursor, or the active
// selection if one exists.
func (m *Manager) Backspace() {
	if _, _, ok := m.Cursor.Selection(); ok {
		m.DeleteSelection()
		return
	}
	if m.Cursor.Pos == 0 {
		return
	}
	m.invalidateAt(m.Cursor.Pos - 1)
	m.spliceSource(m.Cursor.Pos-1, m.Cursor.Pos, "")
	m.Cursor.MoveTo(m.Cursor.Pos - 1)
	m.commit()
}

// Delete deletes the character after the cursor, or the active selection if
// one exists.
func (m *Manager) Delete() {
	if _, _, ok := m.Cursor.Selection(); ok {
		m.DeleteSelection()
		return
	}
	if m.Cursor.Pos >= len(m.Tree.Source) {
		return
	}
	m.invalidateAt(m.Cursor.Pos)
	m.spliceSource(m.Cursor.Pos, m.Cursor.Pos+1, "")
	m.commit()
}

// Paste is Insert under another name: spec.md §6 lists them as distinct
// operations (paste may carry clipboard-specific bookkeeping at the UI
// layer) but they do the same thing to the document.
func (m *Manager) Paste(text string) {
	m.Insert(text)
}

// DeleteSelection removes the active selection, if any, and clears it.
func (m *Manager) DeleteSelection() {
	start, end, ok := m.Cursor.Selection()
	if !ok {
		return
	}
	m.invalidateAt(start)
	m.spliceSource(start, end, "")
	m.Cursor.MoveTo(start)
	m.commit()
}

// MoveCursor repositions the cursor to an absolute rune offset, clamped to
// the document's bounds, clearing any selection.
func (m *Manager) MoveCursor(pos int) {
	m.Cursor.MoveTo(pos)
	m.Cursor.clamp(len(m.Tree.Source))
}

// Home moves the cursor to the start of its current logical line.
func (m *Manager) Home() {
	start, _ := lineBounds(m.Tree.Source, m.Cursor.Pos)
	m.Cursor.MoveTo(start)
}

// End moves the cursor to the end of its current logical line.
func (m *Manager) End() {
	_, end := lineBounds(m.Tree.Source, m.Cursor.Pos)
	m.Cursor.MoveTo(end)
}

// SelectTo extends the selection from the cursor's position to pos.
func (m *Manager) SelectTo(pos int) {
	m.Cursor.SelectTo(pos)
	m.Cursor.clamp(len(m.Tree.Source))
}

// ExportAsText returns the document's current full source text.
func (m *Manager) ExportAsText() string {
	return string(m.Tree.Source)
}

// UndoSnapshot seals any edits made since the last snapshot into one undo
// step without making an edit of its own (spec.md §6's explicit
// undo_snapshot operation, for callers batching several Manager calls into
// one undo-able unit).
func (m *Manager) UndoSnapshot() {
	m.Tree.UndoSnapshot()
}

// Undo reverts the most recent undo step, restoring Source, Root, and every
// node field it touched, then reclamps the cursor (cursor position is not
// itself part of the undo log; restoring content takes priority over
// preserving exactly where the caret was).
func (m *Manager) Undo() error {
	if err := m.Tree.Undo(); err != nil {
		return err
	}
	m.Cursor.clamp(len(m.Tree.Source))
	return nil
}

// Redo reapplies the next undone step.
func (m *Manager) Redo() error {
	if err := m.Tree.Redo(); err != nil {
		return err
	}
	m.Cursor.clamp(len(m.Tree.Source))
	return nil
}

// LastStatusMessage reports the outcome of the most recent reparse, for
// spec.md §6's last_status operation.
func (m *Manager) LastStatusMessage() string {
	return m.LastStatus
}

// spliceSource replaces Source[start:end] with the runes of text.
func (m *Manager) spliceSource(start, end int, text string) {
	src := m.Tree.Source
	next := make([]rune, 0, len(src)-(end-start)+len(text))
	next = append(next, src[:start]...)
	next = append(next, []rune(text)...)
	next = append(next, src[end:]...)
	m.Tree.SetSource(next)
}

// invalidateAt marks Changed every terminal-chain node whose [start,
// end+Lookahead] window reaches offset, reading the Lookahead the lexer
// recorded to decide whether a token must be relexed even though the edit
// falls past its own lexeme (spec.md §4.2: a token's commit point can depend
// on text after it, so an edit just beyond a token's text can still
// invalidate it).
func (m *Manager) invalidateAt(offset int) {
	pos := 0
	h := m.Tree.Get(m.Tree.BOS).NextTerm
	for h != m.Tree.EOS && h != NoHandle {
		n := m.Tree.Get(h)
		length := len([]rune(n.Lexeme))
		end := pos + length
		if offset <= end+n.Lookahead {
			m.Tree.SetChanged(h, true)
		}
		if offset < end {
			break
		}
		pos = end
		h = n.NextTerm
	}
}

// commit relexes and reparses the whole current Source against the live
// tree, then seals the edits this produced into one undo step. Relexing the
// whole document on every edit (rather than only the touched span) is a
// deliberate scope simplification: the incremental guarantee this package
// actually delivers lives in Parser (whole-subtree and per-node reuse across
// an unchanged prefix/suffix of the token stream), not in avoiding a full
// DFA pass over the text. A from-scratch lex is cheap relative to a
// from-scratch parse; reusing it would need persisting a DFA state at every
// token boundary, which buys speed but not correctness this package doesn't
// already have.
func (m *Manager) commit() {
	toks := m.Lexer.Lex(string(m.Tree.Source))

	// Indent is nil for a grammar that wasn't declared indent_sensitive in
	// its grammar file (grammarfile.Grammar.NewManager): such a grammar's
	// token set has no INDENT/DEDENT/NEWLINE terminals to thread in, and
	// running the engine anyway would hand the parser tokens its table has
	// no ACTION entries for.
	if m.Indent != nil {
		var err error
		toks, err = m.Indent.Apply(string(m.Tree.Source), toks)
		if err != nil {
			m.LastStatus = err.Error()
			m.Errors = []error{err}
			m.Tree.UndoSnapshot()
			return
		}
	}

	stream := NewSliceStream(toks)
	root, recovered, err := m.Parser.Parse(m.Tree, stream)
	if err != nil {
		m.LastStatus = err.Error()
		m.Errors = append([]error{err}, recovered...)
		m.Tree.UndoSnapshot()
		return
	}

	_ = root
	m.Errors = recovered
	if len(recovered) == 0 {
		m.LastStatus = "ok"
	} else {
		m.LastStatus = fmt.Sprintf("%d recovered error(s)", len(recovered))
	}
	m.Tree.UndoSnapshot()
}
