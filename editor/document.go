// Package editor is the public surface spec.md §6 describes: a Document
// wraps one tree.Manager per active language box (spec.md §4.7's "forest of
// parse trees, one per nested grammar") and adds add_language_box/
// leave_language_box on top of the text-editing operations tree.Manager
// already implements.
package editor

import (
	"fmt"
	"os"

	"github.com/dekarrin/stitch/internal/grammarfile"
	"github.com/dekarrin/stitch/internal/persist"
	"github.com/dekarrin/stitch/internal/tree"
)

// boxFrame is one entry of the document's forest: the Manager driving one
// nested grammar's tree, and, for every frame but the base document, the
// MagicTerminal in the enclosing tree whose InnerRoot points at it.
type boxFrame struct {
	grammarID   string
	mgr         *tree.Manager
	magicOwner  *tree.Tree  // tree holding the MagicTerminal that owns this frame; nil for the base frame
	magicHandle tree.Handle // NoHandle for the base frame
}

// Document is an editable, navigable forest of language boxes.
type Document struct {
	grammars map[string]*grammarfile.Grammar

	// frames holds every box created so far, in creation order; frames[0] is
	// the base document. A box stays in frames (and so stays loadable/
	// re-enterable) after LeaveLanguageBox pops it off stack.
	frames []*boxFrame

	// stack is the navigation path from the base frame to wherever edits
	// currently land; stack[len(stack)-1] indexes the active frame.
	stack []int
}

// NewDocument creates a document whose base frame uses the grammar
// registered under baseGrammarID. grammars is the full set of grammars this
// document may add language boxes from (spec.md §6's add_language_box(grammar_id)).
func NewDocument(grammars map[string]*grammarfile.Grammar, baseGrammarID string) (*Document, error) {
	gr, ok := grammars[baseGrammarID]
	if !ok {
		return nil, fmt.Errorf("unknown grammar %q", baseGrammarID)
	}
	mgr, err := gr.NewManager()
	if err != nil {
		return nil, fmt.Errorf("initializing grammar %q: %w", baseGrammarID, err)
	}

	base := &boxFrame{grammarID: baseGrammarID, mgr: mgr, magicHandle: tree.NoHandle}
	return &Document{
		grammars: grammars,
		frames:   []*boxFrame{base},
		stack:    []int{0},
	}, nil
}

func (d *Document) current() *boxFrame {
	return d.frames[d.stack[len(d.stack)-1]]
}

// Manager returns the tree.Manager currently receiving edits (the base
// document, or whichever language box is innermost on the navigation
// stack).
func (d *Document) Manager() *tree.Manager {
	return d.current().mgr
}

func (d *Document) Insert(text string)        { d.current().mgr.Insert(text) }
func (d *Document) Backspace()                { d.current().mgr.Backspace() }
func (d *Document) Delete()                   { d.current().mgr.Delete() }
func (d *Document) Paste(text string)         { d.current().mgr.Paste(text) }
func (d *Document) DeleteSelection()          { d.current().mgr.DeleteSelection() }
func (d *Document) MoveCursor(pos int)        { d.current().mgr.MoveCursor(pos) }
func (d *Document) Home()                     { d.current().mgr.Home() }
func (d *Document) End()                      { d.current().mgr.End() }
func (d *Document) SelectTo(pos int)          { d.current().mgr.SelectTo(pos) }
func (d *Document) ExportAsText() string      { return d.current().mgr.ExportAsText() }
func (d *Document) UndoSnapshot()             { d.current().mgr.UndoSnapshot() }
func (d *Document) Undo() error               { return d.current().mgr.Undo() }
func (d *Document) Redo() error               { return d.current().mgr.Redo() }
func (d *Document) LastStatusMessage() string { return d.current().mgr.LastStatusMessage() }

// ImportFile inserts the contents of path at the cursor of the active
// frame, the way a caller would paste in a file's text.
func (d *Document) ImportFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	d.current().mgr.Insert(string(data))
	return nil
}

// AddLanguageBox inserts a MagicTerminal at the active frame's cursor and
// switches editing into a fresh box of grammarID (spec.md §4.7: "insert a
// MagicTerminal at the cursor, create a new Parser Record whose root is
// that MagicTerminal's payload, switch cursor into it"). The box's own
// text/tree is independent of the host frame's: it is lexed and parsed by
// its own grammar, not threaded through the host's Source/commit cycle.
func (d *Document) AddLanguageBox(grammarID string) error {
	gr, ok := d.grammars[grammarID]
	if !ok {
		return fmt.Errorf("unknown grammar %q", grammarID)
	}
	inner, err := gr.NewManager()
	if err != nil {
		return fmt.Errorf("initializing grammar %q: %w", grammarID, err)
	}

	outer := d.current()
	at, _ := terminalAt(outer.mgr.Tree, outer.mgr.Cursor.Pos)
	prev := outer.mgr.Tree.Get(at).PrevTerm
	n := outer.mgr.Tree.Get(at)
	magic := outer.mgr.Tree.NewMagicTerminal("", n.Line, n.LinePos, tree.NoHandle)
	spliceAfter(outer.mgr.Tree, prev, magic)

	frame := &boxFrame{
		grammarID:   grammarID,
		mgr:         inner,
		magicOwner:  outer.mgr.Tree,
		magicHandle: magic,
	}
	d.frames = append(d.frames, frame)
	d.stack = append(d.stack, len(d.frames)-1)
	return nil
}

// LeaveLanguageBox seals the active box's current tree root into the
// MagicTerminal that owns it and moves the enclosing frame's cursor to the
// outer terminal following that MagicTerminal (spec.md §4.7: "move cursor
// to the outer terminal following the MagicTerminal"). The box's frame
// stays in d.frames so its tree is not lost, but this operation set has no
// re-enter op to navigate back into it.
func (d *Document) LeaveLanguageBox() error {
	if len(d.stack) <= 1 {
		return fmt.Errorf("not inside a language box")
	}
	frame := d.current()
	frame.magicOwner.SetInnerRoot(frame.magicHandle, frame.mgr.Tree.Root)

	d.stack = d.stack[:len(d.stack)-1]
	outerMgr := d.current().mgr
	next := frame.magicOwner.Get(frame.magicHandle).NextTerm
	outerMgr.Cursor.MoveTo(offsetOf(frame.magicOwner, next))
	return nil
}

// Save persists the base frame's tree under docID. Active language boxes
// are not themselves persisted: each box's tree.Manager is independent of
// the base frame's Source, so saving the whole forest would need a manifest
// of frame/grammar/MagicTerminal linkage on top of what internal/persist
// stores per tree. Out of scope for this operation set; internal/persist's
// flatten/restore already generalizes to a second frame if that manifest is
// ever added.
func (d *Document) Save(store *persist.Store, docID string) error {
	return store.Save(docID, d.frames[0].mgr.Tree)
}

// Load replaces the base frame's tree with the one stored under docID,
// discarding any active language boxes.
func (d *Document) Load(store *persist.Store, docID string) error {
	t, err := store.Load(docID)
	if err != nil {
		return err
	}
	d.frames = d.frames[:1]
	d.stack = []int{0}
	d.frames[0].mgr.Tree = t
	d.frames[0].mgr.Cursor = tree.Cursor{}
	return nil
}

// terminalAt returns the handle of the terminal-chain node whose lexeme
// span covers offset, and that node's own starting rune offset.
func terminalAt(t *tree.Tree, offset int) (tree.Handle, int) {
	pos := 0
	h := t.Get(t.BOS).NextTerm
	for h != t.EOS && h != tree.NoHandle {
		n := t.Get(h)
		length := len([]rune(n.Lexeme))
		if offset < pos+length {
			return h, pos
		}
		pos += length
		h = n.NextTerm
	}
	return t.EOS, pos
}

// offsetOf returns the rune offset of the start of the terminal-chain node
// target, or the length of the whole chain if target is t.EOS/NoHandle.
func offsetOf(t *tree.Tree, target tree.Handle) int {
	pos := 0
	h := t.Get(t.BOS).NextTerm
	for h != tree.NoHandle {
		if h == target {
			return pos
		}
		n := t.Get(h)
		pos += len([]rune(n.Lexeme))
		h = n.NextTerm
	}
	return pos
}

// spliceAfter links node into the terminal chain immediately after prev.
func spliceAfter(t *tree.Tree, prev, node tree.Handle) {
	next := t.Get(prev).NextTerm
	t.SetNextTerm(prev, node)
	t.SetPrevTerm(node, prev)
	t.SetNextTerm(node, next)
	if next != tree.NoHandle {
		t.SetPrevTerm(next, node)
	}
}
