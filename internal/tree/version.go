package tree

import "github.com/dekarrin/stitch/internal/ictiobus/icterrors"

// Package-private Version/Undo Log (spec.md §4.9): every Node-field write
// goes through Tree's Set* methods, which append a record of the field's old
// and new value to the log's pending group. UndoSnapshot seals the pending
// group and bumps the global version counter; Undo/Redo move a cursor
// through sealed groups, replaying old/new values without re-deriving them
// from a reparse.
//
// This is a grouped-diff log rather than a literal "read field at version v
// returns the latest record <= v" sparse map: groups are the snapshot
// boundaries spec.md §4.9 describes, and undo/redo moving the group cursor
// gives the same observable property (undo, then a fresh reparse of the
// reconstructed text, must be tree_compare-equal to the live tree) with a
// much smaller log, since most edits never need point-in-time reads at an
// arbitrary old version — only "roll back to the last snapshot boundary".
type record struct {
	h   Handle
	f   field
	old any
	new any
}

type versionLog struct {
	version int
	groups  [][]record
	cur     int // groups[:cur] are applied; groups[cur:] are available to Redo
	pending []record
}

func newVersionLog() *versionLog {
	return &versionLog{}
}

func (l *versionLog) record(h Handle, f field, old, new any) {
	l.pending = append(l.pending, record{h: h, f: f, old: old, new: new})
}

// seal moves any pending (not-yet-grouped) writes into a new sealed group,
// discarding any groups past the current cursor (a fresh edit after an undo
// clears the redo log, same as every other editor's undo stack). Returns
// false if there was nothing pending to seal.
func (l *versionLog) seal() bool {
	if len(l.pending) == 0 {
		return false
	}
	l.groups = append(l.groups[:l.cur], l.pending)
	l.cur++
	l.version++
	l.pending = nil
	return true
}

// Version returns the current global version counter: the number of sealed
// snapshot groups applied so far.
func (t *Tree) Version() int {
	return t.log.version
}

// UndoSnapshot seals any edits made since the last snapshot (or since tree
// creation) into one undo step, and bumps the version counter. Operations
// that don't call this explicitly are still undoable: Undo seals a pending
// group itself before reverting, so "undo" on an uncommitted batch of edits
// undoes that whole batch as one step.
func (t *Tree) UndoSnapshot() {
	t.log.seal()
}

// Undo reverts the most recently applied (and not yet undone) snapshot
// group, restoring every field it touched to its pre-write value. Returns a
// *icterrors.CoreError of KindUndoUnderflow if there is nothing left to
// undo.
func (t *Tree) Undo() error {
	t.log.seal()
	if t.log.cur == 0 {
		return icterrors.NewUndoUnderflow()
	}
	t.log.cur--
	grp := t.log.groups[t.log.cur]
	for i := len(grp) - 1; i >= 0; i-- {
		r := grp[i]
		t.apply(r.h, r.f, r.old)
	}
	return nil
}

// Redo reapplies the next undone snapshot group. Returns a
// *icterrors.CoreError of KindRedoOverflow if there is nothing to redo
// (either nothing has been undone, or a new edit since the last undo
// cleared the redo log).
func (t *Tree) Redo() error {
	if t.log.cur >= len(t.log.groups) {
		return icterrors.NewRedoOverflow()
	}
	grp := t.log.groups[t.log.cur]
	for i := range grp {
		r := grp[i]
		t.apply(r.h, r.f, r.new)
	}
	t.log.cur++
	t.log.version++
	return nil
}

// CanUndo/CanRedo let callers (editor.Document's last_status, spec.md §6) ask
// without provoking an error.
func (t *Tree) CanUndo() bool {
	return t.log.cur > 0 || len(t.log.pending) > 0
}

func (t *Tree) CanRedo() bool {
	return t.log.cur < len(t.log.groups)
}
