// Package tree_test exercises Manager/Tree end to end via a tiny grammar,
// rather than constructing LR tables by hand: internal/grammarfile is the
// simplest way to get a real Parser+Lexer pair wired up the same way
// production callers do.
package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/stitch/internal/grammarfile"
	"github.com/dekarrin/stitch/internal/tree"
)

const listSrc = `
name = "list"
start = "S"
indent_sensitive = false

[[tokens]]
id = "a"
pattern = "a"
priority = 1

[[tokens]]
id = "comma"
pattern = ","
priority = 1

[[productions]]
head = "S"
body = ["S", "comma", "a"]

[[productions]]
head = "S"
body = ["a"]
`

func newManager(t *testing.T) *tree.Manager {
	t.Helper()
	gr, err := grammarfile.LoadString(listSrc)
	if err != nil {
		t.Fatalf("loading grammar: %v", err)
	}
	mgr, err := gr.NewManager()
	if err != nil {
		t.Fatalf("building manager: %v", err)
	}
	return mgr
}

func Test_Manager_Insert_parsesCleanly(t *testing.T) {
	assert := assert.New(t)

	mgr := newManager(t)
	mgr.Insert("a,a,a")
	assert.Equal("ok", mgr.LastStatusMessage())
	assert.Equal("a,a,a", mgr.ExportAsText())
	assert.NotEqual(tree.NoHandle, mgr.Tree.Root)
}

func Test_Manager_Insert_preservesUntouchedNodeIdentity(t *testing.T) {
	// Inserting at the end of the document must not force a reparse of the
	// unrelated subtree covering the document's existing prefix (spec.md §8
	// Scenario 6: node identity survives an edit that doesn't touch it).
	assert := assert.New(t)

	mgr := newManager(t)
	mgr.Insert("a,a")
	firstA := mgr.Tree.Get(mgr.Tree.BOS).NextTerm

	mgr.MoveCursor(len(mgr.Tree.Source))
	mgr.Insert(",a")
	assert.Equal("ok", mgr.LastStatusMessage())
	assert.Equal("a,a,a", mgr.ExportAsText())

	stillFirstA := mgr.Tree.Get(mgr.Tree.BOS).NextTerm
	assert.Equal(firstA, stillFirstA, "the untouched leading terminal keeps its Handle across an edit past it")
	assert.Equal(mgr.Tree.Yield(mgr.Tree.Root), "a,a,a")
}

func Test_Manager_UndoRedo_restoresSourceAndRoot(t *testing.T) {
	assert := assert.New(t)

	mgr := newManager(t)
	mgr.Insert("a")
	mgr.UndoSnapshot()
	preUndoSource := mgr.ExportAsText()

	mgr.Insert(",a")
	assert.Equal("a,a", mgr.ExportAsText())

	if err := mgr.Undo(); !assert.NoError(err) {
		return
	}
	assert.Equal(preUndoSource, mgr.ExportAsText())
	assert.Equal("ok", mgr.LastStatusMessage())

	if err := mgr.Redo(); !assert.NoError(err) {
		return
	}
	assert.Equal("a,a", mgr.ExportAsText())
}

func Test_Manager_Undo_withNothingToUndo_isError(t *testing.T) {
	assert := assert.New(t)

	mgr := newManager(t)
	err := mgr.Undo()
	assert.Error(err)
}

func Test_Manager_Backspace_reparses(t *testing.T) {
	assert := assert.New(t)

	mgr := newManager(t)
	mgr.Insert("a,a")
	mgr.Backspace()
	assert.Equal("a,", mgr.ExportAsText())
}

func Test_Manager_SelectTo_DeleteSelection(t *testing.T) {
	assert := assert.New(t)

	mgr := newManager(t)
	mgr.Insert("a,a,a")
	mgr.MoveCursor(0)
	mgr.SelectTo(2)
	mgr.DeleteSelection()
	assert.Equal("a,a", mgr.ExportAsText())
}

func Test_Manager_HomeEnd(t *testing.T) {
	assert := assert.New(t)

	mgr := newManager(t)
	mgr.Insert("a,a\na,a")
	mgr.Home()
	assert.Equal(4, mgr.Cursor.Pos)
	mgr.End()
	assert.Equal(7, mgr.Cursor.Pos)
}

func Test_Manager_SyntaxError_isRecordedNotFatal(t *testing.T) {
	assert := assert.New(t)

	mgr := newManager(t)
	mgr.Insert("a,,a")
	assert.NotEqual("ok", mgr.LastStatusMessage())
	assert.NotEmpty(mgr.Errors)
}
