package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/stitch/internal/grammarfile"
	"github.com/dekarrin/stitch/internal/persist"
)

const calcSrc = `
name = "calc"
start = "E"
indent_sensitive = false

[[tokens]]
id = "int"
pattern = "[0-9]+"
priority = 1

[[tokens]]
id = "plus"
pattern = "\\+"
priority = 1

[[productions]]
head = "E"
body = ["E", "plus", "E"]

[[productions]]
head = "E"
body = ["int"]
`

const wordSrc = `
name = "words"
start = "S"
indent_sensitive = false

[[tokens]]
id = "word"
pattern = "[a-z]+"
priority = 1

[[productions]]
head = "S"
body = ["word"]
`

func grammars(t *testing.T) map[string]*grammarfile.Grammar {
	t.Helper()
	calc, err := grammarfile.LoadString(calcSrc)
	if err != nil {
		t.Fatalf("loading calc: %v", err)
	}
	words, err := grammarfile.LoadString(wordSrc)
	if err != nil {
		t.Fatalf("loading words: %v", err)
	}
	return map[string]*grammarfile.Grammar{
		"calc":  calc,
		"words": words,
	}
}

func Test_NewDocument_unknownGrammar(t *testing.T) {
	assert := assert.New(t)

	_, err := NewDocument(grammars(t), "nope")
	assert.Error(err)
}

func Test_Document_InsertAndExport(t *testing.T) {
	assert := assert.New(t)

	doc, err := NewDocument(grammars(t), "calc")
	if !assert.NoError(err) {
		return
	}

	doc.Insert("1+2")
	assert.Equal("ok", doc.LastStatusMessage())
	assert.Equal("1+2", doc.ExportAsText())
}

func Test_Document_UndoRedo(t *testing.T) {
	assert := assert.New(t)

	doc, err := NewDocument(grammars(t), "calc")
	if !assert.NoError(err) {
		return
	}

	doc.Insert("1")
	doc.UndoSnapshot()
	doc.Insert("+2")
	assert.Equal("1+2", doc.ExportAsText())

	if err := doc.Undo(); !assert.NoError(err) {
		return
	}
	assert.Equal("1", doc.ExportAsText())

	if err := doc.Redo(); !assert.NoError(err) {
		return
	}
	assert.Equal("1+2", doc.ExportAsText())
}

func Test_Document_AddLeaveLanguageBox(t *testing.T) {
	assert := assert.New(t)

	doc, err := NewDocument(grammars(t), "calc")
	if !assert.NoError(err) {
		return
	}

	doc.Insert("1+2")
	assert.Equal(1, len(doc.frames))

	if err := doc.LeaveLanguageBox(); !assert.Error(err) {
		return
	}

	if err := doc.AddLanguageBox("words"); !assert.NoError(err) {
		return
	}
	assert.Equal(2, len(doc.frames))
	assert.Equal(2, len(doc.stack))

	doc.Insert("hello")
	assert.Equal("ok", doc.LastStatusMessage())

	if err := doc.LeaveLanguageBox(); !assert.NoError(err) {
		return
	}
	assert.Equal(1, len(doc.stack))
	assert.Equal("calc", doc.current().grammarID)

	// the base frame's own text is unaffected by the box's insertion
	assert.Equal("1+2", doc.ExportAsText())
}

func Test_Document_AddLanguageBox_unknownGrammar(t *testing.T) {
	assert := assert.New(t)

	doc, err := NewDocument(grammars(t), "calc")
	if !assert.NoError(err) {
		return
	}

	err = doc.AddLanguageBox("nope")
	assert.Error(err)
}

func Test_Document_SaveLoad(t *testing.T) {
	assert := assert.New(t)

	doc, err := NewDocument(grammars(t), "calc")
	if !assert.NoError(err) {
		return
	}
	doc.Insert("1+2")

	store, err := persist.Open(":memory:")
	if !assert.NoError(err) {
		return
	}
	defer store.Close()

	if err := doc.Save(store, "doc1"); !assert.NoError(err) {
		return
	}

	doc.Insert("+3")
	assert.Equal("1+2+3", doc.ExportAsText())

	if err := doc.Load(store, "doc1"); !assert.NoError(err) {
		return
	}
	assert.Equal("1+2", doc.ExportAsText())
}
