package grammarfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
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

[[tokens]]
id = "star"
pattern = "\\*"
priority = 1

[[tokens]]
id = "lparen"
pattern = "\\("
priority = 1

[[tokens]]
id = "rparen"
pattern = "\\)"
priority = 1

[[productions]]
head = "E"
body = ["E", "plus", "T"]

[[productions]]
head = "E"
body = ["T"]

[[productions]]
head = "T"
body = ["T", "star", "F"]

[[productions]]
head = "T"
body = ["F"]

[[productions]]
head = "F"
body = ["lparen", "E", "rparen"]

[[productions]]
head = "F"
body = ["int"]
`

func Test_LoadString(t *testing.T) {
	assert := assert.New(t)

	gr, err := LoadString(calcSrc)
	if !assert.NoError(err) {
		return
	}
	assert.Equal("calc", gr.Name)
	assert.NotNil(gr.DFA)
	assert.Nil(gr.Indent, "calc is not indent_sensitive")
}

func Test_LoadString_missingName(t *testing.T) {
	assert := assert.New(t)

	_, err := LoadString(`start = "E"`)
	assert.Error(err)
}

func Test_Grammar_NewManager_parsesArithmetic(t *testing.T) {
	assert := assert.New(t)

	gr, err := LoadString(calcSrc)
	if !assert.NoError(err) {
		return
	}

	mgr, err := gr.NewManager()
	if !assert.NoError(err) {
		return
	}

	mgr.Insert("1+2*(3+4)")
	assert.Equal("ok", mgr.LastStatusMessage())
	assert.Equal("1+2*(3+4)", mgr.ExportAsText())
}

func Test_Grammar_NewManager_reportsSyntaxError(t *testing.T) {
	assert := assert.New(t)

	gr, err := LoadString(calcSrc)
	if !assert.NoError(err) {
		return
	}

	mgr, err := gr.NewManager()
	if !assert.NoError(err) {
		return
	}

	mgr.Insert("1++2")
	assert.NotEqual("ok", mgr.LastStatusMessage())
}

func Test_IndentSensitiveGrammar_getsEngine(t *testing.T) {
	assert := assert.New(t)

	src := `
name = "indented"
start = "S"
indent_sensitive = true

[[tokens]]
id = "word"
pattern = "[a-z]+"
priority = 1

[[productions]]
head = "S"
body = ["word"]
`
	gr, err := LoadString(src)
	if !assert.NoError(err) {
		return
	}
	assert.NotNil(gr.Indent)
}
