package indent

import (
	"testing"

	"github.com/dekarrin/stitch/internal/ictiobus/lex"
	"github.com/stretchr/testify/assert"
)

func tok(class lex.TokenClass, lexeme string, line int) lex.Token {
	return lex.NewToken(class, lexeme, line, 1, "", 0)
}

func classIDs(toks []lex.Token) []string {
	ids := make([]string, len(toks))
	for i := range toks {
		ids[i] = toks[i].Class().ID()
	}
	return ids
}

func Test_Engine_Apply_flatLines(t *testing.T) {
	assert := assert.New(t)

	src := "a\nb\n"
	word := lex.MakeDefaultClass("word")
	toks := []lex.Token{tok(word, "a", 1), tok(word, "b", 2)}

	e := NewEngine(4)
	out, err := e.Apply(src, toks)
	if !assert.NoError(err) {
		return
	}

	assert.Equal([]string{"word", "newline", "word", "newline"}, classIDs(out))
}

func Test_Engine_Apply_indentThenDedent(t *testing.T) {
	assert := assert.New(t)

	src := "a\n    b\nc\n"
	word := lex.MakeDefaultClass("word")
	toks := []lex.Token{tok(word, "a", 1), tok(word, "b", 2), tok(word, "c", 3)}

	e := NewEngine(4)
	out, err := e.Apply(src, toks)
	if !assert.NoError(err) {
		return
	}

	assert.Equal([]string{
		"word", "newline",
		"indent", "word", "newline",
		"dedent", "word", "newline",
	}, classIDs(out))
}

func Test_Engine_Apply_mismatchedDedentIsError(t *testing.T) {
	assert := assert.New(t)

	src := "a\n        b\n    c\n"
	word := lex.MakeDefaultClass("word")
	toks := []lex.Token{tok(word, "a", 1), tok(word, "b", 2), tok(word, "c", 3)}

	e := NewEngine(4)
	_, err := e.Apply(src, toks)
	assert.Error(err)
}

func Test_Engine_Apply_backslashContinuationSuppressesNewline(t *testing.T) {
	assert := assert.New(t)

	src := "a \\\nb\n"
	word := lex.MakeDefaultClass("word")
	toks := []lex.Token{tok(word, "a", 1), tok(word, "b", 2)}

	e := NewEngine(4)
	out, err := e.Apply(src, toks)
	if !assert.NoError(err) {
		return
	}

	assert.Equal([]string{"word", "word", "newline"}, classIDs(out))
}

func Test_Engine_Apply_trailingDedentsAfterFinalNewline(t *testing.T) {
	assert := assert.New(t)

	src := "a\n    b\n"
	word := lex.MakeDefaultClass("word")
	toks := []lex.Token{tok(word, "a", 1), tok(word, "b", 2)}

	e := NewEngine(4)
	out, err := e.Apply(src, toks)
	if !assert.NoError(err) {
		return
	}

	ids := classIDs(out)
	// the final token must be dedent, appearing strictly after the last
	// newline (spec.md §9's documented trailing-DEDENT-after-NEWLINE order).
	assert.Equal("newline", ids[len(ids)-2])
	assert.Equal("dedent", ids[len(ids)-1])
}
