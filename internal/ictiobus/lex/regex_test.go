package lex

import (
	"testing"

	"github.com/dekarrin/stitch/internal/ictiobus/automaton"
	"github.com/stretchr/testify/assert"
)

// accepts runs s through the DFA formed by subset-constructing nfa and
// reports whether it ends in an accepting state having consumed all of s.
func accepts(nfa automaton.NFA[string], s string) bool {
	dfa := nfa.ToDFA()
	state := dfa.Start
	for _, r := range s {
		state = dfa.Next(state, string(r))
		if state == "" {
			return false
		}
	}
	return dfa.IsAccepting(state)
}

func Test_Compile_literalAndConcat(t *testing.T) {
	assert := assert.New(t)

	nfa, err := Compile("abc")
	if !assert.NoError(err) {
		return
	}

	assert.True(accepts(nfa, "abc"))
	assert.False(accepts(nfa, "ab"))
	assert.False(accepts(nfa, "abcd"))
	assert.False(accepts(nfa, ""))
}

func Test_Compile_alternation(t *testing.T) {
	assert := assert.New(t)

	nfa, err := Compile("cat|dog")
	if !assert.NoError(err) {
		return
	}

	assert.True(accepts(nfa, "cat"))
	assert.True(accepts(nfa, "dog"))
	assert.False(accepts(nfa, "cow"))
}

func Test_Compile_star(t *testing.T) {
	assert := assert.New(t)

	nfa, err := Compile("ab*c")
	if !assert.NoError(err) {
		return
	}

	assert.True(accepts(nfa, "ac"))
	assert.True(accepts(nfa, "abc"))
	assert.True(accepts(nfa, "abbbbc"))
	assert.False(accepts(nfa, "abbbbd"))
}

func Test_Compile_plus(t *testing.T) {
	assert := assert.New(t)

	nfa, err := Compile("a+")
	if !assert.NoError(err) {
		return
	}

	assert.False(accepts(nfa, ""))
	assert.True(accepts(nfa, "a"))
	assert.True(accepts(nfa, "aaaa"))
}

func Test_Compile_optional(t *testing.T) {
	assert := assert.New(t)

	nfa, err := Compile("colou?r")
	if !assert.NoError(err) {
		return
	}

	assert.True(accepts(nfa, "color"))
	assert.True(accepts(nfa, "colour"))
	assert.False(accepts(nfa, "colouur"))
}

func Test_Compile_charClass(t *testing.T) {
	assert := assert.New(t)

	nfa, err := Compile("[a-c]+")
	if !assert.NoError(err) {
		return
	}

	assert.True(accepts(nfa, "a"))
	assert.True(accepts(nfa, "abcba"))
	assert.False(accepts(nfa, "abcd"))
	assert.False(accepts(nfa, ""))
}

func Test_Compile_negatedCharClass(t *testing.T) {
	assert := assert.New(t)

	nfa, err := Compile("[^0-9]+")
	if !assert.NoError(err) {
		return
	}

	assert.True(accepts(nfa, "abc"))
	assert.False(accepts(nfa, "abc1"))
}

func Test_Compile_digitEscape(t *testing.T) {
	assert := assert.New(t)

	nfa, err := Compile(`\d+\.\d+`)
	if !assert.NoError(err) {
		return
	}

	assert.True(accepts(nfa, "3.14"))
	assert.False(accepts(nfa, "3."))
	assert.False(accepts(nfa, ".14"))
}

func Test_Compile_identifier(t *testing.T) {
	assert := assert.New(t)

	nfa, err := Compile(`[A-Za-z_][A-Za-z_0-9]*`)
	if !assert.NoError(err) {
		return
	}

	assert.True(accepts(nfa, "_foo123"))
	assert.True(accepts(nfa, "x"))
	assert.False(accepts(nfa, "1abc"))
}

func Test_Compile_grouping(t *testing.T) {
	assert := assert.New(t)

	nfa, err := Compile("(ab)+c")
	if !assert.NoError(err) {
		return
	}

	assert.True(accepts(nfa, "abc"))
	assert.True(accepts(nfa, "ababc"))
	assert.False(accepts(nfa, "ac"))
}
