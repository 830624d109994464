package automaton

import (
	"testing"

	"github.com/dekarrin/stitch/internal/ictiobus/grammar"
	"github.com/dekarrin/stitch/internal/util"
	"github.com/stretchr/testify/assert"
)

func Test_NewLALR1ViablePrefixDFA(t *testing.T) {
	testCases := []struct {
		name          string
		grammar       string
		expectStates  int
		expectAccepts int
	}{
		{
			name: "2-rule ex from https://www.cs.york.ac.uk/fp/lsa/lectures/lalr.pdf",
			grammar: `
				S -> C C
				C -> c C | d
			`,
			expectStates:  7,
			expectAccepts: 7,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			g := grammar.MustParse(tc.grammar)

			actual, err := NewLALR1ViablePrefixDFA(g)
			if !assert.NoError(err) {
				return
			}

			assert.NotEmpty(actual.Start)
			assert.Equal(tc.expectStates, actual.States().Len())
		})
	}
}

func Test_NewLR0ViablePrefixNFA_toDFA(t *testing.T) {
	assert := assert.New(t)

	g := grammar.MustParse(`
		E -> E + T | T
		T -> T * F | F
		F -> ( E ) | int
	`)

	nfa := NewLR0ViablePrefixNFA(g)
	dfa := nfa.ToDFA()

	assert.NotEmpty(dfa.Start)
	assert.NotZero(dfa.States().Len())
}

func buildDFA(from map[string][2]string, start string, acceptingStates []string) *DFA[string] {
	dfa := &DFA[string]{}

	acceptSet := util.StringSetOf(acceptingStates)

	for k := range from {
		dfa.AddState(k, acceptSet.Has(k))
		dfa.SetValue(k, k)
	}

	for k := range from {
		sym, to := from[k][0], from[k][1]
		dfa.AddTransition(k, sym, to)
	}

	dfa.Start = start

	return dfa
}
