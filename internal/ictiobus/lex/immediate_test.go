package lex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	testClassPlus   = NewTokenClass("plus", "'+'")
	testClassMult   = NewTokenClass("mult", "'*'")
	testClassLParen = NewTokenClass("lparen", "'('")
	testClassRParen = NewTokenClass("rparen", "')'")
	testClassId     = NewTokenClass("id", "identifier")
	testClassEq     = NewTokenClass("equals", "'='")
	testClassInt    = NewTokenClass("int", "integer literal")

	allTestClasses = []TokenClass{
		testClassPlus,
		testClassMult,
		testClassLParen,
		testClassRParen,
		testClassId,
		testClassEq,
		testClassInt,
	}
)

func Test_ImmediateLex_singleStateLex(t *testing.T) {
	testCases := []struct {
		name       string
		classes    []TokenClass
		patterns   []string
		lexActions []Action
		input      string
		expect     []Token
	}{
		{
			name:    "single-line lex",
			classes: allTestClasses,
			patterns: []string{
				`\+`,
				`\*`,
				`\(`,
				`\)`,
				`[A-Za-z_][A-Za-z_0-9]*`,
				`=`,
				`[0-9]+`,
				`\s+`,
			},
			lexActions: []Action{
				LexAs("plus"),
				LexAs("mult"),
				LexAs("lparen"),
				LexAs("rparen"),
				LexAs("id"),
				LexAs("equals"),
				LexAs("int"),
				{}, // do nothing for whitespace, drop it
			},
			input: "someVar = (8 + 1)* 2",
			expect: []Token{
				NewToken(testClassId, "someVar", 1, 1, "someVar = (8 + 1)* 2", 0),
				NewToken(testClassEq, "=", 1, 9, "someVar = (8 + 1)* 2", 0),
				NewToken(testClassLParen, "(", 1, 11, "someVar = (8 + 1)* 2", 0),
				NewToken(testClassInt, "8", 1, 12, "someVar = (8 + 1)* 2", 0),
				NewToken(testClassPlus, "+", 1, 14, "someVar = (8 + 1)* 2", 0),
				NewToken(testClassInt, "1", 1, 16, "someVar = (8 + 1)* 2", 0),
				NewToken(testClassRParen, ")", 1, 17, "someVar = (8 + 1)* 2", 0),
				NewToken(testClassMult, "*", 1, 18, "someVar = (8 + 1)* 2", 0),
				NewToken(testClassInt, "2", 1, 20, "someVar = (8 + 1)* 2", 0),
				NewToken(TokenEndOfText, "", 1, 21, "someVar = (8 + 1)* 2", 0),
			},
		},
		{
			name:    "no-space lex",
			classes: allTestClasses,
			patterns: []string{
				`\+`,
				`\*`,
				`\(`,
				`\)`,
				`[A-Za-z_][A-Za-z_0-9]*`,
				`=`,
				`[0-9]+`,
				`\s+`,
			},
			lexActions: []Action{
				LexAs("plus"),
				LexAs("mult"),
				LexAs("lparen"),
				LexAs("rparen"),
				LexAs("id"),
				LexAs("equals"),
				LexAs("int"),
				{}, // do nothing for whitespace, drop it
			},
			input: "someVar=(8+1)*2",
			expect: []Token{
				NewToken(testClassId, "someVar", 1, 1, "someVar=(8+1)*2", 0),
				NewToken(testClassEq, "=", 1, 8, "someVar=(8+1)*2", 0),
				NewToken(testClassLParen, "(", 1, 9, "someVar=(8+1)*2", 0),
				NewToken(testClassInt, "8", 1, 10, "someVar=(8+1)*2", 0),
				NewToken(testClassPlus, "+", 1, 11, "someVar=(8+1)*2", 0),
				NewToken(testClassInt, "1", 1, 12, "someVar=(8+1)*2", 0),
				NewToken(testClassRParen, ")", 1, 13, "someVar=(8+1)*2", 0),
				NewToken(testClassMult, "*", 1, 14, "someVar=(8+1)*2", 0),
				NewToken(testClassInt, "2", 1, 15, "someVar=(8+1)*2", 0),
				NewToken(TokenEndOfText, "", 1, 16, "someVar=(8+1)*2", 0),
			},
		},
		{
			name:    "multi-line lex",
			classes: allTestClasses,
			patterns: []string{
				`\+`,
				`\*`,
				`\(`,
				`\)`,
				`[A-Za-z_][A-Za-z_0-9]*`,
				`=`,
				`[0-9]+`,
				`\s+`,
			},
			lexActions: []Action{
				LexAs("plus"),
				LexAs("mult"),
				LexAs("lparen"),
				LexAs("rparen"),
				LexAs("id"),
				LexAs("equals"),
				LexAs("int"),
				{}, // do nothing for whitespace, drop it
			},
			input: "someVar =\n(8 + 1)* 2",
			expect: []Token{
				NewToken(testClassId, "someVar", 1, 1, "someVar =", 0),
				NewToken(testClassEq, "=", 1, 9, "someVar =", 0),
				NewToken(testClassLParen, "(", 2, 1, "(8 + 1)* 2", 0),
				NewToken(testClassInt, "8", 2, 2, "(8 + 1)* 2", 0),
				NewToken(testClassPlus, "+", 2, 4, "(8 + 1)* 2", 0),
				NewToken(testClassInt, "1", 2, 6, "(8 + 1)* 2", 0),
				NewToken(testClassRParen, ")", 2, 7, "(8 + 1)* 2", 0),
				NewToken(testClassMult, "*", 2, 8, "(8 + 1)* 2", 0),
				NewToken(testClassInt, "2", 2, 10, "(8 + 1)* 2", 0),
				NewToken(TokenEndOfText, "", 2, 11, "(8 + 1)* 2", 0),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// setup
			assert := assert.New(t)
			lx := NewLexer(false)
			for i := range tc.classes {
				lx.AddClass(tc.classes[i], "")
			}
			if len(tc.patterns) != len(tc.lexActions) {
				panic("bad test case: number of patterns doesnt match number of lex actions")
			}
			for i := range tc.patterns {
				pat := tc.patterns[i]
				act := tc.lexActions[i]
				err := lx.AddPattern(pat, act, "")
				if !assert.NoErrorf(err, "adding pattern %d to lexer failed", i) {
					return
				}
			}
			inputReader := strings.NewReader(tc.input)

			// execute
			stream, err := lx.Lex(inputReader)
			if !assert.NoErrorf(err, "error while producing token stream") {
				return
			}

			// assert

			// go through each item in the stream and check that it matches
			// expected
			tokNum := 0
			for stream.HasNext() {
				if tokNum >= len(tc.expect) {
					assert.Failf("wrong number of produced tokens", "expected stream to produce %d tokens but got more", len(tc.expect))
					return
				}

				expectToken := tc.expect[tokNum]
				actualToken := stream.Next()

				if actualToken.Class().ID() == TokenError.ID() {
					assert.Fail("received error token", "error: %s", actualToken.Lexeme())
				}

				assert.Equal(expectToken.Class().ID(), actualToken.Class().ID(), "token #%d, class mismatch", tokNum)
				assert.Equal(expectToken.FullLine(), actualToken.FullLine(), "token #%d, full-line mismatch", tokNum)
				assert.Equal(expectToken.Line(), actualToken.Line(), "token #%d, line number mismatch", tokNum)
				assert.Equal(expectToken.LinePos(), actualToken.LinePos(), "token #%d, line position mismatch", tokNum)
				assert.Equal(expectToken.Lexeme(), actualToken.Lexeme(), "token #%d, lexeme mismatch", tokNum)

				tokNum++
			}
			if tokNum != len(tc.expect) {
				assert.Failf("wrong number of produced tokens", "expected stream to produce %d tokens but got %d", len(tc.expect), tokNum)
			}
		})
	}
}
