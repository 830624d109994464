package lex

import (
	"fmt"
	"io"
	"regexp"
)

// patAct pairs a compiled regex with the Action to take when it matches, and
// keeps the original source pattern around so lazyLex can recombine it with
// sibling patterns into one alternation per state.
type patAct struct {
	src string
	pat *regexp.Regexp
	act Action
}

// Lexer builds token streams from input text according to the patterns and
// classes registered on it. A Lexer is a template: each call to Lex starts a
// fresh, independent scan of the given reader.
type Lexer interface {
	// Lex returns a token stream. If the Lexer was constructed lazily, the
	// tokens are produced on demand by the returned TokenStream, and a lex
	// failure surfaces as a TokenError production at the point it occurs. If
	// constructed immediately, Lex itself runs the whole scan up front and
	// returns an error as soon as the first lex failure is found.
	Lex(input io.Reader) (TokenStream, error)

	AddClass(cl TokenClass, forState string)
	AddPattern(pat string, action Action, forState string) error

	SetStartingState(s string)
	StartingState() string
}

// lexerTemplate is the concrete Lexer. It holds registered patterns/classes
// per lexer state and a flag selecting lazy vs immediate evaluation.
type lexerTemplate struct {
	patterns   map[string][]patAct
	startState string
	lazy       bool

	// classes by ID by state
	classes map[string]map[string]TokenClass
}

// NewLexer returns a Lexer template. If lazy is true, Lex returns a
// TokenStream that performs only as much scanning as needed to satisfy each
// Next()/Peek() call, and may surface a TokenError mid-stream. If lazy is
// false, Lex scans the entire input immediately and returns an error on the
// first lex failure.
func NewLexer(lazy bool) Lexer {
	return &lexerTemplate{
		patterns: map[string][]patAct{},
		classes:  map[string]map[string]TokenClass{},
		lazy:     lazy,
	}
}

func (lx *lexerTemplate) Lex(input io.Reader) (TokenStream, error) {
	if lx.lazy {
		return lx.LazyLex(input)
	}
	return lx.ImmediatelyLex(input)
}

func (lx *lexerTemplate) SetStartingState(s string) {
	lx.startState = s
}

func (lx *lexerTemplate) StartingState() string {
	return lx.startState
}

// AddClass adds the given token class to the lexer. This will mark that token
// class as a lexable token class, and make it available for use in the Action
// of an AddPattern.
//
// If the given token class's ID() returns a string matching one already added,
// the provided one will replace the existing one.
func (lx *lexerTemplate) AddClass(cl TokenClass, forState string) {
	stateClasses, ok := lx.classes[forState]
	if !ok {
		stateClasses = map[string]TokenClass{}
	}

	stateClasses[cl.ID()] = cl
	lx.classes[forState] = stateClasses
}

func (lx *lexerTemplate) AddPattern(pat string, action Action, forState string) error {
	statePatterns, ok := lx.patterns[forState]
	if !ok {
		statePatterns = make([]patAct, 0)
	}
	stateClasses, ok := lx.classes[forState]
	if !ok {
		stateClasses = map[string]TokenClass{}
	}

	compiled, err := regexp.Compile(pat)
	if err != nil {
		return fmt.Errorf("cannot compile regex: %w", err)
	}

	if action.Type == ActionScan || action.Type == ActionScanAndState {
		// check class exists
		id := action.ClassID
		_, ok := stateClasses[id]
		if !ok {
			return fmt.Errorf("%q is not a defined token class on this lexer; add it with AddClass first", id)
		}
	}
	if action.Type == ActionState || action.Type == ActionScanAndState {
		if action.State == "" {
			return fmt.Errorf("action includes state shift but does not define state to shift to (cannot shift to empty state)")
		}
	}

	record := patAct{
		src: pat,
		pat: compiled,
		act: action,
	}
	statePatterns = append(statePatterns, record)

	lx.patterns[forState] = statePatterns
	// not modifying lx.classes so no need to set it again
	return nil
}
