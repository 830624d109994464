package lex

import "strings"

// TokenClass identifies the lexical category a Token belongs to: a terminal
// symbol of some grammar.
type TokenClass interface {
	// ID returns the ID of the token class. The ID must uniquely identify the
	// token within all terminals of a grammar.
	ID() string

	// Human returns a human-readable name for the token class, for use in
	// contexts such as error reporting.
	Human() string

	// Equal returns whether the TokenClass equals another. If two IDs are the
	// same, Equal must return true.
	Equal(o any) bool
}

// Token is a lexeme read from text combined with the token class it is as
// well as additional supplementary information gathered during lexing to
// inform error reporting.
type Token interface {
	// Class returns the TokenClass of the Token.
	Class() TokenClass

	// Lexeme returns the text that was lexed as the TokenClass of the Token,
	// as it appears in the source text.
	Lexeme() string

	// LinePos returns the 1-indexed character-of-line that the token appears
	// on in the source text.
	LinePos() int

	// Line returns the 1-indexed line number of the line that the token
	// appears on in the source text.
	Line() int

	// FullLine returns the full text of the line in source that the token
	// appears on, including both anything that came before the token as well
	// as after it on the line.
	FullLine() string

	// Lookahead is the number of characters past the end of this token's
	// lexeme that the DFA examined before committing to this match. An edit
	// inside that window invalidates the token even though it never touched
	// the lexeme itself (spec.md §4.2).
	Lookahead() int

	String() string
}

// TokenStream is a stream of tokens read from source text. The stream may be
// lazily-loaded or immediately available.
type TokenStream interface {
	// Next returns the next token in the stream and advances the stream by
	// one token.
	Next() Token

	// Peek returns the next token in the stream without advancing the
	// stream.
	Peek() Token

	// HasNext returns whether the stream has any additional tokens.
	HasNext() bool
}

// simpleTokenClass is a TokenClass built from a bare string: its ID is the
// lower-cased string and its human-readable name is the string unmodified.
type simpleTokenClass string

func (class simpleTokenClass) ID() string {
	return strings.ToLower(string(class))
}

func (class simpleTokenClass) Human() string {
	return string(class)
}

func (class simpleTokenClass) Equal(o any) bool {
	other, ok := o.(TokenClass)
	if !ok {
		return false
	}
	return other.ID() == class.ID()
}

const (
	TokenUndefined = simpleTokenClass("undefined_token")
	TokenEndOfText = simpleTokenClass("$")

	// TokenError marks a maximal span of input that no rule in the merged
	// DFA could match. It is not fatal; the lexer emits a single error
	// terminal covering the span and parsing continues over it.
	TokenError = simpleTokenClass("lex_error")

	// TokenIndent, TokenDedent, TokenNewline are the synthetic, zero-lexeme
	// terminals the indentation engine (internal/indent) threads into the
	// terminal chain for whitespace-sensitive grammars.
	TokenIndent  = simpleTokenClass("indent")
	TokenDedent  = simpleTokenClass("dedent")
	TokenNewline = simpleTokenClass("newline")

	// TokenMagic is the synthetic class of a MagicTerminal: the outer
	// grammar sees a language box as one opaque token of this class.
	TokenMagic = simpleTokenClass("magic")
)

// MakeDefaultClass takes a string and returns a token class that both uses
// the lower-case version of the string as its ID and the un-modified string
// as its human-readable string.
func MakeDefaultClass(s string) TokenClass {
	return simpleTokenClass(s)
}

// namedClass is a TokenClass whose ID and human-readable name differ (e.g.
// ID "intlit", human "integer literal").
type namedClass struct {
	id   string
	name string
}

// NewTokenClass builds a TokenClass with a distinct ID and human-readable
// name.
func NewTokenClass(id string, human string) TokenClass {
	return namedClass{id: id, name: human}
}

func (lc namedClass) ID() string    { return lc.id }
func (lc namedClass) Human() string { return lc.name }

func (lc namedClass) Equal(o any) bool {
	other, ok := o.(TokenClass)
	if !ok {
		return false
	}
	return other.ID() == lc.ID()
}

// simpleToken is the concrete Token implementation produced by the lexer.
type simpleToken struct {
	class     TokenClass
	lexeme    string
	line      int
	linePos   int
	fullLine  string
	lookahead int
}

// NewToken constructs a Token. lookahead is the number of characters past
// the lexeme's end that the DFA consulted before committing to this match.
func NewToken(class TokenClass, lexeme string, line, linePos int, fullLine string, lookahead int) Token {
	return simpleToken{class: class, lexeme: lexeme, line: line, linePos: linePos, fullLine: fullLine, lookahead: lookahead}
}

func (t simpleToken) Class() TokenClass { return t.class }
func (t simpleToken) Lexeme() string    { return t.lexeme }
func (t simpleToken) Line() int         { return t.line }
func (t simpleToken) LinePos() int      { return t.linePos }
func (t simpleToken) FullLine() string  { return t.fullLine }
func (t simpleToken) Lookahead() int    { return t.lookahead }

func (t simpleToken) String() string {
	lexeme := t.lexeme
	if len(lexeme) > 40 {
		lexeme = lexeme[:37] + "..."
	}
	return t.class.Human() + " \"" + lexeme + "\""
}
