package lex

import (
	"fmt"

	"github.com/dekarrin/stitch/internal/ictiobus/automaton"
)

// Compile parses a regular expression and builds the NFA that recognizes
// it, via Thompson's construction (purple dragon book algorithm 3.23, "The
// McNaughton-Yamada-Thompson algorithm"). Supported syntax: literals,
// concatenation, alternation (|), Kleene star/plus/optional (* + ?),
// grouping (...), '.', character classes ([abc], [a-z], [^...]), and the
// escapes \d \D \w \W \s \S \n \t \r plus any other \X as a literal X.
func Compile(r string) (automaton.NFA[string], error) {
	p := &regexParser{runes: []rune(r)}
	nfa, err := p.parseAlt()
	if err != nil {
		return automaton.NFA[string]{}, err
	}
	if p.pos != len(p.runes) {
		return automaton.NFA[string]{}, fmt.Errorf("unexpected %q at position %d", p.runes[p.pos], p.pos)
	}
	return nfa, nil
}

// MustCompile is Compile, panicking on error. For patterns known at compile
// time (e.g. the fixed terminals of a built-in grammar).
func MustCompile(r string) automaton.NFA[string] {
	nfa, err := Compile(r)
	if err != nil {
		panic(err.Error())
	}
	return nfa
}

// RegexToNFA compiles a regular expression to its recognizing NFA.
func RegexToNFA(r string) automaton.NFA[string] {
	return MustCompile(r)
}

type regexParser struct {
	runes []rune
	pos   int
}

func (p *regexParser) peekRune() (rune, bool) {
	if p.pos >= len(p.runes) {
		return 0, false
	}
	return p.runes[p.pos], true
}

func (p *regexParser) parseAlt() (automaton.NFA[string], error) {
	left, err := p.parseConcat()
	if err != nil {
		return automaton.NFA[string]{}, err
	}
	for {
		r, ok := p.peekRune()
		if !ok || r != '|' {
			break
		}
		p.pos++
		right, err := p.parseConcat()
		if err != nil {
			return automaton.NFA[string]{}, err
		}
		left = compileAlt(left, right)
	}
	return left, nil
}

func (p *regexParser) parseConcat() (automaton.NFA[string], error) {
	var result automaton.NFA[string]
	has := false
	for {
		r, ok := p.peekRune()
		if !ok || r == '|' || r == ')' {
			break
		}
		sub, err := p.parseRepeat()
		if err != nil {
			return automaton.NFA[string]{}, err
		}
		if !has {
			result = sub
			has = true
		} else {
			result = compileConcat(result, sub)
		}
	}
	if !has {
		return compileEmpty(), nil
	}
	return result, nil
}

func (p *regexParser) parseRepeat() (automaton.NFA[string], error) {
	atom, err := p.parseAtom()
	if err != nil {
		return automaton.NFA[string]{}, err
	}
	for {
		r, ok := p.peekRune()
		if !ok {
			break
		}
		switch r {
		case '*':
			p.pos++
			atom = compileStar(atom)
		case '+':
			p.pos++
			atom = compilePlus(atom)
		case '?':
			p.pos++
			atom = compileOpt(atom)
		default:
			return atom, nil
		}
	}
	return atom, nil
}

func (p *regexParser) parseAtom() (automaton.NFA[string], error) {
	r, ok := p.peekRune()
	if !ok {
		return automaton.NFA[string]{}, fmt.Errorf("unexpected end of pattern")
	}

	switch r {
	case '(':
		p.pos++
		sub, err := p.parseAlt()
		if err != nil {
			return automaton.NFA[string]{}, err
		}
		r2, ok := p.peekRune()
		if !ok || r2 != ')' {
			return automaton.NFA[string]{}, fmt.Errorf("unterminated group starting near position %d", p.pos)
		}
		p.pos++
		return sub, nil
	case '.':
		p.pos++
		return compileCharClass(runesToSymbols(alphabetRunesExcept('\n'))), nil
	case '[':
		return p.parseCharClass()
	case '\\':
		p.pos++
		r2, ok := p.peekRune()
		if !ok {
			return automaton.NFA[string]{}, fmt.Errorf("dangling escape at end of pattern")
		}
		p.pos++
		return compileEscape(r2)
	case ')', '*', '+', '?', '|':
		return automaton.NFA[string]{}, fmt.Errorf("unexpected %q at position %d", r, p.pos)
	default:
		p.pos++
		return compileLiteral(string(r)), nil
	}
}

func (p *regexParser) parseCharClass() (automaton.NFA[string], error) {
	p.pos++ // consume '['

	negate := false
	if r, ok := p.peekRune(); ok && r == '^' {
		negate = true
		p.pos++
	}

	var runes []rune
	for {
		r, ok := p.peekRune()
		if !ok {
			return automaton.NFA[string]{}, fmt.Errorf("unterminated character class")
		}
		if r == ']' {
			p.pos++
			break
		}
		p.pos++

		start := r
		if r == '\\' {
			r2, ok := p.peekRune()
			if !ok {
				return automaton.NFA[string]{}, fmt.Errorf("dangling escape in character class")
			}
			p.pos++
			if expanded, matched := classEscapeExpansion(r2); matched {
				runes = append(runes, expanded...)
				continue
			}
			start = r2
		}

		if r2, ok := p.peekRune(); ok && r2 == '-' {
			savedPos := p.pos
			p.pos++ // tentatively consume '-'
			if r3, ok := p.peekRune(); ok && r3 != ']' {
				p.pos++
				for c := start; c <= r3; c++ {
					runes = append(runes, c)
				}
				continue
			}
			p.pos = savedPos
		}

		runes = append(runes, start)
	}

	if len(runes) == 0 {
		return automaton.NFA[string]{}, fmt.Errorf("empty character class")
	}

	if negate {
		excluded := make(map[rune]bool, len(runes))
		for _, r := range runes {
			excluded[r] = true
		}
		var included []rune
		for _, r := range alphabetRunes() {
			if !excluded[r] {
				included = append(included, r)
			}
		}
		runes = included
	}

	return compileCharClass(runesToSymbols(runes)), nil
}

func compileEscape(r rune) (automaton.NFA[string], error) {
	if expanded, matched := classEscapeExpansion(r); matched {
		return compileCharClass(runesToSymbols(expanded)), nil
	}
	switch r {
	case 'n':
		return compileLiteral("\n"), nil
	case 't':
		return compileLiteral("\t"), nil
	case 'r':
		return compileLiteral("\r"), nil
	default:
		return compileLiteral(string(r)), nil
	}
}

// classEscapeExpansion expands the \d \D \w \W \s \S character-class
// escapes; matched is false for any other rune (the caller treats it as a
// literal).
func classEscapeExpansion(r rune) (expanded []rune, matched bool) {
	switch r {
	case 'd':
		return digitRunes(), true
	case 'D':
		return complementRunes(digitRunes()), true
	case 'w':
		return wordRunes(), true
	case 'W':
		return complementRunes(wordRunes()), true
	case 's':
		return spaceRunes(), true
	case 'S':
		return complementRunes(spaceRunes()), true
	default:
		return nil, false
	}
}

func digitRunes() []rune {
	var rs []rune
	for c := '0'; c <= '9'; c++ {
		rs = append(rs, c)
	}
	return rs
}

func wordRunes() []rune {
	var rs []rune
	for c := 'a'; c <= 'z'; c++ {
		rs = append(rs, c)
	}
	for c := 'A'; c <= 'Z'; c++ {
		rs = append(rs, c)
	}
	rs = append(rs, digitRunes()...)
	rs = append(rs, '_')
	return rs
}

func spaceRunes() []rune {
	return []rune{' ', '\t', '\n', '\r'}
}

// alphabetRunes is the universe '.' and a negated character class draw
// from: printable ASCII plus the common whitespace controls. A regex
// engine over an open-ended Unicode alphabet would need to represent
// negation symbolically instead of by enumeration; for the token patterns
// a grammar file actually needs (identifiers, numbers, operators, string
// bodies) enumerated ASCII is sufficient.
func alphabetRunes() []rune {
	var rs []rune
	for c := rune(0x20); c <= 0x7E; c++ {
		rs = append(rs, c)
	}
	rs = append(rs, '\t', '\n', '\r')
	return rs
}

func alphabetRunesExcept(exclude rune) []rune {
	all := alphabetRunes()
	out := make([]rune, 0, len(all))
	for _, r := range all {
		if r != exclude {
			out = append(out, r)
		}
	}
	return out
}

func complementRunes(rs []rune) []rune {
	excluded := make(map[rune]bool, len(rs))
	for _, r := range rs {
		excluded[r] = true
	}
	var out []rune
	for _, r := range alphabetRunes() {
		if !excluded[r] {
			out = append(out, r)
		}
	}
	return out
}

func runesToSymbols(rs []rune) []string {
	syms := make([]string, len(rs))
	for i, r := range rs {
		syms[i] = string(r)
	}
	return syms
}

// compileLiteral builds the two-state NFA A =(symbol)=> B, for any
// subexpression r in the alphabet.
func compileLiteral(symbol string) automaton.NFA[string] {
	var nfa automaton.NFA[string]

	nfa.AddState("A", false)
	nfa.AddState("B", true)
	nfa.AddTransition("A", symbol, "B")
	nfa.Start = "A"

	return nfa
}

// compileEmpty builds the single-state NFA accepting only the empty
// string, for ε and for the "zero occurrences" branch of ?.
func compileEmpty() automaton.NFA[string] {
	var nfa automaton.NFA[string]

	nfa.AddState("A", true)
	nfa.Start = "A"

	return nfa
}

// compileConcat builds the NFA for expression st: left's accept state gets
// an ε-transition to right's start and stops accepting, leaving right's
// accept state as the only accept state.
func compileConcat(left, right automaton.NFA[string]) automaton.NFA[string] {
	leftAccept := singleAcceptState(left)

	joined, err := left.Join(right, [][3]string{{leftAccept, "", right.Start}}, nil, nil, []string{"1:" + leftAccept})
	if err != nil {
		panic(err.Error())
	}

	return joined
}

// compileAlt builds the NFA for expression s|t: a new start ε-branches to
// both left.Start and right.Start, and both accept states ε-join a single
// new accept state.
func compileAlt(left, right automaton.NFA[string]) automaton.NFA[string] {
	leftAccept := singleAcceptState(left)
	rightAccept := singleAcceptState(right)

	var base automaton.NFA[string]
	base.AddState("start", false)
	base.AddState("accept", true)
	base.Start = "start"

	joined, err := base.Join(left, [][3]string{{base.Start, "", left.Start}}, [][3]string{{leftAccept, "", "accept"}}, nil, []string{"1:" + leftAccept})
	if err != nil {
		panic(err.Error())
	}

	midAccept := singleAcceptState(joined)

	joined2, err := joined.Join(right, [][3]string{{joined.Start, "", right.Start}}, [][3]string{{rightAccept, "", midAccept}}, nil, []string{"2:" + rightAccept})
	if err != nil {
		panic(err.Error())
	}

	return joined2
}

// compileStar builds the NFA for expression s*: a single state is both
// start and accept (the zero-repetitions case), ε-branching into sub and
// looping back from sub's accept state.
func compileStar(sub automaton.NFA[string]) automaton.NFA[string] {
	subAccept := singleAcceptState(sub)

	var base automaton.NFA[string]
	base.AddState("start", true)
	base.Start = "start"

	joined, err := base.Join(sub, [][3]string{{base.Start, "", sub.Start}}, [][3]string{{subAccept, "", base.Start}}, nil, []string{"2:" + subAccept})
	if err != nil {
		panic(err.Error())
	}

	return joined
}

// compilePlus builds the NFA for expression s+, as s followed by s*.
func compilePlus(sub automaton.NFA[string]) automaton.NFA[string] {
	return compileConcat(sub, compileStar(sub.Copy()))
}

// compileOpt builds the NFA for expression s?, as s|ε.
func compileOpt(sub automaton.NFA[string]) automaton.NFA[string] {
	return compileAlt(sub, compileEmpty())
}

// compileCharClass builds the NFA for [abc...]: alternation across each
// symbol in the class.
func compileCharClass(symbols []string) automaton.NFA[string] {
	if len(symbols) == 0 {
		panic("empty character class")
	}

	result := compileLiteral(symbols[0])
	for _, s := range symbols[1:] {
		result = compileAlt(result, compileLiteral(s))
	}
	return result
}

// singleAcceptState panics if there is not exactly one accepting state in
// the given NFA; every compile* function above preserves this invariant
// across the whole AST, the way Thompson's construction requires.
func singleAcceptState(nfa automaton.NFA[string]) string {
	allAcceptStates := nfa.AcceptingStates()
	if allAcceptStates.Len() != 1 {
		panic(fmt.Sprintf("NFA has %d acceptance states, want exactly 1", allAcceptStates.Len()))
	}

	var accept string
	for k := range allAcceptStates {
		accept = k
	}

	return accept
}
