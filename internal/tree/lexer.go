package tree

import "github.com/dekarrin/stitch/internal/ictiobus/lex"

// Lexer runs a merged DFA (lex/dfa.go) over source text one rune at a time
// instead of handing the whole text to a regexp backtracker the way
// lex/lazy.go's lazyLex does. Running the DFA directly means every token
// carries a real Lookahead: how many extra runes past the committed lexeme
// the DFA had to examine (continuing through a longer, still-live match
// attempt) before the scanner could be sure it had found the longest match.
// lazyLex's regexp.FindReaderSubmatchIndex has no way to report that number; it is
// exactly what spec.md §4.2's incremental lexer needs so an edit inside a
// token's lookahead window, not just inside its lexeme, can be recognized as
// invalidating that token.
type Lexer struct {
	DFA *lex.MergedDFA
}

// NewLexer wraps an already-built merged DFA.
func NewLexer(dfa *lex.MergedDFA) *Lexer {
	return &Lexer{DFA: dfa}
}

// Lex scans all of src into a token stream terminated by lex.TokenEndOfText.
// A maximal run of input at which no rule accepts even one rune becomes a
// single lex.TokenError token covering the whole run rather than aborting
// the scan, so a bad span doesn't take down the rest of the document's parse.
func (lx *Lexer) Lex(src string) []lex.Token {
	runes := []rune(src)
	var out []lex.Token
	line, linePos := 1, 1
	i := 0
	for i < len(runes) {
		tokLine, tokLinePos := line, linePos
		class, n, lookahead, ok := lx.scanOne(runes[i:])
		if !ok {
			start := i
			i++
			for i < len(runes) {
				if _, _, _, more := lx.scanOne(runes[i:]); more {
					break
				}
				i++
			}
			out = append(out, lex.NewToken(lex.TokenError, string(runes[start:i]), tokLine, tokLinePos, lineTextAt(runes, start), 0))
			advancePos(&line, &linePos, runes[start:i])
			continue
		}
		lexeme := string(runes[i : i+n])
		out = append(out, lex.NewToken(class, lexeme, tokLine, tokLinePos, lineTextAt(runes, i), lookahead))
		advancePos(&line, &linePos, runes[i:i+n])
		i += n
	}
	out = append(out, lex.NewToken(lex.TokenEndOfText, "", line, linePos, "", 0))
	return out
}

// scanOne runs the DFA over a leading prefix of rs, applying maximal munch:
// it keeps stepping past the last accepting state it saw, so it can report
// how far past that commit point the DFA had to look (lookahead) before
// giving up on a longer match. Returns ok=false if not even one rune is
// accepted by any rule.
func (lx *Lexer) scanOne(rs []rune) (lex.TokenClass, int, int, bool) {
	state := lx.DFA.Start()
	lastAcceptLen := -1
	var lastAcceptClass lex.TokenClass
	pos := 0
	for pos < len(rs) {
		next, ok := lx.DFA.Step(state, rs[pos])
		if !ok {
			break
		}
		state = next
		pos++
		if lx.DFA.IsAccepting(state) {
			if class, ok := lx.DFA.MatchClass(state); ok {
				lastAcceptLen = pos
				lastAcceptClass = class
			}
		}
	}
	if lastAcceptLen < 0 {
		return nil, 0, 0, false
	}
	return lastAcceptClass, lastAcceptLen, pos - lastAcceptLen, true
}

func advancePos(line, linePos *int, consumed []rune) {
	for _, r := range consumed {
		if r == '\n' {
			*line++
			*linePos = 1
		} else {
			*linePos++
		}
	}
}

func lineTextAt(runes []rune, at int) string {
	start := at
	for start > 0 && runes[start-1] != '\n' {
		start--
	}
	end := at
	for end < len(runes) && runes[end] != '\n' {
		end++
	}
	return string(runes[start:end])
}
