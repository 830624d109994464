package tree

import (
	"fmt"

	"github.com/dekarrin/stitch/internal/ictiobus/grammar"
	"github.com/dekarrin/stitch/internal/ictiobus/icterrors"
	"github.com/dekarrin/stitch/internal/ictiobus/lex"
	"github.com/dekarrin/stitch/internal/ictiobus/parse"
)

// Parser drives an LR parse table over a Tree incrementally: rather than
// building a fresh types.ParseTree from an empty stack every call the way
// parse.lrParser.Parse does, it walks the tree's existing terminal chain
// alongside the input stream, reusing whole subtrees and individual
// terminal nodes by Handle (not by value) wherever an entry-state match and
// an unedited yield let it, and running out-of-context error recovery
// instead of reporting the first LRError and giving up.
//
// Grounded on parse/lr.go's lrParser.Parse (Algorithm 4.44's shift-reduce
// drive, generalized from batch to incremental) and on the parse tree shape
// of types/tree.go (generalized from *ParseTree to arena Handles).
type Parser struct {
	Table parse.LRParseTable
	Gram  grammar.Grammar
}

// NewParser builds an incremental Parser over a previously constructed LR
// parse table (see parse.BuildLALR1Table for the composed-grammar case this
// package is built around).
func NewParser(table parse.LRParseTable, g grammar.Grammar) *Parser {
	return &Parser{Table: table, Gram: g}
}

type frame struct {
	state string
	node  Handle
}

// Parse runs the incremental shift-reduce drive over stream, reading the
// tree's existing terminal chain (t.BOS onward) for subtrees and terminals
// eligible for reuse. On a tree with Root == NoHandle (a brand new
// document) this degrades to an ordinary batch parse, since there is
// nothing yet to reuse. Returns the new root, any non-fatal errors recorded
// during error recovery (empty on a clean parse), and a fatal error only
// for conditions recovery itself cannot paper over (e.g. input exhausted
// mid-recovery).
func (p *Parser) Parse(t *Tree, stream lex.TokenStream) (Handle, []error, error) {
	var stack []frame
	stack = append(stack, frame{state: p.Table.Initial(), node: NoHandle})

	var recovered []error
	dirtyMemo := map[Handle]bool{}

	var cur Handle
	if t.Root != NoHandle {
		cur = t.Get(t.BOS).NextTerm
	} else {
		cur = NoHandle
	}

	a := stream.Next()

	for {
		top := stack[len(stack)-1]

		if cur != NoHandle && cur != t.EOS {
			if reuseRoot, ok := p.tryReuseSubtree(t, cur, top.state, dirtyMemo); ok {
				rn := t.Get(reuseRoot)
				if rn.State != top.state {
					recovered = append(recovered, icterrors.NewRetainabilityViolation(
						fmt.Sprintf("node %d (%s): recorded entry state %q does not match current parser state %q", reuseRoot, rn.Symbol, rn.State, top.state)))
				} else if newState, err := p.Table.Goto(top.state, rn.Symbol); err == nil {
					stack = append(stack, frame{state: newState, node: reuseRoot})
					cur = t.Get(t.lastTerminal(reuseRoot)).NextTerm
					continue
				}
			}
		}

		act := p.Table.Action(top.state, a.Class().ID())

		switch act.Type {
		case parse.LRShift:
			node, next := p.shiftNode(t, cur, a)
			cur = next
			t.SetState(node, top.state)
			stack = append(stack, frame{state: act.State, node: node})
			a = stream.Next()

		case parse.LRReduce:
			n := len(act.Production)
			if act.Production.IsEpsilon() {
				n = 0
			}
			children := make([]Handle, n)
			for i := n - 1; i >= 0; i-- {
				f := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				children[i] = f.node
			}
			entryState := stack[len(stack)-1].state

			node, reused := p.tryReuseReduction(t, act.Symbol, children, entryState)
			if !reused {
				node = t.NewNonTerminal(act.Symbol, children, entryState)
				for _, c := range children {
					t.SetParent(c, node)
				}
			}
			t.SetState(node, entryState)

			gotoState, gErr := p.Table.Goto(entryState, act.Symbol)
			if gErr != nil {
				return NoHandle, recovered, fmt.Errorf("internal parser error: no GOTO[%s, %s]: %w", entryState, act.Symbol, gErr)
			}
			stack = append(stack, frame{state: gotoState, node: node})

		case parse.LRAccept:
			root := stack[len(stack)-1].node
			t.SetRoot(root)
			t.SetParent(root, NoHandle)
			return root, recovered, nil

		case parse.LRError:
			recovered = append(recovered, icterrors.NewSyntaxErrorFromToken(
				fmt.Sprintf("unexpected %s", a.Class().Human()), a))

			newStack, resumeTok, err := p.recover(t, stack, a, stream)
			if err != nil {
				return NoHandle, recovered, err
			}
			stack = newStack
			a = resumeTok
		}
	}
}

// shiftNode produces the Handle to push for input token a. If the tree's
// existing terminal chain at cur is an untouched terminal with the same
// class and lexeme, that exact node is reused (preserving identity across
// the edit, spec.md §8 Scenario 6); otherwise a fresh terminal is allocated.
// Either way it returns the terminal-chain position to resume from.
func (p *Parser) shiftNode(t *Tree, cur Handle, a lex.Token) (Handle, Handle) {
	if cur != NoHandle && cur != t.EOS {
		cn := t.Get(cur)
		if !cn.Changed && cn.Symbol == a.Class().ID() && cn.Lexeme == a.Lexeme() {
			return cur, cn.NextTerm
		}
		return t.NewTerminal(a.Class().ID(), a.Lexeme(), a.Line(), a.LinePos(), a.Lookahead(), a.FullLine()), t.Get(cur).NextTerm
	}
	return t.NewTerminal(a.Class().ID(), a.Lexeme(), a.Line(), a.LinePos(), a.Lookahead(), a.FullLine()), NoHandle
}

// lastTerminal returns the rightmost terminal-class descendant of h (or h
// itself, if h already is one).
func (t *Tree) lastTerminal(h Handle) Handle {
	n := t.Get(h)
	switch n.Kind {
	case KindTerminal, KindMagicTerminal, KindMultiText, KindBOS, KindEOS:
		return h
	case KindNonTerminal:
		if len(n.Children) == 0 {
			return NoHandle
		}
		return t.lastTerminal(n.Children[len(n.Children)-1])
	default:
		return NoHandle
	}
}

// subtreeDirty reports whether h or anything beneath it is marked Changed
// (edited since the last parse) or IsoTree (opaque by prior recovery
// failure; right-breakdown must never recurse into one). memo caches
// results for the duration of one Parse call.
func subtreeDirty(t *Tree, h Handle, memo map[Handle]bool) bool {
	if h == NoHandle {
		return false
	}
	if v, ok := memo[h]; ok {
		return v
	}
	n := t.Get(h)
	if n.Changed || n.IsoTree {
		memo[h] = true
		return true
	}
	dirty := false
	for _, c := range n.Children {
		if subtreeDirty(t, c, memo) {
			dirty = true
			break
		}
	}
	memo[h] = dirty
	return dirty
}

// tryReuseSubtree climbs from the leftmost terminal cur up through ancestors
// that still have cur (transitively) as their leftmost descendant,
// returning the highest ancestor whose recorded entry state matches state
// and whose subtree carries no unresolved edits — the largest whole subtree
// eligible for reuse at this point in the parse (spec.md §4.4).
func (p *Parser) tryReuseSubtree(t *Tree, cur Handle, state string, memo map[Handle]bool) (Handle, bool) {
	if subtreeDirty(t, cur, memo) {
		return NoHandle, false
	}

	node := cur
	best := NoHandle
	for {
		parent := t.Get(node).Parent
		if parent == NoHandle {
			break
		}
		pn := t.Get(parent)
		if len(pn.Children) == 0 || pn.Children[0] != node {
			break
		}
		if subtreeDirty(t, parent, memo) {
			break
		}
		node = parent
		if pn.State == state {
			best = node
		}
	}

	if best == NoHandle {
		return NoHandle, false
	}
	return best, true
}

// tryReuseReduction checks whether the non-terminal already sitting above
// children[0] in the tree (its Parent, before this reduction) is exactly
// the node this reduction is about to build: same symbol, same entry
// state, same child sequence. If so, that existing node is reused in place
// of allocating a new one, so the object a caller already holds a
// reference to survives the edit (spec.md §8 Scenario 6: "the same P/T/E
// node objects survive").
func (p *Parser) tryReuseReduction(t *Tree, lhs string, children []Handle, entryState string) (Handle, bool) {
	if len(children) == 0 {
		return NoHandle, false
	}
	candidate := t.Get(children[0]).Parent
	if candidate == NoHandle {
		return NoHandle, false
	}
	cn := t.Get(candidate)
	if cn.Kind != KindNonTerminal || cn.Symbol != lhs || cn.State != entryState {
		return NoHandle, false
	}
	if len(cn.Children) != len(children) {
		return NoHandle, false
	}
	for i := range children {
		if cn.Children[i] != children[i] {
			return NoHandle, false
		}
	}
	return candidate, true
}

// recover implements out-of-context analysis (spec.md §4.5/§9): find the
// nearest subtree still on the stack, detach it strictly (sever its parent
// link) and attempt to reparse its own yield in total isolation. Success
// means R is retained and parsing resumes past it; failure marks R an
// iso-tree — an opaque terminal of its own class from then on — and parsing
// resynchronizes panic-mode style, discarding lookahead up to a token in
// FOLLOW of the nearest enclosing non-terminal still on the stack.
func (p *Parser) recover(t *Tree, stack []frame, bad lex.Token, stream lex.TokenStream) ([]frame, lex.Token, error) {
	for i := len(stack) - 1; i >= 1; i-- {
		cand := stack[i].node
		if cand == NoHandle {
			continue
		}
		cn := t.Get(cand)
		if cn.Kind != KindNonTerminal {
			continue
		}

		subStream := newYieldStream(t, cand)
		subTree := NewTree()
		subParser := &Parser{Table: p.Table, Gram: p.Gram}
		reparsedRoot, _, err := subParser.Parse(subTree, subStream)
		if err == nil && subTree.Get(reparsedRoot).Symbol == cn.Symbol {
			newStack := append([]frame(nil), stack[:i]...)
			newStack = append(newStack, frame{state: stack[i].state, node: cand})
			return newStack, bad, nil
		}

		t.SetIsoTree(cand, true)
		break
	}

	var follow = map[string]bool{}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].node == NoHandle {
			continue
		}
		sym := t.Get(stack[i].node).Symbol
		if !grammar.IsTerminalSymbol(sym) {
			for _, f := range p.Gram.FOLLOW(sym).Elements() {
				follow[f] = true
			}
			break
		}
	}

	for bad.Class().ID() != lex.TokenEndOfText.ID() && !follow[bad.Class().ID()] {
		bad = stream.Next()
	}

	return stack, bad, nil
}

// yieldStream adapts a subtree's terminal-class descendants into a
// lex.TokenStream, for reparsing a candidate isolated subtree on its own
// during error recovery.
type yieldStream struct {
	toks []lex.Token
	pos  int
}

func newYieldStream(t *Tree, root Handle) lex.TokenStream {
	var toks []lex.Token
	collectTerminals(t, root, &toks)
	toks = append(toks, lex.NewToken(lex.TokenEndOfText, "", 0, 0, "", 0))
	return &yieldStream{toks: toks}
}

// NewSliceStream adapts an already-complete token slice (an incremental
// lexer's full output, including its trailing TokenEndOfText) into a
// lex.TokenStream for Parser.Parse. Shares yieldStream's mechanics since the
// two need the same "final token repeats forever" EOS behavior.
func NewSliceStream(toks []lex.Token) lex.TokenStream {
	return &yieldStream{toks: toks}
}

func collectTerminals(t *Tree, h Handle, out *[]lex.Token) {
	n := t.Get(h)
	switch n.Kind {
	case KindTerminal, KindMagicTerminal, KindMultiText:
		*out = append(*out, lex.NewToken(lex.MakeDefaultClass(n.Symbol), n.Lexeme, n.Line, n.LinePos, n.FullLine, n.Lookahead))
	case KindNonTerminal:
		for _, c := range n.Children {
			collectTerminals(t, c, out)
		}
	}
}

func (y *yieldStream) Next() lex.Token {
	tok := y.toks[y.pos]
	if y.pos < len(y.toks)-1 {
		y.pos++
	}
	return tok
}

func (y *yieldStream) Peek() lex.Token {
	return y.toks[y.pos]
}

func (y *yieldStream) HasNext() bool {
	return y.pos < len(y.toks)-1
}
