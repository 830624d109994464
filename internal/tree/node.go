// Package tree implements the incremental, versioned parse-tree core:
// an arena of Nodes addressed by Handle rather than pointer (spec.md §9's
// design note on pervasive back-references — an arena plus integer handles
// makes tree_compare a plain walk and undo a log of (Handle, field, version)
// records instead of an object graph that has to be deep-copied to snapshot).
package tree

import "fmt"

// Handle is an index into a Tree's node arena. NoHandle (-1) is never a
// valid node.
type Handle int

// NoHandle is the not-a-node handle value, used for "no parent" (root), "no
// next terminal" (end of chain), and similar absent-edge cases.
const NoHandle Handle = -1

// NodeKind tags the variant a Node is, standing in for the dynamic typing
// the original design used per-node (spec.md §9: "dynamic typing" becomes a
// tagged variant over a fixed Go struct rather than an interface hierarchy,
// since every Node needs the same arena slot shape regardless of kind).
type NodeKind int

const (
	// KindBOS is the single beginning-of-stream sentinel of a tree: every
	// terminal chain starts here via NextTerm.
	KindBOS NodeKind = iota
	// KindEOS is the single end-of-stream sentinel of a tree.
	KindEOS
	// KindTerminal is a leaf produced by the lexer: it carries a lexeme,
	// source position, and the lookahead count the DFA consumed to commit
	// to it.
	KindTerminal
	// KindNonTerminal is an interior node produced by a parser reduction: it
	// carries the grammar symbol reduced to and the ordered handles of its
	// children.
	KindNonTerminal
	// KindMagicTerminal is a language box: from the outer grammar's parser
	// it is a single opaque terminal (TokenMagic), but InnerRoot points at
	// the root of the nested grammar's own parse tree.
	KindMagicTerminal
	// KindMultiText is a leaf terminal whose lexeme spans non-contiguous
	// source text (the teacher's corpus has no direct analogue; this models
	// language boxes whose host grammar's token for the box text is
	// reassembled from more than one source run after auto-removal/
	// reinsertion of a nested box, spec.md §4.7).
	KindMultiText
)

func (k NodeKind) String() string {
	switch k {
	case KindBOS:
		return "BOS"
	case KindEOS:
		return "EOS"
	case KindTerminal:
		return "Terminal"
	case KindNonTerminal:
		return "NonTerminal"
	case KindMagicTerminal:
		return "MagicTerminal"
	case KindMultiText:
		return "MultiTextNode"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is one arena slot. Fields not meaningful for a given Kind are left at
// their zero value; see the Kind-specific doc comments above for which
// fields apply to which variant.
type Node struct {
	Handle Handle
	Kind   NodeKind

	// Symbol is the grammar symbol at this node: a terminal's TokenClass ID
	// for KindTerminal/KindMagicTerminal/KindMultiText, or the reduced-to
	// non-terminal name for KindNonTerminal.
	Symbol string

	Parent Handle

	// Children is ordered left-to-right, populated only for KindNonTerminal.
	Children []Handle

	// NextTerm/PrevTerm thread every terminal-class node (KindBOS, KindEOS,
	// KindTerminal, KindMagicTerminal, KindMultiText, and the indentation
	// engine's synthetic INDENT/DEDENT/NEWLINE tokens) into one doubly
	// linked chain in source order, independent of the tree's parent/child
	// shape. The incremental parser walks this chain to find the next
	// unconsumed terminal during whole-subtree reuse; the indentation
	// engine splices virtual tokens into it.
	NextTerm Handle
	PrevTerm Handle

	// Lexeme, Line, LinePos, FullLine mirror lex.Token for KindTerminal/
	// KindMagicTerminal/KindMultiText nodes (zero-lexeme synthetic tokens
	// such as INDENT/DEDENT/NEWLINE still carry a position, for diagnostics).
	Lexeme   string
	Line     int
	LinePos  int
	FullLine string

	// Lookahead is the number of characters past Lexeme's end the DFA
	// examined before committing to this token (lex.Token.Lookahead,
	// threaded through so the incremental lexer's relex-invalidation check
	// can read it straight off the tree without re-deriving it from a
	// separate token store).
	Lookahead int

	// State is the LR automaton state the parser was in when this node was
	// shifted (KindTerminal/KindMagicTerminal) or the state reached via GOTO
	// after it was reduced onto the stack (KindNonTerminal). Whole-subtree
	// reuse compares a candidate node's State against the state the
	// incremental parser is currently in before reusing it outright (spec
	// §4.4: "matching by (state, symbol) at the left edge").
	State string

	// Changed marks a node dirty since the last successful parse: set by an
	// edit that touches this node's lexeme or splices text inside its
	// Lookahead window, cleared once the node has survived a parse pass
	// unmodified. The incremental parser never reuses a Changed node
	// whole; it must be re-derived (relexed, for a terminal; broken down
	// and re-reduced, for a non-terminal whose yield changed).
	Changed bool

	// IsoTree marks a node that error recovery detached, failed to
	// reattach, and so committed to treating as an opaque terminal of its
	// own LHS class from then on (spec.md §9: "strict detachment" plus the
	// iso-tree glossary entry). Right-breakdown must never recurse into an
	// iso-tree; a later edit that makes the surrounding parse succeed
	// without it is what clears the flag (handled in parser.go).
	IsoTree bool

	// InnerRoot is the root handle of a nested grammar's parse tree, valid
	// only for KindMagicTerminal.
	InnerRoot Handle
}

// Tree is an arena of Nodes addressed by Handle, plus the terminal chain's
// sentinels and the versioned edit log (version.go) that makes every field
// write undoable.
type Tree struct {
	nodes []Node
	log   *versionLog

	// Root is the root of the parse forest's outermost tree (a
	// KindNonTerminal for the grammar's start symbol, or NoHandle for an
	// empty document).
	Root Handle

	// BOS/EOS are the handles of the single beginning/end-of-stream
	// sentinels. Every terminal reachable via NextTerm from BOS eventually
	// reaches EOS.
	BOS Handle
	EOS Handle

	// Source is the document's current full text, as runes. Routed through
	// the version log via SetSource so an Undo restores it in lockstep with
	// whatever node-field edits the reparse it triggered produced.
	Source []rune
}

// NewTree allocates an empty arena with its BOS/EOS sentinels linked
// directly to each other (no terminals yet).
func NewTree() *Tree {
	t := &Tree{log: newVersionLog()}
	t.BOS = t.alloc(Node{Kind: KindBOS, Parent: NoHandle, PrevTerm: NoHandle})
	t.EOS = t.alloc(Node{Kind: KindEOS, Parent: NoHandle, NextTerm: NoHandle})
	t.setNextTerm(t.BOS, t.EOS)
	t.setPrevTerm(t.EOS, t.BOS)
	t.Root = NoHandle
	return t
}

// alloc appends a new node to the arena and returns its Handle. Unlike every
// other mutation, initial allocation is not logged: an undo never needs to
// "un-allocate" a node, since retainability (version.go) works by reverting
// field values, and a newly allocated but never-linked node is simply
// unreachable from Root/BOS, not different from having never been created.
func (t *Tree) alloc(n Node) Handle {
	h := Handle(len(t.nodes))
	n.Handle = h
	if n.Parent == 0 && n.Kind != KindBOS {
		n.Parent = NoHandle
	}
	t.nodes = append(t.nodes, n)
	return h
}

// Get returns a copy of the node at h. Callers mutate a node only through
// the Set* methods below, which route through the version log.
func (t *Tree) Get(h Handle) Node {
	if h == NoHandle {
		return Node{Handle: NoHandle, Kind: -1}
	}
	return t.nodes[h]
}

// NewTerminal allocates a KindTerminal node. It is not yet linked into the
// terminal chain or attached to a parent; callers splice it in with
// SetNextTerm/SetPrevTerm and SetParent/AppendChild.
func (t *Tree) NewTerminal(symbol, lexeme string, line, linePos, lookahead int, fullLine string) Handle {
	return t.alloc(Node{
		Kind:      KindTerminal,
		Symbol:    symbol,
		Lexeme:    lexeme,
		Line:      line,
		LinePos:   linePos,
		FullLine:  fullLine,
		Lookahead: lookahead,
		Parent:    NoHandle,
		NextTerm:  NoHandle,
		PrevTerm:  NoHandle,
	})
}

// NewNonTerminal allocates a KindNonTerminal node reduced to symbol, with
// the given children (already-existing handles; the caller re-parents them
// via SetParent).
func (t *Tree) NewNonTerminal(symbol string, children []Handle, state string) Handle {
	cp := make([]Handle, len(children))
	copy(cp, children)
	return t.alloc(Node{
		Kind:     KindNonTerminal,
		Symbol:   symbol,
		Children: cp,
		Parent:   NoHandle,
		State:    state,
	})
}

// NewMagicTerminal allocates a KindMagicTerminal node: symbol is always
// lex.TokenMagic's ID from the outer grammar's point of view, innerRoot is
// the nested grammar's tree root.
func (t *Tree) NewMagicTerminal(lexeme string, line, linePos int, innerRoot Handle) Handle {
	return t.alloc(Node{
		Kind:      KindMagicTerminal,
		Symbol:    "magic",
		Lexeme:    lexeme,
		Line:      line,
		LinePos:   linePos,
		Parent:    NoHandle,
		NextTerm:  NoHandle,
		PrevTerm:  NoHandle,
		InnerRoot: innerRoot,
	})
}

// field identifies which Node field (or, for the two reserved sentinel
// handles below, which Tree-level field) a version-log record pertains to.
type field int

const (
	fieldParent field = iota
	fieldChildren
	fieldNextTerm
	fieldPrevTerm
	fieldLexeme
	fieldChanged
	fieldState
	fieldIsoTree
	fieldInnerRoot
	fieldSource
	fieldRoot
)

// sourceHandle and rootHandle are reserved, never-a-real-node handles used
// to route Tree.Source and Tree.Root through the same version log as every
// per-node field, so Undo/Redo restores the whole document (text, root
// pointer, and node fields) as one atomic unit instead of needing a
// separate undo stack for the text buffer.
const (
	sourceHandle Handle = -2
	rootHandle   Handle = -3
)

// SetSource replaces the tree's source text, logged so Undo/Redo restores
// it along with every node field changed by the reparse that follows.
func (t *Tree) SetSource(s []rune) {
	old := append([]rune(nil), t.Source...)
	newVal := append([]rune(nil), s...)
	t.log.record(sourceHandle, fieldSource, old, newVal)
	t.Source = newVal
}

// SetRoot replaces the tree's root handle, logged for the same reason as
// SetSource.
func (t *Tree) SetRoot(h Handle) {
	old := t.Root
	t.log.record(rootHandle, fieldRoot, old, h)
	t.Root = h
}

func (t *Tree) SetParent(h, parent Handle) {
	old := t.nodes[h].Parent
	t.log.record(h, fieldParent, old, parent)
	n := t.nodes[h]
	n.Parent = parent
	t.nodes[h] = n
}

func (t *Tree) SetChildren(h Handle, children []Handle) {
	old := append([]Handle(nil), t.nodes[h].Children...)
	newVal := append([]Handle(nil), children...)
	t.log.record(h, fieldChildren, old, newVal)
	n := t.nodes[h]
	n.Children = append([]Handle(nil), newVal...)
	t.nodes[h] = n
}

func (t *Tree) setNextTerm(h, next Handle) { t.SetNextTerm(h, next) }
func (t *Tree) setPrevTerm(h, prev Handle) { t.SetPrevTerm(h, prev) }

func (t *Tree) SetNextTerm(h, next Handle) {
	old := t.nodes[h].NextTerm
	t.log.record(h, fieldNextTerm, old, next)
	n := t.nodes[h]
	n.NextTerm = next
	t.nodes[h] = n
}

func (t *Tree) SetPrevTerm(h, prev Handle) {
	old := t.nodes[h].PrevTerm
	t.log.record(h, fieldPrevTerm, old, prev)
	n := t.nodes[h]
	n.PrevTerm = prev
	t.nodes[h] = n
}

func (t *Tree) SetLexeme(h Handle, lexeme string) {
	old := t.nodes[h].Lexeme
	t.log.record(h, fieldLexeme, old, lexeme)
	n := t.nodes[h]
	n.Lexeme = lexeme
	t.nodes[h] = n
}

func (t *Tree) SetChanged(h Handle, changed bool) {
	old := t.nodes[h].Changed
	t.log.record(h, fieldChanged, old, changed)
	n := t.nodes[h]
	n.Changed = changed
	t.nodes[h] = n
}

func (t *Tree) SetState(h Handle, state string) {
	old := t.nodes[h].State
	t.log.record(h, fieldState, old, state)
	n := t.nodes[h]
	n.State = state
	t.nodes[h] = n
}

func (t *Tree) SetIsoTree(h Handle, iso bool) {
	old := t.nodes[h].IsoTree
	t.log.record(h, fieldIsoTree, old, iso)
	n := t.nodes[h]
	n.IsoTree = iso
	t.nodes[h] = n
}

func (t *Tree) SetInnerRoot(h, inner Handle) {
	old := t.nodes[h].InnerRoot
	t.log.record(h, fieldInnerRoot, old, inner)
	n := t.nodes[h]
	n.InnerRoot = inner
	t.nodes[h] = n
}

// apply is used only by version.go's undo/redo replay: it writes a field
// directly, without emitting a further log record (replay must not grow the
// log it is walking).
func (t *Tree) apply(h Handle, f field, v any) {
	if h == sourceHandle && f == fieldSource {
		t.Source = v.([]rune)
		return
	}
	if h == rootHandle && f == fieldRoot {
		t.Root = v.(Handle)
		return
	}
	n := t.nodes[h]
	switch f {
	case fieldParent:
		n.Parent = v.(Handle)
	case fieldChildren:
		n.Children = v.([]Handle)
	case fieldNextTerm:
		n.NextTerm = v.(Handle)
	case fieldPrevTerm:
		n.PrevTerm = v.(Handle)
	case fieldLexeme:
		n.Lexeme = v.(string)
	case fieldChanged:
		n.Changed = v.(bool)
	case fieldState:
		n.State = v.(string)
	case fieldIsoTree:
		n.IsoTree = v.(bool)
	case fieldInnerRoot:
		n.InnerRoot = v.(Handle)
	}
	t.nodes[h] = n
}

// NodeCount returns the number of arena slots allocated, including any
// unreachable from Root/BOS.
func (t *Tree) NodeCount() int {
	return len(t.nodes)
}

// Nodes returns a copy of every node in arena order (index == Handle),
// for internal/persist to flatten into a storable record.
func (t *Tree) Nodes() []Node {
	cp := make([]Node, len(t.nodes))
	copy(cp, t.nodes)
	return cp
}

// RestoreFrom replaces t's arena and sentinels wholesale, for
// internal/persist.Load to rebuild a tree from stored records without going
// through the version-logged Set* methods (a load is not an edit; there is
// nothing to undo back to).
func (t *Tree) RestoreFrom(nodes []Node, root, bos, eos Handle, source []rune) {
	t.nodes = append([]Node(nil), nodes...)
	t.Root = root
	t.BOS = bos
	t.EOS = eos
	t.Source = append([]rune(nil), source...)
	t.log = newVersionLog()
}

// Compare does a structural comparison of the subtrees rooted at a and b
// (spec.md's tree_compare / §8's "after undo, tree_compare-equal to a fresh
// reparse" property): same Kind, Symbol, Lexeme, and recursively equal
// Children, ignoring Handle identity and any other bookkeeping field (State,
// Changed, IsoTree, Lookahead aren't part of the parse a tree represents).
func (t *Tree) Compare(a, b Handle) bool {
	if a == NoHandle || b == NoHandle {
		return a == b
	}
	na, nb := t.nodes[a], t.nodes[b]
	if na.Kind != nb.Kind || na.Symbol != nb.Symbol {
		return false
	}
	if na.Kind == KindTerminal || na.Kind == KindMagicTerminal || na.Kind == KindMultiText {
		if na.Lexeme != nb.Lexeme {
			return false
		}
	}
	if len(na.Children) != len(nb.Children) {
		return false
	}
	for i := range na.Children {
		if !t.Compare(na.Children[i], nb.Children[i]) {
			return false
		}
	}
	return true
}

// Yield concatenates the lexemes of every terminal-class node reachable
// left-to-right under h (the source text a subtree represents), used by
// retainability checks that require an unchanged yield.
func (t *Tree) Yield(h Handle) string {
	n := t.nodes[h]
	switch n.Kind {
	case KindTerminal, KindMagicTerminal, KindMultiText:
		return n.Lexeme
	case KindNonTerminal:
		var out string
		for _, c := range n.Children {
			out += t.Yield(c)
		}
		return out
	default:
		return ""
	}
}
