// Package grammar models a context-free grammar: productions, terminals,
// and the derived item sets (LR0Item, LR1Item) and FIRST/FOLLOW sets that
// the parse package's table builders need.
package grammar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dekarrin/stitch/internal/ictiobus/lex"
	"github.com/dekarrin/stitch/internal/util"
)

// Epsilon is the symbol used in a Production to denote the empty string.
var Epsilon = []string{""}

// Production is the right-hand side of a rule: an ordered sequence of
// grammar symbols. A lower-case symbol is a terminal (token class ID); an
// upper-case symbol is a non-terminal. An empty Production (len 0) is an
// epsilon production.
type Production []string

func (p Production) String() string {
	if len(p) == 0 {
		return "ε"
	}
	return strings.Join(p, " ")
}

func (p Production) Equal(o any) bool {
	other, ok := o.(Production)
	if !ok {
		return false
	}
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

func (p Production) Copy() Production {
	cp := make(Production, len(p))
	copy(cp, p)
	return cp
}

// IsEpsilon returns whether this production derives the empty string.
func (p Production) IsEpsilon() bool {
	return len(p) == 0
}

// Rule is all productions for a single non-terminal.
type Rule struct {
	NonTerminal string
	Productions []Production
}

func (r Rule) Copy() Rule {
	cp := Rule{NonTerminal: r.NonTerminal, Productions: make([]Production, len(r.Productions))}
	for i := range r.Productions {
		cp.Productions[i] = r.Productions[i].Copy()
	}
	return cp
}

// IsTerminalSymbol returns whether sym, as it appears in a Production, names
// a terminal. By convention terminals are written lower-case and
// non-terminals upper-case (matching the teacher's item-printing
// convention in LR0Item.String/LR1Item.String).
func IsTerminalSymbol(sym string) bool {
	return sym == "" || strings.ToLower(sym) == sym
}

// Grammar is a context-free grammar together with its terminal token
// classes.
type Grammar struct {
	rules      map[string]Rule
	rulesOrder []string
	terms      map[string]lex.TokenClass
	termsOrder []string
	start      string

	uniqueCounter int
}

// AddTerm registers a terminal token class under the given id. The first
// terminal added is otherwise unused for determining the start symbol;
// start symbol is always the LHS of the first *rule* added, unless
// SetStartSymbol is called.
func (g *Grammar) AddTerm(id string, cl lex.TokenClass) {
	if g.terms == nil {
		g.terms = map[string]lex.TokenClass{}
	}
	id = strings.ToLower(id)
	if _, ok := g.terms[id]; !ok {
		g.termsOrder = append(g.termsOrder, id)
	}
	g.terms[id] = cl
}

// AddRule adds one production alternative to the rule for nonTerminal,
// creating the rule if this is the first time nonTerminal is seen. The
// non-terminal of the first call to AddRule becomes the grammar's start
// symbol unless SetStartSymbol overrides it.
func (g *Grammar) AddRule(nonTerminal string, alt Production) {
	if g.rules == nil {
		g.rules = map[string]Rule{}
	}
	r, ok := g.rules[nonTerminal]
	if !ok {
		r = Rule{NonTerminal: nonTerminal}
		g.rulesOrder = append(g.rulesOrder, nonTerminal)
		if g.start == "" {
			g.start = nonTerminal
		}
	}
	r.Productions = append(r.Productions, alt)
	g.rules[nonTerminal] = r
}

// SetStartSymbol overrides the inferred start symbol.
func (g *Grammar) SetStartSymbol(s string) {
	g.start = s
}

// StartSymbol returns the grammar's start non-terminal.
func (g Grammar) StartSymbol() string {
	return g.start
}

// Rule returns the rule for the given non-terminal.
func (g Grammar) Rule(nonTerminal string) Rule {
	return g.rules[nonTerminal]
}

// HasRule returns whether nonTerminal has at least one production.
func (g Grammar) HasRule(nonTerminal string) bool {
	_, ok := g.rules[nonTerminal]
	return ok
}

// NonTerminals returns all non-terminals in declaration order.
func (g Grammar) NonTerminals() []string {
	cp := make([]string, len(g.rulesOrder))
	copy(cp, g.rulesOrder)
	return cp
}

// Terminals returns all terminal IDs in declaration order.
func (g Grammar) Terminals() []string {
	cp := make([]string, len(g.termsOrder))
	copy(cp, g.termsOrder)
	return cp
}

// Term returns the token class registered under id.
func (g Grammar) Term(id string) lex.TokenClass {
	return g.terms[strings.ToLower(id)]
}

// GenerateUniqueTerminal returns a terminal id derived from base that is not
// already in use, registering it with a default class. Used to name the
// synthetic terminal for a language box's inner grammar.
func (g *Grammar) GenerateUniqueTerminal(base string) string {
	base = strings.ToLower(base)
	candidate := base
	for {
		if _, ok := g.terms[candidate]; !ok {
			g.AddTerm(candidate, lex.MakeDefaultClass(candidate))
			return candidate
		}
		g.uniqueCounter++
		candidate = fmt.Sprintf("%s_%d", base, g.uniqueCounter)
	}
}

// Validate reports structural problems: no rules, undefined symbols
// referenced, no terminals, or a start symbol with no rule.
func (g Grammar) Validate() error {
	if len(g.rulesOrder) == 0 {
		return fmt.Errorf("grammar has no rules")
	}
	if len(g.termsOrder) == 0 {
		return fmt.Errorf("grammar has no terminals")
	}
	if !g.HasRule(g.start) {
		return fmt.Errorf("start symbol %q has no rule", g.start)
	}
	for _, nt := range g.rulesOrder {
		rule := g.rules[nt]
		for _, prod := range rule.Productions {
			for _, sym := range prod {
				if sym == "" {
					continue
				}
				if IsTerminalSymbol(sym) {
					if _, ok := g.terms[sym]; !ok {
						return fmt.Errorf("rule %q references undefined terminal %q", nt, sym)
					}
				} else {
					if !g.HasRule(sym) {
						return fmt.Errorf("rule %q references undefined non-terminal %q", nt, sym)
					}
				}
			}
		}
	}
	return nil
}

// Augmented returns a copy of g with a new start symbol S' and the single
// production S' -> S added, where S is g's original start symbol. This is
// the standard first step of LR table construction (dragon book §4.7).
func (g Grammar) Augmented() Grammar {
	cp := g.Copy()
	newStart := cp.start + "-P"
	for cp.HasRule(newStart) {
		newStart += "-P"
	}
	cp.rulesOrder = append([]string{newStart}, cp.rulesOrder...)
	if cp.rules == nil {
		cp.rules = map[string]Rule{}
	}
	cp.rules[newStart] = Rule{NonTerminal: newStart, Productions: []Production{{cp.start}}}
	cp.start = newStart
	return cp
}

// Copy returns a deep copy of g.
func (g Grammar) Copy() Grammar {
	cp := Grammar{
		rules:      make(map[string]Rule, len(g.rules)),
		rulesOrder: append([]string(nil), g.rulesOrder...),
		terms:      make(map[string]lex.TokenClass, len(g.terms)),
		termsOrder: append([]string(nil), g.termsOrder...),
		start:      g.start,
	}
	for k, v := range g.rules {
		cp.rules[k] = v.Copy()
	}
	for k, v := range g.terms {
		cp.terms[k] = v
	}
	return cp
}

// LR0Items returns every LR(0) item obtainable by placing a dot in every
// position of every production of every rule in the grammar.
func (g Grammar) LR0Items() []LR0Item {
	var items []LR0Item
	for _, nt := range g.rulesOrder {
		for _, prod := range g.rules[nt].Productions {
			if prod.IsEpsilon() {
				items = append(items, LR0Item{NonTerminal: nt})
				continue
			}
			for dot := 0; dot <= len(prod); dot++ {
				left := append([]string(nil), prod[:dot]...)
				right := append([]string(nil), prod[dot:]...)
				items = append(items, LR0Item{NonTerminal: nt, Left: left, Right: right})
			}
		}
	}
	return items
}

// IsNullable returns whether the given symbol can derive the empty string.
func (g Grammar) IsNullable(sym string) bool {
	return g.nullableSet()[sym]
}

func (g Grammar) nullableSet() map[string]bool {
	nullable := map[string]bool{}
	changed := true
	for changed {
		changed = false
		for _, nt := range g.rulesOrder {
			if nullable[nt] {
				continue
			}
			for _, prod := range g.rules[nt].Productions {
				if prod.IsEpsilon() {
					nullable[nt] = true
					changed = true
					break
				}
				allNullable := true
				for _, sym := range prod {
					if IsTerminalSymbol(sym) {
						allNullable = false
						break
					}
					if !nullable[sym] {
						allNullable = false
						break
					}
				}
				if allNullable {
					nullable[nt] = true
					changed = true
					break
				}
			}
		}
	}
	return nullable
}

// FIRST computes FIRST(sym): the set of terminals (and possibly "" if sym is
// nullable) that can begin some string derived from sym.
func (g Grammar) FIRST(sym string) util.StringSet {
	memo := map[string]util.StringSet{}
	return g.first(sym, memo, map[string]bool{})
}

func (g Grammar) first(sym string, memo map[string]util.StringSet, inProgress map[string]bool) util.StringSet {
	if sym == "" {
		return util.StringSetOf([]string{""})
	}
	if IsTerminalSymbol(sym) {
		return util.StringSetOf([]string{sym})
	}
	if s, ok := memo[sym]; ok {
		return s
	}
	if inProgress[sym] {
		return util.NewStringSet()
	}
	inProgress[sym] = true

	result := util.NewStringSet()
	rule, ok := g.rules[sym]
	if ok {
		for _, prod := range rule.Productions {
			if prod.IsEpsilon() {
				result.Add("")
				continue
			}
			allNullableSoFar := true
			for _, s := range prod {
				fSet := g.first(s, memo, inProgress)
				for _, t := range fSet.Elements() {
					if t != "" {
						result.Add(t)
					}
				}
				if !fSet.Has("") {
					allNullableSoFar = false
					break
				}
			}
			if allNullableSoFar {
				result.Add("")
			}
		}
	}
	memo[sym] = result
	return result
}

// FirstOfSequence computes FIRST of a whole symbol sequence (used for
// lookahead computation in LR(1)/LALR(1) item closures): the terminals that
// can begin the sequence, including "" only if the entire sequence is
// nullable.
func (g Grammar) FirstOfSequence(seq []string) util.StringSet {
	result := util.NewStringSet()
	allNullable := true
	for _, s := range seq {
		fSet := g.FIRST(s)
		for _, t := range fSet.Elements() {
			if t != "" {
				result.Add(t)
			}
		}
		if !fSet.Has("") {
			allNullable = false
			break
		}
	}
	if allNullable {
		result.Add("")
	}
	return result
}

// FOLLOW computes FOLLOW(nonTerminal): the set of terminals that can appear
// immediately after nonTerminal in some derivation, plus "$" if nonTerminal
// can be the last symbol of a derivation from the start symbol. A terminal
// may be given as well; its FOLLOW set is computed the same way from its
// occurrences in the productions.
func (g Grammar) FOLLOW(nonTerminal string) util.StringSet {
	follows := g.allFollows()
	f, ok := follows[nonTerminal]
	if !ok {
		return util.NewStringSet()
	}
	return f
}

func (g Grammar) allFollows() map[string]util.StringSet {
	follow := map[string]util.StringSet{}
	for _, nt := range g.rulesOrder {
		follow[nt] = util.NewStringSet()
	}
	if startFollow, ok := follow[g.start]; ok {
		startFollow.Add("$")
	}

	changed := true
	for changed {
		changed = false
		for _, nt := range g.rulesOrder {
			for _, prod := range g.rules[nt].Productions {
				for i, sym := range prod {
					if sym == "" {
						continue
					}
					if follow[sym] == nil {
						follow[sym] = util.NewStringSet()
					}
					beta := prod[i+1:]
					firstBeta := g.FirstOfSequence(beta)
					before := follow[sym].Len()
					for _, t := range firstBeta.Elements() {
						if t != "" {
							follow[sym].Add(t)
						}
					}
					if len(beta) == 0 || firstBeta.Has("") {
						follow[sym].AddAll(follow[nt])
					}
					if follow[sym].Len() != before {
						changed = true
					}
				}
			}
		}
	}
	return follow
}

// LR0_CLOSURE computes the closure of a set of LR(0) items: repeatedly add,
// for every item A -> α.Xβ with X a non-terminal, the items X -> .γ for
// every production X -> γ.
func (g Grammar) LR0_CLOSURE(items util.SVSet[LR0Item]) util.SVSet[LR0Item] {
	closure := util.NewSVSet[LR0Item]()
	for _, k := range items.Elements() {
		closure.Set(k, items.Get(k))
	}

	changed := true
	for changed {
		changed = false
		for _, k := range closure.Elements() {
			item := closure.Get(k)
			if len(item.Right) == 0 {
				continue
			}
			X := item.Right[0]
			if IsTerminalSymbol(X) {
				continue
			}
			rule := g.rules[X]
			for _, prod := range rule.Productions {
				var newItem LR0Item
				if prod.IsEpsilon() {
					newItem = LR0Item{NonTerminal: X}
				} else {
					newItem = LR0Item{NonTerminal: X, Right: append([]string(nil), prod...)}
				}
				key := newItem.String()
				if !closure.Has(key) {
					closure.Set(key, newItem)
					changed = true
				}
			}
		}
	}
	return closure
}

// LR0_GOTO computes GOTO(items, X): the closure of the kernel items formed
// by moving the dot past X in every item of items whose next symbol is X.
func (g Grammar) LR0_GOTO(items util.SVSet[LR0Item], X string) util.SVSet[LR0Item] {
	kernel := util.NewSVSet[LR0Item]()
	for _, k := range items.Elements() {
		item := items.Get(k)
		if len(item.Right) == 0 || item.Right[0] != X {
			continue
		}
		moved := LR0Item{
			NonTerminal: item.NonTerminal,
			Left:        append(append([]string(nil), item.Left...), X),
			Right:       append([]string(nil), item.Right[1:]...),
		}
		kernel.Set(moved.String(), moved)
	}
	return g.LR0_CLOSURE(kernel)
}

// LR1_CLOSURE computes the closure of a set of LR(1) items (dragon book
// algorithm 4.53): as LR0_CLOSURE, but each added item also carries a
// lookahead computed from FIRST(βa) for the originating item A -> α.Xβ, a.
func (g Grammar) LR1_CLOSURE(items util.SVSet[LR1Item]) util.SVSet[LR1Item] {
	closure := util.NewSVSet[LR1Item]()
	for _, k := range items.Elements() {
		closure.Set(k, items.Get(k))
	}

	changed := true
	for changed {
		changed = false
		for _, k := range closure.Elements() {
			item := closure.Get(k)
			if len(item.Right) == 0 {
				continue
			}
			X := item.Right[0]
			if IsTerminalSymbol(X) {
				continue
			}
			beta := item.Right[1:]
			seq := append(append([]string(nil), beta...), item.Lookahead)
			lookaheads := g.FirstOfSequence(seq)

			rule := g.rules[X]
			for _, prod := range rule.Productions {
				var core LR0Item
				if prod.IsEpsilon() {
					core = LR0Item{NonTerminal: X}
				} else {
					core = LR0Item{NonTerminal: X, Right: append([]string(nil), prod...)}
				}
				for _, la := range lookaheads.Elements() {
					if la == "" {
						continue
					}
					newItem := LR1Item{LR0Item: core, Lookahead: la}
					key := newItem.String()
					if !closure.Has(key) {
						closure.Set(key, newItem)
						changed = true
					}
				}
			}
		}
	}
	return closure
}

// LR1_GOTO computes GOTO(items, X) for a set of LR(1) items.
func (g Grammar) LR1_GOTO(items util.SVSet[LR1Item], X string) util.SVSet[LR1Item] {
	kernel := util.NewSVSet[LR1Item]()
	for _, k := range items.Elements() {
		item := items.Get(k)
		if len(item.Right) == 0 || item.Right[0] != X {
			continue
		}
		moved := LR1Item{
			LR0Item: LR0Item{
				NonTerminal: item.NonTerminal,
				Left:        append(append([]string(nil), item.Left...), X),
				Right:       append([]string(nil), item.Right[1:]...),
			},
			Lookahead: item.Lookahead,
		}
		kernel.Set(moved.String(), moved)
	}
	return g.LR1_CLOSURE(kernel)
}

// AllSymbols returns every terminal and non-terminal in the grammar, sorted
// alphabetically into one list, for iterating
// candidate GOTO symbols during automaton construction.
func (g Grammar) AllSymbols() []string {
	syms := make([]string, 0, len(g.termsOrder)+len(g.rulesOrder))
	syms = append(syms, g.termsOrder...)
	syms = append(syms, g.rulesOrder...)
	sort.Strings(syms)
	return syms
}

// MustParse parses a small grammar-definition language of the form
//
//	E -> E + T | T
//	T -> T * F | F
//	F -> ( E ) | int
//
// one rule per line, alternatives separated by "|", symbols separated by
// whitespace, "" or "ε" for an epsilon alternative. Every lower-case symbol
// encountered becomes a terminal (registered with a default token class)
// unless it is already known to be the LHS of some rule. It panics on a
// malformed grammar; intended for tests and small embedded fixtures.
func MustParse(src string) Grammar {
	g, err := Parse(src)
	if err != nil {
		panic(err.Error())
	}
	return g
}

// Parse is the fallible form of MustParse.
func Parse(src string) (Grammar, error) {
	var g Grammar

	lines := strings.Split(src, "\n")
	type pending struct {
		nt    string
		alts  []string
	}
	var rules []pending

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "->", 2)
		if len(parts) != 2 {
			return g, fmt.Errorf("malformed rule line: %q", line)
		}
		nt := strings.TrimSpace(parts[0])
		if nt == "" {
			return g, fmt.Errorf("empty non-terminal in line: %q", line)
		}
		alts := strings.Split(parts[1], "|")
		rules = append(rules, pending{nt: nt, alts: alts})
	}

	if len(rules) == 0 {
		return g, fmt.Errorf("no rules in grammar source")
	}

	knownNonTerms := map[string]bool{}
	for _, r := range rules {
		knownNonTerms[r.nt] = true
	}

	for _, r := range rules {
		for _, alt := range r.alts {
			alt = strings.TrimSpace(alt)
			var prod Production
			if alt != "" && alt != "ε" {
				for _, sym := range strings.Fields(alt) {
					prod = append(prod, sym)
					if !knownNonTerms[sym] && IsTerminalSymbol(sym) {
						if g.terms == nil || g.terms[sym] == nil {
							g.AddTerm(sym, lex.MakeDefaultClass(sym))
						}
					}
				}
			}
			g.AddRule(r.nt, prod)
		}
	}

	return g, g.Validate()
}
