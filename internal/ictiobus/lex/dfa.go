package lex

import (
	"fmt"

	"github.com/dekarrin/stitch/internal/ictiobus/automaton"
	"github.com/dekarrin/stitch/internal/util"
)

// DFARule is one rule compiled into a MergedDFA: a token class, the pattern
// that produces it, and a priority used to break ties when more than one
// rule's sub-NFA accepts at the same DFA state (lower Priority wins, the
// same earliest-declared-rule-wins convention lazyLex's selectMatch uses for
// the regexp-based lexer).
type DFARule struct {
	Class    TokenClass
	Pattern  string
	Priority int

	nfa automaton.NFA[string]
}

// NewDFARule compiles pattern (the same regex dialect Compile accepts) into
// a rule usable by BuildMergedDFA.
func NewDFARule(class TokenClass, pattern string, priority int) (DFARule, error) {
	nfa, err := Compile(pattern)
	if err != nil {
		return DFARule{}, fmt.Errorf("class %s: %w", class.ID(), err)
	}
	return DFARule{Class: class, Pattern: pattern, Priority: priority, nfa: nfa}, nil
}

// MergedDFA is every rule's NFA joined into a single DFA via subset
// construction: one state machine an incremental lexer can step a rune at a
// time, save, and resume from, unlike the regexp.Regexp-per-state matcher
// lazyLex uses, which can only commit to a match by backtracking and cannot
// expose a mid-match state to resume from or a lookahead count to report
// (spec.md §4.1/§4.2).
type MergedDFA struct {
	dfa        automaton.DFA[util.SVSet[string]]
	acceptNFA  util.StringSet
	priorities map[string]int
	classes    map[string]TokenClass
}

// BuildMergedDFA joins every rule's compiled NFA into one DFA. Each rule's
// accepting state is tagged with its class ID before the join so that, after
// subset construction, a DFA state reachable through more than one rule's
// accept state can be resolved to the highest-priority (lowest Priority
// value) rule that accepts there.
func BuildMergedDFA(rules []DFARule) (*MergedDFA, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("no rules given to BuildMergedDFA")
	}

	var acc automaton.NFA[string]
	acc.AddState("start", false)
	acc.Start = "start"

	priorities := map[string]int{}
	classes := map[string]TokenClass{}
	acceptNFA := util.NewStringSet()

	for _, r := range rules {
		if _, ok := priorities[r.Class.ID()]; ok {
			return nil, fmt.Errorf("duplicate token class %q in rule set", r.Class.ID())
		}

		ruleNFA := r.nfa.Copy()
		for _, s := range ruleNFA.AcceptingStates().Elements() {
			ruleNFA.SetValue(s, r.Class.ID())
		}

		joined, err := acc.Join(ruleNFA, [][3]string{{acc.Start, "", ruleNFA.Start}}, nil, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", r.Class.ID(), err)
		}
		acc = joined

		priorities[r.Class.ID()] = r.Priority
		classes[r.Class.ID()] = r.Class
	}

	for _, s := range acc.AcceptingStates().Elements() {
		acceptNFA.Add(s)
	}

	dfa := acc.ToDFA()

	return &MergedDFA{
		dfa:        dfa,
		acceptNFA:  acceptNFA,
		priorities: priorities,
		classes:    classes,
	}, nil
}

// Start returns the DFA's initial state.
func (m *MergedDFA) Start() string {
	return m.dfa.Start
}

// Step advances from state on input r, returning the new state and whether a
// transition was defined. An undefined transition means the merged DFA has
// no rule that can continue matching past this point from this state.
func (m *MergedDFA) Step(state string, r rune) (string, bool) {
	next := m.dfa.Next(state, string(r))
	return next, next != ""
}

// IsAccepting reports whether state is an accepting state of some rule.
func (m *MergedDFA) IsAccepting(state string) bool {
	return m.dfa.IsAccepting(state)
}

// MatchClass resolves an accepting state to the token class that wins there:
// the rule with the lowest Priority value among every rule whose NFA accept
// state contributed to this DFA state. Returns ok=false if state does not
// accept.
func (m *MergedDFA) MatchClass(state string) (TokenClass, bool) {
	values := m.dfa.GetValue(state)

	var best TokenClass
	bestPrio := 0
	found := false

	for _, nfaState := range values.Elements() {
		if !m.acceptNFA.Has(nfaState) {
			continue
		}
		classID := values.Get(nfaState)
		prio := m.priorities[classID]
		if !found || prio < bestPrio {
			found = true
			bestPrio = prio
			best = m.classes[classID]
		}
	}

	return best, found
}
