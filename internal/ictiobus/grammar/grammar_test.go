package grammar

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dekarrin/stitch/internal/ictiobus/lex"
	"github.com/dekarrin/stitch/internal/util"
	"github.com/stretchr/testify/assert"
)

// testing terminals
var (
	testTCNumber = lex.MakeDefaultClass("int")
)

func Test_Grammar_Validate(t *testing.T) {
	testCases := []struct {
		name      string
		rules     []Rule
		terminals []lex.TokenClass
		expectErr bool
	}{
		{
			name:      "empty grammar",
			expectErr: true,
		},
		{
			name: "no rules in grammar",
			terminals: []lex.TokenClass{
				testTCNumber,
			},
			expectErr: true,
		},
		{
			name: "no terms in grammar",
			rules: []Rule{{
				NonTerminal: "S",
				Productions: []Production{
					{"S"},
				},
			}},
			expectErr: true,
		},
		{
			name: "single rule grammar",
			rules: []Rule{
				{
					NonTerminal: "S",
					Productions: []Production{
						{strings.ToLower(testTCNumber.ID())},
					},
				},
			},
			terminals: []lex.TokenClass{
				testTCNumber,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// set up the grammar
			g := Grammar{}
			for _, term := range tc.terminals {
				g.AddTerm(term.ID(), term)
			}
			for _, r := range tc.rules {
				for _, alts := range r.Productions {
					g.AddRule(r.NonTerminal, alts)
				}
			}

			// checkActual
			actual := g.Validate()

			if tc.expectErr {
				assert.Error(actual)
			} else {
				assert.NoError(actual)
			}
		})
	}
}


func Test_Grammar_FIRST(t *testing.T) {
	// TODO: make all tests have this input form its super convenient
	testCases := []struct {
		name      string
		terminals []string
		rules     []string
		first     string
		expect    []string
	}{
		{
			name: "empty grammar",
			expect: []string{
				Epsilon[0],
			},
		},
		{
			name:      "first and follow sets explained example, T",
			terminals: []string{"p", "g", "b", "a", "q", "s", "d", "f", "m"},
			rules: []string{
				"S -> K L p | g Q K",
				"K -> b L Q T | ε",
				"L -> Q a K | Q K | q a",
				"Q -> d s | ε",
				"T -> g S f | m",
			},
			first: "T",
			expect: []string{
				"g", "m",
			},
		},
		{
			name:      "first and follow sets explained example, Q",
			terminals: []string{"p", "g", "b", "a", "q", "s", "d", "f", "m"},
			rules: []string{
				"S -> K L p | g Q K",
				"K -> b L Q T | ε",
				"L -> Q a K | Q K | q a",
				"Q -> d s | ε",
				"T -> g S f | m",
			},
			first: "Q",
			expect: []string{
				"d", Epsilon[0],
			},
		},
		{
			name:      "first and follow sets explained example, K",
			terminals: []string{"p", "g", "b", "a", "q", "s", "d", "f", "m"},
			rules: []string{
				"S -> K L p | g Q K",
				"K -> b L Q T | ε",
				"L -> Q a K | Q K | q a",
				"Q -> d s | ε",
				"T -> g S f | m",
			},
			first: "K",
			expect: []string{
				"b", Epsilon[0],
			},
		},
		{
			name:      "first and follow sets explained example, L",
			terminals: []string{"p", "g", "b", "a", "q", "s", "d", "f", "m"},
			rules: []string{
				"S -> K L p | g Q K",
				"K -> b L Q T | ε",
				"L -> Q a K | Q K | q a",
				"Q -> d s | ε",
				"T -> g S f | m",
			},
			first: "L",
			expect: []string{
				"d", Epsilon[0], "q", "a", "b",
			},
		},
		{
			name:      "first and follow sets explained example, S",
			terminals: []string{"p", "g", "b", "a", "q", "s", "d", "f", "m"},
			rules: []string{
				"S -> K L p | g Q K",
				"K -> b L Q T | ε",
				"L -> Q a K | Q K | q a",
				"Q -> d s | ε",
				"T -> g S f | m",
			},
			first: "S",
			expect: []string{
				"b", "d", "q", "a", "b", "p", "g",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// setup
			assert := assert.New(t)
			expectMap := map[string]bool{}
			for i := range tc.expect {
				expectMap[tc.expect[i]] = true
			}

			g := setupGrammar(tc.terminals, tc.rules)

			// execute
			actual := g.FIRST(tc.first)

			// assert
			assert.Equal(util.OrderedKeys(expectMap), util.Alphabetized[string](actual))
		})
	}
}


func Test_Grammar_FOLLOW(t *testing.T) {
	// TODO: make all tests have this input form its super convenient
	testCases := []struct {
		name      string
		terminals []string
		rules     []string
		follow    string
		expect    []string
	}{
		{
			name: "empty grammar",
		},
		{
			name:      "example 1 - S",
			terminals: []string{"a", "h", "c", "b", "g", "f"},
			rules: []string{
				"S -> a B D h",
				"B -> c C",
				"C -> b C | ε",
				"D -> E F",
				"E -> g | ε",
				"F -> f | ε",
			},
			follow: "S",
			expect: []string{
				"$",
			},
		},
		{
			name:      "example 1 - B",
			terminals: []string{"a", "h", "c", "b", "g", "f"},
			rules: []string{
				"S -> a B D h",
				"B -> c C",
				"C -> b C | ε",
				"D -> E F",
				"E -> g | ε",
				"F -> f | ε",
			},
			follow: "B",
			expect: []string{
				"g", "f", "h",
			},
		},
		{
			name:      "example 1 - C",
			terminals: []string{"a", "h", "c", "b", "g", "f"},
			rules: []string{
				"S -> a B D h",
				"B -> c C",
				"C -> b C | ε",
				"D -> E F",
				"E -> g | ε",
				"F -> f | ε",
			},
			follow: "C",
			expect: []string{
				"g", "f", "h",
			},
		},
		{
			name:      "example 1 - D",
			terminals: []string{"a", "h", "c", "b", "g", "f"},
			rules: []string{
				"S -> a B D h",
				"B -> c C",
				"C -> b C | ε",
				"D -> E F",
				"E -> g | ε",
				"F -> f | ε",
			},
			follow: "D",
			expect: []string{
				"h",
			},
		},
		{
			name:      "example 1 - E",
			terminals: []string{"a", "h", "c", "b", "g", "f"},
			rules: []string{
				"S -> a B D h",
				"B -> c C",
				"C -> b C | ε",
				"D -> E F",
				"E -> g | ε",
				"F -> f | ε",
			},
			follow: "E",
			expect: []string{
				"f", "h",
			},
		},
		{
			name:      "example 1 - F",
			terminals: []string{"a", "h", "c", "b", "g", "f"},
			rules: []string{
				"S -> a B D h",
				"B -> c C",
				"C -> b C | ε",
				"D -> E F",
				"E -> g | ε",
				"F -> f | ε",
			},
			follow: "F",
			expect: []string{
				"h",
			},
		},
		{
			name:      "example 1 - a",
			terminals: []string{"a", "h", "c", "b", "g", "f"},
			rules: []string{
				"S -> a B D h",
				"B -> c C",
				"C -> b C | ε",
				"D -> E F",
				"E -> g | ε",
				"F -> f | ε",
			},
			follow: "a",
			expect: []string{
				"c",
			},
		},
		{
			name:      "example 1 - h",
			terminals: []string{"a", "h", "c", "b", "g", "f"},
			rules: []string{
				"S -> a B D h",
				"B -> c C",
				"C -> b C | ε",
				"D -> E F",
				"E -> g | ε",
				"F -> f | ε",
			},
			follow: "h",
			expect: []string{
				"$",
			},
		},
		{
			name:      "example 1 - c",
			terminals: []string{"a", "h", "c", "b", "g", "f"},
			rules: []string{
				"S -> a B D h",
				"B -> c C",
				"C -> b C | ε",
				"D -> E F",
				"E -> g | ε",
				"F -> f | ε",
			},
			follow: "c",
			expect: []string{
				"b", "g", "f", "h",
			},
		},
		{
			name:      "example 1 - b",
			terminals: []string{"a", "h", "c", "b", "g", "f"},
			rules: []string{
				"S -> a B D h",
				"B -> c C",
				"C -> b C | ε",
				"D -> E F",
				"E -> g | ε",
				"F -> f | ε",
			},
			follow: "b",
			expect: []string{
				"b", "g", "f", "h",
			},
		},
		{
			name:      "example 1 - g",
			terminals: []string{"a", "h", "c", "b", "g", "f"},
			rules: []string{
				"S -> a B D h",
				"B -> c C",
				"C -> b C | ε",
				"D -> E F",
				"E -> g | ε",
				"F -> f | ε",
			},
			follow: "g",
			expect: []string{
				"f", "h",
			},
		},
		{
			name:      "example 1 - f",
			terminals: []string{"a", "h", "c", "b", "g", "f"},
			rules: []string{
				"S -> a B D h",
				"B -> c C",
				"C -> b C | ε",
				"D -> E F",
				"E -> g | ε",
				"F -> f | ε",
			},
			follow: "f",
			expect: []string{
				"h",
			},
		},
		{
			name:      "aiken operations - S",
			terminals: []string{"int", "plus", "times", "lparen", "rparen"},
			rules:     []string{"S -> T X", "T -> lparen S rparen | int Y", "X -> plus S | ε", "Y -> times T | ε"},
			follow:    "S", expect: []string{"$", "rparen"},
		},
		{
			name:      "aiken operations - X",
			terminals: []string{"int", "plus", "times", "lparen", "rparen"},
			rules:     []string{"S -> T X", "T -> lparen S rparen | int Y", "X -> plus S | ε", "Y -> times T | ε"},
			follow:    "X", expect: []string{"$", "rparen"},
		},
		{
			name:      "aiken operations - T",
			terminals: []string{"int", "plus", "times", "lparen", "rparen"},
			rules:     []string{"S -> T X", "T -> lparen S rparen | int Y", "X -> plus S | ε", "Y -> times T | ε"},
			follow:    "T", expect: []string{"plus", "$", "rparen"},
		},
		{
			name:      "aiken operations - Y",
			terminals: []string{"int", "plus", "times", "lparen", "rparen"},
			rules:     []string{"S -> T X", "T -> lparen S rparen | int Y", "X -> plus S | ε", "Y -> times T | ε"},
			follow:    "Y", expect: []string{"plus", "$", "rparen"},
		},
		{
			name:      "aiken operations - (",
			terminals: []string{"int", "plus", "times", "lparen", "rparen"},
			rules:     []string{"S -> T X", "T -> lparen S rparen | int Y", "X -> plus S | ε", "Y -> times T | ε"},
			follow:    "lparen", expect: []string{"lparen", "int"},
		},
		{
			name:      "aiken operations - )",
			terminals: []string{"int", "plus", "times", "lparen", "rparen"},
			rules:     []string{"S -> T X", "T -> lparen S rparen | int Y", "X -> plus S | ε", "Y -> times T | ε"},
			follow:    "rparen", expect: []string{"rparen", "plus", "$"},
		},
		{
			name:      "aiken operations - +",
			terminals: []string{"int", "plus", "times", "lparen", "rparen"},
			rules:     []string{"S -> T X", "T -> lparen S rparen | int Y", "X -> plus S | ε", "Y -> times T | ε"},
			follow:    "plus", expect: []string{"lparen", "int"},
		},
		{
			name:      "aiken operations - *",
			terminals: []string{"int", "plus", "times", "lparen", "rparen"},
			rules:     []string{"S -> T X", "T -> lparen S rparen | int Y", "X -> plus S | ε", "Y -> times T | ε"},
			follow:    "times", expect: []string{"lparen", "int"},
		},
		{
			name:      "aiken operations - int",
			terminals: []string{"int", "plus", "times", "lparen", "rparen"},
			rules:     []string{"S -> T X", "T -> lparen S rparen | int Y", "X -> plus S | ε", "Y -> times T | ε"},
			follow:    "int", expect: []string{"times", "plus", "$", "rparen"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// setup
			assert := assert.New(t)
			expectMap := map[string]bool{}
			for i := range tc.expect {
				expectMap[tc.expect[i]] = true
			}

			g := setupGrammar(tc.terminals, tc.rules)

			// execute
			actual := g.FOLLOW(tc.follow)

			// assert
			assert.Equal(util.OrderedKeys(expectMap), util.Alphabetized[string](actual))
		})
	}
}


func setupGrammar(terminals []string, rules []string) Grammar {
	g := Grammar{}

	for _, term := range terminals {
		class := lex.MakeDefaultClass(term)
		g.AddTerm(class.ID(), class)
	}
	for _, r := range rules {
		parsedRule := mustParseRule(r)
		for _, alts := range parsedRule.Productions {
			g.AddRule(parsedRule.NonTerminal, alts)
		}
	}

	return g
}

// mustParseRule parses a single rule line (e.g. "S -> a b | c") using the
// same mini-language MustParse accepts for a full grammar, and returns the
// one Rule it produced. Panics on a malformed rule line. The whole-grammar
// validation Parse ends with is not applied, since a lone rule line usually
// names non-terminals defined on other lines.
func mustParseRule(src string) Rule {
	g, _ := Parse(src)
	nts := g.NonTerminals()
	if len(nts) != 1 {
		panic(fmt.Sprintf("not a single rule: %q", src))
	}
	return g.Rule(nts[0])
}

func Test_Grammar_Augmented(t *testing.T) {
	assert := assert.New(t)

	g := MustParse(`
		S -> A A
		A -> a A | b
	`)

	aug := g.Augmented()

	assert.Equal("S-P", aug.StartSymbol())
	assert.True(aug.HasRule("S-P"))
	assert.Equal([]Production{{"S"}}, aug.Rule("S-P").Productions)

	// augmentation must not mutate the original grammar's start symbol
	assert.Equal("S", g.StartSymbol())
}

func Test_Grammar_LR0Items(t *testing.T) {
	assert := assert.New(t)

	g := MustParse(`
		E -> E + T | T
		T -> T * F | F
		F -> ( E ) | int
	`)

	items := g.LR0Items()
	assert.NotEmpty(items)

	// every non-epsilon production of every rule must have contributed at
	// least a dot-at-start item (empty Left, full Right)
	for _, nt := range g.NonTerminals() {
		for _, prod := range g.Rule(nt).Productions {
			found := false
			for _, it := range items {
				if it.NonTerminal == nt && len(it.Left) == 0 && strings.Join(it.Right, " ") == strings.Join([]string(prod), " ") {
					found = true
					break
				}
			}
			assert.Truef(found, "no dot-at-start item found for %s -> %s", nt, prod.String())
		}
	}
}

func Test_Grammar_LR1_CLOSURE(t *testing.T) {
	assert := assert.New(t)

	g := MustParse(`
		S -> C C
		C -> c C | d
	`).Augmented()

	startProd := g.Rule(g.StartSymbol()).Productions[0]
	startItem := LR1Item{
		LR0Item:   LR0Item{NonTerminal: g.StartSymbol(), Left: nil, Right: []string(startProd)},
		Lookahead: "$",
	}

	init := util.NewSVSet[LR1Item]()
	init.Set(startItem.String(), startItem)

	closure := g.LR1_CLOSURE(init)

	// closure of the augmented start item must include dot-at-start items
	// for every production of C, since C immediately follows the dot
	foundC := false
	for _, key := range closure.Elements() {
		it := closure.Get(key)
		if it.NonTerminal == "C" && len(it.Left) == 0 {
			foundC = true
		}
	}
	assert.True(foundC, "closure did not expand non-terminal C")
}
