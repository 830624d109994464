// Package grammarfile loads a language box's grammar from its TOML
// definition (spec.md §6's grammar file format) into a wired-up
// tree.Manager: a grammar.Grammar, a merged lexer DFA, and, when the file
// declares itself indent-sensitive, an indent.Engine.
package grammarfile

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/dekarrin/stitch/internal/ictiobus/grammar"
	"github.com/dekarrin/stitch/internal/ictiobus/lex"
	"github.com/dekarrin/stitch/internal/ictiobus/parse"
	"github.com/dekarrin/stitch/internal/indent"
	"github.com/dekarrin/stitch/internal/tree"
)

// fileSchema is the on-disk shape of a grammar file, decoded directly by
// toml.Decode.
type fileSchema struct {
	Name            string             `toml:"name"`
	Start           string             `toml:"start"`
	IndentSensitive bool               `toml:"indent_sensitive"`
	Tokens          []fileTokenDef     `toml:"tokens"`
	Productions     []fileProductionDef `toml:"productions"`
	Compose         []ComposeRule      `toml:"compose"`
}

type fileTokenDef struct {
	ID       string `toml:"id"`
	Pattern  string `toml:"pattern"`
	Priority int    `toml:"priority"`
}

type fileProductionDef struct {
	Head string   `toml:"head"`
	Body []string `toml:"body"`
}

// ComposeRule is one [[compose]] entry: a language box that may be entered
// from host_nonterminal, per spec.md §4.7's auto language-box insertion.
// include/exclude filter which of the inner grammar's terminals can trigger
// entry when both are non-empty; an empty include means "any of the inner
// grammar's terminals."
type ComposeRule struct {
	HostNonTerminal string   `toml:"host_nonterminal"`
	InnerGrammar    string   `toml:"inner_grammar"`
	Priority        int      `toml:"priority"`
	Include         []string `toml:"include"`
	Exclude         []string `toml:"exclude"`
}

// Grammar is a loaded, compiled grammar file: the structural grammar.Grammar
// plus everything needed to drive a tree.Manager for it.
type Grammar struct {
	Name    string
	Gram    grammar.Grammar
	DFA     *lex.MergedDFA
	Indent  *indent.Engine
	Compose []ComposeRule
}

// Load reads and compiles the grammar file at path.
func Load(path string) (*Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grammar file: %w", err)
	}
	return LoadString(string(data))
}

// LoadString compiles a grammar file already in memory.
func LoadString(src string) (*Grammar, error) {
	var f fileSchema
	if _, err := toml.Decode(src, &f); err != nil {
		return nil, fmt.Errorf("parse grammar file: %w", err)
	}
	return build(f)
}

func build(f fileSchema) (*Grammar, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("grammar file has no name")
	}
	if len(f.Tokens) == 0 {
		return nil, fmt.Errorf("grammar %q declares no tokens", f.Name)
	}
	if len(f.Productions) == 0 {
		return nil, fmt.Errorf("grammar %q declares no productions", f.Name)
	}

	var g grammar.Grammar
	var rules []lex.DFARule
	for _, t := range f.Tokens {
		if t.ID == "" {
			return nil, fmt.Errorf("grammar %q: token with empty id", f.Name)
		}
		class := lex.MakeDefaultClass(t.ID)
		g.AddTerm(t.ID, class)

		rule, err := lex.NewDFARule(class, t.Pattern, t.Priority)
		if err != nil {
			return nil, fmt.Errorf("grammar %q: token %q: %w", f.Name, t.ID, err)
		}
		rules = append(rules, rule)
	}

	for _, p := range f.Productions {
		if p.Head == "" {
			return nil, fmt.Errorf("grammar %q: production with empty head", f.Name)
		}
		g.AddRule(p.Head, grammar.Production(p.Body))
	}

	if f.Start != "" {
		g.SetStartSymbol(f.Start)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("grammar %q: %w", f.Name, err)
	}

	dfa, err := lex.BuildMergedDFA(rules)
	if err != nil {
		return nil, fmt.Errorf("grammar %q: building lexer: %w", f.Name, err)
	}

	var ind *indent.Engine
	if f.IndentSensitive {
		ind = indent.NewEngine(0)
	}

	return &Grammar{
		Name:    f.Name,
		Gram:    g,
		DFA:     dfa,
		Indent:  ind,
		Compose: f.Compose,
	}, nil
}

// NewManager builds a fresh tree.Manager for this grammar: an LALR(1) parser
// generated from its grammar.Grammar, a tree.Lexer over its merged DFA, and
// its indent.Engine (nil if the grammar file did not declare itself
// indent-sensitive).
func (gr *Grammar) NewManager() (*tree.Manager, error) {
	table, err := parse.BuildLALR1Table(gr.Gram)
	if err != nil {
		return nil, fmt.Errorf("grammar %q is not LALR(1): %w", gr.Name, err)
	}

	p := tree.NewParser(table, gr.Gram)
	lx := tree.NewLexer(gr.DFA)

	return tree.NewManager(lx, gr.Indent, p), nil
}
