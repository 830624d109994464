// Package persist stores a document's parse trees in a modernc.org/sqlite
// database, the way server/dao/sqlite stores dao.Session.State: each tree's
// arena is flattened to a slice of node records and encoded with
// github.com/dekarrin/rezi's binary codec.
package persist

import (
	"database/sql"
	"encoding/base64"
	"fmt"

	"github.com/hashicorp/go-multierror"

	_ "modernc.org/sqlite"

	"github.com/dekarrin/rezi"

	"github.com/dekarrin/stitch/internal/tree"
)

// nodeRecord is the flattened, rezi-encodable form of a tree.Node. Index in
// the enclosing documentRecord.Nodes slice doubles as that node's
// tree.Handle, so Parent/Children/NextTerm/PrevTerm/InnerRoot round-trip as
// plain ints.
type nodeRecord struct {
	Kind      int
	Symbol    string
	Parent    int
	Children  []int
	NextTerm  int
	PrevTerm  int
	Lexeme    string
	Line      int
	LinePos   int
	FullLine  string
	Lookahead int
	State     string
	InnerRoot int
}

// documentRecord is one document's persisted tree: its arena plus
// root/sentinel handles and current source text.
type documentRecord struct {
	Root   int
	BOS    int
	EOS    int
	Source string
	Nodes  []nodeRecord
}

func flatten(t *tree.Tree) documentRecord {
	nodes := t.Nodes()
	rec := documentRecord{
		Root:   int(t.Root),
		BOS:    int(t.BOS),
		EOS:    int(t.EOS),
		Source: string(t.Source),
		Nodes:  make([]nodeRecord, len(nodes)),
	}
	for i, n := range nodes {
		children := make([]int, len(n.Children))
		for j, c := range n.Children {
			children[j] = int(c)
		}
		rec.Nodes[i] = nodeRecord{
			Kind:      int(n.Kind),
			Symbol:    n.Symbol,
			Parent:    int(n.Parent),
			Children:  children,
			NextTerm:  int(n.NextTerm),
			PrevTerm:  int(n.PrevTerm),
			Lexeme:    n.Lexeme,
			Line:      n.Line,
			LinePos:   n.LinePos,
			FullLine:  n.FullLine,
			Lookahead: n.Lookahead,
			State:     n.State,
			InnerRoot: int(n.InnerRoot),
		}
	}
	return rec
}

func unflatten(rec documentRecord) *tree.Tree {
	nodes := make([]tree.Node, len(rec.Nodes))
	for i, nr := range rec.Nodes {
		var children []tree.Handle
		if len(nr.Children) > 0 {
			children = make([]tree.Handle, len(nr.Children))
			for j, c := range nr.Children {
				children[j] = tree.Handle(c)
			}
		}
		nodes[i] = tree.Node{
			Handle:    tree.Handle(i),
			Kind:      tree.NodeKind(nr.Kind),
			Symbol:    nr.Symbol,
			Parent:    tree.Handle(nr.Parent),
			Children:  children,
			NextTerm:  tree.Handle(nr.NextTerm),
			PrevTerm:  tree.Handle(nr.PrevTerm),
			Lexeme:    nr.Lexeme,
			Line:      nr.Line,
			LinePos:   nr.LinePos,
			FullLine:  nr.FullLine,
			Lookahead: nr.Lookahead,
			State:     nr.State,
			InnerRoot: tree.Handle(nr.InnerRoot),
		}
	}
	t := tree.NewTree()
	t.RestoreFrom(nodes, tree.Handle(rec.Root), tree.Handle(rec.BOS), tree.Handle(rec.EOS), []rune(rec.Source))
	return t
}

// Store is a sqlite-backed repository of documents' parse trees, keyed by an
// arbitrary caller-assigned document ID.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at file and
// ensures its schema exists.
func Open(file string) (*Store, error) {
	db, err := sql.Open("sqlite", file)
	if err != nil {
		return nil, wrapDBError(err)
	}
	st := &Store{db: db}
	if err := st.init(); err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

func (st *Store) init() error {
	_, err := st.db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		id TEXT NOT NULL PRIMARY KEY,
		tree TEXT NOT NULL
	);`)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

// Save persists t under docID, overwriting any previously-saved tree for
// that ID.
func (st *Store) Save(docID string, t *tree.Tree) error {
	rec := flatten(t)
	data := rezi.EncBinary(rec)
	enc := base64.StdEncoding.EncodeToString(data)

	_, err := st.db.Exec(
		`INSERT INTO documents (id, tree) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET tree=excluded.tree;`,
		docID, enc,
	)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

// Load reads back the tree most recently Saved under docID.
func (st *Store) Load(docID string) (*tree.Tree, error) {
	var enc string
	row := st.db.QueryRow(`SELECT tree FROM documents WHERE id = ?;`, docID)
	if err := row.Scan(&enc); err != nil {
		return nil, wrapDBError(err)
	}

	data, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, fmt.Errorf("stored tree for %q is corrupt: %w", docID, err)
	}

	var rec documentRecord
	n, err := rezi.DecBinary(data, &rec)
	if err != nil {
		return nil, fmt.Errorf("decoding stored tree for %q: %w", docID, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("decoding stored tree for %q: consumed %d/%d bytes", docID, n, len(data))
	}

	return unflatten(rec), nil
}

// Delete removes the persisted tree for docID, if any.
func (st *Store) Delete(docID string) error {
	_, err := st.db.Exec(`DELETE FROM documents WHERE id = ?;`, docID)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

// Close closes the underlying database, accumulating through go-multierror
// so a future second database split onto its own *sql.DB still closes
// cleanly instead of one Close error shadowing another.
func (st *Store) Close() error {
	var result *multierror.Error
	if err := st.db.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func wrapDBError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("persist: %w", err)
}
