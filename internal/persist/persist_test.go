package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/stitch/internal/tree"
)

func sampleTree() *tree.Tree {
	t := tree.NewTree()
	t.SetSource([]rune("ab"))
	a := t.NewTerminal("word", "a", 1, 1, 0, "ab")
	b := t.NewTerminal("word", "b", 1, 2, 0, "ab")
	t.SetNextTerm(t.BOS, a)
	t.SetPrevTerm(a, t.BOS)
	t.SetNextTerm(a, b)
	t.SetPrevTerm(b, a)
	t.SetNextTerm(b, t.EOS)
	t.SetPrevTerm(t.EOS, b)

	root := t.NewNonTerminal("S", []tree.Handle{a, b}, "0")
	t.SetParent(a, root)
	t.SetParent(b, root)
	t.SetRoot(root)
	return t
}

func Test_flatten_unflatten_roundTrip(t *testing.T) {
	assert := assert.New(t)

	src := sampleTree()
	rec := flatten(src)
	got := unflatten(rec)

	assert.Equal(string(src.Source), string(got.Source))
	assert.Equal(src.Yield(src.Root), got.Yield(got.Root))
	assert.Equal(src.NodeCount(), got.NodeCount())
	assert.Equal(src.Nodes(), got.Nodes())
}

func Test_Store_SaveLoad_roundTrip(t *testing.T) {
	assert := assert.New(t)

	st, err := Open(":memory:")
	if !assert.NoError(err) {
		return
	}
	defer st.Close()

	src := sampleTree()
	if err := st.Save("doc1", src); !assert.NoError(err) {
		return
	}

	got, err := st.Load("doc1")
	if !assert.NoError(err) {
		return
	}
	assert.Equal(string(src.Source), string(got.Source))
	assert.Equal(src.Yield(src.Root), got.Yield(got.Root))
}

func Test_Store_Load_unknownDoc(t *testing.T) {
	assert := assert.New(t)

	st, err := Open(":memory:")
	if !assert.NoError(err) {
		return
	}
	defer st.Close()

	_, err = st.Load("nope")
	assert.Error(err)
}

func Test_Store_Delete(t *testing.T) {
	assert := assert.New(t)

	st, err := Open(":memory:")
	if !assert.NoError(err) {
		return
	}
	defer st.Close()

	src := sampleTree()
	if err := st.Save("doc1", src); !assert.NoError(err) {
		return
	}
	if err := st.Delete("doc1"); !assert.NoError(err) {
		return
	}

	_, err = st.Load("doc1")
	assert.Error(err)
}
