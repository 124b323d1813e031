package walker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/bidicheck/dom"
)

func chunks(t *testing.T, src string) []*Chunk {
	t.Helper()
	d := dom.MustParse(src)
	w := New(d, nil)
	a := NewAggregator()
	var out []*Chunk
	allDone := 0
	for ev := range w.Events() {
		for _, ce := range a.Feed(ev) {
			switch ce.Kind {
			case ChunkComplete:
				require.False(t, ce.Chunk.Empty(), "sealed chunks are never empty")
				out = append(out, ce.Chunk)
			case AllDone:
				allDone++
			}
		}
	}
	require.Equal(t, 1, allDone)
	return out
}

func TestAggregator_MergesSameContext(t *testing.T) {
	cs := chunks(t, `<body><p>one <b>two</b> <i>three</i></p></body>`)
	require.Len(t, cs, 1)
	assert.Equal(t, "one two three", cs[0].Text())
	assert.Equal(t, "p", cs[0].Block().Data)
	assert.Len(t, cs[0].Index(), 4)
}

func TestAggregator_SplitsOnContextChange(t *testing.T) {
	cs := chunks(t, `<html dir="rtl"><body><p>א <span dir="ltr">abc</span> ב</p><p>ג</p></body></html>`)
	var texts []string
	for _, c := range cs {
		texts = append(texts, c.Text())
	}
	assert.Equal(t, []string{"א ", "abc", " ב", "ג"}, texts)
	assert.True(t, cs[0].Rtl())
	assert.False(t, cs[1].Rtl())
	assert.True(t, cs[1].Declared())
	assert.True(t, cs[2].Rtl())
	assert.NotSame(t, cs[2].Block(), cs[3].Block())
}

func TestAggregator_EmptyBlockDoesNotSplit(t *testing.T) {
	// No text arrives from the empty <p>, so the context never changes and
	// the text around it stays in the <div> chunk.
	cs := chunks(t, `<html dir="rtl"><body><div>Hello<p></p>World</div></body></html>`)
	require.Len(t, cs, 1)
	assert.Equal(t, "HelloWorld", cs[0].Text())
	assert.Equal(t, "div", cs[0].Block().Data)
	require.Len(t, cs[0].Index(), 2)
	assert.Equal(t, 5, cs[0].Index()[1].Offset)
}

func TestChunk_IndexIsStrictlyIncreasing(t *testing.T) {
	cs := chunks(t, `<body><p>a<b>bb</b><i>ccc<u>d</u></i>eeeee</p><div>x<span>y</span></div></body>`)
	for _, c := range cs {
		idx := c.Index()
		require.NotEmpty(t, idx)
		assert.Equal(t, 0, idx[0].Offset)
		for i := 1; i < len(idx); i++ {
			assert.Greater(t, idx[i].Offset, idx[i-1].Offset)
		}
		for off := 0; off < c.Len(); off++ {
			b, ok := c.NodeAt(off)
			require.True(t, ok, "offset %d", off)
			assert.NotNil(t, b.Node)
			assert.LessOrEqual(t, b.Offset, off)
			assert.Less(t, off-b.Offset, len(b.Node.Data))
		}
	}
}

func TestChunk_NodeAtFloor(t *testing.T) {
	cs := chunks(t, `<body><p>ab<b>cd</b>ef</p></body>`)
	require.Len(t, cs, 1)
	c := cs[0]

	b, ok := c.NodeAt(0)
	require.True(t, ok)
	assert.Equal(t, "ab", b.Node.Data)
	b, _ = c.NodeAt(2)
	assert.Equal(t, "cd", b.Node.Data)
	b, _ = c.NodeAt(3)
	assert.Equal(t, "cd", b.Node.Data)
	assert.Equal(t, 2, b.Offset)
	b, _ = c.NodeAt(5)
	assert.Equal(t, "ef", b.Node.Data)

	_, ok = c.NodeAt(-1)
	assert.False(t, ok)
	var empty Chunk
	_, ok = empty.NodeAt(0)
	assert.False(t, ok)
	assert.True(t, empty.Empty())
}

func TestChunk_Range(t *testing.T) {
	cs := chunks(t, `<body><p>ab<b>cd</b>ef</p></body>`)
	c := cs[0]

	r := c.Range(1, 4)
	require.NotNil(t, r)
	assert.Equal(t, "ab", r.Start.Data)
	assert.Equal(t, 1, r.StartOffset)
	assert.Equal(t, "ef", r.End.Data)
	assert.Equal(t, 1, r.EndOffset)
	assert.Equal(t, "bcde", r.Text())

	r = c.Range(2, 2)
	assert.Same(t, r.Start, r.End)
	assert.Equal(t, "cd", r.Text())
}

func TestChunk_SealedIsImmutable(t *testing.T) {
	cs := chunks(t, `<body><p>a</p><p>b</p></body>`)
	require.Len(t, cs, 2)
	assert.Panics(t, func() { cs[0].append(cs[1].Index()[0].Node, "x") })
	assert.Equal(t, "a", cs[0].Text())
}
