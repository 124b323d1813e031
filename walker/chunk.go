package walker

import (
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/bidicheck/dom"
)

// Boundary marks where a text node's contribution to a chunk begins.
type Boundary struct {
	Offset int
	Node   *html.Node
}

// Chunk is a run of text sharing one directional context within one block.
// Offsets are byte offsets into Text(). A sealed chunk is never mutated.
// The zero value is the empty "no chunk yet" chunk.
type Chunk struct {
	Context Context

	pieces []string
	index  []Boundary
	length int
	text   string
	sealed bool
}

// Empty reports whether the chunk holds no text.
func (c *Chunk) Empty() bool { return c == nil || c.length == 0 }

// Len returns the cumulative byte length.
func (c *Chunk) Len() int { return c.length }

// Rtl reports the chunk direction.
func (c *Chunk) Rtl() bool { return c.Context.Rtl }

// Declared reports whether the chunk sits in a declared-direction context.
func (c *Chunk) Declared() bool { return c.Context.Declared }

// Block returns the enclosing block element.
func (c *Chunk) Block() *html.Node { return c.Context.Block }

// Text returns the concatenated text.
func (c *Chunk) Text() string {
	if c.sealed {
		return c.text
	}
	return strings.Join(c.pieces, "")
}

// Pieces returns the text pieces in append order.
func (c *Chunk) Pieces() []string { return append([]string(nil), c.pieces...) }

// Index returns the position-to-node index, strictly increasing in offset.
func (c *Chunk) Index() []Boundary { return append([]Boundary(nil), c.index...) }

func (c *Chunk) append(n *html.Node, text string) {
	if c.sealed {
		panic("walker: append to sealed chunk")
	}
	if len(c.index) == 0 || c.index[len(c.index)-1].Node != n {
		c.index = append(c.index, Boundary{Offset: c.length, Node: n})
	}
	c.pieces = append(c.pieces, text)
	c.length += len(text)
}

func (c *Chunk) seal() {
	c.text = strings.Join(c.pieces, "")
	c.sealed = true
}

// NodeAt returns the boundary of the node containing byte offset off: the
// last index entry whose offset is <= off.
func (c *Chunk) NodeAt(off int) (Boundary, bool) {
	if len(c.index) == 0 || off < 0 {
		return Boundary{}, false
	}
	i := sort.Search(len(c.index), func(i int) bool { return c.index[i].Offset > off })
	if i == 0 {
		return Boundary{}, false
	}
	return c.index[i-1], true
}

// Range maps [start, start+length) onto the text nodes holding it.
func (c *Chunk) Range(start, length int) *dom.TextRange {
	end := start + length
	first, ok := c.NodeAt(start)
	if !ok {
		return nil
	}
	last, _ := c.NodeAt(max(end-1, start))
	return &dom.TextRange{
		Start:       first.Node,
		StartOffset: start - first.Offset,
		End:         last.Node,
		EndOffset:   end - last.Offset,
	}
}

// ChunkKind tags a ChunkEvent.
type ChunkKind int

const (
	ChunkComplete ChunkKind = iota + 1
	AllDone
)

// ChunkEvent reports a sealed chunk, or the end of aggregation.
type ChunkEvent struct {
	Kind  ChunkKind
	Chunk *Chunk
}

// Aggregator merges consecutive text events sharing a context into chunks.
type Aggregator struct {
	cur *Chunk
}

// NewAggregator returns an aggregator with an empty current chunk.
func NewAggregator() *Aggregator { return &Aggregator{cur: &Chunk{}} }

// Current returns the chunk being built.
func (a *Aggregator) Current() *Chunk { return a.cur }

// Feed consumes one walker event and returns the chunk events it causes.
func (a *Aggregator) Feed(ev Event) []ChunkEvent {
	switch ev.Kind {
	case Text:
		var out []ChunkEvent
		ctx := ev.State.Context()
		if !a.cur.Empty() && a.cur.Context != ctx {
			out = append(out, a.flush())
		}
		if a.cur.Empty() {
			a.cur.Context = ctx
		}
		a.cur.append(ev.Node, ev.Text)
		return out
	case Done:
		var out []ChunkEvent
		if !a.cur.Empty() {
			out = append(out, a.flush())
		}
		return append(out, ChunkEvent{Kind: AllDone})
	}
	return nil
}

func (a *Aggregator) flush() ChunkEvent {
	c := a.cur
	c.seal()
	a.cur = &Chunk{}
	return ChunkEvent{Kind: ChunkComplete, Chunk: c}
}
