// CLAUDE:SUMMARY Pull-style DOM walker emitting direction-aware start/end/text/done events.
// Package walker linearizes a DOM subtree into a directionality-aware event
// stream and groups same-context text into chunks.
package walker

import (
	"iter"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/bidicheck/dom"
)

// Kind tags an Event.
type Kind int

const (
	StartElement Kind = iota + 1
	EndElement
	Text
	Done
)

func (k Kind) String() string {
	switch k {
	case StartElement:
		return "start"
	case EndElement:
		return "end"
	case Text:
		return "text"
	case Done:
		return "done"
	}
	return "invalid"
}

// State is the directional context at a point of the traversal.
type State struct {
	Rtl       bool
	ParentRtl bool
	// Declared latches to true below the first non-root ancestor that sets
	// an explicit direction without containing a block-level descendant.
	Declared bool
	// Block is the innermost block-level element.
	Block *html.Node
}

// Context is the part of State that chunk aggregation groups on.
type Context struct {
	Rtl      bool
	Declared bool
	Block    *html.Node
}

// Context returns the grouping key of s.
func (s State) Context() Context {
	return Context{Rtl: s.Rtl, Declared: s.Declared, Block: s.Block}
}

// Event is one traversal step. For StartElement the State is the element's
// own (after the push); for EndElement it is still the element's own (the
// pop happens after the event); for Text it is the enclosing element's.
type Event struct {
	Kind  Kind
	Node  *html.Node
	Text  string
	State State
	// Depth is the stack depth with the event's State on top. Start and the
	// matching End carry the same depth.
	Depth int
}

type frame struct {
	node  *html.Node
	state State
	// next is the child to visit on resume; nil once children are exhausted.
	next *html.Node
}

// Walker traverses one document subtree. It is a finite, non-restartable
// pull iterator.
type Walker struct {
	doc    *dom.Document
	root   *html.Node
	stack  []frame
	frames []*html.Node
	cur    *html.Node
	// blocks memoizes containsBlock per element.
	blocks map[*html.Node]bool

	started bool
	done    bool
	// pendingEnd is the frame whose End event must be emitted next.
	pendingEnd bool
}

// New returns a walker over root, or over the document element when root is
// nil.
func New(doc *dom.Document, root *html.Node) *Walker {
	if root == nil {
		root = doc.DocumentElement()
	}
	return &Walker{doc: doc, root: root}
}

// Document returns the walked document.
func (w *Walker) Document() *dom.Document { return w.doc }

// Root returns the element the walk started at.
func (w *Walker) Root() *html.Node { return w.root }

// Frames returns the frame and iframe elements met so far, in document order.
func (w *Walker) Frames() []*html.Node { return w.frames }

func (w *Walker) top() State {
	if len(w.stack) == 0 {
		return State{}
	}
	return w.stack[len(w.stack)-1].state
}

// CurrentlyRtl reports the direction on top of the stack.
func (w *Walker) CurrentlyRtl() bool { return w.top().Rtl }

// ParentRtl reports the direction of the element below the top.
func (w *Walker) ParentRtl() bool { return w.top().ParentRtl }

// CurrentlyDeclared reports the declared latch on top of the stack.
func (w *Walker) CurrentlyDeclared() bool { return w.top().Declared }

// CurrentBlock returns the innermost block-level element.
func (w *Walker) CurrentBlock() *html.Node { return w.top().Block }

// CurrentNode returns the node of the last event.
func (w *Walker) CurrentNode() *html.Node { return w.cur }

// Depth returns the current stack depth.
func (w *Walker) Depth() int { return len(w.stack) }

// Events returns the remaining events as a sequence.
func (w *Walker) Events() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for {
			ev, ok := w.Next()
			if !ok || !yield(ev) {
				return
			}
		}
	}
}

// Next returns the next event. After Done it returns false.
func (w *Walker) Next() (Event, bool) {
	if w.done {
		return Event{}, false
	}
	if !w.started {
		w.started = true
		if w.root != nil && w.enterable(w.root) {
			return w.push(w.root), true
		}
		return w.finish(), true
	}

	for len(w.stack) > 0 {
		top := &w.stack[len(w.stack)-1]
		if w.pendingEnd {
			w.pendingEnd = false
			w.stack = w.stack[:len(w.stack)-1]
			continue
		}
		c := top.next
		if c == nil {
			w.pendingEnd = true
			w.cur = top.node
			return Event{Kind: EndElement, Node: top.node, State: top.state, Depth: len(w.stack)}, true
		}
		top.next = c.NextSibling
		switch c.Type {
		case html.TextNode:
			if top.node.DataAtom == atom.Textarea || c.Data == "" {
				continue
			}
			w.cur = c
			return Event{Kind: Text, Node: c, Text: c.Data, State: top.state, Depth: len(w.stack)}, true
		case html.ElementNode:
			if !w.enterable(c) {
				continue
			}
			return w.push(c), true
		}
	}
	return w.finish(), true
}

func (w *Walker) finish() Event {
	w.done = true
	w.cur = nil
	return Event{Kind: Done}
}

func (w *Walker) enterable(n *html.Node) bool {
	return n.Type == html.ElementNode && !w.doc.Hidden(n)
}

func (w *Walker) push(n *html.Node) Event {
	parent := w.top()
	rtl := w.doc.IsRTL(n)
	_, explicit := w.doc.ExplicitDirection(n)

	st := State{
		Rtl:       rtl,
		ParentRtl: parent.Rtl,
		Declared:  parent.Declared || (explicit && n != w.root && !w.containsBlock(n)),
		Block:     parent.Block,
	}
	if len(w.stack) == 0 {
		st.ParentRtl = rtl
	}
	if w.doc.IsBlock(n) || len(w.stack) == 0 {
		st.Block = n
	}

	f := frame{node: n, state: st, next: n.FirstChild}
	if dom.IsFrame(n) {
		w.frames = append(w.frames, n)
		f.next = nil
	}
	w.stack = append(w.stack, f)
	w.cur = n
	return Event{Kind: StartElement, Node: n, State: st, Depth: len(w.stack)}
}

// containsBlock reports whether a displayed descendant of n is block-level.
// Results are memoized so nested dir markup is scanned once.
func (w *Walker) containsBlock(n *html.Node) bool {
	if v, ok := w.blocks[n]; ok {
		return v
	}
	found := false
	for c := n.FirstChild; c != nil && !found; c = c.NextSibling {
		if c.Type != html.ElementNode || w.doc.Hidden(c) {
			continue
		}
		found = w.doc.IsBlock(c) || w.containsBlock(c)
	}
	if w.blocks == nil {
		w.blocks = make(map[*html.Node]bool)
	}
	w.blocks[n] = found
	return found
}
