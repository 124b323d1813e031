// CLAUDE:SUMMARY Parsed page model: html.Node tree plus cascaded style, frame content and dir=auto resolution.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/bidicheck/classify"
)

// ErrFrameUnavailable is returned when a frame's content cannot be reached.
var ErrFrameUnavailable = errors.New("dom: frame content unavailable")

// FrameResolver loads the document displayed by a frame element.
type FrameResolver func(frame *html.Node) (*Document, error)

// Document is a parsed page. It caches computed styles, so highlighting or
// other mutations that change attributes should happen after scanning.
type Document struct {
	// Root is the html.DocumentNode.
	Root *html.Node
	// URL is where the page came from, if known.
	URL string

	classifier *classify.Classifier
	sheet      *Stylesheet
	styles     map[*html.Node]Style
	frames     map[*html.Node]*Document
	resolve    FrameResolver
}

// Option configures a Document.
type Option func(*Document)

// WithURL records the page URL.
func WithURL(u string) Option {
	return func(d *Document) { d.URL = u }
}

// WithClassifier sets the classifier used to resolve dir="auto".
func WithClassifier(c *classify.Classifier) Option {
	return func(d *Document) { d.classifier = c }
}

// WithFrameResolver sets the fallback used for frames without srcdoc or
// attached content.
func WithFrameResolver(r FrameResolver) Option {
	return func(d *Document) { d.resolve = r }
}

// New wraps an already parsed tree.
func New(root *html.Node, opts ...Option) *Document {
	d := &Document{
		Root:   root,
		styles: make(map[*html.Node]Style),
		frames: make(map[*html.Node]*Document),
	}
	for _, o := range opts {
		o(d)
	}
	if d.classifier == nil {
		d.classifier = classify.Default()
	}
	d.sheet = collectStylesheet(root)
	return d
}

// Parse reads an HTML document.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return New(root, opts...), nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// MustParse is ParseString for known-good markup.
func MustParse(s string, opts ...Option) *Document {
	d, err := ParseString(s, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// DocumentElement returns the <html> element.
func (d *Document) DocumentElement() *html.Node {
	for c := d.Root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	if d.Root.Type == html.ElementNode {
		return d.Root
	}
	return nil
}

// Body returns the <body> element, or nil.
func (d *Document) Body() *html.Node { return FindFirst(d.Root, atom.Body) }

// Title returns the trimmed <title> text.
func (d *Document) Title() string {
	if t := FindFirst(d.Root, atom.Title); t != nil {
		return strings.TrimSpace(TextContent(t))
	}
	return ""
}

// Classifier returns the classifier the document resolves dir="auto" with.
func (d *Document) Classifier() *classify.Classifier { return d.classifier }

// SetClassifier replaces the classifier used for dir="auto", drops the
// cached styles and applies the change to frames already loaded.
func (d *Document) SetClassifier(c *classify.Classifier) {
	if c == nil || c == d.classifier {
		return
	}
	d.classifier = c
	clear(d.styles)
	for _, sub := range d.frames {
		sub.SetClassifier(c)
	}
}

// Render serializes the document.
func (d *Document) Render() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.Root); err != nil {
		return "", fmt.Errorf("dom: render: %w", err)
	}
	return buf.String(), nil
}

// AttachFrame binds captured content to a frame element.
func (d *Document) AttachFrame(frame *html.Node, sub *Document) {
	d.frames[frame] = sub
}

// Frame returns the document displayed by a frame element: attached
// content first, then srcdoc, then the resolver.
func (d *Document) Frame(frame *html.Node) (*Document, error) {
	if !IsFrame(frame) {
		return nil, fmt.Errorf("dom: <%s> is not a frame", frame.Data)
	}
	if sub, ok := d.frames[frame]; ok {
		return sub, nil
	}
	if src, ok := LookupAttr(frame, "srcdoc"); ok {
		sub, err := ParseString(src, WithClassifier(d.classifier), WithURL("about:srcdoc"))
		if err != nil {
			return nil, err
		}
		d.frames[frame] = sub
		return sub, nil
	}
	if d.resolve == nil {
		return nil, ErrFrameUnavailable
	}
	sub, err := d.resolve(frame)
	if err != nil {
		return nil, fmt.Errorf("dom: resolve frame %q: %w", Attr(frame, "src"), err)
	}
	if sub == nil {
		return nil, ErrFrameUnavailable
	}
	sub.SetClassifier(d.classifier)
	d.frames[frame] = sub
	return sub, nil
}
