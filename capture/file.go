package capture

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/bidicheck/dom"
)

// Bytes parses an in-memory page. pageURL is recorded on the document only.
func Bytes(data []byte, pageURL string) (*dom.Document, error) {
	doc, err := dom.Parse(bytes.NewReader(data), dom.WithURL(pageURL))
	if err != nil {
		return nil, fmt.Errorf("capture: parse: %w", err)
	}
	return doc, nil
}

// File reads and parses a local page. Frames whose src is a relative path
// are loaded from the page's directory, up to maxFrameDepth levels deep.
func File(path string) (*dom.Document, error) {
	return file(path, 0)
}

func file(path string, depth int) (*dom.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("capture: read %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	opts := []dom.Option{dom.WithURL("file://" + filepath.ToSlash(abs))}
	if depth < maxFrameDepth {
		dir := filepath.Dir(abs)
		opts = append(opts, dom.WithFrameResolver(func(frame *html.Node) (*dom.Document, error) {
			src := dom.Attr(frame, "src")
			if src == "" || strings.Contains(src, "://") || strings.HasPrefix(src, "about:") {
				return nil, dom.ErrFrameUnavailable
			}
			src, _, _ = strings.Cut(src, "#")
			src, _, _ = strings.Cut(src, "?")
			return file(filepath.Join(dir, filepath.FromSlash(src)), depth+1)
		}))
	}
	doc, err := dom.Parse(bytes.NewReader(data), opts...)
	if err != nil {
		return nil, fmt.Errorf("capture: parse %s: %w", path, err)
	}
	return doc, nil
}
