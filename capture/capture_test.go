package capture

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/bidicheck/dom"
)

func TestIsSufficient_StaticPage(t *testing.T) {
	body := []byte(`<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
<main>
<article>
<h1>Article Title</h1>
<p>Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat. Duis aute irure dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur.</p>
</article>
</main>
</body>
</html>`)
	assert.True(t, IsSufficient(body))
}

func TestIsSufficient_SPAShell(t *testing.T) {
	body := []byte(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>App</title></head>
<body>
<div id="root"></div>
<script src="/static/js/main.chunk.js"></script>
</body>
</html>`)
	assert.False(t, IsSufficient(body))
}

func TestIsSufficient_TooShort(t *testing.T) {
	assert.False(t, IsSufficient([]byte(`<html><body>hi</body></html>`)))
	assert.False(t, IsSufficient([]byte(`<!DOCTYPE html><html><head></head><body></body></html>`)))
}

func TestTextMarkupRatio_ScriptIsMarkup(t *testing.T) {
	text, markup := textMarkupRatio([]byte(`<p>abc</p><SCRIPT>var x = "<b>";</SCRIPT><style>p{}</style>`))
	assert.Equal(t, 3, text)
	assert.Greater(t, markup, 30)
}

func fastFetcher() *Fetcher {
	return NewFetcher(WithRetry(3, time.Millisecond))
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		fmt.Fprint(w, `<p>ok</p>`)
	}))
	defer srv.Close()

	page, err := fastFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, `"v1"`, page.ETag)
	assert.Equal(t, "<p>ok</p>", string(page.HTML))
	assert.False(t, page.Sufficient)
}

func TestFetch_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := fastFetcher().Fetch(context.Background(), srv.URL)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := fastFetcher().Fetch(context.Background(), srv.URL)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetcherDocument_ResolvesFrames(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><iframe src="frame"></iframe><iframe src="gone"></iframe></body></html>`)
	})
	mux.HandleFunc("/frame", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html dir="rtl"><body><p>שלום</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	doc, err := fastFetcher().Document(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/page", doc.URL)

	frames := dom.FindAll(doc.Root, dom.IsFrame)
	require.Len(t, frames, 2)

	sub, err := doc.Frame(frames[0])
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/frame", sub.URL)
	assert.Equal(t, dom.RTL, sub.Direction(sub.DocumentElement()))

	_, err = doc.Frame(frames[1])
	assert.Error(t, err)
}

func TestFile_RelativeFrames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"),
		[]byte(`<html><body><iframe src="inner.html?x=1"></iframe><iframe src="https://remote.test/"></iframe></body></html>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inner.html"),
		[]byte(`<html dir="rtl"><body>שלום</body></html>`), 0o644))

	doc, err := File(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.URL, "file://"))

	frames := dom.FindAll(doc.Root, dom.IsFrame)
	require.Len(t, frames, 2)
	sub, err := doc.Frame(frames[0])
	require.NoError(t, err)
	assert.Equal(t, dom.RTL, sub.Direction(sub.DocumentElement()))

	_, err = doc.Frame(frames[1])
	assert.ErrorIs(t, err, dom.ErrFrameUnavailable)
}

func TestFile_Missing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "nope.html"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBytes(t *testing.T) {
	doc, err := Bytes([]byte(`<title>T</title><p>x</p>`), "mem://x")
	require.NoError(t, err)
	assert.Equal(t, "T", doc.Title())
	assert.Equal(t, "mem://x", doc.URL)
}

func TestLoader_Dispatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>remote</p>`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "p.html")
	require.NoError(t, os.WriteFile(path, []byte(`<p>local</p>`), 0o644))

	l := NewLoader(ModeAuto, fastFetcher(), nil, nil)

	doc, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "local", dom.TextContent(doc.Body()))

	doc, err = l.Load(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "remote", dom.TextContent(doc.Body()))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeStatic, m)
	m, err = ParseMode("LIVE")
	require.NoError(t, err)
	assert.Equal(t, ModeLive, m)
	_, err = ParseMode("psychic")
	assert.Error(t, err)
}

func TestShouldBlock(t *testing.T) {
	set := map[string]bool{"images": true, "fonts": true, "xhr": true}
	assert.True(t, shouldBlock(set, "Image"))
	assert.True(t, shouldBlock(set, "Font"))
	assert.True(t, shouldBlock(set, "XHR"))
	assert.False(t, shouldBlock(set, "Stylesheet"))
	assert.False(t, shouldBlock(set, "Document"))
}

func TestAnnotateScriptWritesAnnotations(t *testing.T) {
	for _, attr := range []string{dom.AttrDir, dom.AttrDisplay, dom.AttrVisibility, dom.AttrFrame} {
		assert.Contains(t, annotateJS, attr)
	}
}

// TestBrowser_Capture needs a Chrome binary; set BIDICHECK_LIVE=1 to run it.
func TestBrowser_Capture(t *testing.T) {
	if os.Getenv("BIDICHECK_LIVE") == "" {
		t.Skip("BIDICHECK_LIVE not set")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><script>document.documentElement.dir = "rtl";</script></head><body><p>Hello</p></body></html>`)
	}))
	defer srv.Close()

	b := NewBrowser(BrowserConfig{NavTimeout: 20 * time.Second})
	defer b.Close()

	doc, err := b.Capture(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "rtl", dom.Attr(doc.DocumentElement(), dom.AttrDir))
	assert.Equal(t, dom.RTL, doc.Direction(doc.DocumentElement()))
}
