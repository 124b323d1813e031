// CLAUDE:SUMMARY Page acquisition: local files, HTTP GET with retry, and live Chrome capture with computed-style annotation.
// Package capture turns a page source (a file, raw bytes, a URL fetched
// over HTTP, or a URL rendered in Chrome) into a dom.Document whose frames
// can be scanned too.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/net/html"

	"github.com/hazyhaar/bidicheck/dom"
)

// maxBody caps a fetched page.
const maxBody = 10 << 20

// Page is the raw outcome of an HTTP fetch.
type Page struct {
	URL        string
	StatusCode int
	HTML       []byte
	ETag       string
	LastMod    string
	// Sufficient is false when the body looks like a script-rendered shell
	// that only a browser can fill in.
	Sufficient bool
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("capture: GET %s: status %d", e.URL, e.Code)
}

// Fetcher performs HTTP GETs with retry on transient failures.
type Fetcher struct {
	client   *http.Client
	ua       string
	attempts uint
	delay    time.Duration
	logger   *slog.Logger
}

// FetchOption configures a Fetcher.
type FetchOption func(*Fetcher)

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) FetchOption {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetchOption {
	return func(f *Fetcher) { f.ua = ua }
}

// WithRetry sets the number of attempts and the base delay between them.
func WithRetry(attempts uint, delay time.Duration) FetchOption {
	return func(f *Fetcher) {
		f.attempts = attempts
		f.delay = delay
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) FetchOption {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a Fetcher with sensible defaults.
func NewFetcher(opts ...FetchOption) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		ua:       "Mozilla/5.0 (compatible; bidicheck/1.0)",
		attempts: 3,
		delay:    500 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Fetch GETs pageURL. Network errors and 5xx/429 responses are retried;
// other non-2xx responses fail at once with a *StatusError.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	var page *Page
	err := retry.Do(
		func() error {
			p, err := f.get(ctx, pageURL)
			if err != nil {
				return err
			}
			page = p
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(f.attempts),
		retry.Delay(f.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			f.logger.Debug("capture: fetch retry", "url", pageURL, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return page, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return true
}

func (f *Fetcher) get(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("capture: new request: %w", err))
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capture: do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{URL: pageURL, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("capture: read body: %w", err)
	}

	p := &Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		HTML:       body,
		ETag:       resp.Header.Get("ETag"),
		LastMod:    resp.Header.Get("Last-Modified"),
		Sufficient: IsSufficient(body),
	}
	f.logger.Debug("capture: fetched",
		"url", pageURL, "status", resp.StatusCode,
		"size", len(body), "sufficient", p.Sufficient)
	return p, nil
}

// Document fetches pageURL and parses it. Frames are fetched on demand,
// relative to the page URL, up to maxFrameDepth levels deep.
func (f *Fetcher) Document(ctx context.Context, pageURL string) (*dom.Document, error) {
	page, err := f.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return f.parse(ctx, page.HTML, page.URL, 0)
}

const maxFrameDepth = 4

func (f *Fetcher) parse(ctx context.Context, body []byte, base string, depth int) (*dom.Document, error) {
	var opts []dom.Option
	opts = append(opts, dom.WithURL(base))
	if depth < maxFrameDepth {
		opts = append(opts, dom.WithFrameResolver(func(frame *html.Node) (*dom.Document, error) {
			u, err := resolveRef(base, dom.Attr(frame, "src"))
			if err != nil {
				return nil, err
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return nil, dom.ErrFrameUnavailable
			}
			p, err := f.Fetch(ctx, u.String())
			if err != nil {
				return nil, err
			}
			return f.parse(ctx, p.HTML, p.URL, depth+1)
		}))
	}
	doc, err := dom.Parse(bytes.NewReader(body), opts...)
	if err != nil {
		return nil, fmt.Errorf("capture: parse %s: %w", base, err)
	}
	return doc, nil
}

func resolveRef(base, ref string) (*url.URL, error) {
	if ref == "" || ref == "about:blank" {
		return nil, dom.ErrFrameUnavailable
	}
	b, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("capture: base url: %w", err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("capture: frame url: %w", err)
	}
	return b.ResolveReference(r), nil
}
