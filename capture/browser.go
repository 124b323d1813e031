package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"golang.org/x/net/html"

	"github.com/hazyhaar/bidicheck/dom"
)

// BrowserConfig configures live capture.
type BrowserConfig struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty means launching a local Chrome.
	RemoteURL string
	// Bin is the Chrome binary for local launches; empty lets the launcher
	// find or download one.
	Bin string
	// Stealth opens pages through go-rod/stealth.
	Stealth bool
	// ResourceBlocking lists resource types not to load (images, fonts,
	// media). Blocking stylesheets changes computed direction and display.
	ResourceBlocking []string
	// NavTimeout bounds navigation and load. Default: 30s.
	NavTimeout time.Duration
	// RecycleInterval is the maximum lifetime of a Chrome process.
	// Default: 1h.
	RecycleInterval time.Duration

	Logger *slog.Logger
}

func (c *BrowserConfig) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = time.Hour
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser captures rendered pages from Chrome. The browser computes
// direction, display and visibility, which are written back into the DOM
// as data-bidicheck-* annotations before serialization, so the offline
// cascade is bypassed for live pages.
type Browser struct {
	cfg     BrowserConfig
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	startAt time.Time
	closed  bool
}

// NewBrowser returns a Browser. Chrome starts on first capture.
func NewBrowser(cfg BrowserConfig) *Browser {
	cfg.defaults()
	return &Browser{cfg: cfg}
}

// annotateJS stamps computed styles and frame ids, then returns the page
// location and markup.
var annotateJS = fmt.Sprintf(`() => {
	let n = 0;
	for (const el of document.querySelectorAll('*')) {
		const cs = getComputedStyle(el);
		el.setAttribute('%[1]s', cs.direction);
		el.setAttribute('%[2]s', cs.display);
		el.setAttribute('%[3]s', cs.visibility);
		if (el.tagName === 'IFRAME' || el.tagName === 'FRAME') {
			el.setAttribute('%[4]s', String(n++));
		}
	}
	return { url: location.href, html: document.documentElement.outerHTML };
}`, dom.AttrDir, dom.AttrDisplay, dom.AttrVisibility, dom.AttrFrame)

// Capture navigates to pageURL and returns the annotated document with its
// reachable frames attached.
func (b *Browser) Capture(ctx context.Context, pageURL string) (*dom.Document, error) {
	rb, err := b.acquire(ctx)
	if err != nil {
		return nil, err
	}

	var page *rod.Page
	if b.cfg.Stealth {
		page, err = stealth.Page(rb)
	} else {
		page, err = rb.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("capture: create tab: %w", err)
	}
	defer page.Close()

	if len(b.cfg.ResourceBlocking) > 0 {
		router := applyResourceBlocking(page, b.cfg.ResourceBlocking)
		defer router.Stop()
	}

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavTimeout)
	defer cancel()
	p := page.Context(navCtx)
	if err := p.Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("capture: navigate %s: %w", pageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		b.cfg.Logger.Warn("capture: wait load timeout", "url", pageURL, "error", err)
	}
	return b.snapshot(p, 0)
}

func (b *Browser) snapshot(page *rod.Page, depth int) (*dom.Document, error) {
	res, err := page.Eval(annotateJS)
	if err != nil {
		return nil, fmt.Errorf("capture: annotate: %w", err)
	}
	pageURL := res.Value.Get("url").Str()
	doc, err := dom.ParseString(res.Value.Get("html").Str(), dom.WithURL(pageURL))
	if err != nil {
		return nil, fmt.Errorf("capture: parse %s: %w", pageURL, err)
	}
	if depth >= maxFrameDepth {
		return doc, nil
	}

	frames := dom.FindAll(doc.Root, func(n *html.Node) bool {
		return dom.IsFrame(n) && dom.HasAttr(n, dom.AttrFrame)
	})
	for _, fr := range frames {
		id := dom.Attr(fr, dom.AttrFrame)
		sub, err := b.frame(page, id, depth)
		if err != nil {
			b.cfg.Logger.Debug("capture: frame skipped", "url", pageURL, "frame", id, "error", err)
			continue
		}
		doc.AttachFrame(fr, sub)
	}
	return doc, nil
}

func (b *Browser) frame(page *rod.Page, id string, depth int) (*dom.Document, error) {
	els, err := page.Elements(fmt.Sprintf(`[%s=%q]`, dom.AttrFrame, id))
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, dom.ErrFrameUnavailable
	}
	fp, err := els.First().Frame()
	if err != nil {
		return nil, fmt.Errorf("frame content: %w", err)
	}
	return b.snapshot(fp, depth+1)
}

// acquire returns the running browser, launching or recycling it first
// when needed.
func (b *Browser) acquire(ctx context.Context) (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("capture: browser is closed")
	}
	if b.browser != nil && time.Since(b.startAt) > b.cfg.RecycleInterval {
		b.cfg.Logger.Info("capture: recycling browser", "uptime", time.Since(b.startAt))
		b.cleanup()
	}
	if b.browser != nil {
		return b.browser, nil
	}

	rb, err := b.launch(ctx)
	if err != nil {
		return nil, err
	}
	b.browser = rb
	b.startAt = time.Now()
	return rb, nil
}

func (b *Browser) launch(ctx context.Context) (*rod.Browser, error) {
	log := b.cfg.Logger

	wsURL := b.cfg.RemoteURL
	if wsURL != "" {
		log.Info("capture: connecting to remote chrome", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx).Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		if b.cfg.Bin != "" {
			l = l.Bin(b.cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("capture: launch: %w", err)
		}
		wsURL = u
		b.lnch = l
		log.Info("capture: launched local chrome", "url", wsURL)
	}

	rb := rod.New().ControlURL(wsURL)
	if err := rb.Connect(); err != nil {
		return nil, fmt.Errorf("capture: connect: %w", err)
	}
	if err := rb.IgnoreCertErrors(true); err != nil {
		log.Warn("capture: ignore cert errors failed", "error", err)
	}
	return rb, nil
}

func (b *Browser) cleanup() {
	if b.browser != nil {
		b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
}

// Close shuts Chrome down.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cleanup()
	return nil
}

// applyResourceBlocking fails requests for the listed resource types.
func applyResourceBlocking(page *rod.Page, types []string) *rod.HijackRouter {
	blockSet := make(map[string]bool, len(types))
	for _, t := range types {
		blockSet[strings.ToLower(t)] = true
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if shouldBlock(blockSet, string(h.Request.Type())) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}

func shouldBlock(blockSet map[string]bool, resType string) bool {
	lower := strings.ToLower(resType)
	switch lower {
	case "image":
		return blockSet["images"]
	case "font":
		return blockSet["fonts"]
	case "media":
		return blockSet["media"]
	case "stylesheet":
		return blockSet["stylesheets"]
	}
	return blockSet[lower]
}
