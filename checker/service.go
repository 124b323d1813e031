package checker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/filter"
	"github.com/hazyhaar/bidicheck/kit"
	"github.com/hazyhaar/bidicheck/report"
	"github.com/hazyhaar/bidicheck/sink"
)

// Loader fetches and parses the page at source (a URL or a path).
type Loader func(ctx context.Context, source string) (*dom.Document, error)

// Request is the transport-neutral check request shared by the MCP tool and
// the HTTP API.
type Request struct {
	HTML        string          `json:"html,omitempty"`
	URL         string          `json:"url,omitempty"`
	Dir         string          `json:"dir,omitempty"`
	Revision    int             `json:"revision,omitempty"`
	StopOnFirst bool            `json:"stopOnFirst,omitempty"`
	Filters     json.RawMessage `json:"filters,omitempty"`
}

// Response is what a check request returns.
type Response struct {
	ID      string          `json:"id,omitempty"`
	URL     string          `json:"url,omitempty"`
	Count   int             `json:"count"`
	Stopped bool            `json:"stopped"`
	Errors  []report.Record `json:"errors"`
}

// Service binds Check to a loader and defaults for the outer surfaces.
// When Sink is set, every finished scan is delivered to it; a store sink
// fills in the scan id returned in the Response.
type Service struct {
	Loader   Loader
	Revision Revision
	Sink     sink.Sink
	Logger   *slog.Logger
}

// Do parses or loads the page named by req and checks it.
func (s *Service) Do(ctx context.Context, req *Request) (*Response, *Result, error) {
	doc, err := s.load(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	expected, err := dom.ParseDirection(req.Dir)
	if err != nil {
		return nil, nil, err
	}
	rev := Revision(req.Revision)
	if rev == 0 {
		rev = s.defaultRevision()
	}
	filters, err := filter.ParseJSON(req.Filters)
	if err != nil {
		return nil, nil, err
	}

	res, err := Check(ctx, doc, Options{
		Expected:    expected,
		Filters:     filters,
		Revision:    rev,
		StopOnFirst: req.StopOnFirst,
		Logger:      s.Logger,
	})
	if err != nil {
		return nil, nil, err
	}
	recs := res.Records()
	if recs == nil {
		recs = []report.Record{}
	}
	resp := &Response{URL: doc.URL, Count: len(recs), Stopped: res.Stopped, Errors: recs}
	if s.Sink != nil {
		scan := &sink.Scan{
			Source:    sourceName(doc.URL),
			Revision:  int(rev),
			Stopped:   res.Stopped,
			Errors:    recs,
			ScannedAt: time.Now().UTC(),
		}
		if expected != dom.Unknown {
			scan.Expected = expected.String()
		}
		if err := s.Sink.Send(ctx, scan); err != nil {
			s.logger().Warn("checker: deliver failed", "source", scan.Source, "error", err)
		}
		resp.ID = scan.ID
	}
	return resp, res, nil
}

func sourceName(url string) string {
	if url == "" {
		return "inline"
	}
	return url
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) load(ctx context.Context, req *Request) (*dom.Document, error) {
	switch {
	case req.HTML != "" && req.URL != "":
		return nil, errors.New("checker: html and url are mutually exclusive")
	case req.HTML != "":
		return dom.ParseString(req.HTML)
	case req.URL != "":
		if s.Loader == nil {
			return nil, errors.New("checker: no loader configured for url input")
		}
		return s.Loader(ctx, req.URL)
	}
	return nil, errors.New("checker: html or url required")
}

// Endpoint exposes Do as a kit.Endpoint taking *Request.
func (s *Service) Endpoint() kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		r, ok := req.(*Request)
		if !ok {
			return nil, fmt.Errorf("checker: unexpected request %T", req)
		}
		resp, _, err := s.Do(ctx, r)
		return resp, err
	}
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// RegisterMCP registers the bidicheck_scan tool on srv.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "bidicheck_scan",
		Description: "Check an HTML page for bidirectional text defects (undeclared direction, spillover, overall direction).",
		InputSchema: inputSchema(map[string]any{
			"html":        map[string]any{"type": "string", "description": "HTML source to check"},
			"url":         map[string]any{"type": "string", "description": "URL or file path to load instead of html"},
			"dir":         map[string]any{"type": "string", "enum": []string{"ltr", "rtl", ""}, "description": "Expected page direction"},
			"revision":    map[string]any{"type": "integer", "enum": []int{1, 2}, "description": "Detection rule set, default " + strconv.Itoa(int(s.defaultRevision()))},
			"stopOnFirst": map[string]any{"type": "boolean"},
			"filters":     map[string]any{"type": "array", "description": "Filter definitions", "items": map[string]any{"type": "object"}},
		}, nil),
	}
	endpoint := kit.Chain(kit.Recovery(s.Logger), kit.Logging(s.Logger, "bidicheck_scan"))(s.Endpoint())
	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeArgs[Request])
}

func (s *Service) defaultRevision() Revision {
	if s.Revision == 0 {
		return Revision2
	}
	return s.Revision
}
