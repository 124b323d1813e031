package store

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/bidicheck/kit"
)

// HistoryRequest selects scans from the history. With ID set, the one scan
// is returned with its findings.
type HistoryRequest struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// HistoryResponse carries either a listing or one scan.
type HistoryResponse struct {
	Scans      []Summary      `json:"scans,omitempty"`
	Scan       *Detail        `json:"scan,omitempty"`
	TypeCounts map[string]int `json:"typeCounts,omitempty"`
}

// History answers a HistoryRequest.
func (s *Store) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	if req.ID != "" {
		d, err := s.Get(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		counts, err := s.TypeCounts(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return &HistoryResponse{Scan: d, TypeCounts: counts}, nil
	}
	scans, err := s.List(ctx, req.Source, req.Limit)
	if err != nil {
		return nil, err
	}
	if scans == nil {
		scans = []Summary{}
	}
	return &HistoryResponse{Scans: scans}, nil
}

// RegisterMCP registers the bidicheck_history tool on srv.
func (s *Store) RegisterMCP(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "bidicheck_history",
		Description: "List saved bidicheck scans, or fetch one scan with its findings by id.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":     map[string]any{"type": "string", "description": "Scan id"},
				"source": map[string]any{"type": "string", "description": "Only scans of this URL or path"},
				"limit":  map[string]any{"type": "integer", "description": "Maximum scans listed, default 20"},
			},
		},
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r, ok := req.(*HistoryRequest)
		if !ok {
			return nil, fmt.Errorf("store: unexpected request %T", req)
		}
		return s.History(ctx, r)
	}
	chained := kit.Chain(kit.Recovery(s.logger), kit.Logging(s.logger, "bidicheck_history"))(endpoint)
	kit.RegisterMCPTool(srv, tool, chained, kit.DecodeArgs[HistoryRequest])
}
