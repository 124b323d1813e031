package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/bidicheck/report"
	"github.com/hazyhaar/bidicheck/sink"
)

func testScan(source string, at time.Time) *sink.Scan {
	return &sink.Scan{
		Source:   source,
		Expected: "rtl",
		Revision: 2,
		Errors: []report.Record{
			{ID: 1, Type: report.TypeUndeclaredLTR, Severity: report.SeverityHigh, AtText: "Hello", PrecededByText: " (", FollowedByText: ") ", LocationDescription: "<p>", AsString: "x"},
			{ID: 2, Type: report.TypeSpilloverRTL, Severity: report.SeverityLow, AtText: "abc"},
			{ID: 3, Type: report.TypeUndeclaredLTR, Severity: report.SeverityMedium},
		},
		ScannedAt: at,
	}
}

func TestSaveGet(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	scan := testScan("page.html", time.Time{})
	id, err := s.Save(ctx, scan)
	require.NoError(t, err)
	assert.Equal(t, id, scan.ID)
	assert.False(t, scan.ScannedAt.IsZero())

	d, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "page.html", d.Source)
	assert.Equal(t, "rtl", d.Expected)
	assert.Equal(t, 2, d.Revision)
	assert.Equal(t, 3, d.Count)
	require.Len(t, d.Errors, 3)
	assert.Equal(t, scan.Errors[0], d.Errors[0])
	assert.Equal(t, report.SeverityLow, d.Errors[1].Severity)
}

func TestGet_NotFound(t *testing.T) {
	s := OpenMemory(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_NewestFirstAndFiltered(t *testing.T) {
	n := 0
	s := OpenMemory(t, WithIDFunc(func() string {
		n++
		return fmt.Sprintf("scan-%d", n)
	}))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, src := range []string{"a.html", "b.html", "a.html"} {
		_, err := s.Save(ctx, testScan(src, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	all, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "scan-3", all[0].ID)
	assert.Equal(t, base.Add(2*time.Minute), all[0].ScannedAt)

	onlyA, err := s.List(ctx, "a.html", 10)
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	assert.Equal(t, "scan-1", onlyA[1].ID)

	limited, err := s.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestTypeCounts(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	id1, err := s.Save(ctx, testScan("a.html", time.Now()))
	require.NoError(t, err)
	_, err = s.Save(ctx, testScan("b.html", time.Now()))
	require.NoError(t, err)

	all, err := s.TypeCounts(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{report.TypeUndeclaredLTR: 4, report.TypeSpilloverRTL: 2}, all)

	one, err := s.TypeCounts(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, 2, one[report.TypeUndeclaredLTR])
}

func TestDelete_CascadesFindings(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	id, err := s.Save(ctx, testScan("a.html", time.Now()))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id))
	assert.ErrorIs(t, s.Delete(ctx, id), ErrNotFound)

	counts, err := s.TypeCounts(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestStore_IsSink(t *testing.T) {
	s := OpenMemory(t)
	var _ sink.Sink = s

	r := sink.NewRouter(nil, s)
	scan := testScan("a.html", time.Now())
	require.NoError(t, r.Send(context.Background(), scan))
	assert.NotEmpty(t, scan.ID)

	_, err := s.Get(context.Background(), scan.ID)
	assert.NoError(t, err)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Save(context.Background(), testScan("a.html", time.Now()))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	list, err := s.List(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestIsBusy(t *testing.T) {
	assert.False(t, IsBusy(nil))
	assert.True(t, IsBusy(fmt.Errorf("exec: database is locked")))
	assert.False(t, IsBusy(fmt.Errorf("no such table")))
}

func TestHistoryMCP(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	id, err := s.Save(ctx, testScan("a.html", time.Now()))
	require.NoError(t, err)

	impl := &mcp.Implementation{Name: "bidicheck-test", Version: "0.1.0"}
	srv := mcp.NewServer(impl, nil)
	s.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	go func() { _ = srv.Run(ctx, serverT) }()
	session, err := mcp.NewClient(impl, nil).Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "bidicheck_history",
		Arguments: map[string]any{"limit": 5},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	var list HistoryResponse
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].(*mcp.TextContent).Text), &list))
	require.Len(t, list.Scans, 1)
	assert.Equal(t, id, list.Scans[0].ID)

	result, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "bidicheck_history",
		Arguments: map[string]any{"id": id},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	var one HistoryResponse
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].(*mcp.TextContent).Text), &one))
	require.NotNil(t, one.Scan)
	assert.Len(t, one.Scan.Errors, 3)
	assert.Equal(t, 2, one.TypeCounts[report.TypeUndeclaredLTR])

	result, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "bidicheck_history",
		Arguments: map[string]any{"id": "missing"},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
