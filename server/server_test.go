package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/bidicheck/checker"
	"github.com/hazyhaar/bidicheck/report"
	"github.com/hazyhaar/bidicheck/store"
)

const rtlPage = `<html dir="rtl"><body><p>עברית (Hello) עברית</p></body></html>`

func newTestServer(t *testing.T, withStore bool) (*httptest.Server, *store.Store) {
	t.Helper()
	svc := &checker.Service{}
	var st *store.Store
	if withStore {
		st = store.OpenMemory(t)
		svc.Sink = st
	}
	ts := httptest.NewServer(New(svc, st, nil).Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func postCheck(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", strings.NewReader(string(data)))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, true)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestCheck_JSON(t *testing.T) {
	ts, _ := newTestServer(t, false)
	resp := postCheck(t, ts.URL+"/check", checker.Request{HTML: rtlPage})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out checker.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, 1, out.Count)
	assert.Equal(t, report.TypeUndeclaredLTR, out.Errors[0].Type)
	assert.Equal(t, report.SeverityHigh, out.Errors[0].Severity)
	assert.Empty(t, out.ID)
}

func TestCheck_RequestIDEchoed(t *testing.T) {
	ts, _ := newTestServer(t, false)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/check", strings.NewReader(`{"html":"<p>x</p>"}`))
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "abc123", resp.Header.Get("X-Request-ID"))
}

func TestCheck_BadRequests(t *testing.T) {
	ts, _ := newTestServer(t, false)

	resp, err := http.Post(ts.URL+"/check", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postCheck(t, ts.URL+"/check", checker.Request{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = postCheck(t, ts.URL+"/check", checker.Request{HTML: "<p>x</p>", Revision: 5})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = postCheck(t, ts.URL+"/check?format=pdf", checker.Request{HTML: "<p>x</p>"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheck_HTMLReport(t *testing.T) {
	ts, _ := newTestServer(t, false)
	resp := postCheck(t, ts.URL+"/check?format=html", checker.Request{HTML: rtlPage})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))

	var sb strings.Builder
	_, err := io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, sb.String(), "bidicheck-highlight")
	assert.Contains(t, sb.String(), "1 error (1 high)")
}

func TestScans_SavedListedFetchedDeleted(t *testing.T) {
	ts, _ := newTestServer(t, true)

	resp := postCheck(t, ts.URL+"/check", checker.Request{HTML: rtlPage, Dir: "rtl"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out checker.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.ID)
	assert.Equal(t, out.ID, resp.Header.Get("X-Scan-ID"))

	list, err := http.Get(ts.URL + "/scans?limit=5")
	require.NoError(t, err)
	defer list.Body.Close()
	var scans []store.Summary
	require.NoError(t, json.NewDecoder(list.Body).Decode(&scans))
	require.Len(t, scans, 1)
	assert.Equal(t, "inline", scans[0].Source)
	assert.Equal(t, "rtl", scans[0].Expected)

	one, err := http.Get(ts.URL + "/scans/" + out.ID)
	require.NoError(t, err)
	defer one.Body.Close()
	var d store.Detail
	require.NoError(t, json.NewDecoder(one.Body).Decode(&d))
	require.Len(t, d.Errors, 1)
	assert.Equal(t, "Hello", d.Errors[0].AtText)

	stats, err := http.Get(ts.URL + "/scans/stats")
	require.NoError(t, err)
	defer stats.Body.Close()
	var counts map[string]int
	require.NoError(t, json.NewDecoder(stats.Body).Decode(&counts))
	assert.Equal(t, 1, counts[report.TypeUndeclaredLTR])

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/scans/"+out.ID, nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)

	missing, err := http.Get(ts.URL + "/scans/" + out.ID)
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestScans_NotMountedWithoutStore(t *testing.T) {
	ts, _ := newTestServer(t, false)
	resp, err := http.Get(ts.URL + "/scans")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(&checker.Service{}, nil, nil)
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-done)
}
