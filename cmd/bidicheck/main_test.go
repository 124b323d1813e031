package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BIDICHECK_STORE_DB_PATH", filepath.Join(t.TempDir(), "history.db"))
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func writePage(t *testing.T, html string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))
	return path
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(errDefects))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestScan_DefectsFound(t *testing.T) {
	page := writePage(t, `<html dir="rtl"><body><p>עברית (Hello) עברית</p></body></html>`)
	out := filepath.Join(t.TempDir(), "report.json")

	err := execute(t, "scan", page, "--format", "json", "--output", out, "--log-level", "error")
	assert.ErrorIs(t, err, errDefects)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(string(data)), "\n")+1)
	assert.Contains(t, string(data), `"atText":"Hello"`)
}

func TestScan_Clean(t *testing.T) {
	page := writePage(t, `<html><body><p>hello</p></body></html>`)
	out := filepath.Join(t.TempDir(), "report.txt")

	err := execute(t, "scan", page, "--dir", "ltr", "--format", "text", "--output", out, "--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "no errors")
}

func TestScan_BadFlags(t *testing.T) {
	page := writePage(t, `<p>x</p>`)
	assert.Error(t, execute(t, "scan", page, "--revision", "3", "--log-level", "error"))
	assert.Error(t, execute(t, "scan", page, "--revision", "2", "--format", "pdf", "--log-level", "error"))
}
