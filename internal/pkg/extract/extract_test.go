package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("image/png"))
	assert.True(t, IsImage("image/jpeg"))
	assert.False(t, IsImage("text/plain"))
	assert.False(t, IsImage(""))
}

func TestIsTabular(t *testing.T) {
	assert.True(t, IsTabular("text/csv"))
	assert.True(t, IsTabular("text/csv; charset=utf-8"))
	assert.True(t, IsTabular("text/tab-separated-values"))
	assert.False(t, IsTabular("text/plain"))
}

func TestExtractNativeText(t *testing.T) {
	path := writeTempFile(t, "doc.txt", "plain text content")
	e := New("", 5*time.Second, 0)

	result, err := e.Extract(context.Background(), path, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "plain text content", result.Text)
	assert.Empty(t, result.Rows)
}

func TestExtractMarkdownByExtension(t *testing.T) {
	path := writeTempFile(t, "notes.md", "# Heading\n\nbody")
	e := New("", 5*time.Second, 0)

	result, err := e.Extract(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, "# Heading\n\nbody", result.Text)
}

func TestExtractCSVRows(t *testing.T) {
	csvContent := "name,role\nalice,engineer\nbob,designer\n"
	path := writeTempFile(t, "team.csv", csvContent)
	e := New("", 5*time.Second, 0)

	result, err := e.Extract(context.Background(), path, "text/csv")
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "name: alice, role: engineer", result.Rows[0])
	assert.Equal(t, "name: bob, role: designer", result.Rows[1])
}

func TestExtractTSVRows(t *testing.T) {
	tsvContent := "id\tvalue\n1\tfoo\n2\tbar\n"
	path := writeTempFile(t, "data.tsv", tsvContent)
	e := New("", 5*time.Second, 0)

	result, err := e.Extract(context.Background(), path, "text/tab-separated-values")
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "id: 1, value: foo", result.Rows[0])
}

func TestExtractCSVMissingHeaderName(t *testing.T) {
	csvContent := ",role\nalice,engineer\n"
	path := writeTempFile(t, "anon.csv", csvContent)
	e := New("", 5*time.Second, 0)

	result, err := e.Extract(context.Background(), path, "text/csv")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "column_1: alice, role: engineer", result.Rows[0])
}

func TestExtractRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("file")
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "extracted by service"}`))
	}))
	defer srv.Close()

	path := writeTempFile(t, "report.pdf", "%PDF-1.4 fake")
	e := New(srv.URL, 5*time.Second, 0)

	result, err := e.Extract(context.Background(), path, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "extracted by service", result.Text)
}

func TestExtractUnsupportedWithoutService(t *testing.T) {
	path := writeTempFile(t, "report.pdf", "%PDF-1.4 fake")
	e := New("", 5*time.Second, 0)

	_, err := e.Extract(context.Background(), path, "application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extractor service configured")
}
