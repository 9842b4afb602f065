package db

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// debugRequest builds a request from loopback, which tsweb's debug
// handlers accept without a debug key.
func debugRequest(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

func TestAttachAdminRoutes_Registered(t *testing.T) {
	db := newTestDB(t)
	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))

	for _, path := range []string{"/debug/", "/debug/summary", "/debug/tailsql/"} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, debugRequest(path))
		assert.NotEqual(t, http.StatusNotFound, w.Code, path)
	}
}

func TestHandleSummary(t *testing.T) {
	db := newTestDB(t)

	w := httptest.NewRecorder()
	db.handleSummary(w, debugRequest("/debug/summary"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No snapshot mirrored yet")

	require.NoError(t, db.ReplaceEnrichedTrips("snap-42", sampleRows()))
	w = httptest.NewRecorder()
	db.handleSummary(w, debugRequest("/debug/summary"))
	body := w.Body.String()
	assert.Contains(t, body, "snap-42")
	assert.Contains(t, body, "<td>X</td><td>45.00</td>")
	assert.Contains(t, body, "<td>Gotham</td><td>2</td>")
}

func TestHandleBackup(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.ReplaceEnrichedTrips("snap", sampleRows()))

	w := httptest.NewRecorder()
	db.handleBackup(w, debugRequest("/debug/backup"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/gzip", w.Header().Get("Content-Type"))

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	require.Greater(t, len(data), 16)
	assert.Equal(t, "SQLite format 3\x00", string(data[:16]))
}
