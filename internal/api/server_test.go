package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/carshare.report/internal/dashboard"
	"github.com/banshee-data/carshare.report/internal/dataset"
	"github.com/banshee-data/carshare.report/internal/db"
	"github.com/banshee-data/carshare.report/internal/fsutil"
	"github.com/banshee-data/carshare.report/internal/httputil"
	"github.com/banshee-data/carshare.report/internal/testutil"
	"github.com/banshee-data/carshare.report/internal/trips"
)

type testEnv struct {
	server *Server
	mux    *http.ServeMux
	fs     *fsutil.MemoryFileSystem
	cache  *dataset.Cache
	mirror *db.DB
}

func setupTestServer(t *testing.T, units string) *testEnv {
	t.Helper()
	mfs := testutil.NewDatasetFS(t, "/data")
	mirror, err := db.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { mirror.Close() })

	cache := dataset.NewCache(mfs, nil)
	s := NewServer(Options{
		FS:          mfs,
		Cache:       cache,
		Source:      dataset.DefaultSource("/data"),
		DataDir:     "/data",
		Mirror:      mirror,
		Units:       units,
		TableRows:   3,
		PreviewRows: 2,
	})
	return &testEnv{server: s, mux: s.ServeMux(), fs: mfs, cache: cache, mirror: mirror}
}

func (e *testEnv) do(method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, testutil.NewTestRequest(method, target))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestShowDashboard(t *testing.T) {
	env := setupTestServer(t, "km")

	w := env.do(http.MethodGet, "/")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, `<option value="Acme">Acme</option>`)
	assert.Contains(t, body, `<option value="Zoom">Zoom</option>`)
	assert.Contains(t, body, "Showing 3 of 5.")
	assert.Contains(t, body, "27.0 km")
	assert.Contains(t, body, `src="/charts/trips-by-city"`)
}

func TestShowDashboard_Filtered(t *testing.T) {
	env := setupTestServer(t, "km")

	w := env.do(http.MethodGet, "/?brand=Acme")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	body := w.Body.String()
	assert.Contains(t, body, `<option value="Acme" selected>Acme</option>`)
	assert.Contains(t, body, "12.0 km")
	assert.Contains(t, body, `src="/charts/revenue-by-model?brand=Acme"`)
}

func TestShowDashboard_NoMatch(t *testing.T) {
	env := setupTestServer(t, "km")

	w := env.do(http.MethodGet, "/?brand=Nope")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.Contains(t, w.Body.String(), "No trips match the selected brands.")
}

func TestShowDashboard_RoutingErrors(t *testing.T) {
	env := setupTestServer(t, "km")

	testutil.AssertStatusCode(t, env.do(http.MethodGet, "/favicon.ico").Code, http.StatusNotFound)
	testutil.AssertStatusCode(t, env.do(http.MethodPost, "/").Code, http.StatusMethodNotAllowed)
}

func TestShowMetrics(t *testing.T) {
	env := setupTestServer(t, "km")

	w := env.do(http.MethodGet, "/api/metrics")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	got := decode[metricsResponse](t, w)
	assert.False(t, got.Empty)
	assert.Equal(t, 5, got.TotalTrips)
	require.NotNil(t, got.TopCar)
	assert.Equal(t, "X", *got.TopCar)
	assert.Equal(t, 27.0, got.TotalDistance)
	assert.Equal(t, "km", got.DistanceUnits)
}

func TestShowMetrics_Miles(t *testing.T) {
	env := setupTestServer(t, "mi")

	got := decode[metricsResponse](t, env.do(http.MethodGet, "/api/metrics?brand=Acme"))
	assert.Equal(t, 3, got.TotalTrips)
	assert.InDelta(t, 12/1.609344, got.TotalDistance, 1e-9)
	assert.Equal(t, "mi", got.DistanceUnits)
}

func TestShowMetrics_EmptySelection(t *testing.T) {
	env := setupTestServer(t, "km")

	w := env.do(http.MethodGet, "/api/metrics?brand=Nope")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, true, raw["empty"])
	assert.Equal(t, 0.0, raw["total_trips"])
	assert.Nil(t, raw["top_car"])
	assert.Contains(t, raw, "top_car")
}

func TestShowSummaries(t *testing.T) {
	env := setupTestServer(t, "km")

	got := decode[trips.Summaries](t, env.do(http.MethodGet, "/api/summaries?brand=Acme"))
	assert.Equal(t, []trips.Group{{Key: "X", Value: 45}, {Key: "Y", Value: 15}}, got.RevenueByModel)
	assert.Equal(t, []trips.Count{{Key: "Gotham", Count: 1}, {Key: "Metropolis", Count: 2}}, got.TripsByCity)
}

func TestShowSummaries_MultipleBrands(t *testing.T) {
	env := setupTestServer(t, "km")

	got := decode[trips.Summaries](t, env.do(http.MethodGet, "/api/summaries?brand=Acme&brand=Zoom"))
	assert.Len(t, got.RevenueByModel, 3)
	assert.Equal(t, []trips.Count{{Key: "Gotham", Count: 2}, {Key: "Metropolis", Count: 2}}, got.TripsByCity)
}

func TestListTrips(t *testing.T) {
	env := setupTestServer(t, "km")

	got := decode[tripsResponse](t, env.do(http.MethodGet, "/api/trips"))
	assert.Equal(t, 5, got.Total)
	assert.Len(t, got.Trips, 3, "defaults to the configured table rows")

	got = decode[tripsResponse](t, env.do(http.MethodGet, "/api/trips?limit=100&brand=Zoom"))
	assert.Equal(t, 1, got.Total)
	require.Len(t, got.Trips, 1)
	assert.Equal(t, "Z1", *got.Trips[0].Model)

	got = decode[tripsResponse](t, env.do(http.MethodGet, "/api/trips?limit=0"))
	assert.NotNil(t, got.Trips)
	assert.Empty(t, got.Trips)
}

func TestListTrips_BadLimit(t *testing.T) {
	env := setupTestServer(t, "km")

	for _, q := range []string{"abc", "-1", "5000"} {
		w := env.do(http.MethodGet, "/api/trips?limit="+q)
		testutil.AssertStatusCode(t, w.Code, http.StatusBadRequest)
		assert.Contains(t, decode[httputil.ErrorResponse](t, w).Error, "limit")
	}
}

func TestListBrands(t *testing.T) {
	env := setupTestServer(t, "km")

	got := decode[map[string][]string](t, env.do(http.MethodGet, "/api/brands?brand=Zoom"))
	assert.Equal(t, []string{"Acme", "Zoom"}, got["brands"], "the list ignores the selection")
}

func TestShowChart(t *testing.T) {
	env := setupTestServer(t, "km")

	for _, name := range append(dashboard.ChartNames, "all") {
		t.Run(name, func(t *testing.T) {
			w := env.do(http.MethodGet, "/charts/"+name+"?brand=Acme")
			testutil.AssertStatusCode(t, w.Code, http.StatusOK)
			assert.Contains(t, w.Body.String(), "echarts.min.js")
			assert.Contains(t, w.Body.String(), "Brands: Acme")
		})
	}
}

func TestShowChart_Unknown(t *testing.T) {
	env := setupTestServer(t, "km")

	w := env.do(http.MethodGet, "/charts/pie")
	testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)
	assert.Equal(t, 0, env.cache.Loads(), "unknown charts do not load the dataset")

	testutil.AssertStatusCode(t, env.do(http.MethodPost, "/charts/all").Code, http.StatusMethodNotAllowed)
}

func TestShowPreview(t *testing.T) {
	env := setupTestServer(t, "km")

	w := env.do(http.MethodGet, "/preview?file=cars.csv&rows=1")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	body := w.Body.String()
	assert.Contains(t, body, "<td>Acme</td>")
	assert.NotContains(t, body, "<td>Zoom</td>")

	w = env.do(http.MethodGet, "/preview")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.Contains(t, w.Body.String(), "<h1>trips.csv</h1>")
}

func TestShowPreview_Errors(t *testing.T) {
	env := setupTestServer(t, "km")

	tests := []struct {
		target string
		want   int
	}{
		{"/preview?file=../etc/passwd.csv", http.StatusBadRequest},
		{"/preview?file=trips.txt", http.StatusBadRequest},
		{"/preview?file=cars.csv&rows=100000", http.StatusBadRequest},
		{"/preview?file=missing.csv", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			testutil.AssertStatusCode(t, env.do(http.MethodGet, tt.target).Code, tt.want)
		})
	}
}

func TestLoadErrorIsReported(t *testing.T) {
	env := setupTestServer(t, "km")
	require.NoError(t, env.fs.WriteFile("/data/trips.csv", []byte("id,car_id\n1,10\n"), 0644))

	for _, target := range []string{"/", "/api/metrics", "/api/summaries", "/charts/all"} {
		w := env.do(http.MethodGet, target)
		testutil.AssertStatusCode(t, w.Code, http.StatusInternalServerError)

		got := decode[httputil.ErrorResponse](t, w)
		assert.Contains(t, got.Error, "trips.csv")
		assert.Equal(t, "/data/trips.csv", got.Detail["path"])
		assert.Equal(t, 1.0, got.Detail["line"])
	}
}

func TestShowConfig(t *testing.T) {
	env := setupTestServer(t, "mi")

	got := decode[configResponse](t, env.do(http.MethodGet, "/api/config"))
	assert.Equal(t, "mi", got.DistanceUnits)
	assert.Equal(t, []string{"km", "mi"}, got.ValidUnits)
	assert.Equal(t, 3, got.TableRows)
	assert.Equal(t, "/data/trips.csv", got.Source.TripsPath)
	assert.NotEmpty(t, got.SnapshotID)
	assert.NotNil(t, got.LoadedAt)
}

func TestShowConfig_WithoutDataset(t *testing.T) {
	env := setupTestServer(t, "km")
	require.NoError(t, env.fs.Remove("/data/cities.csv"))

	w := env.do(http.MethodGet, "/api/config")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	got := decode[configResponse](t, w)
	assert.Empty(t, got.SnapshotID)
	assert.Nil(t, got.LoadedAt)
}

func TestReload(t *testing.T) {
	env := setupTestServer(t, "km")

	before := decode[configResponse](t, env.do(http.MethodGet, "/api/config"))

	w := env.do(http.MethodPost, "/api/reload")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	got := decode[reloadResponse](t, w)
	assert.NotEqual(t, before.SnapshotID, got.SnapshotID)
	assert.Equal(t, 5, got.Trips)
	assert.Equal(t, 2, env.cache.Loads())

	testutil.AssertStatusCode(t, env.do(http.MethodGet, "/api/reload").Code, http.StatusMethodNotAllowed)
}

func TestMirrorFollowsSnapshot(t *testing.T) {
	env := setupTestServer(t, "km")

	state, err := env.mirror.State()
	require.NoError(t, err)
	assert.Nil(t, state, "nothing is mirrored before the first request")

	env.do(http.MethodGet, "/api/metrics")
	snap, err := env.cache.Get(dataset.DefaultSource("/data"))
	require.NoError(t, err)

	state, err = env.mirror.State()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, snap.ID, state.SnapshotID)
	assert.Equal(t, 5, state.TripCount)

	reloaded := decode[reloadResponse](t, env.do(http.MethodPost, "/api/reload"))
	state, err = env.mirror.State()
	require.NoError(t, err)
	assert.Equal(t, reloaded.SnapshotID, state.SnapshotID)

	byModel, err := env.mirror.RevenueByModel()
	require.NoError(t, err)
	assert.Equal(t, trips.ComputeSummaries(snap.Enriched).RevenueByModel, byModel)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(io.Discard) })

	env := setupTestServer(t, "km")
	h := LoggingMiddleware(env.mux)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/brands?brand=Acme"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	line := buf.String()
	assert.Contains(t, line, "["+colorBoldGreen+"200"+colorReset+"] GET")
	assert.Contains(t, line, colorCyan+"/api/brands?brand=Acme"+colorReset)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(line), "ms"))
}

func TestStatusCodeColor(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, colorBoldGreen + "200" + colorReset},
		{304, colorYellow + "304" + colorReset},
		{404, colorBoldRed + "404" + colorReset},
		{500, colorBoldRed + "500" + colorReset},
		{101, "101"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusCodeColor(tt.code))
	}
}

func TestLoggingResponseWriter_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	lrw := &loggingResponseWriter{rec, http.StatusOK}
	lrw.WriteHeader(http.StatusTeapot)
	lrw.Flush()

	assert.Equal(t, http.StatusTeapot, lrw.statusCode)
	assert.True(t, rec.Flushed)
}
