package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/carshare.report/internal/dashboard"
	"github.com/banshee-data/carshare.report/internal/dataset"
	"github.com/banshee-data/carshare.report/internal/db"
	"github.com/banshee-data/carshare.report/internal/fsutil"
	"github.com/banshee-data/carshare.report/internal/httputil"
	"github.com/banshee-data/carshare.report/internal/monitoring"
	"github.com/banshee-data/carshare.report/internal/trips"
)

// ANSI escape codes used by the access log.
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Options configures a Server. Cache, Source and DataDir are required.
type Options struct {
	FS          fsutil.FileSystem
	Cache       *dataset.Cache
	Source      dataset.Source
	DataDir     string // files served by /preview must live here
	Mirror      *db.DB // optional
	Units       string
	TableRows   int
	PreviewRows int
}

type Server struct {
	fsys        fsutil.FileSystem
	cache       *dataset.Cache
	src         dataset.Source
	dataDir     string
	mirror      *db.DB
	render      *dashboard.Renderer
	units       string
	tableRows   int
	previewRows int

	mu         sync.Mutex
	mirroredID string
}

func NewServer(o Options) *Server {
	if o.FS == nil {
		o.FS = fsutil.OSFileSystem{}
	}
	return &Server{
		fsys:        o.FS,
		cache:       o.Cache,
		src:         o.Source,
		dataDir:     o.DataDir,
		mirror:      o.Mirror,
		render:      dashboard.NewRenderer(o.Units),
		units:       o.Units,
		tableRows:   o.TableRows,
		previewRows: o.PreviewRows,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.showDashboard)
	mux.HandleFunc("/preview", s.showPreview)
	mux.HandleFunc("/charts/", s.showChart)
	mux.HandleFunc("/api/metrics", s.showMetrics)
	mux.HandleFunc("/api/summaries", s.showSummaries)
	mux.HandleFunc("/api/trips", s.listTrips)
	mux.HandleFunc("/api/brands", s.listBrands)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/reload", s.reload)
	return mux
}

// snapshot returns the current dataset snapshot, writing a 500 response and
// returning nil when it cannot be loaded.
func (s *Server) snapshot(w http.ResponseWriter) *dataset.Snapshot {
	snap, err := s.cache.Get(s.src)
	if err != nil {
		writeLoadError(w, err)
		return nil
	}
	s.syncMirror(snap)
	return snap
}

// syncMirror copies a snapshot into the SQL mirror the first time its ID is
// seen. Mirror failures are logged and do not fail the request.
func (s *Server) syncMirror(snap *dataset.Snapshot) {
	if s.mirror == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.ID == s.mirroredID {
		return
	}
	defer monitoring.Timed("mirror sync")()
	if err := s.mirror.ReplaceEnrichedTrips(snap.ID, snap.Enriched); err != nil {
		log.Printf("[api] mirror sync for snapshot %s failed: %v", snap.ID, err)
		return
	}
	s.mirroredID = snap.ID
}

// selection applies the brand query parameters to a snapshot.
func selection(r *http.Request, snap *dataset.Snapshot) ([]string, []trips.EnrichedTrip) {
	brands := httputil.QueryList(r, "brand")
	return brands, trips.FilterByBrand(snap.Enriched, brands)
}

func writeLoadError(w http.ResponseWriter, err error) {
	var le *dataset.LoadError
	if errors.As(err, &le) {
		detail := map[string]any{"path": le.Path}
		if le.Line > 0 {
			detail["line"] = le.Line
		}
		if le.Column != "" {
			detail["column"] = le.Column
		}
		httputil.WriteJSONErrorDetail(w, http.StatusInternalServerError, err.Error(), detail)
		return
	}
	httputil.InternalServerError(w, err.Error())
}
