package api

import (
	"bytes"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/carshare.report/internal/config"
	"github.com/banshee-data/carshare.report/internal/dashboard"
	"github.com/banshee-data/carshare.report/internal/dataset"
	"github.com/banshee-data/carshare.report/internal/httputil"
	"github.com/banshee-data/carshare.report/internal/security"
	"github.com/banshee-data/carshare.report/internal/trips"
	"github.com/banshee-data/carshare.report/internal/units"
	"github.com/banshee-data/carshare.report/internal/version"
)

func (s *Server) showDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		httputil.NotFound(w, "not found")
		return
	}
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	brands, rows := selection(r, snap)
	m, err := trips.ComputeMetrics(rows)
	view := dashboard.View{
		SnapshotID: snap.ID,
		Brands:     trips.Brands(snap.Enriched),
		Selected:   brands,
		Rows:       rows,
		Metrics:    m,
		MetricsErr: err,
		TableRows:  s.tableRows,
	}

	var buf bytes.Buffer
	if err := s.render.RenderPage(&buf, view); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (s *Server) showPreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	name := r.URL.Query().Get("file")
	if name == "" {
		name = filepath.Base(s.src.TripsPath)
	}
	path, err := security.ResolveDataFile(s.dataDir, name)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	rows, err := httputil.QueryInt(r, "rows", s.previewRows, 0, config.MaxPreviewRows)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	p, err := dataset.Preview(s.fsys, path, rows)
	if errors.Is(err, fs.ErrNotExist) {
		httputil.NotFound(w, "no such file: "+name)
		return
	}
	if err != nil {
		writeLoadError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := s.render.RenderPreview(&buf, p); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteHTML(w, http.StatusOK, buf.Bytes())
}

// showChart serves /charts/{name} and /charts/all.
func (s *Server) showChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/charts/")
	if name != "all" && dashboard.ChartTitle(name) == "" {
		httputil.NotFound(w, "unknown chart: "+name)
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	brands, rows := selection(r, snap)
	summaries := trips.ComputeSummaries(rows)
	subtitle := "All brands"
	if len(brands) > 0 {
		subtitle = "Brands: " + strings.Join(brands, ", ")
	}

	var buf bytes.Buffer
	var err error
	if name == "all" {
		err = s.render.RenderAll(&buf, summaries, subtitle)
	} else {
		err = s.render.RenderChart(&buf, name, summaries, subtitle)
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteHTML(w, http.StatusOK, buf.Bytes())
}

type metricsResponse struct {
	Empty bool `json:"empty"`
	trips.Metrics
	DistanceUnits string `json:"distance_units"`
}

func (s *Server) showMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	_, rows := selection(r, snap)
	m, err := trips.ComputeMetrics(rows)
	if err != nil && !errors.Is(err, trips.ErrEmptyDataset) {
		httputil.InternalServerError(w, err.Error())
		return
	}
	m.TotalDistance = units.ConvertDistance(m.TotalDistance, s.units)
	httputil.WriteJSONOK(w, metricsResponse{
		Empty:         errors.Is(err, trips.ErrEmptyDataset),
		Metrics:       m,
		DistanceUnits: s.units,
	})
}

func (s *Server) showSummaries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	_, rows := selection(r, snap)
	httputil.WriteJSONOK(w, trips.ComputeSummaries(rows))
}

type tripsResponse struct {
	Total int                  `json:"total"`
	Trips []trips.EnrichedTrip `json:"trips"`
}

func (s *Server) listTrips(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit, err := httputil.QueryInt(r, "limit", s.tableRows, 0, config.MaxTableRows)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	_, rows := selection(r, snap)
	resp := tripsResponse{Total: len(rows), Trips: rows[:min(limit, len(rows))]}
	if resp.Trips == nil {
		resp.Trips = []trips.EnrichedTrip{}
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) listBrands(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	brands := trips.Brands(snap.Enriched)
	if brands == nil {
		brands = []string{}
	}
	httputil.WriteJSONOK(w, map[string][]string{"brands": brands})
}

type configResponse struct {
	Version       string         `json:"version"`
	GitSHA        string         `json:"git_sha"`
	DistanceUnits string         `json:"distance_units"`
	ValidUnits    []string       `json:"valid_units"`
	TableRows     int            `json:"table_rows"`
	PreviewRows   int            `json:"preview_rows"`
	Source        dataset.Source `json:"source"`
	SnapshotID    string         `json:"snapshot_id,omitempty"`
	LoadedAt      *time.Time     `json:"loaded_at,omitempty"`
}

// showConfig reports the running configuration. It still answers when the
// dataset cannot be loaded, leaving the snapshot fields empty.
func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	resp := configResponse{
		Version:       version.Version,
		GitSHA:        version.GitSHA,
		DistanceUnits: s.units,
		ValidUnits:    units.ValidUnits,
		TableRows:     s.tableRows,
		PreviewRows:   s.previewRows,
		Source:        s.src,
	}
	if snap, err := s.cache.Get(s.src); err == nil {
		resp.SnapshotID = snap.ID
		resp.LoadedAt = &snap.LoadedAt
	}
	httputil.WriteJSONOK(w, resp)
}

type reloadResponse struct {
	SnapshotID string    `json:"snapshot_id"`
	LoadedAt   time.Time `json:"loaded_at"`
	Trips      int       `json:"trips"`
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.cache.Invalidate(s.src)
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	httputil.WriteJSONOK(w, reloadResponse{
		SnapshotID: snap.ID,
		LoadedAt:   snap.LoadedAt,
		Trips:      len(snap.Enriched),
	})
}
