package db

import (
	"compress/gzip"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

var summaryTmpl = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html><head><title>Mirror summary</title></head><body>
<h1>Mirror summary</h1>
{{if .State}}<p>Snapshot {{.State.SnapshotID}}: {{.State.TripCount}} trips, synced {{.State.SyncedAt.Format "2006-01-02 15:04:05"}}</p>
{{else}}<p>No snapshot mirrored yet.</p>{{end}}
<h2>Revenue by model</h2>
<table>{{range .Revenue}}<tr><td>{{.Key}}</td><td>{{printf "%.2f" .Value}}</td></tr>{{end}}</table>
<h2>Trips by city</h2>
<table>{{range .Cities}}<tr><td>{{.Key}}</td><td>{{.Count}}</td></tr>{{end}}</table>
</body></html>
`))

// AttachAdminRoutes mounts the debug index at /debug/ with a tailsql
// console over the mirror, a summary page and a backup download.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://memory/carshare", db.DB, &tailsql.DBOptions{
		Label: "Enriched trips mirror",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("summary", "Grouped totals computed by SQL over the mirror", http.HandlerFunc(db.handleSummary))
	debug.Handle("backup", "Download a gzipped copy of the mirror database", http.HandlerFunc(db.handleBackup))
	return nil
}

func (db *DB) handleSummary(w http.ResponseWriter, r *http.Request) {
	state, err := db.State()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read mirror state: %v", err), http.StatusInternalServerError)
		return
	}
	revenue, err := db.RevenueByModel()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query revenue: %v", err), http.StatusInternalServerError)
		return
	}
	cities, err := db.TripsByCity()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query cities: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := summaryTmpl.Execute(w, map[string]any{
		"State":   state,
		"Revenue": revenue,
		"Cities":  cities,
	}); err != nil {
		log.Printf("[db] failed to render summary: %v", err)
	}
}

func (db *DB) handleBackup(w http.ResponseWriter, r *http.Request) {
	dir, err := os.MkdirTemp("", "carshare-backup-")
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup dir: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("[db] failed to remove backup dir: %v", err)
		}
	}()

	name := fmt.Sprintf("mirror-%d.db", time.Now().Unix())
	backupPath := filepath.Join(dir, name)
	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}

	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer backupFile.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", name))
	w.Header().Set("Content-Type", "application/gzip")

	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.Copy(gz, backupFile); err != nil {
		log.Printf("[db] failed to stream backup: %v", err)
	}
}
