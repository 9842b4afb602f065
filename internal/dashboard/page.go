package dashboard

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/banshee-data/carshare.report/internal/dataset"
	"github.com/banshee-data/carshare.report/internal/trips"
	"github.com/banshee-data/carshare.report/internal/units"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	dashboardTmpl = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))
	previewTmpl   = template.Must(template.ParseFS(templateFS, "templates/preview.html"))
)

const missing = "n/a"

// View is everything the dashboard page shows for one brand selection.
type View struct {
	SnapshotID string
	Brands     []string // every brand in the dataset
	Selected   []string // active filter; empty means all
	Rows       []trips.EnrichedTrip
	Metrics    trips.Metrics
	MetricsErr error // trips.ErrEmptyDataset renders the empty state
	TableRows  int
}

type brandOption struct {
	Name     string
	Selected bool
}

type chartFrame struct {
	Title string
	Src   string
}

type tripRow struct {
	Pickup, Dropoff    string
	Brand, Model, City string
	Distance, Revenue  string
}

type pageData struct {
	SnapshotID    string
	Brands        []brandOption
	BrandListSize int
	Filtered      bool
	Empty         bool
	TotalTrips    int
	TopCar        string
	TotalDistance string
	Charts        []chartFrame
	Rows          []tripRow
}

// RenderPage writes the dashboard HTML for v.
func (r *Renderer) RenderPage(w io.Writer, v View) error {
	if v.MetricsErr != nil && !errors.Is(v.MetricsErr, trips.ErrEmptyDataset) {
		return v.MetricsErr
	}

	data := pageData{
		SnapshotID: v.SnapshotID,
		Filtered:   len(v.Selected) > 0,
		Empty:      errors.Is(v.MetricsErr, trips.ErrEmptyDataset),
	}

	selected := make(map[string]bool, len(v.Selected))
	for _, b := range v.Selected {
		selected[b] = true
	}
	for _, b := range v.Brands {
		data.Brands = append(data.Brands, brandOption{Name: b, Selected: selected[b]})
	}
	data.BrandListSize = min(max(len(v.Brands), 2), 8)

	if !data.Empty {
		data.TotalTrips = v.Metrics.TotalTrips
		data.TopCar = missing
		if v.Metrics.TopCar != nil {
			data.TopCar = *v.Metrics.TopCar
		}
		data.TotalDistance = units.FormatDistance(v.Metrics.TotalDistance, r.Units)

		query := ChartQuery(v.Selected)
		for _, name := range ChartNames {
			data.Charts = append(data.Charts, chartFrame{
				Title: chartTitles[name],
				Src:   "/charts/" + name + query,
			})
		}

		n := min(v.TableRows, len(v.Rows))
		for _, row := range v.Rows[:max(n, 0)] {
			data.Rows = append(data.Rows, r.tripRow(row))
		}
	}

	return dashboardTmpl.Execute(w, data)
}

// ChartQuery encodes a brand selection for the chart routes, e.g.
// "?brand=Acme&brand=Zoom". An empty selection yields "".
func ChartQuery(brands []string) string {
	if len(brands) == 0 {
		return ""
	}
	return "?" + url.Values{"brand": brands}.Encode()
}

func (r *Renderer) tripRow(t trips.EnrichedTrip) tripRow {
	return tripRow{
		Pickup:   formatTime(t.PickupTime),
		Dropoff:  formatTime(t.DropoffTime),
		Brand:    orMissing(t.Brand),
		Model:    orMissing(t.Model),
		City:     orMissing(t.CityName),
		Distance: r.formatDistance(t.Distance),
		Revenue:  formatFloat(t.Revenue),
	}
}

func (r *Renderer) formatDistance(km *float64) string {
	if km == nil {
		return missing
	}
	return units.FormatDistance(*km, r.Units)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return missing
	}
	return t.Format("2006-01-02 15:04")
}

func formatFloat(v *float64) string {
	if v == nil {
		return missing
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func orMissing(s *string) string {
	if s == nil {
		return missing
	}
	return *s
}

// RenderPreview writes a CSV preview table.
func (r *Renderer) RenderPreview(w io.Writer, p *dataset.PreviewTable) error {
	if p == nil {
		return fmt.Errorf("nil preview")
	}
	return previewTmpl.Execute(w, map[string]any{
		"Name":  filepath.Base(p.Path),
		"Table": p,
	})
}
