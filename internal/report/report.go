// Package report draws the grouped trip summaries as PNG images with
// gonum/plot, for sharing outside the dashboard.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/carshare.report/internal/trips"
)

// Output file names inside the report directory.
const (
	RevenueByDateFile  = "revenue_by_date.png"
	TripsByDateFile    = "trips_by_date.png"
	RevenueByModelFile = "revenue_by_model.png"
)

var (
	revenueColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	tripsColor   = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
)

// WriteReport renders the date and model summaries into dir, creating it
// if needed, and returns the written file paths.
func WriteReport(dir string, s trips.Summaries) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}

	revenue, err := DatePlot("Revenue by date", "Revenue", s.RevenueByDate, revenueColor)
	if err != nil {
		return nil, err
	}
	counts, err := DatePlot("Trips by date", "Trips", countsAsGroups(s.TripsByDate), tripsColor)
	if err != nil {
		return nil, err
	}
	models, err := ModelPlot(s.RevenueByModel)
	if err != nil {
		return nil, err
	}

	plots := []struct {
		p    *plot.Plot
		name string
	}{
		{revenue, RevenueByDateFile},
		{counts, TripsByDateFile},
		{models, RevenueByModelFile},
	}

	written := make([]string, 0, len(plots))
	for _, pl := range plots {
		path := filepath.Join(dir, pl.name)
		if err := pl.p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
			return written, fmt.Errorf("failed to save %s: %w", pl.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// DatePlot draws a line over date-keyed groups. Keys must use
// trips.DateLayout; the x axis shows calendar dates.
func DatePlot(title, yLabel string, groups []trips.Group, c color.Color) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = yLabel
	p.X.Tick.Marker = plot.TimeTicks{Format: trips.DateLayout}
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, 0, len(groups))
	for _, g := range groups {
		day, err := time.Parse(trips.DateLayout, g.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid date key %q: %w", g.Key, err)
		}
		pts = append(pts, plotter.XY{X: float64(day.Unix()), Y: g.Value})
	}
	if len(pts) == 0 {
		return p, nil
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, err
	}
	line.Color = c
	line.Width = vg.Points(1.5)
	points.GlyphStyle.Color = c
	p.Add(line, points)
	p.Legend.Add(yLabel, line)
	return p, nil
}

// ModelPlot draws revenue per model as a bar chart.
func ModelPlot(groups []trips.Group) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Revenue by model"
	p.Y.Label.Text = "Revenue"
	if len(groups) == 0 {
		return p, nil
	}

	values := make(plotter.Values, len(groups))
	names := make([]string, len(groups))
	for i, g := range groups {
		values[i] = g.Value
		names[i] = g.Key
	}

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return nil, err
	}
	bars.Color = revenueColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)
	return p, nil
}

func countsAsGroups(cs []trips.Count) []trips.Group {
	out := make([]trips.Group, len(cs))
	for i, c := range cs {
		out[i] = trips.Group{Key: c.Key, Value: float64(c.Count)}
	}
	return out
}
