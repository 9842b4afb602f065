// Package dashboard renders the trip analytics as HTML: go-echarts charts
// for the grouped summaries and a page with metric cards, a brand filter
// and a trip table that embeds those charts.
package dashboard

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/carshare.report/internal/trips"
	"github.com/banshee-data/carshare.report/internal/units"
)

// DefaultAssetsHost serves the echarts JavaScript.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Chart names, as used in /charts/{name}.
const (
	ChartTripsByCity    = "trips-by-city"
	ChartDistanceByCity = "distance-by-city"
	ChartRevenueByModel = "revenue-by-model"
	ChartRevenueByDate  = "revenue-by-date"
	ChartTripsByDate    = "trips-by-date"
)

// ChartNames lists every chart in display order.
var ChartNames = []string{
	ChartTripsByCity,
	ChartDistanceByCity,
	ChartRevenueByModel,
	ChartRevenueByDate,
	ChartTripsByDate,
}

var chartTitles = map[string]string{
	ChartTripsByCity:    "Trips by city",
	ChartDistanceByCity: "Average distance by city",
	ChartRevenueByModel: "Revenue by model",
	ChartRevenueByDate:  "Revenue by date",
	ChartTripsByDate:    "Trips by date",
}

// ErrUnknownChart is returned for a chart name outside ChartNames.
var ErrUnknownChart = errors.New("unknown chart")

// ChartTitle returns the display title of a chart.
func ChartTitle(name string) string {
	return chartTitles[name]
}

// Renderer holds the presentation settings shared by every chart and page.
type Renderer struct {
	AssetsHost string
	Units      string
	Theme      string
}

// NewRenderer returns a Renderer for the given distance unit.
func NewRenderer(distanceUnits string) *Renderer {
	return &Renderer{
		AssetsHost: DefaultAssetsHost,
		Units:      distanceUnits,
		Theme:      "white",
	}
}

// Renderable is a chart that can be written on its own or added to a page.
type Renderable interface {
	components.Charter
	Render(w io.Writer) error
}

// Chart builds the named chart from s.
func (r *Renderer) Chart(name string, s trips.Summaries, subtitle string) (Renderable, error) {
	switch name {
	case ChartTripsByCity:
		return r.bar(name, subtitle, "trips", countKeys(s.TripsByCity), countBars(s.TripsByCity)), nil
	case ChartDistanceByCity:
		avg := make([]trips.Group, len(s.AvgDistanceByCity))
		for i, g := range s.AvgDistanceByCity {
			avg[i] = trips.Group{Key: g.Key, Value: units.ConvertDistance(g.Value, r.Units)}
		}
		return r.bar(name, subtitle, units.Label(r.Units), groupKeys(avg), groupBars(avg)), nil
	case ChartRevenueByModel:
		return r.bar(name, subtitle, "revenue", groupKeys(s.RevenueByModel), groupBars(s.RevenueByModel)), nil
	case ChartRevenueByDate:
		return r.line(name, subtitle, "revenue", groupKeys(s.RevenueByDate), groupLine(s.RevenueByDate)), nil
	case ChartTripsByDate:
		return r.line(name, subtitle, "trips", countKeys(s.TripsByDate), countLine(s.TripsByDate)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownChart, name)
}

// RenderChart writes the named chart as a standalone HTML document.
func (r *Renderer) RenderChart(w io.Writer, name string, s trips.Summaries, subtitle string) error {
	c, err := r.Chart(name, s, subtitle)
	if err != nil {
		return err
	}
	return c.Render(w)
}

// RenderAll writes every chart on one page.
func (r *Renderer) RenderAll(w io.Writer, s trips.Summaries, subtitle string) error {
	page := components.NewPage()
	page.SetPageTitle("Car sharing trips")
	page.SetAssetsHost(r.AssetsHost)
	for _, name := range ChartNames {
		c, err := r.Chart(name, s, subtitle)
		if err != nil {
			return err
		}
		page.AddCharts(c)
	}
	return page.Render(w)
}

func (r *Renderer) init(name string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle:  chartTitles[name],
		Theme:      r.Theme,
		Width:      "100%",
		Height:     "420px",
		AssetsHost: r.AssetsHost,
	})
}

func (r *Renderer) bar(name, subtitle, series string, x []string, y []opts.BarData) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		r.init(name),
		charts.WithTitleOpts(opts.Title{Title: chartTitles[name], Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries(series, y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func (r *Renderer) line(name, subtitle, series string, x []string, y []opts.LineData) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		r.init(name),
		charts.WithTitleOpts(opts.Title{Title: chartTitles[name], Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "date", Type: "category"}),
	)
	line.SetXAxis(x).
		AddSeries(series, y,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
		)
	return line
}

func groupKeys(gs []trips.Group) []string {
	out := make([]string, len(gs))
	for i, g := range gs {
		out[i] = g.Key
	}
	return out
}

func countKeys(cs []trips.Count) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Key
	}
	return out
}

func groupBars(gs []trips.Group) []opts.BarData {
	out := make([]opts.BarData, len(gs))
	for i, g := range gs {
		out[i] = opts.BarData{Value: round2(g.Value)}
	}
	return out
}

func countBars(cs []trips.Count) []opts.BarData {
	out := make([]opts.BarData, len(cs))
	for i, c := range cs {
		out[i] = opts.BarData{Value: c.Count}
	}
	return out
}

func groupLine(gs []trips.Group) []opts.LineData {
	out := make([]opts.LineData, len(gs))
	for i, g := range gs {
		out[i] = opts.LineData{Value: round2(g.Value)}
	}
	return out
}

func countLine(cs []trips.Count) []opts.LineData {
	out := make([]opts.LineData, len(cs))
	for i, c := range cs {
		out[i] = opts.LineData{Value: c.Count}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
