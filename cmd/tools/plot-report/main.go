// Command plot-report writes the trip summaries of a dataset as PNG charts.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/carshare.report/internal/config"
	"github.com/banshee-data/carshare.report/internal/dataset"
	"github.com/banshee-data/carshare.report/internal/fsutil"
	"github.com/banshee-data/carshare.report/internal/report"
	"github.com/banshee-data/carshare.report/internal/security"
	"github.com/banshee-data/carshare.report/internal/trips"
	"github.com/banshee-data/carshare.report/internal/units"
)

// Config holds the command-line options.
type Config struct {
	ConfigFile string
	DataDir    string
	Brands     string
	OutputDir  string
	Units      string
}

// Result describes one generated report.
type Result struct {
	Dir     string          `json:"dir"`
	Brands  []string        `json:"brands"`
	Files   []string        `json:"files"`
	Metrics *trips.Metrics  `json:"metrics,omitempty"`
	Summary trips.Summaries `json:"summaries"`
}

func main() {
	cfg := parseFlags()

	res, err := run(cfg)
	if err != nil {
		log.Fatalf("Report failed: %v", err)
	}

	fmt.Printf("Report written to %s\n", res.Dir)
	if res.Metrics == nil {
		fmt.Println("No trips match the selected brands.")
	} else {
		top := "n/a"
		if res.Metrics.TopCar != nil {
			top = *res.Metrics.TopCar
		}
		fmt.Printf("Trips: %d\n", res.Metrics.TotalTrips)
		fmt.Printf("Top car: %s\n", top)
		fmt.Printf("Total distance: %s\n", units.FormatDistance(res.Metrics.TotalDistance, cfg.Units))
	}
	for _, f := range res.Files {
		fmt.Printf("  %s\n", f)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.ConfigFile, "config", "", "Dashboard config file; its data_dir and file names are used")
	flag.StringVar(&cfg.DataDir, "data-dir", config.DefaultDataDir, "Directory holding trips.csv, cars.csv and cities.csv")
	flag.StringVar(&cfg.Brands, "brand", "", "Comma-separated brands to include (default all)")
	flag.StringVar(&cfg.OutputDir, "out", "reports", "Output directory")
	flag.StringVar(&cfg.Units, "units", config.DefaultUnits, "Distance units for the printed summary ("+units.GetValidUnitsString()+")")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Loads a trips dataset, filters it by brand and writes PNG charts of\n")
		fmt.Fprintf(os.Stderr, "revenue and trips per date and revenue per model.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -data-dir ./datasets -out ./reports\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -data-dir ./datasets -brand Acme,Zoom\n", os.Args[0])
	}

	flag.Parse()
	return cfg
}

func run(cfg Config) (*Result, error) {
	if !units.IsValid(cfg.Units) {
		return nil, fmt.Errorf("invalid units %q, want one of %s", cfg.Units, units.GetValidUnitsString())
	}

	src := dataset.DefaultSource(cfg.DataDir)
	if cfg.ConfigFile != "" {
		dc, err := config.LoadDashboardConfig(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		src = dataset.Source{
			TripsPath:  dc.GetTripsPath(),
			CarsPath:   dc.GetCarsPath(),
			CitiesPath: dc.GetCitiesPath(),
		}
	}

	tables, err := dataset.Load(fsutil.OSFileSystem{}, src)
	if err != nil {
		return nil, err
	}
	brands := splitBrands(cfg.Brands)
	rows := trips.FilterByBrand(trips.Enrich(tables.Trips, tables.Cars, tables.Cities), brands)

	dir, err := reportDir(cfg.OutputDir, brands)
	if err != nil {
		return nil, err
	}

	res := &Result{Dir: dir, Brands: brands, Summary: trips.ComputeSummaries(rows)}
	if m, err := trips.ComputeMetrics(rows); err == nil {
		res.Metrics = &m
	} else if !errors.Is(err, trips.ErrEmptyDataset) {
		return nil, err
	}

	if res.Files, err = report.WriteReport(dir, res.Summary); err != nil {
		return nil, err
	}

	summaryPath := filepath.Join(dir, "summary.json")
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(summaryPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}
	res.Files = append(res.Files, summaryPath)
	return res, nil
}

func splitBrands(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// reportDir names the sub-directory of out for a brand selection.
func reportDir(out string, brands []string) (string, error) {
	name := "all-brands"
	if len(brands) > 0 {
		name = security.SanitizeFilename(strings.Join(brands, "+"))
	}
	dir := filepath.Join(out, name)
	if err := security.ValidatePathWithinDirectory(dir, out); err != nil {
		return "", err
	}
	return dir, nil
}
