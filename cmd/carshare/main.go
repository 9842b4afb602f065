package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/carshare.report/internal/api"
	"github.com/banshee-data/carshare.report/internal/config"
	"github.com/banshee-data/carshare.report/internal/dataset"
	"github.com/banshee-data/carshare.report/internal/db"
	"github.com/banshee-data/carshare.report/internal/fsutil"
	"github.com/banshee-data/carshare.report/internal/units"
	"github.com/banshee-data/carshare.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a .json or .yaml dashboard config")
	listen      = flag.String("listen", config.DefaultListen, "Listen address")
	dataDir     = flag.String("data-dir", config.DefaultDataDir, "Directory holding trips.csv, cars.csv and cities.csv")
	unitsFlag   = flag.String("units", config.DefaultUnits, "Distance units ("+units.GetValidUnitsString()+")")
	mirrorPath  = flag.String("db", "", "SQLite file for the SQL mirror (default in memory)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// loadConfig reads the config file, if any, and applies flags the user set
// explicitly on top of it.
func loadConfig() (*config.DashboardConfig, error) {
	cfg := config.EmptyDashboardConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadDashboardConfig(*configPath); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = listen
		case "data-dir":
			cfg.DataDir = dataDir
		case "units":
			cfg.DistanceUnits = unitsFlag
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	src := dataset.Source{
		TripsPath:  cfg.GetTripsPath(),
		CarsPath:   cfg.GetCarsPath(),
		CitiesPath: cfg.GetCitiesPath(),
	}
	fsys := fsutil.OSFileSystem{}
	cache := dataset.NewCache(fsys, nil)

	snap, err := cache.Get(src)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	log.Printf("loaded %d trips from %s", len(snap.Enriched), cfg.GetDataDir())

	var mirror *db.DB
	if *mirrorPath != "" {
		mirror, err = db.NewDB(*mirrorPath)
	} else {
		mirror, err = db.NewMemoryDB()
	}
	if err != nil {
		log.Fatalf("failed to open mirror database: %v", err)
	}
	defer mirror.Close()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		if err := mirror.AttachAdminRoutes(mux); err != nil {
			log.Printf("admin routes disabled: %v", err)
		}

		s := api.NewServer(api.Options{
			FS:          fsys,
			Cache:       cache,
			Source:      src,
			DataDir:     cfg.GetDataDir(),
			Mirror:      mirror,
			Units:       cfg.GetDistanceUnits(),
			TableRows:   cfg.GetTableRows(),
			PreviewRows: cfg.GetPreviewRows(),
		})
		mux.Handle("/", s.ServeMux())

		server := &http.Server{
			Addr:              cfg.GetListen(),
			Handler:           api.LoggingMiddleware(mux),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Printf("serving dashboard on %s", cfg.GetListen())
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
