// Package config loads the dashboard configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/carshare.report/internal/units"
)

// Defaults applied by the Get* accessors when a field is absent.
const (
	DefaultDataDir     = "datasets"
	DefaultTripsFile   = "trips.csv"
	DefaultCarsFile    = "cars.csv"
	DefaultCitiesFile  = "cities.csv"
	DefaultListen      = ":8080"
	DefaultUnits       = units.KM
	DefaultTableRows   = 20
	DefaultPreviewRows = 5

	MaxTableRows   = 1000
	MaxPreviewRows = 500
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// DashboardConfig is the on-disk configuration. Every field is optional;
// fields omitted from the file fall back to the defaults above, so partial
// configs are safe.
type DashboardConfig struct {
	DataDir    *string `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	TripsFile  *string `json:"trips_file,omitempty" yaml:"trips_file,omitempty"`
	CarsFile   *string `json:"cars_file,omitempty" yaml:"cars_file,omitempty"`
	CitiesFile *string `json:"cities_file,omitempty" yaml:"cities_file,omitempty"`

	Listen        *string `json:"listen,omitempty" yaml:"listen,omitempty"`
	DistanceUnits *string `json:"distance_units,omitempty" yaml:"distance_units,omitempty"`
	TableRows     *int    `json:"table_rows,omitempty" yaml:"table_rows,omitempty"`
	PreviewRows   *int    `json:"preview_rows,omitempty" yaml:"preview_rows,omitempty"`
}

// EmptyDashboardConfig returns a config with every field unset.
func EmptyDashboardConfig() *DashboardConfig {
	return &DashboardConfig{}
}

// LoadDashboardConfig reads a .json, .yaml or .yml file and validates it.
func LoadDashboardConfig(path string) (*DashboardConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDashboardConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(cleanPath), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *DashboardConfig) Validate() error {
	if c.DistanceUnits != nil && !units.IsValid(*c.DistanceUnits) {
		return fmt.Errorf("distance_units must be one of %s, got %q", units.GetValidUnitsString(), *c.DistanceUnits)
	}
	if c.TableRows != nil && (*c.TableRows < 1 || *c.TableRows > MaxTableRows) {
		return fmt.Errorf("table_rows must be between 1 and %d, got %d", MaxTableRows, *c.TableRows)
	}
	if c.PreviewRows != nil && (*c.PreviewRows < 1 || *c.PreviewRows > MaxPreviewRows) {
		return fmt.Errorf("preview_rows must be between 1 and %d, got %d", MaxPreviewRows, *c.PreviewRows)
	}
	for name, v := range map[string]*string{
		"trips_file":  c.TripsFile,
		"cars_file":   c.CarsFile,
		"cities_file": c.CitiesFile,
	} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	return nil
}

// GetDataDir returns the data directory or the default.
func (c *DashboardConfig) GetDataDir() string {
	if c.DataDir == nil || *c.DataDir == "" {
		return DefaultDataDir
	}
	return *c.DataDir
}

// GetTripsPath returns the trips file, joined onto the data directory
// unless it is absolute.
func (c *DashboardConfig) GetTripsPath() string {
	return c.resolve(c.TripsFile, DefaultTripsFile)
}

// GetCarsPath returns the cars file path.
func (c *DashboardConfig) GetCarsPath() string {
	return c.resolve(c.CarsFile, DefaultCarsFile)
}

// GetCitiesPath returns the cities file path.
func (c *DashboardConfig) GetCitiesPath() string {
	return c.resolve(c.CitiesFile, DefaultCitiesFile)
}

func (c *DashboardConfig) resolve(v *string, def string) string {
	name := def
	if v != nil && *v != "" {
		name = *v
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.GetDataDir(), name)
}

// GetListen returns the HTTP listen address or the default.
func (c *DashboardConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return DefaultListen
	}
	return *c.Listen
}

// GetDistanceUnits returns the display unit for distances.
func (c *DashboardConfig) GetDistanceUnits() string {
	if c.DistanceUnits == nil {
		return DefaultUnits
	}
	return *c.DistanceUnits
}

// GetTableRows returns how many trips the dashboard table shows.
func (c *DashboardConfig) GetTableRows() int {
	if c.TableRows == nil {
		return DefaultTableRows
	}
	return *c.TableRows
}

// GetPreviewRows returns the default number of rows in a CSV preview.
func (c *DashboardConfig) GetPreviewRows() int {
	if c.PreviewRows == nil {
		return DefaultPreviewRows
	}
	return *c.PreviewRows
}
