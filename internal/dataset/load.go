// Package dataset reads the trips, cars and cities CSV files into typed
// records and caches the joined result per source-file identity.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/carshare.report/internal/fsutil"
	"github.com/banshee-data/carshare.report/internal/monitoring"
	"github.com/banshee-data/carshare.report/internal/trips"
)

// Default file names inside a data directory.
const (
	TripsFile  = "trips.csv"
	CarsFile   = "cars.csv"
	CitiesFile = "cities.csv"
)

var (
	ErrNoHeader      = errors.New("missing header row")
	ErrMissingColumn = errors.New("required column missing")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrEmptyKey      = errors.New("empty identifier")
)

// Source names the three files that make up one dataset.
type Source struct {
	TripsPath  string `json:"trips_path"`
	CarsPath   string `json:"cars_path"`
	CitiesPath string `json:"cities_path"`
}

// DefaultSource returns the conventional file layout inside dir.
func DefaultSource(dir string) Source {
	return Source{
		TripsPath:  filepath.Join(dir, TripsFile),
		CarsPath:   filepath.Join(dir, CarsFile),
		CitiesPath: filepath.Join(dir, CitiesFile),
	}
}

// Paths lists the source files in load order.
func (s Source) Paths() []string {
	return []string{s.TripsPath, s.CarsPath, s.CitiesPath}
}

// LoadError reports a file that is missing, unreadable or does not match
// its schema. Line is 0 when the failure is not tied to a row.
type LoadError struct {
	Path   string
	Line   int
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "load %s", e.Path)
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads and parses all three files of src.
func Load(fsys fsutil.FileSystem, src Source) (*trips.Tables, error) {
	tripRows, err := LoadTrips(fsys, src.TripsPath)
	if err != nil {
		return nil, err
	}
	cars, err := LoadCars(fsys, src.CarsPath)
	if err != nil {
		return nil, err
	}
	cities, err := LoadCities(fsys, src.CitiesPath)
	if err != nil {
		return nil, err
	}

	monitoring.Logf("[dataset] loaded %d trips, %d cars, %d cities", len(tripRows), len(cars), len(cities))
	return &trips.Tables{Trips: tripRows, Cars: cars, Cities: cities}, nil
}

var (
	tripColumns = columns{
		required: []string{"id", "car_id", "customer_id", "pickup_time", "dropoff_time", "distance", "revenue"},
		optional: []string{"city_id"},
	}
	carColumns = columns{
		required: []string{"id", "brand", "model"},
		optional: []string{"city_id"},
	}
	cityColumns = columns{
		required: []string{"city_id", "city_name"},
	}
)

// LoadTrips parses a trips file.
func LoadTrips(fsys fsutil.FileSystem, path string) ([]trips.Trip, error) {
	tbl, err := readTable(fsys, path, tripColumns)
	if err != nil {
		return nil, err
	}

	out := make([]trips.Trip, 0, len(tbl.rows))
	for _, r := range tbl.rows {
		t := trips.Trip{
			ID:          r.requiredInt("id"),
			CarID:       r.integer("car_id"),
			CustomerID:  r.integer("customer_id"),
			CityID:      r.integer("city_id"),
			PickupTime:  r.timestamp("pickup_time"),
			DropoffTime: r.timestamp("dropoff_time"),
			Distance:    r.number("distance"),
			Revenue:     r.number("revenue"),
			Attributes:  r.attributes(),
		}
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, t)
	}
	return out, nil
}

// LoadCars parses a cars file. Car ids must be unique.
func LoadCars(fsys fsutil.FileSystem, path string) ([]trips.Car, error) {
	tbl, err := readTable(fsys, path, carColumns)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]int, len(tbl.rows))
	out := make([]trips.Car, 0, len(tbl.rows))
	for _, r := range tbl.rows {
		c := trips.Car{
			ID:         r.requiredInt("id"),
			Brand:      r.text("brand"),
			Model:      r.text("model"),
			CityID:     r.integer("city_id"),
			Attributes: r.attributes(),
		}
		if r.err != nil {
			return nil, r.err
		}
		if first, dup := seen[c.ID]; dup {
			return nil, r.fail("id", fmt.Errorf("%w: car %d already defined on line %d", ErrDuplicateKey, c.ID, first))
		}
		seen[c.ID] = r.line
		out = append(out, c)
	}
	return out, nil
}

// LoadCities parses a cities file. City ids must be unique.
func LoadCities(fsys fsutil.FileSystem, path string) ([]trips.City, error) {
	tbl, err := readTable(fsys, path, cityColumns)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]int, len(tbl.rows))
	out := make([]trips.City, 0, len(tbl.rows))
	for _, r := range tbl.rows {
		c := trips.City{
			CityID:     r.requiredInt("city_id"),
			CityName:   r.text("city_name"),
			Attributes: r.attributes(),
		}
		if r.err != nil {
			return nil, r.err
		}
		if first, dup := seen[c.CityID]; dup {
			return nil, r.fail("city_id", fmt.Errorf("%w: city %d already defined on line %d", ErrDuplicateKey, c.CityID, first))
		}
		seen[c.CityID] = r.line
		out = append(out, c)
	}
	return out, nil
}

type columns struct {
	required []string
	optional []string
}

func (c columns) known(name string) bool {
	for _, k := range c.required {
		if k == name {
			return true
		}
	}
	for _, k := range c.optional {
		if k == name {
			return true
		}
	}
	return false
}

type table struct {
	path   string
	header []string
	index  map[string]int
	cols   columns
	rows   []*row
}

// readTable reads a whole CSV file and checks its header against cols.
func readTable(fsys fsutil.FileSystem, path string, cols columns) (*table, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	header, records, lines, err := readCSV(f)
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, &LoadError{Path: path, Line: pe.Line, Err: pe.Err}
		}
		return nil, &LoadError{Path: path, Err: err}
	}

	tbl := &table{path: path, header: header, index: make(map[string]int, len(header)), cols: cols}
	for i, name := range header {
		if _, dup := tbl.index[name]; dup {
			return nil, &LoadError{Path: path, Line: 1, Column: name, Err: errors.New("duplicate column")}
		}
		tbl.index[name] = i
	}
	for _, name := range cols.required {
		if _, ok := tbl.index[name]; !ok {
			return nil, &LoadError{Path: path, Line: 1, Column: name, Err: ErrMissingColumn}
		}
	}

	tbl.rows = make([]*row, len(records))
	for i, rec := range records {
		tbl.rows[i] = &row{tbl: tbl, rec: rec, line: lines[i]}
	}
	return tbl, nil
}

// readCSV returns the trimmed header, the data records and the line each
// record starts on. Every record must have as many fields as the header.
func readCSV(r io.Reader) ([]string, [][]string, []int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil, ErrNoHeader
	}
	if err != nil {
		return nil, nil, nil, err
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = h
	}

	var records [][]string
	var lines []int
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, nil, err
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return header, records, lines, nil
}

// row reads typed cells. The first parse failure is kept in err and later
// accessors become no-ops.
type row struct {
	tbl  *table
	rec  []string
	line int
	err  error
}

func (r *row) fail(col string, err error) error {
	if r.err == nil {
		r.err = &LoadError{Path: r.tbl.path, Line: r.line, Column: col, Err: err}
	}
	return r.err
}

// nullTokens are the cell values read as missing, the same set pandas
// read_csv treats as NA by default.
var nullTokens = map[string]bool{
	"#N/A": true, "#N/A N/A": true, "#NA": true,
	"-1.#IND": true, "-1.#QNAN": true, "-NaN": true, "-nan": true,
	"1.#IND": true, "1.#QNAN": true, "<NA>": true,
	"N/A": true, "NA": true, "NULL": true, "NaN": true, "None": true,
	"n/a": true, "nan": true, "null": true,
}

// IsNull reports whether a trimmed cell value stands for a missing value.
func IsNull(v string) bool {
	return v == "" || nullTokens[v]
}

// cell returns the trimmed value of col and whether it holds a value.
func (r *row) cell(col string) (string, bool) {
	i, ok := r.tbl.index[col]
	if !ok || r.err != nil {
		return "", false
	}
	v := strings.TrimSpace(r.rec[i])
	return v, !IsNull(v)
}

func (r *row) text(col string) *string {
	v, ok := r.cell(col)
	if !ok {
		return nil
	}
	return &v
}

func (r *row) integer(col string) *int64 {
	v, ok := r.cell(col)
	if !ok {
		return nil
	}
	n, err := parseInt(v)
	if err != nil {
		r.fail(col, err)
		return nil
	}
	return &n
}

func (r *row) requiredInt(col string) int64 {
	if _, ok := r.cell(col); !ok {
		if r.err == nil {
			r.fail(col, ErrEmptyKey)
		}
		return 0
	}
	n := r.integer(col)
	if n == nil {
		return 0
	}
	return *n
}

func (r *row) number(col string) *float64 {
	v, ok := r.cell(col)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		r.fail(col, fmt.Errorf("invalid number %q", v))
		return nil
	}
	return &f
}

func (r *row) timestamp(col string) *time.Time {
	v, ok := r.cell(col)
	if !ok {
		return nil
	}
	t, err := ParseTimestamp(v)
	if err != nil {
		r.fail(col, err)
		return nil
	}
	return &t
}

// attributes collects the cells of columns outside the table's schema.
func (r *row) attributes() map[string]string {
	var attrs map[string]string
	for i, name := range r.tbl.header {
		if r.tbl.cols.known(name) {
			continue
		}
		if attrs == nil {
			attrs = make(map[string]string)
		}
		attrs[name] = strings.TrimSpace(r.rec[i])
	}
	return attrs
}

// parseInt accepts integers and integral floats such as "10.0", which
// spreadsheet exports write for id columns that contain blanks.
func parseInt(v string) (int64, error) {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return int64(f), nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05Z07:00",
	trips.DateLayout,
}

// ParseTimestamp parses the timestamp layouts found in trip exports. Values
// without an offset are kept as wall-clock times in UTC.
func ParseTimestamp(v string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", v)
}
