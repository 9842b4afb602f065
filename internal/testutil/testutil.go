// Package testutil provides shared test utilities and fixtures.
//
// The fixture dataset is small enough to check by hand:
//
//	trip 4 references car 999, which does not exist
//	trip 5 has no distance
//	revenue by model: X=45, Z1=35, Y=15; total distance 27
package testutil

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/banshee-data/carshare.report/internal/fsutil"
)

// TripsCSV is the fixture trips file.
const TripsCSV = `id,car_id,customer_id,city_id,pickup_time,dropoff_time,distance,revenue
1,10,500,100,2024-01-01 10:00:00,2024-01-01 10:30:00,5,20
2,11,501,101,2024-01-01 12:00:00,2024-01-01 12:45:00,12,35
3,10,502,101,2024-01-02 08:15:00,2024-01-02 09:00:00,7,25
4,999,503,100,2024-01-02 18:00:00,2024-01-02 18:20:00,3,9
5,12,504,100,2024-01-03 09:00:00,2024-01-03 09:40:00,,15
`

// CarsCSV is the fixture cars file. The year column is outside the schema.
const CarsCSV = `id,brand,model,year
10,Acme,X,2021
11,Zoom,Z1,2022
12,Acme,Y,2020
`

// CitiesCSV is the fixture cities file.
const CitiesCSV = `city_id,city_name
100,Metropolis
101,Gotham
`

// WriteDataset stores the three fixture files under dir in mfs.
func WriteDataset(t *testing.T, mfs *fsutil.MemoryFileSystem, dir string) {
	t.Helper()
	files := map[string]string{
		"trips.csv":  TripsCSV,
		"cars.csv":   CarsCSV,
		"cities.csv": CitiesCSV,
	}
	for name, content := range files {
		if err := mfs.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write fixture %s: %v", name, err)
		}
	}
}

// NewDatasetFS returns a memory filesystem holding the fixture dataset in dir.
func NewDatasetFS(t *testing.T, dir string) *fsutil.MemoryFileSystem {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	WriteDataset(t, mfs, dir)
	return mfs
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}
