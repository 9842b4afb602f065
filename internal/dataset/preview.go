package dataset

import (
	"github.com/banshee-data/carshare.report/internal/fsutil"
)

// PreviewTable is the head of a CSV file, kept as raw strings.
type PreviewTable struct {
	Path      string     `json:"path"`
	Header    []string   `json:"header"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"total_rows"`
}

// Preview reads a CSV file and returns its header and first n rows.
// Unlike Load it applies no schema, so it works on any CSV export.
func Preview(fsys fsutil.FileSystem, path string, n int) (*PreviewTable, error) {
	if n < 0 {
		n = 0
	}
	f, err := fsys.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	header, records, _, err := readCSV(f)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	head := records
	if len(head) > n {
		head = head[:n]
	}
	if head == nil {
		head = [][]string{}
	}
	return &PreviewTable{
		Path:      path,
		Header:    header,
		Rows:      head,
		TotalRows: len(records),
	}, nil
}
