package security

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveDataFile(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "trips.csv", want: filepath.Join("/data", "trips.csv")},
		{name: "Cars.CSV", want: filepath.Join("/data", "Cars.CSV")},
		{name: "", wantErr: true},
		{name: "..", wantErr: true},
		{name: "../etc/passwd", wantErr: true},
		{name: "sub/trips.csv", wantErr: true},
		{name: `..\trips.csv`, wantErr: true},
		{name: "/etc/passwd", wantErr: true},
		{name: "notes.txt", wantErr: true},
		{name: "trips.csv\x00.txt", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDataFile("/data", tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsafeName) {
					t.Fatalf("expected ErrUnsafeName, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	safeDir := filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	for _, d := range []string{safeDir, unsafeDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
	}
	if err := os.Symlink(unsafeDir, filepath.Join(safeDir, "evil-symlink")); err != nil {
		t.Fatalf("Symlink failed: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		wantError bool
	}{
		{"report in dir", filepath.Join(safeDir, "revenue_by_date.png"), false},
		{"nested new dir", filepath.Join(safeDir, "acme", "trips_by_date.png"), false},
		{"dot dot escape", filepath.Join(safeDir, "..", "unsafe", "x.png"), true},
		{"sibling dir", filepath.Join(unsafeDir, "x.png"), true},
		{"symlink escape", filepath.Join(safeDir, "evil-symlink", "x.png"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, safeDir)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory(%q) error = %v, wantError %v", tt.filePath, err, tt.wantError)
			}
		})
	}
}

func TestValidatePathWithinDirectory_MissingSafeDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	if err := ValidatePathWithinDirectory(filepath.Join(missing, "a.png"), missing); err == nil {
		t.Error("expected error for a safe directory that does not exist")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Acme", "Acme"},
		{"Mercedes-Benz", "Mercedes-Benz"},
		{"Acme, Zoom", "Acme_Zoom"},
		{"../../etc", "etc"},
		{"Škoda", "koda"},
		{"", "unknown"},
		{"///", "unknown"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := SanitizeFilename(strings.Repeat("a", 300))
	if len(long) != 128 {
		t.Errorf("expected length 128, got %d", len(long))
	}
}
