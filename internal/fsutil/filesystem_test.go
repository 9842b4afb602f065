package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_OpenAndStat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cars.csv")
	if err := os.WriteFile(path, []byte("id,brand,model\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	var osfs FileSystem = OSFileSystem{}
	f, err := osfs.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "id,brand,model\n" {
		t.Errorf("unexpected content %q", data)
	}

	info, err := osfs.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != int64(len(data)) {
		t.Errorf("expected size %d, got %d", len(data), info.Size())
	}

	if _, err := osfs.Stat(filepath.Join(dir, "missing.csv")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_WriteCopiesData(t *testing.T) {
	mfs := NewMemoryFileSystem()

	buf := []byte("hello, world")
	if err := mfs.WriteFile("/test.txt", buf, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	buf[0] = 'J'

	f, err := mfs.Open("/test.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	data, _ := io.ReadAll(f)
	if string(data) != "hello, world" {
		t.Errorf("expected stored copy to be unchanged, got %q", data)
	}
}

func TestMemoryFileSystem_Open(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.WriteFile("/opentest.txt", []byte("open me"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	f, err := mfs.Open("/opentest.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	if string(data) != "open me" {
		t.Errorf("expected 'open me', got %q", data)
	}
	if got := mfs.Reads("/opentest.txt"); got != 1 {
		t.Errorf("expected 1 read, got %d", got)
	}
}

func TestMemoryFileSystem_OpenNonExistent(t *testing.T) {
	mfs := NewMemoryFileSystem()

	_, err := mfs.Open("/nonexistent.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_StatTracksWrites(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.WriteFile("/stattest.txt", []byte("stat content"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	first, err := mfs.Stat("/stattest.txt")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if first.Name() != "stattest.txt" {
		t.Errorf("expected name 'stattest.txt', got %q", first.Name())
	}
	if first.Size() != int64(len("stat content")) {
		t.Errorf("expected size %d, got %d", len("stat content"), first.Size())
	}
	if first.IsDir() {
		t.Error("expected file, not directory")
	}
	if mfs.Reads("/stattest.txt") != 0 {
		t.Error("Stat must not count as a read")
	}

	if err := mfs.WriteFile("/stattest.txt", []byte("stat content"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	second, err := mfs.Stat("/stattest.txt")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if !second.ModTime().After(first.ModTime()) {
		t.Errorf("expected modtime to advance, got %v then %v", first.ModTime(), second.ModTime())
	}
}

func TestMemoryFileSystem_Remove(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.WriteFile("/removeme.txt", []byte("delete"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := mfs.Remove("/removeme.txt"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := mfs.Stat("/removeme.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected file to be gone after removal, got %v", err)
	}
	if err := mfs.Remove("/removeme.txt"); err == nil {
		t.Error("expected error removing a missing file")
	}
}

func TestMemoryFileSystem_CleansPaths(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.WriteFile("/data/./trips.csv", []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := mfs.Stat("/data/trips.csv"); err != nil {
		t.Errorf("expected cleaned path to exist: %v", err)
	}
}
