package dataset

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/carshare.report/internal/fsutil"
	"github.com/banshee-data/carshare.report/internal/monitoring"
	"github.com/banshee-data/carshare.report/internal/timeutil"
	"github.com/banshee-data/carshare.report/internal/trips"
)

// Snapshot is one cached load: the parsed tables and their enriched join.
// Snapshots are shared between callers and must be treated as read-only.
type Snapshot struct {
	ID       string
	Source   Source
	LoadedAt time.Time
	Tables   *trips.Tables
	Enriched []trips.EnrichedTrip

	stamps []fileStamp
}

// fileStamp identifies the content of a file without reading it.
type fileStamp struct {
	path    string
	size    int64
	modTime time.Time
}

func (s fileStamp) equal(o fileStamp) bool {
	return s.path == o.path && s.size == o.size && s.modTime.Equal(o.modTime)
}

// Cache memoizes Load and Enrich per Source. An entry is reused while every
// file keeps its size and modification time, so a hit costs three Stat calls
// and no reads. Failed loads are not cached.
type Cache struct {
	fsys  fsutil.FileSystem
	clock timeutil.Clock

	mu      sync.Mutex
	entries map[Source]*Snapshot
	loads   int
}

// NewCache creates an empty cache reading through fsys.
func NewCache(fsys fsutil.FileSystem, clock timeutil.Clock) *Cache {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Cache{
		fsys:    fsys,
		clock:   clock,
		entries: make(map[Source]*Snapshot),
	}
}

// Get returns the snapshot for src, loading it when there is no entry or
// when any of the files changed since the entry was loaded.
func (c *Cache) Get(src Source) (*Snapshot, error) {
	stamps, err := c.stat(src)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if snap, ok := c.entries[src]; ok && sameStamps(snap.stamps, stamps) {
		return snap, nil
	}

	tables, err := Load(c.fsys, src)
	if err != nil {
		delete(c.entries, src)
		return nil, err
	}
	c.loads++

	snap := &Snapshot{
		ID:       uuid.NewString(),
		Source:   src,
		LoadedAt: c.clock.Now(),
		Tables:   tables,
		Enriched: trips.Enrich(tables.Trips, tables.Cars, tables.Cities),
		stamps:   stamps,
	}
	c.entries[src] = snap
	monitoring.Logf("[dataset] snapshot %s: %d enriched trips", snap.ID, len(snap.Enriched))
	return snap, nil
}

// Invalidate drops the entry for src so the next Get reloads it.
func (c *Cache) Invalidate(src Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, src)
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Source]*Snapshot)
}

// Loads reports how many times files have been loaded from storage.
func (c *Cache) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

func (c *Cache) stat(src Source) ([]fileStamp, error) {
	paths := src.Paths()
	stamps := make([]fileStamp, 0, len(paths))
	for _, p := range paths {
		info, err := c.fsys.Stat(p)
		if err != nil {
			return nil, &LoadError{Path: p, Err: err}
		}
		if info.IsDir() {
			return nil, &LoadError{Path: p, Err: fmt.Errorf("is a directory")}
		}
		stamps = append(stamps, fileStamp{path: p, size: info.Size(), modTime: info.ModTime()})
	}
	return stamps, nil
}

func sameStamps(a, b []fileStamp) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].equal(b[i]) {
			return false
		}
	}
	return true
}
