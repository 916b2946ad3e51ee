// Package traceperf keeps a ledger of measured durations and compares
// them against per-host expectation databases.
//
// Benchmark-style tests log (id, info, elapsed) triples; at the end of a
// run the ledger is compared against the expectations for this host,
// read from <dbdir>/<hostname>.yaml with <dbdir>/default.yaml as
// fallback. Measurements with no expectation are ignored, and a ledger
// dump can be written out as the skeleton for a new host database.
//
// Database format (durations in seconds):
//
//	shared/contention:
//	    "w=10 M=100": 0.0021
//	    "w=100 M=100": 0.0023
package traceperf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Entry is one logged measurement.
type Entry struct {
	Info    string
	Elapsed time.Duration
}

// Regression is a measurement that exceeded its expectation.
type Regression struct {
	ID       string
	Info     string
	Expected time.Duration
	Observed time.Duration
}

func (r Regression) String() string {
	return fmt.Sprintf("%s [%s]: observed %v, expected <= %v", r.ID, r.Info, r.Observed, r.Expected)
}

// Ledger accumulates measurements. The zero value is not usable; call
// New. All methods are safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	entries map[string][]Entry
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{entries: map[string][]Entry{}}
}

// Log records one measurement under id.
func (l *Ledger) Log(id, info string, elapsed time.Duration) {
	l.mu.Lock()
	l.entries[id] = append(l.entries[id], Entry{Info: info, Elapsed: elapsed})
	l.mu.Unlock()
}

// Compare checks every logged measurement against the expectation
// database for this host under dbdir and returns the regressions. A
// missing database is not an error: there is simply nothing to compare
// against, and the caller should Dump a skeleton instead.
func (l *Ledger) Compare(dbdir string) ([]Regression, error) {
	db, err := loadDB(dbdir)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var regressions []Regression
	for id, entries := range l.entries {
		expectations, ok := db[id]
		if !ok {
			continue
		}
		for _, e := range entries {
			seconds, ok := expectations[e.Info]
			if !ok {
				continue
			}
			expected := time.Duration(seconds * float64(time.Second))
			if e.Elapsed > expected {
				regressions = append(regressions, Regression{
					ID:       id,
					Info:     e.Info,
					Expected: expected,
					Observed: e.Elapsed,
				})
			}
		}
	}
	sort.Slice(regressions, func(i, j int) bool {
		if regressions[i].ID != regressions[j].ID {
			return regressions[i].ID < regressions[j].ID
		}
		return regressions[i].Info < regressions[j].Info
	})
	return regressions, nil
}

// Dump writes the ledger in database format, usable as the starting
// point for a new host's expectation file. Repeated measurements of the
// same (id, info) keep the slowest observation.
func (l *Ledger) Dump(w io.Writer) error {
	l.mu.Lock()
	out := make(map[string]map[string]float64, len(l.entries))
	for id, entries := range l.entries {
		m := map[string]float64{}
		for _, e := range entries {
			s := e.Elapsed.Seconds()
			if s > m[e.Info] {
				m[e.Info] = s
			}
		}
		out[id] = m
	}
	l.mu.Unlock()

	return yaml.NewEncoder(w).Encode(out)
}

// loadDB reads the expectation database for this host, falling back to
// default.yaml. Returns nil with no error when neither file exists.
func loadDB(dbdir string) (map[string]map[string]float64, error) {
	candidates := []string{"default.yaml"}
	if host, err := os.Hostname(); err == nil {
		candidates = []string{host + ".yaml", "default.yaml"}
	}

	for _, name := range candidates {
		raw, err := os.ReadFile(filepath.Join(dbdir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var db map[string]map[string]float64
		if err := yaml.Unmarshal(raw, &db); err != nil {
			return nil, fmt.Errorf("traceperf: parsing %s: %w", name, err)
		}
		return db, nil
	}
	return nil, nil
}
