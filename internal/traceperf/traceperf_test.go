package traceperf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeDB(t *testing.T, dir, name string, db map[string]map[string]float64) {
	t.Helper()
	raw, err := yaml.Marshal(db)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), raw, 0o644))
}

func TestCompareFlagsRegressions(t *testing.T) {
	dir := t.TempDir()
	writeDB(t, dir, "default.yaml", map[string]map[string]float64{
		"shared/contention": {
			"w=10":  0.010, // 10ms budget
			"w=100": 0.010,
		},
	})

	l := New()
	l.Log("shared/contention", "w=10", 5*time.Millisecond)   // within budget
	l.Log("shared/contention", "w=100", 25*time.Millisecond) // regression
	l.Log("shared/contention", "w=unknown", time.Hour)       // no expectation: ignored
	l.Log("other/id", "x", time.Hour)                        // no expectation: ignored

	regressions, err := l.Compare(dir)
	require.NoError(t, err)
	require.Len(t, regressions, 1)

	r := regressions[0]
	assert.Equal(t, "shared/contention", r.ID)
	assert.Equal(t, "w=100", r.Info)
	assert.Equal(t, 10*time.Millisecond, r.Expected)
	assert.Equal(t, 25*time.Millisecond, r.Observed)
	assert.Contains(t, r.String(), "observed")
}

func TestHostDatabaseWinsOverDefault(t *testing.T) {
	dir := t.TempDir()
	host, err := os.Hostname()
	require.NoError(t, err)

	// The host database is generous; the default would flag everything.
	writeDB(t, dir, host+".yaml", map[string]map[string]float64{
		"id": {"case": 10.0},
	})
	writeDB(t, dir, "default.yaml", map[string]map[string]float64{
		"id": {"case": 0.000001},
	})

	l := New()
	l.Log("id", "case", time.Second)

	regressions, err := l.Compare(dir)
	require.NoError(t, err)
	assert.Empty(t, regressions, "the host-specific budget should apply")
}

func TestCompareWithoutDatabase(t *testing.T) {
	l := New()
	l.Log("id", "case", time.Second)

	regressions, err := l.Compare(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, regressions)
}

func TestDumpRoundTrips(t *testing.T) {
	l := New()
	l.Log("id", "fast", 2*time.Millisecond)
	l.Log("id", "fast", 4*time.Millisecond) // slowest observation wins
	l.Log("id", "slow", time.Second)

	var buf bytes.Buffer
	require.NoError(t, l.Dump(&buf))

	var db map[string]map[string]float64
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &db))
	assert.InDelta(t, 0.004, db["id"]["fast"], 1e-9)
	assert.InDelta(t, 1.0, db["id"]["slow"], 1e-9)
}

func TestCompareRejectsMalformedDatabase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.yaml"), []byte("{not yaml"), 0o644))

	l := New()
	l.Log("id", "case", time.Second)

	_, err := l.Compare(dir)
	require.Error(t, err)
}
