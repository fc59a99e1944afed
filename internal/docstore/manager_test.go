package docstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"launcher/internal/docstore"
	"launcher/internal/logging"
)

type counterDoc struct {
	Version int      `json:"version"`
	Count   int      `json:"count"`
	Labels  []string `json:"labels"`
	Mode    string   `json:"mode"`
}

func defaultCounter() counterDoc {
	return counterDoc{Version: 1, Mode: "default"}
}

func (d counterDoc) Clone() counterDoc {
	d.Labels = append([]string(nil), d.Labels...)
	return d
}

// Normalize migrates version 0 documents.
func (d *counterDoc) Normalize() bool {
	if d.Version == 0 {
		d.Version = 1
		return true
	}
	return false
}

func newManager(t *testing.T, path string) (*docstore.Manager[counterDoc], *docstore.Metrics) {
	t.Helper()
	metrics := docstore.NewMetrics(prometheus.NewRegistry())
	m := docstore.New("counter", path, defaultCounter,
		docstore.WithLogger(logging.NewNop()),
		docstore.WithMetrics(metrics))
	return m, metrics
}

func persists(m *docstore.Metrics, result string) float64 {
	return testutil.ToFloat64(m.Persists.WithLabelValues("counter", result))
}

func TestNewPerformsNoIO(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "counter.json")
	m, _ := newManager(t, path)
	if _, err := os.Stat(filepath.Dir(path)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no directory before Load, stat err=%v", err)
	}
	if got := m.Snapshot(); got.Mode != "default" {
		t.Fatalf("expected defaults before load, got %+v", got)
	}
}

func TestLoadAbsentFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "counter.json")
	m, metrics := newManager(t, path)

	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to be created: %v", err)
	}
	if got := testutil.ToFloat64(metrics.Loads.WithLabelValues("counter", docstore.LoadCreated)); got != 1 {
		t.Fatalf("created loads = %v, want 1", got)
	}

	again, _ := newManager(t, path)
	if err := again.Load(); err != nil {
		t.Fatalf("second manager Load: %v", err)
	}
	if got := again.Snapshot(); got.Mode != "default" || got.Version != 1 {
		t.Fatalf("unexpected document after reload: %+v", got)
	}
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.json")
	m, _ := newManager(t, path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	changed, err := m.Mutate(func(d *counterDoc) (bool, error) {
		d.Count = 7
		d.Labels = append(d.Labels, "a", "b")
		return true, nil
	})
	if err != nil || !changed {
		t.Fatalf("Mutate = (%v, %v)", changed, err)
	}

	reloaded, _ := newManager(t, path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := reloaded.Snapshot()
	if got.Count != 7 || len(got.Labels) != 2 || got.Labels[1] != "b" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLoadFillsMissingFieldsWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.json")
	if err := os.WriteFile(path, []byte(`{"version":1,"count":3}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, _ := newManager(t, path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := m.Snapshot()
	if got.Count != 3 || got.Mode != "default" {
		t.Fatalf("expected decoded count and default mode, got %+v", got)
	}
}

func TestLoadRecoversFromCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, metrics := newManager(t, path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load should self-heal, got %v", err)
	}
	if got := m.Snapshot(); got.Mode != "default" {
		t.Fatalf("expected defaults after corruption, got %+v", got)
	}
	if got := testutil.ToFloat64(metrics.Loads.WithLabelValues("counter", docstore.LoadRecovered)); got != 1 {
		t.Fatalf("recovered loads = %v, want 1", got)
	}

	again, againMetrics := newManager(t, path)
	if err := again.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := testutil.ToFloat64(againMetrics.Loads.WithLabelValues("counter", docstore.LoadLoaded)); got != 1 {
		t.Fatalf("expected rewritten file to decode cleanly, loaded = %v", got)
	}
}

func TestLoadReplacesNonObjectPayloads(t *testing.T) {
	cases := map[string]string{
		"null":   "null",
		"padded": " \n null \n",
		"empty":  "",
		"array":  `[{"count":3}]`,
		"number": "42",
		"string": `"counter"`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "counter.json")
			if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			m, metrics := newManager(t, path)
			if err := m.Load(); err != nil {
				t.Fatalf("Load should self-heal, got %v", err)
			}
			if got := m.Snapshot(); got.Mode != "default" || got.Count != 0 {
				t.Fatalf("expected defaults, got %+v", got)
			}
			if got := testutil.ToFloat64(metrics.Loads.WithLabelValues("counter", docstore.LoadRecovered)); got != 1 {
				t.Fatalf("recovered loads = %v, want 1", got)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read back: %v", err)
			}
			var onDisk counterDoc
			if err := json.Unmarshal(data, &onDisk); err != nil || onDisk.Mode != "default" {
				t.Fatalf("expected defaults on disk, got %q (err %v)", data, err)
			}
		})
	}
}

func TestLoadNormalizesAndRewrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.json")
	if err := os.WriteFile(path, []byte(`{"version":0,"count":2}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, metrics := newManager(t, path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Snapshot(); got.Version != 1 || got.Count != 2 {
		t.Fatalf("expected migrated document, got %+v", got)
	}
	if got := persists(metrics, "ok"); got != 1 {
		t.Fatalf("expected migration to persist once, got %v", got)
	}
}

func TestLoadIsOneShot(t *testing.T) {
	m, _ := newManager(t, filepath.Join(t.TempDir(), "counter.json"))
	if err := m.OnReady(context.Background(), nil); err != nil {
		t.Fatalf("OnReady: %v", err)
	}
	if !m.Loaded() {
		t.Fatal("expected Loaded after OnReady")
	}
	if err := m.Load(); !errors.Is(err, docstore.ErrAlreadyLoaded) {
		t.Fatalf("second Load error = %v, want ErrAlreadyLoaded", err)
	}
}

func TestMutateWithoutChangeSkipsPersist(t *testing.T) {
	m, metrics := newManager(t, filepath.Join(t.TempDir(), "counter.json"))
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	before := persists(metrics, "ok")

	changed, err := m.Mutate(func(d *counterDoc) (bool, error) { return false, nil })
	if err != nil || changed {
		t.Fatalf("Mutate = (%v, %v)", changed, err)
	}
	if got := persists(metrics, "ok"); got != before {
		t.Fatalf("persist count changed from %v to %v", before, got)
	}
	if got := testutil.ToFloat64(metrics.SkippedMutations.WithLabelValues("counter")); got != 1 {
		t.Fatalf("skipped = %v, want 1", got)
	}
}

func TestMutateErrorDiscardsDraft(t *testing.T) {
	m, _ := newManager(t, filepath.Join(t.TempDir(), "counter.json"))
	boom := errors.New("rejected")
	_, err := m.Mutate(func(d *counterDoc) (bool, error) {
		d.Count = 99
		d.Labels = append(d.Labels, "x")
		return true, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if got := m.Snapshot(); got.Count != 0 || len(got.Labels) != 0 {
		t.Fatalf("expected untouched document, got %+v", got)
	}
}

func TestPersistFailureKeepsMemory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("file"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	m, metrics := newManager(t, filepath.Join(blocker, "counter.json"))

	changed, err := m.Mutate(func(d *counterDoc) (bool, error) {
		d.Count = 5
		return true, nil
	})
	if err == nil {
		t.Fatal("expected persist error when parent is a file")
	}
	if !changed {
		t.Fatal("expected changed=true even when persist fails")
	}
	if got := m.Snapshot(); got.Count != 5 {
		t.Fatalf("expected in-memory value to survive, got %+v", got)
	}
	if got := persists(metrics, "error"); got != 1 {
		t.Fatalf("error persists = %v, want 1", got)
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	m, _ := newManager(t, filepath.Join(t.TempDir(), "counter.json"))
	if _, err := m.Mutate(func(d *counterDoc) (bool, error) {
		d.Labels = []string{"keep"}
		return true, nil
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	snap := m.Snapshot()
	snap.Labels[0] = "mutated"

	m.Read(func(d *counterDoc) {
		if d.Labels[0] != "keep" {
			t.Fatalf("snapshot aliased document: %v", d.Labels)
		}
	})
	n := docstore.Query(m, func(d *counterDoc) int { return len(d.Labels) })
	if n != 1 {
		t.Fatalf("Query = %d, want 1", n)
	}
}

func TestConcurrentMutationsAreSerialised(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.json")
	m, _ := newManager(t, path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	const workers = 32
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Mutate(func(d *counterDoc) (bool, error) {
				d.Count++
				d.Labels = append(d.Labels, fmt.Sprintf("w%d", i))
				return true, nil
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Mutate: %v", err)
		}
	}

	if got := m.Snapshot(); got.Count != workers || len(got.Labels) != workers {
		t.Fatalf("lost updates: %+v", got)
	}

	reloaded, _ := newManager(t, path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.Snapshot(); got.Count != workers {
		t.Fatalf("file count = %d, want %d", got.Count, workers)
	}
}

func TestWithFileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.json")
	m := docstore.New("counter", path, defaultCounter,
		docstore.WithLogger(slog.New(logging.NoopHandler{})),
		docstore.WithFileMode(0o600))
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}
}
