package capes_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"launcher/internal/capes"
	"launcher/internal/docstore"
	"launcher/internal/logging"
)

var epoch = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

type fixture struct {
	path    string
	clock   *clockwork.FakeClock
	metrics *docstore.Metrics
	mgr     *capes.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureAt(t, filepath.Join(t.TempDir(), capes.FileName))
}

func newFixtureAt(t *testing.T, path string) *fixture {
	t.Helper()
	f := &fixture{
		path:    path,
		clock:   clockwork.NewFakeClockAt(epoch),
		metrics: docstore.NewMetrics(prometheus.NewRegistry()),
	}
	f.mgr = capes.New(path,
		capes.WithLogger(logging.NewNop()),
		capes.WithMetrics(f.metrics),
		capes.WithClock(f.clock))
	if err := f.mgr.OnReady(context.Background(), nil); err != nil {
		t.Fatalf("OnReady: %v", err)
	}
	return f
}

func (f *fixture) persists() float64 {
	return testutil.ToFloat64(f.metrics.Persists.WithLabelValues("saved_capes", "ok"))
}

func TestLoadAbsentFileCreatesEmptyCatalog(t *testing.T) {
	f := newFixture(t)
	if f.mgr.Count() != 0 {
		t.Fatalf("expected empty catalog, got %d", f.mgr.Count())
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if want := "{\n  \"capes\": []\n}"; string(data) != want {
		t.Fatalf("file = %q, want %q", data, want)
	}
}

func TestSaveStampsClockAndUpserts(t *testing.T) {
	f := newFixture(t)

	saved, err := f.mgr.Save("abc123", "Founder", false, []string{"event", "event", "rare"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !saved.AddedAt.Equal(epoch) {
		t.Fatalf("added_at = %v, want %v", saved.AddedAt, epoch)
	}
	if !slices.Equal(saved.Tags, []string{"event", "rare"}) {
		t.Fatalf("tags = %v", saved.Tags)
	}

	if _, err := f.mgr.Save("def456", "Migrator", true, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	f.clock.Advance(time.Hour)
	if _, err := f.mgr.Save("abc123", "Founder v2", true, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	all := f.mgr.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 capes after upsert, got %d", len(all))
	}
	if all[0].ID != "abc123" || all[0].Name != "Founder v2" || !all[0].Favorite {
		t.Fatalf("expected in-place replacement, got %+v", all[0])
	}
	if !all[0].AddedAt.Equal(epoch.Add(time.Hour)) {
		t.Fatalf("expected replaced record timestamp, got %v", all[0].AddedAt)
	}
}

func TestAddRejectsEmptyID(t *testing.T) {
	f := newFixture(t)
	if err := f.mgr.Add(capes.SavedCape{ID: "  "}); err == nil {
		t.Fatal("expected error for blank id")
	}
}

func TestRoundTripAcrossManagers(t *testing.T) {
	f := newFixture(t)
	if _, err := f.mgr.Save("abc", "Cape", true, []string{"a"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	g := newFixtureAt(t, f.path)
	got, ok := g.mgr.ByID("abc")
	if !ok {
		t.Fatal("expected cape after reload")
	}
	if got.Name != "Cape" || !got.Favorite || !got.AddedAt.Equal(epoch) || !slices.Equal(got.Tags, []string{"a"}) {
		t.Fatalf("unexpected reloaded cape: %+v", got)
	}
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	if _, err := f.mgr.Save("abc", "Cape", false, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	before := f.persists()

	removed, err := f.mgr.Remove("missing")
	if err != nil || removed {
		t.Fatalf("Remove(missing) = (%v, %v)", removed, err)
	}
	if f.persists() != before {
		t.Fatal("removing a missing cape should not write")
	}

	removed, err = f.mgr.Remove("abc")
	if err != nil || !removed {
		t.Fatalf("Remove = (%v, %v)", removed, err)
	}
	if _, ok := f.mgr.ByID("abc"); ok {
		t.Fatal("cape still present after Remove")
	}
}

func TestTagOperationsAreIdempotent(t *testing.T) {
	f := newFixture(t)
	if _, err := f.mgr.Save("abc", "Cape", false, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cape, found, err := f.mgr.AddTag("abc", "event")
	if err != nil || !found || !slices.Equal(cape.Tags, []string{"event"}) {
		t.Fatalf("AddTag = (%+v, %v, %v)", cape, found, err)
	}
	writes := f.persists()

	cape, found, err = f.mgr.AddTag("abc", "event")
	if err != nil || !found || len(cape.Tags) != 1 {
		t.Fatalf("second AddTag = (%+v, %v, %v)", cape, found, err)
	}
	if f.persists() != writes {
		t.Fatal("adding an existing tag should not write")
	}

	if _, found, _ := f.mgr.RemoveTag("abc", "absent"); !found {
		t.Fatal("expected cape to be found")
	}
	if f.persists() != writes {
		t.Fatal("removing an absent tag should not write")
	}

	cape, _, err = f.mgr.RemoveTag("abc", "event")
	if err != nil || len(cape.Tags) != 0 {
		t.Fatalf("RemoveTag = (%+v, %v)", cape, err)
	}

	if _, found, err := f.mgr.AddTag("missing", "x"); found || err != nil {
		t.Fatalf("AddTag(missing) = (%v, %v)", found, err)
	}
}

func TestToggleFavoriteAndQueries(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"a", "b", "c"} {
		if _, err := f.mgr.Save(id, "Cape "+id, false, []string{"group-" + id}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	cape, found, err := f.mgr.ToggleFavorite("b")
	if err != nil || !found || !cape.Favorite {
		t.Fatalf("ToggleFavorite = (%+v, %v, %v)", cape, found, err)
	}
	favs := f.mgr.Favorites()
	if len(favs) != 1 || favs[0].ID != "b" {
		t.Fatalf("Favorites = %+v", favs)
	}

	cape, _, _ = f.mgr.ToggleFavorite("b")
	if cape.Favorite {
		t.Fatal("expected second toggle to clear favorite")
	}
	if len(f.mgr.Favorites()) != 0 {
		t.Fatal("expected no favorites")
	}

	tagged := f.mgr.ByTag("group-c")
	if len(tagged) != 1 || tagged[0].ID != "c" {
		t.Fatalf("ByTag = %+v", tagged)
	}
	if padded := f.mgr.ByTag("  group-c\t"); len(padded) != 1 || padded[0].ID != "c" {
		t.Fatalf("ByTag with padding = %+v", padded)
	}
	if blank := f.mgr.ByTag("   "); blank == nil || len(blank) != 0 {
		t.Fatalf("ByTag(blank) = %#v, want empty slice", blank)
	}

	if _, found, err := f.mgr.ToggleFavorite("zzz"); found || err != nil {
		t.Fatalf("ToggleFavorite(missing) = (%v, %v)", found, err)
	}
}

func TestUpdatePropertiesAppliesOnlySuppliedFields(t *testing.T) {
	f := newFixture(t)
	if _, err := f.mgr.Save("abc", "Old", false, []string{"x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	name := "New"
	cape, found, err := f.mgr.UpdateProperties("abc", capes.PropertyUpdate{Name: &name})
	if err != nil || !found {
		t.Fatalf("UpdateProperties = (%v, %v)", found, err)
	}
	if cape.Name != "New" || cape.Favorite || !slices.Equal(cape.Tags, []string{"x"}) {
		t.Fatalf("unexpected cape: %+v", cape)
	}

	tags := []string{"y", "y", "z"}
	fav := true
	cape, _, err = f.mgr.UpdateProperties("abc", capes.PropertyUpdate{Favorite: &fav, Tags: &tags})
	if err != nil {
		t.Fatalf("UpdateProperties: %v", err)
	}
	if !cape.Favorite || !slices.Equal(cape.Tags, []string{"y", "z"}) || cape.Name != "New" {
		t.Fatalf("unexpected cape: %+v", cape)
	}

	cape, found, err = f.mgr.UpdateProperties("missing", capes.PropertyUpdate{Name: &name})
	if found || err != nil || cape.ID != "" {
		t.Fatalf("UpdateProperties(missing) = (%+v, %v, %v)", cape, found, err)
	}
}

func TestReturnedCapesAreCopies(t *testing.T) {
	f := newFixture(t)
	if _, err := f.mgr.Save("abc", "Cape", false, []string{"a"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	all := f.mgr.All()
	all[0].Tags[0] = "mutated"
	all[0].Name = "mutated"

	got, _ := f.mgr.ByID("abc")
	if got.Name != "Cape" || got.Tags[0] != "a" {
		t.Fatalf("caller mutation leaked into manager: %+v", got)
	}
}

func TestLoadRepairsDuplicatesAndStampsMissingTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), capes.FileName)
	content := `{"capes":[
		{"id":"a","name":"first","tags":["t","t"],"added_at":"2024-01-01T00:00:00Z"},
		{"id":"b","name":"no-stamp"},
		{"id":"a","name":"second","tags":["u"],"added_at":"2024-02-01T00:00:00Z"}
	]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f := newFixtureAt(t, path)
	all := f.mgr.All()
	if len(all) != 2 {
		t.Fatalf("expected duplicate ids collapsed, got %+v", all)
	}
	if all[0].ID != "a" || all[0].Name != "second" || !slices.Equal(all[0].Tags, []string{"u"}) {
		t.Fatalf("expected last duplicate in first position, got %+v", all[0])
	}
	if !all[1].AddedAt.Equal(epoch) {
		t.Fatalf("expected missing added_at stamped with clock, got %v", all[1].AddedAt)
	}
	if all[1].Tags == nil {
		t.Fatal("expected empty tag slice, got nil")
	}
}

func TestCorruptCatalogRecovers(t *testing.T) {
	path := filepath.Join(t.TempDir(), capes.FileName)
	if err := os.WriteFile(path, []byte(`{"capes": [`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := newFixtureAt(t, path)
	if f.mgr.Count() != 0 {
		t.Fatalf("expected empty catalog after recovery, got %d", f.mgr.Count())
	}
}

func TestConcurrentSavesKeepEveryCape(t *testing.T) {
	f := newFixture(t)
	const n = 24
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := f.mgr.Save(fmt.Sprintf("cape-%02d", i), "c", false, nil); err != nil {
				t.Errorf("Save: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if f.mgr.Count() != n {
		t.Fatalf("count = %d, want %d", f.mgr.Count(), n)
	}
	g := newFixtureAt(t, f.path)
	if g.mgr.Count() != n {
		t.Fatalf("persisted count = %d, want %d", g.mgr.Count(), n)
	}
}
