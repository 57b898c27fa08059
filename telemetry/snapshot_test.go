package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/cellsim/metabolism"
)

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := &Snapshot{
		Version:     SnapshotVersion,
		RNGSeed:     42,
		WorldWidth:  1280,
		WorldHeight: 720,
		Tick:        1000,
		Cells: []CellState{
			{
				Index:    3,
				Gen:      2,
				X:        150,
				Y:        250,
				VelX:     0.5,
				VelY:     -0.3,
				Radius:   1.2,
				Size:     340,
				Seed:     77,
				Ledger:   [4]float32{10, 2, 0, 1},
				Membrane: 100,
				Components: map[string]metabolism.Props{
					"glycolysis": metabolism.NewProps(0.5, 4),
				},
				Lifetime: &LifetimeStatsJSON{
					BirthTick:       100,
					SurvivalTimeSec: 15.0,
					MotionDeltas:    4,
					PeakSize:        400,
				},
			},
		},
		Bookmark: &Bookmark{
			Type:        BookmarkPopulationCrash,
			Tick:        1000,
			Description: "Test bookmark",
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Snapshot file not created at %s", path)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if loaded.RNGSeed != snapshot.RNGSeed {
		t.Errorf("RNGSeed mismatch: got %d, want %d", loaded.RNGSeed, snapshot.RNGSeed)
	}
	if loaded.Tick != snapshot.Tick {
		t.Errorf("Tick mismatch: got %d, want %d", loaded.Tick, snapshot.Tick)
	}
	if len(loaded.Cells) != 1 {
		t.Fatalf("Cells count mismatch: got %d, want 1", len(loaded.Cells))
	}
	c := loaded.Cells[0]
	if c.Index != 3 || c.Gen != 2 || c.Ledger != snapshot.Cells[0].Ledger {
		t.Errorf("cell mismatch: %+v", c)
	}
	if c.Components["glycolysis"] != snapshot.Cells[0].Components["glycolysis"] {
		t.Errorf("component mismatch: %+v", c.Components)
	}
	if c.Lifetime == nil || c.Lifetime.PeakSize != 400 {
		t.Errorf("lifetime mismatch: %+v", c.Lifetime)
	}
	if loaded.Bookmark == nil {
		t.Error("Bookmark not loaded")
	} else if loaded.Bookmark.Type != snapshot.Bookmark.Type {
		t.Errorf("Bookmark type mismatch: got %s, want %s", loaded.Bookmark.Type, snapshot.Bookmark.Type)
	}
}

func TestSnapshotFilename(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := &Snapshot{
		Version: SnapshotVersion,
		Tick:    5000,
		Bookmark: &Bookmark{
			Type: BookmarkMassDeath,
			Tick: 5000,
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	expected := filepath.Join(tmpDir, "snapshot_5000_mass_death.json")
	if path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}

	path, err = SaveSnapshot(&Snapshot{Version: SnapshotVersion, Tick: 3000}, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	expected = filepath.Join(tmpDir, "snapshot_3000.json")
	if path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}
}

func TestLoadSnapshotRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected version error")
	}
}

func TestLifetimeStatsJSON(t *testing.T) {
	var nilStats *LifetimeStats
	if nilStats.ToJSON() != nil {
		t.Error("nil stats should convert to nil")
	}

	ls := &LifetimeStats{BirthTick: 5, SurvivalTimeSec: 2, Seed: 9, SizeDeltas: 3, PeakSize: 12}
	back := ls.ToJSON().FromJSON(ls.Seed)
	if *back != *ls {
		t.Errorf("got %+v, want %+v", *back, *ls)
	}
}
