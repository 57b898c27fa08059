package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/cellsim/metabolism"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the population state at a tick boundary.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`

	WorldWidth  float32 `json:"world_width"`
	WorldHeight float32 `json:"world_height"`

	Tick uint64 `json:"tick"`

	Cells []CellState `json:"cells"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// CellState holds one cell's complete state.
type CellState struct {
	Index uint32 `json:"index"`
	Gen   uint32 `json:"gen"`

	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	VelX   float32 `json:"vel_x"`
	VelY   float32 `json:"vel_y"`
	Radius float32 `json:"radius"`

	Size       float32                     `json:"size"`
	Seed       int64                       `json:"seed"`
	Ledger     [4]float32                  `json:"ledger"` // energy, feedstock, nucleotide, protein
	Membrane   float32                     `json:"membrane"`
	Components map[string]metabolism.Props `json:"components"`

	Lifetime *LifetimeStatsJSON `json:"lifetime,omitempty"`
}

// LifetimeStatsJSON is the JSON-serializable form of LifetimeStats.
type LifetimeStatsJSON struct {
	BirthTick       uint64  `json:"birth_tick"`
	SurvivalTimeSec float32 `json:"survival_time_sec"`
	FromHall        bool    `json:"from_hall,omitempty"`
	MotionDeltas    int     `json:"motion_deltas"`
	SizeDeltas      int     `json:"size_deltas"`
	PeakSize        float32 `json:"peak_size"`
}

// ToJSON converts LifetimeStats to its JSON form.
func (ls *LifetimeStats) ToJSON() *LifetimeStatsJSON {
	if ls == nil {
		return nil
	}
	return &LifetimeStatsJSON{
		BirthTick:       ls.BirthTick,
		SurvivalTimeSec: ls.SurvivalTimeSec,
		FromHall:        ls.FromHall,
		MotionDeltas:    ls.MotionDeltas,
		SizeDeltas:      ls.SizeDeltas,
		PeakSize:        ls.PeakSize,
	}
}

// FromJSON converts the JSON form back to LifetimeStats. The seed is carried
// by the owning CellState.
func (lsj *LifetimeStatsJSON) FromJSON(seed int64) *LifetimeStats {
	if lsj == nil {
		return nil
	}
	return &LifetimeStats{
		BirthTick:       lsj.BirthTick,
		SurvivalTimeSec: lsj.SurvivalTimeSec,
		Seed:            seed,
		FromHall:        lsj.FromHall,
		MotionDeltas:    lsj.MotionDeltas,
		SizeDeltas:      lsj.SizeDeltas,
		PeakSize:        lsj.PeakSize,
	}
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
