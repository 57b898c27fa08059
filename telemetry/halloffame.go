package telemetry

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"

	"github.com/pthm-cable/cellsim/config"
	"github.com/pthm-cable/cellsim/metabolism"
)

// HallEntry is the component set of a cell that lived long, with its fitness.
type HallEntry struct {
	Slots    metabolism.Slots
	Fitness  float32
	Seed     int64
	Survival float32
	PeakSize float32
}

// HallOfFame stores proven component sets for reseeding when the population
// crashes. Entries are kept sorted by descending fitness.
type HallOfFame struct {
	entries []HallEntry
	maxSize int
	cfg     config.HallOfFameConfig
	rng     *rand.Rand
}

// NewHallOfFame creates a hall of fame with capacity cfg.Size.
func NewHallOfFame(cfg config.HallOfFameConfig, rng *rand.Rand) *HallOfFame {
	maxSize := cfg.Size
	if maxSize < 1 {
		maxSize = 1
	}
	return &HallOfFame{
		entries: make([]HallEntry, 0, maxSize),
		maxSize: maxSize,
		cfg:     cfg,
		rng:     rng,
	}
}

// Consider evaluates a dead cell for hall of fame entry.
// Returns true if the cell was added to the hall.
func (hof *HallOfFame) Consider(slots *metabolism.Slots, stats *LifetimeStats) bool {
	if stats == nil || slots.Count() == 0 {
		return false
	}
	if stats.SurvivalTimeSec < float32(hof.cfg.MinSurvivalSec) {
		return false
	}

	entry := HallEntry{
		Slots:    slots.Clone(),
		Fitness:  hof.fitness(stats),
		Seed:     stats.Seed,
		Survival: stats.SurvivalTimeSec,
		PeakSize: stats.PeakSize,
	}
	if len(hof.entries) >= hof.maxSize && entry.Fitness <= hof.entries[len(hof.entries)-1].Fitness {
		return false
	}
	hof.entries = hof.insertEntry(hof.entries, entry)
	return true
}

func (hof *HallOfFame) fitness(stats *LifetimeStats) float32 {
	return stats.SurvivalTimeSec*float32(hof.cfg.SurvivalWeight) +
		stats.PeakSize*float32(hof.cfg.SizeWeight)
}

// insertEntry adds an entry, maintaining sorted order by fitness.
// If the hall is full, the lowest-fitness entry is removed.
func (hof *HallOfFame) insertEntry(hall []HallEntry, entry HallEntry) []HallEntry {
	idx := sort.Search(len(hall), func(i int) bool {
		return hall[i].Fitness < entry.Fitness
	})

	if len(hall) >= hof.maxSize && idx >= hof.maxSize {
		return hall
	}

	hall = append(hall, HallEntry{})
	copy(hall[idx+1:], hall[idx:])
	hall[idx] = entry

	if len(hall) > hof.maxSize {
		hall = hall[:hof.maxSize]
	}
	return hall
}

// Sample selects a component set using tournament selection (k=3).
// The returned slots are a copy. ok is false when the hall is empty.
func (hof *HallOfFame) Sample() (slots metabolism.Slots, ok bool) {
	if len(hof.entries) == 0 {
		return metabolism.Slots{}, false
	}

	const tournamentSize = 3
	best := -1
	for i := 0; i < tournamentSize && i < len(hof.entries); i++ {
		idx := hof.rng.Intn(len(hof.entries))
		if best < 0 || hof.entries[idx].Fitness > hof.entries[best].Fitness {
			best = idx
		}
	}
	return hof.entries[best].Slots.Clone(), true
}

// Size returns the number of entries.
func (hof *HallOfFame) Size() int {
	return len(hof.entries)
}

// TopFitness returns the highest fitness in the hall, or 0 if empty.
func (hof *HallOfFame) TopFitness() float32 {
	if len(hof.entries) == 0 {
		return 0
	}
	return hof.entries[0].Fitness
}

type hallEntryJSON struct {
	Seed       int64                       `json:"seed"`
	Fitness    float32                     `json:"fitness"`
	Survival   float32                     `json:"survival_sec"`
	PeakSize   float32                     `json:"peak_size"`
	Components map[string]metabolism.Props `json:"components"`
}

// MarshalJSON serializes the hall as a list ordered by fitness.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	export := make([]hallEntryJSON, len(hof.entries))
	for i, e := range hof.entries {
		export[i] = hallEntryJSON{
			Seed:       e.Seed,
			Fitness:    e.Fitness,
			Survival:   e.Survival,
			PeakSize:   e.PeakSize,
			Components: e.Slots.Named(),
		}
	}
	return json.MarshalIndent(export, "", "  ")
}

// LoadHallOfFameFromFile reads a hall of fame JSON file written by
// MarshalJSON. The hall grows to hold every entry in the file.
func LoadHallOfFameFromFile(path string, cfg config.HallOfFameConfig, rng *rand.Rand) (*HallOfFame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hall of fame: %w", err)
	}

	var raw []hallEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing hall of fame JSON: %w", err)
	}

	if len(raw) > cfg.Size {
		cfg.Size = len(raw)
	}
	hof := NewHallOfFame(cfg, rng)
	for i, ej := range raw {
		slots, err := metabolism.SlotsFromNamed(ej.Components)
		if err != nil {
			return nil, fmt.Errorf("hall entry %d: %w", i, err)
		}
		hof.entries = hof.insertEntry(hof.entries, HallEntry{
			Slots:    slots,
			Fitness:  ej.Fitness,
			Seed:     ej.Seed,
			Survival: ej.Survival,
			PeakSize: ej.PeakSize,
		})
	}
	return hof, nil
}
