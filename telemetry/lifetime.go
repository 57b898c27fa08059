package telemetry

import "github.com/pthm-cable/cellsim/arena"

// LifetimeStats tracks per-cell statistics over its lifetime.
type LifetimeStats struct {
	BirthTick       uint64
	SurvivalTimeSec float32
	Seed            int64
	FromHall        bool // components sampled from the hall of fame

	// Commit activity
	MotionDeltas int
	SizeDeltas   int

	PeakSize float32
}

// LifetimeTracker manages per-cell lifetime statistics.
type LifetimeTracker struct {
	stats map[arena.Handle]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[arena.Handle]*LifetimeStats),
	}
}

// Register creates lifetime stats for a new cell.
func (lt *LifetimeTracker) Register(id arena.Handle, birthTick uint64, seed int64, size float32, fromHall bool) {
	lt.stats[id] = &LifetimeStats{
		BirthTick: birthTick,
		Seed:      seed,
		FromHall:  fromHall,
		PeakSize:  size,
	}
}

// Put installs stats for a cell, e.g. read back from a snapshot.
func (lt *LifetimeTracker) Put(id arena.Handle, stats *LifetimeStats) {
	lt.stats[id] = stats
}

// Get returns the lifetime stats for a cell, or nil if not found.
func (lt *LifetimeTracker) Get(id arena.Handle) *LifetimeStats {
	return lt.stats[id]
}

// Remove removes a cell's stats and returns them.
func (lt *LifetimeTracker) Remove(id arena.Handle) *LifetimeStats {
	stats := lt.stats[id]
	delete(lt.stats, id)
	return stats
}

// RecordMotion counts a committed motion delta.
func (lt *LifetimeTracker) RecordMotion(id arena.Handle) {
	if s := lt.stats[id]; s != nil {
		s.MotionDeltas++
	}
}

// RecordSize counts a committed size delta and tracks peak size.
func (lt *LifetimeTracker) RecordSize(id arena.Handle, size float32) {
	if s := lt.stats[id]; s != nil {
		s.SizeDeltas++
		if size > s.PeakSize {
			s.PeakSize = size
		}
	}
}

// UpdateSurvivalTime updates the survival time based on current tick.
func (lt *LifetimeTracker) UpdateSurvivalTime(id arena.Handle, currentTick uint64, dt float32) {
	if s := lt.stats[id]; s != nil {
		s.SurvivalTimeSec = float32(currentTick-s.BirthTick) * dt
	}
}

// Count returns the number of tracked cells.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
