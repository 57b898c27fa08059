package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkSizeBreakthrough   BookmarkType = "size_breakthrough"
	BookmarkPopulationCrash    BookmarkType = "population_crash"
	BookmarkPopulationRecovery BookmarkType = "population_recovery"
	BookmarkMassDeath          BookmarkType = "mass_death"
	BookmarkStablePopulation   BookmarkType = "stable_population"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        uint64       `csv:"tick" json:"tick"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	recentPopMin       int // minimum population in recent history
	recentPopPeak      int // peak population in recent history
	lastPopulation     int
	stableWindowsCount int // consecutive windows with stable population
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable population detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		checks := []func(WindowStats) *Bookmark{
			bd.checkSizeBreakthrough,
			bd.checkPopulationCrash,
			bd.checkPopulationRecovery,
			bd.checkMassDeath,
			bd.checkStablePopulation,
		}
		for _, check := range checks {
			if b := check(stats); b != nil {
				bookmarks = append(bookmarks, *b)
			}
		}
	}

	bd.addToHistory(stats)

	if stats.Population < bd.recentPopMin || bd.recentPopMin == 0 {
		bd.recentPopMin = stats.Population
	}
	if stats.Population > bd.recentPopPeak {
		bd.recentPopPeak = stats.Population
	}
	bd.lastPopulation = stats.Population

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// recent returns up to n most recent windows, oldest first.
func (bd *BookmarkDetector) recent(n int) []WindowStats {
	count := bd.historyIdx
	if bd.historyFull {
		count = bd.historySize
	}
	if n > count {
		n = count
	}
	out := make([]WindowStats, n)
	for i := 0; i < n; i++ {
		idx := (bd.historyIdx - n + i + bd.historySize) % bd.historySize
		out[i] = bd.history[idx]
	}
	return out
}

func (bd *BookmarkDetector) checkSizeBreakthrough(stats WindowStats) *Bookmark {
	history := bd.recent(bd.historySize)
	if len(history) < 3 || stats.Population < 5 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.SizeMean
	}
	avg := total / float64(len(history))
	if avg <= 0 {
		return nil
	}

	if stats.SizeMean > avg*2.0 {
		return &Bookmark{
			Type:        BookmarkSizeBreakthrough,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Mean size %.1f is %.1fx average (%.1f)", stats.SizeMean, stats.SizeMean/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkPopulationCrash(stats WindowStats) *Bookmark {
	if bd.recentPopPeak == 0 {
		return nil
	}

	drop := 1.0 - float64(stats.Population)/float64(bd.recentPopPeak)
	if drop > 0.30 && stats.Population < bd.recentPopPeak-10 {
		oldPeak := bd.recentPopPeak
		bd.recentPopPeak = stats.Population
		return &Bookmark{
			Type:        BookmarkPopulationCrash,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Population crashed %.0f%% from peak %d to %d", drop*100, oldPeak, stats.Population),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkPopulationRecovery(stats WindowStats) *Bookmark {
	if bd.recentPopMin == 0 || bd.recentPopMin > 10 {
		return nil
	}

	if stats.Population >= bd.recentPopMin*3 && stats.Population >= 20 {
		oldMin := bd.recentPopMin
		bd.recentPopMin = stats.Population
		return &Bookmark{
			Type:        BookmarkPopulationRecovery,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Population recovered from %d to %d", oldMin, stats.Population),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkMassDeath(stats WindowStats) *Bookmark {
	if bd.lastPopulation < 10 || stats.Deaths < 10 {
		return nil
	}
	if float64(stats.Deaths) >= 0.5*float64(bd.lastPopulation) {
		return &Bookmark{
			Type:        BookmarkMassDeath,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d of %d cells died in one window", stats.Deaths, bd.lastPopulation),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkStablePopulation(stats WindowStats) *Bookmark {
	if stats.Population < 10 {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.recent(4)
	if len(history) < 4 {
		return nil
	}

	var sum float64
	for _, h := range history {
		sum += float64(h.Population)
	}
	mean := sum / 4

	var variance float64
	for _, h := range history {
		d := float64(h.Population) - mean
		variance += d * d
	}
	variance /= 4

	if mean > 0 && variance/(mean*mean) < 0.04 { // CV < 0.2
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == 5 { // trigger exactly once
		return &Bookmark{
			Type:        BookmarkStablePopulation,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Stable population around %d over 5+ windows", stats.Population),
		}
	}
	return nil
}
