package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pthm-cable/cellsim/config"
)

// csvSink is an append-only CSV file whose header is written with the first
// record.
type csvSink struct {
	file          *os.File
	headerWritten bool
}

func (s *csvSink) append(records any) error {
	if !s.headerWritten {
		if err := gocsv.Marshal(records, s.file); err != nil {
			return err
		}
		s.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, s.file)
}

// OutputManager handles structured run output: per-window telemetry,
// perf and bookmark CSVs, the effective config, the hall of fame and
// snapshots.
type OutputManager struct {
	dir       string
	telemetry csvSink
	perf      csvSink
	bookmarks csvSink
}

// NewOutputManager creates the output directory and its CSV files.
// Returns nil if dir is empty (output disabled); every method is a no-op
// on a nil manager.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	sinks := []struct {
		name string
		sink *csvSink
	}{
		{"telemetry.csv", &om.telemetry},
		{"perf.csv", &om.perf},
		{"bookmarks.csv", &om.bookmarks},
	}
	for _, s := range sinks {
		f, err := os.Create(filepath.Join(dir, s.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", s.name, err)
		}
		s.sink.file = f
	}
	return om, nil
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTelemetry appends a window stats record to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	if err := om.telemetry.append([]WindowStats{stats}); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// WritePerf appends a performance record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd uint64) error {
	if om == nil {
		return nil
	}
	if err := om.perf.append([]PerfStatsCSV{stats.ToCSV(windowEnd)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteBookmark appends a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	if err := om.bookmarks.append([]Bookmark{b}); err != nil {
		return fmt.Errorf("writing bookmark: %w", err)
	}
	return nil
}

// WriteHallOfFame saves the hall of fame as JSON.
func (om *OutputManager) WriteHallOfFame(hof *HallOfFame) error {
	if om == nil || hof == nil {
		return nil
	}
	data, err := hof.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling hall of fame: %w", err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, "hall_of_fame.json"), data, 0644); err != nil {
		return fmt.Errorf("writing hall_of_fame.json: %w", err)
	}
	return nil
}

// WriteSnapshot saves a snapshot under the snapshots subdirectory.
func (om *OutputManager) WriteSnapshot(s *Snapshot) (string, error) {
	if om == nil {
		return "", nil
	}
	return SaveSnapshot(s, filepath.Join(om.dir, "snapshots"))
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	for _, s := range []*csvSink{&om.telemetry, &om.perf, &om.bookmarks} {
		if s.file == nil {
			continue
		}
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.file = nil
	}
	return firstErr
}
