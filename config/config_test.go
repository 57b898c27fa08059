package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}
	if cfg.World.SubstepsPerTick != 300 {
		t.Errorf("substeps_per_tick: got %d, want 300", cfg.World.SubstepsPerTick)
	}
	if cfg.Derived.UnitSizes[0] != 1 || cfg.Derived.UnitSizes[1] != 10 {
		t.Errorf("unit sizes: got %v, want energy=1 feedstock=10", cfg.Derived.UnitSizes)
	}
	if cfg.Derived.VelocityMode {
		t.Error("default motion mode should be impulse")
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	data := []byte("world:\n  substeps_per_tick: 10\n  parallel: false\nphysics:\n  motion_mode: velocity\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.World.SubstepsPerTick != 10 {
		t.Errorf("substeps_per_tick: got %d, want 10", cfg.World.SubstepsPerTick)
	}
	if cfg.World.Parallel {
		t.Error("parallel should be overridden to false")
	}
	// Untouched fields keep their defaults
	if cfg.World.StepSize != 0.01 {
		t.Errorf("step_size: got %f, want 0.01", cfg.World.StepSize)
	}
	if !cfg.Derived.VelocityMode {
		t.Error("velocity mode should be derived from overlay")
	}
}

func TestLoadRejectsBadMotionMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte("physics:\n  motion_mode: teleport\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown motion mode")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.World.InitialPopulation = 7

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.World.InitialPopulation != 7 {
		t.Errorf("initial_population: got %d, want 7", got.World.InitialPopulation)
	}
}

func TestCloneRecomputesDerived(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	clone, err := cfg.Clone(func(c *Config) {
		c.World.Width = 640
		c.Physics.MotionMode = "velocity"
	})
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if clone.Derived.WorldW32 != 640 || !clone.Derived.VelocityMode {
		t.Errorf("derived not recomputed: %+v", clone.Derived)
	}
	if cfg.World.Width == 640 || cfg.Derived.VelocityMode {
		t.Error("Clone modified the original")
	}
}

func TestCloneRejectsInvalidEdit(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.Clone(func(c *Config) { c.HallOfFame.ReseedFraction = 2 }); err == nil {
		t.Error("expected error for reseed_fraction > 1")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative unit size", "chemistry:\n  protein: -1\n"},
		{"negative stats window", "telemetry:\n  stats_window: -5\n"},
		{"zero stats window", "telemetry:\n  stats_window: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Errorf("expected error for %q", tt.yaml)
			}
		})
	}
}
