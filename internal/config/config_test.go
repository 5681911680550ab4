package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	t.Setenv("FUSION_CONFIG_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sensing.URL != "http://localhost:5000" {
		t.Errorf("Sensing.URL = %q", cfg.Sensing.URL)
	}
	if cfg.Sensing.PollIntervalSeconds != 1 || cfg.Sensing.PollBackoffSeconds != 5 {
		t.Errorf("poll defaults = %d/%d, want 1/5",
			cfg.Sensing.PollIntervalSeconds, cfg.Sensing.PollBackoffSeconds)
	}
	if cfg.Server.Addr != ":8083" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Fanout.StateHz != 10 || cfg.Fanout.FrameHz != 30 {
		t.Errorf("fanout cadences = %d/%d, want 10/30", cfg.Fanout.StateHz, cfg.Fanout.FrameHz)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FUSION_CONFIG_DIR", dir)

	cfg := &Config{}
	cfg.Sensing.URL = "http://sensing:9999"
	cfg.Sensing.SessionID = "fixed-session"
	cfg.Fanout.StateHz = 5

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Sensing.URL != "http://sensing:9999" {
		t.Errorf("Sensing.URL = %q", loaded.Sensing.URL)
	}
	if loaded.Sensing.SessionID != "fixed-session" {
		t.Errorf("Sensing.SessionID = %q", loaded.Sensing.SessionID)
	}
	if loaded.Fanout.StateHz != 5 {
		t.Errorf("Fanout.StateHz = %d, want 5", loaded.Fanout.StateHz)
	}
	// Unset fields still pick up defaults on load.
	if loaded.Fanout.FrameHz != 30 {
		t.Errorf("Fanout.FrameHz = %d, want default 30", loaded.Fanout.FrameHz)
	}
}

func TestPollDurations(t *testing.T) {
	s := SensingConfig{PollIntervalSeconds: 2, PollBackoffSeconds: 7}
	if s.PollInterval() != 2*time.Second {
		t.Errorf("PollInterval = %v", s.PollInterval())
	}
	if s.PollBackoff() != 7*time.Second {
		t.Errorf("PollBackoff = %v", s.PollBackoff())
	}
}

func TestDirOverrides(t *testing.T) {
	t.Setenv("FUSION_CONFIG_DIR", "/tmp/fusion-config-test")
	t.Setenv("FUSION_DATA_DIR", "/tmp/fusion-data-test")

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if configDir != "/tmp/fusion-config-test" {
		t.Errorf("GetConfigDir = %q", configDir)
	}

	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatal(err)
	}
	if dataDir != "/tmp/fusion-data-test" {
		t.Errorf("GetDataDir = %q", dataDir)
	}
}
