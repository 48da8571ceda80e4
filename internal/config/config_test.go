package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d := DefaultConfig()
	if cfg.Listen != d.Listen || cfg.HorizonDays != d.HorizonDays || cfg.WeekStart != d.WeekStart {
		t.Errorf("missing file did not yield defaults: %+v", cfg)
	}
}

func TestLoadPartialFileNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("listen: \"0.0.0.0:9999\"\ntimezone: \"Asia/Seoul\"\nics:\n  - url: \"https://example.com/a.ics\"\n    id: \"work\"\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9999" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Timezone != "Asia/Seoul" {
		t.Errorf("Timezone = %q", cfg.Timezone)
	}
	if cfg.HorizonDays != DefaultConfig().HorizonDays {
		t.Errorf("HorizonDays not defaulted: %d", cfg.HorizonDays)
	}
	if len(cfg.ICS) != 1 || cfg.ICS[0].Group != "work" {
		t.Errorf("ICS group not defaulted to ID: %+v", cfg.ICS)
	}
}

func TestLoadUnparsableFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("unparsable config accepted")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Listen = "127.0.0.1:7777"
	cfg.WeekStart = "sunday"
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Listen != cfg.Listen || got.WeekStart != cfg.WeekStart {
		t.Errorf("round trip changed values: %+v", got)
	}
	if got.BasicAuth == nil || got.BasicAuth.Username != "u" {
		t.Errorf("basic auth lost in round trip: %+v", got.BasicAuth)
	}
}

func TestLocationFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Not/AZone"
	if got := cfg.Location(); got != time.UTC {
		t.Errorf("invalid timezone resolved to %v, want UTC", got)
	}
}

func TestWeekStartsOn(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.WeekStartsOn(); got != time.Monday {
		t.Errorf("default week start = %v, want Monday", got)
	}
	cfg.WeekStart = "sunday"
	if got := cfg.WeekStartsOn(); got != time.Sunday {
		t.Errorf("week start = %v, want Sunday", got)
	}
}
