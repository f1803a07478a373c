package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Serial.BaudRate != 9600 {
		t.Errorf("baud = %d, want 9600", cfg.Serial.BaudRate)
	}
	if cfg.Capture.DurationSeconds != 420 {
		t.Errorf("duration = %d, want 420", cfg.Capture.DurationSeconds)
	}
	if len(cfg.Capture.NoiseMarkers) == 0 {
		t.Error("no default noise markers")
	}
	if len(cfg.Plot.GasPanels) != 4 || len(cfg.Plot.EnvPanels) != 3 {
		t.Errorf("panels = %d/%d, want 4/3", len(cfg.Plot.GasPanels), len(cfg.Plot.EnvPanels))
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite default", cfg.Database.Driver)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
serial:
  baud_rate: 115200
  port: /dev/ttyUSB3
capture:
  duration_seconds: 60
  noise_markers: ["BOOT"]
plot:
  site: 2
database:
  driver: sqlite
  sqlite:
    path: test.db
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Serial.BaudRate != 115200 {
		t.Errorf("baud = %d", cfg.Serial.BaudRate)
	}
	if cfg.Serial.Port != "/dev/ttyUSB3" {
		t.Errorf("port = %q", cfg.Serial.Port)
	}
	if cfg.Capture.DurationSeconds != 60 {
		t.Errorf("duration = %d", cfg.Capture.DurationSeconds)
	}
	if len(cfg.Capture.NoiseMarkers) != 1 || cfg.Capture.NoiseMarkers[0] != "BOOT" {
		t.Errorf("noise markers = %v", cfg.Capture.NoiseMarkers)
	}
	if cfg.Plot.Site != 2 {
		t.Errorf("site = %d", cfg.Plot.Site)
	}
	// Unset sections still get defaults.
	if cfg.Capture.LatestFile != "data.csv" {
		t.Errorf("latest file = %q", cfg.Capture.LatestFile)
	}
	if cfg.Logging.LogLevel != "info" {
		t.Errorf("log level = %q", cfg.Logging.LogLevel)
	}
}

func TestLoadRejectsBadDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("serial: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestGetDSN(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "sqlite"
	cfg.Database.SQLite.Path = "archive.db"
	if dsn := cfg.GetDSN(); dsn != "archive.db" {
		t.Errorf("sqlite dsn = %q", dsn)
	}

	cfg.Database.Driver = "postgres"
	cfg.Database.PostgreSQL.Host = "db"
	cfg.Database.PostgreSQL.Port = 5432
	cfg.Database.PostgreSQL.User = "rover"
	cfg.Database.PostgreSQL.DBName = "readings"
	dsn := cfg.GetDSN()
	if dsn == "" {
		t.Error("empty postgres dsn")
	}
}
