package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  username: disp1
  password: secret
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.API.BaseURL != "http://localhost:8080" {
		t.Errorf("base url default: got %q", c.API.BaseURL)
	}
	if c.Poll.Fast != 6*time.Second || c.Poll.Slow != 15*time.Second || c.Poll.Location != 10*time.Second {
		t.Errorf("poll defaults wrong: %+v", c.Poll)
	}
	if c.Feed.ListenAddress != ":8090" {
		t.Errorf("feed listen default: got %q", c.Feed.ListenAddress)
	}
	if c.API.MaxRetries != 3 {
		t.Errorf("max_retries default: got %d", c.API.MaxRetries)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: http://cad.example:9000
  timeout: 2s
auth:
  username: unit7
  password: pw
poll:
  fast: 3s
  slow: 30s
unit:
  lat: 44.81
  lon: 20.466
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.API.BaseURL != "http://cad.example:9000" {
		t.Errorf("base url: got %q", c.API.BaseURL)
	}
	if c.Poll.Fast != 3*time.Second || c.Poll.Slow != 30*time.Second {
		t.Errorf("poll overrides: %+v", c.Poll)
	}
	if c.Unit.Lat != 44.81 || c.Unit.Lon != 20.466 {
		t.Errorf("unit position: %+v", c.Unit)
	}
}

func TestLoadRequiresUsername(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: http://cad.example
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing username")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
