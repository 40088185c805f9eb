package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `feed:
  broker: "tcp://localhost:1883"
  client_id: "console-1"
  snapshot_topic: "ops/snapshot"
  refresh_topic: "ops/refresh"
timeline:
  bufferMin: 20
board:
  timezone: "America/Denver"
  undo_depth: 10
  actor: "dispatch@desk1"
metrics:
  prometheusEnabled: true
  prometheusPort: ":9100"
audit:
  backend: "sqlite"
  path: "mutations.db"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"broker", cfg.Feed.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.Feed.ClientID, "console-1"},
		{"snapshot_topic", cfg.Feed.SnapshotTopic, "ops/snapshot"},
		{"refresh_topic", cfg.Feed.RefreshTopic, "ops/refresh"},
		{"buffer", cfg.Timeline.BufferMin, 20},
		{"min_duration_default", cfg.Timeline.MinDurationMin, 45},
		{"timezone", cfg.Board.Timezone, "America/Denver"},
		{"undo_depth", cfg.Board.UndoDepth, 10},
		{"actor", cfg.Board.Actor, "dispatch@desk1"},
		{"prom_enabled", cfg.Metrics.PrometheusEnabled, true},
		{"prom_port", cfg.Metrics.PrometheusPort, ":9100"},
		{"audit_backend", cfg.Audit.Backend, "sqlite"},
		{"audit_path", cfg.Audit.Path, "mutations.db"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("feed:\n  broker: \"tcp://localhost:1883\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DB_BOARD__ACTOR", "night-shift")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Board.Actor != "night-shift" {
		t.Fatalf("env override not applied: %q", cfg.Board.Actor)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestLoadRejectsBadAuditBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("audit:\n  backend: \"csv\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected backend error")
	}
}

func TestLoadViews(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "views.yaml")
	data := `views:
  - id: "vip"
    name: "VIP pickups"
    payment: "pay_now"
  - id: "unassigned"
    name: "Needs driver"
    driver: "unassigned"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write views: %v", err)
	}

	views, err := ViewsConfig{Path: path}.LoadViews()
	if err != nil {
		t.Fatalf("load views: %v", err)
	}
	byID := map[string]string{}
	for _, v := range views {
		byID[v.ID] = v.Name
	}
	if byID["vip"] != "VIP pickups" {
		t.Fatalf("saved view not appended: %v", byID)
	}
	if byID["unassigned"] != "Needs driver" {
		t.Fatalf("saved view did not replace default: %v", byID)
	}
	if _, ok := byID["all"]; !ok {
		t.Fatalf("built-in views missing")
	}
}

func TestLoadViewsNoPath(t *testing.T) {
	views, err := ViewsConfig{}.LoadViews()
	if err != nil {
		t.Fatalf("load views: %v", err)
	}
	if len(views) == 0 {
		t.Fatalf("expected built-in views")
	}
}
