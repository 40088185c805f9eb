// Package config loads the board configuration from a yaml or json file
// with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/shuttleops/dispatchboard/core/metrics"
	"github.com/shuttleops/dispatchboard/core/timeline"
	"github.com/shuttleops/dispatchboard/infra/feed"
)

type Config struct {
	Feed     feed.Config     `json:"feed"`
	Timeline timeline.Config `json:"timeline"`
	Board    BoardConfig     `json:"board"`
	Metrics  metrics.Config  `json:"metrics"`
	Audit    AuditConfig     `json:"audit"`
	Views    ViewsConfig     `json:"views"`
}

// BoardConfig holds session-level settings.
type BoardConfig struct {
	// Timezone is the IANA zone the operating day is interpreted in.
	Timezone string `json:"timezone"`
	// UndoDepth caps the number of assignment mutations kept undoable.
	UndoDepth int `json:"undo_depth"`
	// Fleet optionally narrows the feed subscription to one fleet.
	Fleet string `json:"fleet"`
	// Actor is recorded on every mutation this console issues.
	Actor string `json:"actor"`
	// StaticSnapshot, when set, replays a snapshot file instead of
	// connecting to the broker.
	StaticSnapshot string `json:"static_snapshot"`
}

// SetDefaults applies sane defaults.
func (c *BoardConfig) SetDefaults() {
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.UndoDepth <= 0 {
		c.UndoDepth = 20
	}
	if c.Actor == "" {
		c.Actor = "dispatcher"
	}
}

// Validate checks mandatory fields.
func (c BoardConfig) Validate() error {
	if c.Timezone == "" {
		return fmt.Errorf("board: timezone is required")
	}
	return nil
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("DB_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "db_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Feed.SetDefaults()
	cfg.Timeline.SetDefaults()
	cfg.Board.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Audit.SetDefaults()
	if err := cfg.Feed.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Timeline.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Board.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Audit.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
