package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/shuttleops/dispatchboard/core/board"
)

// ViewsConfig points at the saved view presets file.
type ViewsConfig struct {
	// Path is optional; without it only the built-in views are offered.
	Path string `json:"path"`
}

// LoadViews reads saved presets and merges them with the built-in views.
// A missing file is not an error when no path was configured.
func (c ViewsConfig) LoadViews() ([]board.View, error) {
	if c.Path == "" {
		return board.DefaultViews(), nil
	}
	if _, err := os.Stat(c.Path); err != nil {
		return nil, fmt.Errorf("views: %w", err)
	}
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(c.Path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("views: unsupported format: %s", c.Path)
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(c.Path), parser); err != nil {
		return nil, fmt.Errorf("views: %w", err)
	}
	var saved struct {
		Views []board.View `json:"views"`
	}
	if err := k.UnmarshalWithConf("", &saved, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("views: %w", err)
	}
	return board.ComposeViews(saved.Views), nil
}
