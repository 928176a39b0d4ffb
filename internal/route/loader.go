package route

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/MadlinksCoding/routelog/internal/model"
)

// LoadFile reads a route configuration JSON file. Bad paths and bad JSON
// are hard errors; callers decide whether to degrade (the engine builds
// an empty resolver so every flag falls back).
func LoadFile(path string) (model.RouteConfig, error) {
	if path == "" {
		return nil, fmt.Errorf("route config path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route config: %w", err)
	}
	var cfg model.RouteConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse route config %s: %w", path, err)
	}
	return cfg, nil
}
