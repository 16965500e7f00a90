// Package config loads a task.Config from a YAML file. The engine packages
// themselves only consume an in-memory task.Config; this loader is what
// cmd/zetten uses to turn a file on disk into one, and it gets a small home
// here rather than living in cmd/zetten.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/amit-devb/zetten/internal/engerrors"
	"github.com/amit-devb/zetten/internal/task"
)

// Load reads and parses the YAML configuration file at path.
func Load(path string) (task.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return task.Config{}, engerrors.User("reading configuration %q: %s", path, err)
	}

	var cfg task.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return task.Config{}, engerrors.User("parsing configuration %q: %s", path, err)
	}

	return cfg, nil
}
