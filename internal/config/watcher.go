package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watch loads the configuration from path and re-reads it whenever the file
// changes, invoking onChange with the fresh config. Changes that fail to
// parse or validate are dropped; the last good config stays in effect.
// Watching requires a config file, so path must not be empty.
func Watch(path string, onChange func(fsnotify.Event, *Config)) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("watching requires a config file path")
	}

	cfg, v, err := load(path)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		var next Config
		if err := v.Unmarshal(&next); err != nil {
			return
		}
		if err := validate(&next); err != nil {
			return
		}
		onChange(event, &next)
	})
	v.WatchConfig()

	return cfg, nil
}
