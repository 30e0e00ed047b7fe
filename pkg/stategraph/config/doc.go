/*
Package config provides typed configuration extraction from
map[string]any with defaults, nested sections, and file loading.

Create a Config from any map and extract values with defaults:

	cfg := config.New(map[string]any{
	    "timeout": "30s",
	    "retries": 3,
	})

	timeout := cfg.Duration("timeout", 10*time.Second) // 30s
	retries := cfg.Int("retries", 5)                   // 3
	missing := cfg.String("missing", "default")        // "default"

Nested maps are reached through Section, and whole subtrees decode into
structs via Decode (mapstructure with yaml tags):

	var db struct {
	    DSN     string        `yaml:"dsn"`
	    Timeout time.Duration `yaml:"timeout"`
	}
	err := cfg.Section("database").Decode(&db)

FromFile loads YAML or JSON and expands ${ENV_VAR} references, which
keeps credentials out of checked-in files.

Config is safe for concurrent reads; the underlying map is never
modified after creation.
*/
package config
