// Package config loads the engine's ambient configuration: which
// capabilities a deployment grants by default, where story files live,
// the persistence DSN, and optional event-bus bridge settings
// (SPEC_FULL.md's `pkg/config` responsibility list).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/weave-lang/weave/pkg/persistence"
	"github.com/weave-lang/weave/pkg/werrors"
)

// NATSBridgeConfig carries the settings `cmd/`-level wiring needs to
// relay kernel bus events to NATS via Bus.BridgeNATS; pkg/config itself
// never dials a connection.
type NATSBridgeConfig struct {
	Enabled       bool
	URL           string
	SubjectPrefix string
}

// EngineConfig is the fully resolved, ready-to-use configuration a
// `cmd/` binary wires the engine with.
type EngineConfig struct {
	CapabilityDefaults map[string]bool
	StorySearchPaths   []string
	Persistence        persistence.Config
	NATSBridge         NATSBridgeConfig
}

// yamlDoc mirrors the on-disk weave.yaml shape; durations are plain
// strings parsed with time.ParseDuration, matching the teacher's own
// config surface.
type yamlDoc struct {
	CapabilityDefaults map[string]bool  `yaml:"capability_defaults"`
	StorySearchPaths   []string         `yaml:"story_search_paths"`
	Persistence        *yamlPersistence `yaml:"persistence"`
	NATSBridge         *yamlNATSBridge  `yaml:"nats_bridge"`
}

type yamlPersistence struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	SSLMode         string `yaml:"sslmode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime string `yaml:"conn_max_idle_time"`
}

type yamlNATSBridge struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Load reads path (a weave.yaml-shaped file), expands ${VAR} references
// against the process environment after first loading envFile (if
// envFile is non-empty and exists; a missing .env file is not an
// error, matching godotenv's typical optional-file use), and returns a
// validated EngineConfig.
func Load(path, envFile string) (*EngineConfig, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("%w: load env file %s: %v", werrors.ErrLoad, envFile, err)
			}
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", werrors.ErrLoad, path, err)
	}

	var doc yamlDoc
	if err := yaml.Unmarshal(ExpandEnv(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", werrors.ErrLoad, path, err)
	}

	cfg, err := fromYAML(doc)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromYAML(doc yamlDoc) (*EngineConfig, error) {
	cfg := &EngineConfig{
		CapabilityDefaults: doc.CapabilityDefaults,
		StorySearchPaths:   doc.StorySearchPaths,
	}

	if doc.Persistence != nil {
		p := doc.Persistence
		lifetime, err := parseDurationOrDefault(p.ConnMaxLifetime, time.Hour)
		if err != nil {
			return nil, fmt.Errorf("%w: persistence.conn_max_lifetime: %v", werrors.ErrValidation, err)
		}
		idleTime, err := parseDurationOrDefault(p.ConnMaxIdleTime, 15*time.Minute)
		if err != nil {
			return nil, fmt.Errorf("%w: persistence.conn_max_idle_time: %v", werrors.ErrValidation, err)
		}
		cfg.Persistence = persistence.Config{
			Host:            p.Host,
			Port:            p.Port,
			User:            p.User,
			Password:        p.Password,
			Database:        p.Database,
			SSLMode:         p.SSLMode,
			MaxOpenConns:    defaultInt(p.MaxOpenConns, 25),
			MaxIdleConns:    defaultInt(p.MaxIdleConns, 10),
			ConnMaxLifetime: lifetime,
			ConnMaxIdleTime: idleTime,
		}
	}

	if doc.NATSBridge != nil {
		cfg.NATSBridge = NATSBridgeConfig{
			Enabled:       doc.NATSBridge.Enabled,
			URL:           doc.NATSBridge.URL,
			SubjectPrefix: doc.NATSBridge.SubjectPrefix,
		}
	}

	return cfg, nil
}

// Validate checks cross-field consistency beyond what each section's
// own Validate (persistence.Config.Validate) already covers.
func (c *EngineConfig) Validate() error {
	if len(c.Persistence.Host) > 0 {
		if err := c.Persistence.Validate(); err != nil {
			return fmt.Errorf("%w: %v", werrors.ErrValidation, err)
		}
	}
	if c.NATSBridge.Enabled && c.NATSBridge.URL == "" {
		return fmt.Errorf("%w: nats_bridge.url is required when nats_bridge.enabled is true", werrors.ErrValidation)
	}
	return nil
}

func parseDurationOrDefault(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

func defaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
