// Package config loads engine.yaml. Every field has a default; a missing file
// yields a fully usable configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/go-units"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"

	"github.com/autodeployr/engine/pkg/global"
	"github.com/autodeployr/engine/pkg/imagetag"
	"github.com/autodeployr/engine/pkg/util/files"
)

// Duration parses YAML values like "90s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	// DockerHost overrides DOCKER_HOST; empty uses the environment.
	DockerHost string `yaml:"docker_host,omitempty"`

	// TagPrefix namespaces every image the engine builds.
	TagPrefix string `yaml:"tag_prefix,omitempty"`

	// ExecutionTimeout is the hard per-invocation wall clock limit.
	ExecutionTimeout Duration `yaml:"execution_timeout,omitempty"`
	// LogsTimeout bounds post-exit log retrieval.
	LogsTimeout Duration `yaml:"logs_timeout,omitempty"`
	// BuildSweepWindow bounds the post-build dangling sweep to layers created
	// this recently.
	BuildSweepWindow Duration `yaml:"build_sweep_window,omitempty"`

	// ShmSize is the /dev/shm size for function containers, in go-units
	// notation ("64m", "1g").
	ShmSize string `yaml:"shm_size,omitempty"`

	// DataDir holds engine state; supports "~".
	DataDir string `yaml:"data_dir,omitempty"`
	// EnvStoreDir defaults to DataDir/envstore.
	EnvStoreDir string `yaml:"env_store_dir,omitempty"`

	// AllowFallbackIdentity attributes identity-less invocations to
	// FallbackIdentity instead of rejecting them.
	AllowFallbackIdentity bool   `yaml:"allow_fallback_identity,omitempty"`
	FallbackIdentity      string `yaml:"fallback_identity,omitempty"`
}

func Default() *Config {
	return &Config{
		TagPrefix:        imagetag.DefaultPrefix,
		ExecutionTimeout: Duration(90 * time.Second),
		LogsTimeout:      Duration(10 * time.Second),
		BuildSweepWindow: Duration(2 * time.Minute),
		ShmSize:          "64m",
		DataDir:          "~/.autodeployr",
	}
}

// Load reads the config at path. An empty path falls back to
// global.ConfigFilename in the working directory, and to pure defaults when
// that does not exist either. An explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = global.ConfigFilename
	}

	exists, err := files.Exists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		if explicit {
			return nil, fmt.Errorf("config file %q does not exist", path)
		}
		return cfg.complete()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}

	return cfg.complete()
}

func (c *Config) complete() (*Config, error) {
	dataDir, err := homedir.Expand(c.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand data dir %q: %w", c.DataDir, err)
	}
	c.DataDir = dataDir

	if c.EnvStoreDir == "" {
		c.EnvStoreDir = filepath.Join(c.DataDir, "envstore")
	}

	if c.TagPrefix == "" {
		c.TagPrefix = imagetag.DefaultPrefix
	}
	if c.ExecutionTimeout <= 0 {
		return nil, fmt.Errorf("execution_timeout must be positive")
	}
	if c.LogsTimeout <= 0 {
		return nil, fmt.Errorf("logs_timeout must be positive")
	}
	if _, err := c.ShmSizeBytes(); err != nil {
		return nil, err
	}

	return c, nil
}

// ShmSizeBytes returns ShmSize parsed to bytes.
func (c *Config) ShmSizeBytes() (int64, error) {
	size, err := units.RAMInBytes(c.ShmSize)
	if err != nil {
		return 0, fmt.Errorf("invalid shm_size %q: %w", c.ShmSize, err)
	}
	return size, nil
}
