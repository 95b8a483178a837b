// Package config provides configuration loading and access for training and play.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/serpent/agent"
	"github.com/pthm-cable/serpent/systems"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	World     WorldConfig     `yaml:"world"`
	Neural    NeuralConfig    `yaml:"neural"`
	Evolution EvolutionConfig `yaml:"evolution"`
	Fitness   FitnessConfig   `yaml:"fitness"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Storage   StorageConfig   `yaml:"storage"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings for play and watch.
type ScreenConfig struct {
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	TargetFPS    int     `yaml:"target_fps"`
	MoveInterval float64 `yaml:"move_interval"` // seconds between snake moves
}

// WorldConfig holds board dimensions.
type WorldConfig struct {
	Size int `yaml:"size"`
}

// NeuralConfig holds network topology.
type NeuralConfig struct {
	Hidden []int `yaml:"hidden"`
}

// EvolutionConfig holds genetic algorithm parameters.
type EvolutionConfig struct {
	Population          int     `yaml:"population"`
	RandomPerGeneration int     `yaml:"random_per_generation"`
	MutationPercent     float64 `yaml:"mutation_percent"`
	Trials              int     `yaml:"trials"`
	MaxGenerations      int     `yaml:"max_generations"` // 0 = unbounded
	Workers             int     `yaml:"workers"`         // 0 = GOMAXPROCS
	MaxTurns            int     `yaml:"max_turns"`
	StagnationLimit     int     `yaml:"stagnation_limit"`
}

// FitnessConfig holds fitness shaping parameters.
type FitnessConfig struct {
	DegenerateTurns int `yaml:"degenerate_turns"`
}

// TelemetryConfig holds training output settings.
type TelemetryConfig struct {
	OutputDir           string `yaml:"output_dir"` // empty disables file output
	SaveEveryGeneration bool   `yaml:"save_every_generation"`
	HallOfFameSize      int    `yaml:"hall_of_fame_size"`
}

// StorageConfig selects the run history backend.
type StorageConfig struct {
	Kind string `yaml:"kind"` // memory | sqlite
	Path string `yaml:"path"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	NumInputs  int   // sensor vector width
	NumOutputs int   // action count
	Shape      []int // NumInputs, Neural.Hidden..., NumOutputs
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.ComputeDerived()
	return cfg, nil
}

// ComputeDerived recalculates the derived values. Call it again after
// changing Neural.Hidden on a loaded config.
func (c *Config) ComputeDerived() {
	c.Derived.NumInputs = systems.NumInputs
	c.Derived.NumOutputs = agent.NumActions

	c.Derived.Shape = make([]int, 0, len(c.Neural.Hidden)+2)
	c.Derived.Shape = append(c.Derived.Shape, c.Derived.NumInputs)
	c.Derived.Shape = append(c.Derived.Shape, c.Neural.Hidden...)
	c.Derived.Shape = append(c.Derived.Shape, c.Derived.NumOutputs)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
