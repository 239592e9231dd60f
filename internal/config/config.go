package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every recognized training option. Values are plain YAML so
// stage drivers and experiments can share files; Load applies defaults
// before validation, so a partial file is fine.
type Config struct {
	// Exploration schedule
	EpsilonStart float64 `yaml:"epsilon_start"`
	EpsilonDecay float64 `yaml:"epsilon_decay"`
	EpsilonMin   float64 `yaml:"epsilon_min"`

	// Optimization
	LearningRate float64 `yaml:"learning_rate"`
	Discount     float64 `yaml:"discount"`
	GradClip     float64 `yaml:"grad_clip"`
	EntropyBonus float64 `yaml:"entropy_bonus"`
	HiddenSizes  []int   `yaml:"hidden_sizes"`
	Dropout      float64 `yaml:"dropout"`

	// Program shape
	MaxProgramLength int  `yaml:"max_program_length"`
	EnableNop        bool `yaml:"enable_nop"`

	// Reward weights
	WeightCorrectness float64 `yaml:"weight_correctness"`
	WeightLatencyMax  float64 `yaml:"weight_latency_max"`
	WeightLengthMax   float64 `yaml:"weight_length_max"`
	TruncationPenalty float64 `yaml:"truncation_penalty"`
	InvalidPenalty    float64 `yaml:"invalid_penalty"`

	// Curriculum
	SuccessThreshold float64 `yaml:"success_threshold"`
	RollingWindow    int     `yaml:"rolling_window"`

	// Latency profiling
	LatencyRepetitions int `yaml:"latency_repetitions"`

	// Pattern-guided exploration
	PriorWeight float64 `yaml:"prior_weight"`

	// Run plumbing
	StoreKind       string `yaml:"store"`
	DBPath          string `yaml:"db_path"`
	Episodes        int    `yaml:"episodes"`
	Seed            int64  `yaml:"seed"`
	CheckpointEvery int    `yaml:"checkpoint_every"`
	Workers         int    `yaml:"workers"`
	LogLevel        string `yaml:"log_level"`
}

func Default() Config {
	return Config{
		EpsilonStart: 0.3,
		EpsilonDecay: 0.995,
		EpsilonMin:   0.02,

		LearningRate: 0.01,
		Discount:     0.97,
		GradClip:     5.0,
		EntropyBonus: 0.01,
		HiddenSizes:  []int{32},
		Dropout:      0,

		MaxProgramLength: 8,

		WeightCorrectness: 1.0,
		WeightLatencyMax:  2.0,
		WeightLengthMax:   0.6,
		TruncationPenalty: 0.5,
		InvalidPenalty:    1.0,

		SuccessThreshold: 0.85,
		RollingWindow:    20,

		LatencyRepetitions: 200,

		PriorWeight: 0.25,

		StoreKind:       "memory",
		Episodes:        2000,
		Seed:            1,
		CheckpointEvery: 250,
		Workers:         1,
		LogLevel:        "info",
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.EpsilonStart < 0 || c.EpsilonStart > 1 {
		return fmt.Errorf("epsilon_start must be in [0, 1], got %f", c.EpsilonStart)
	}
	if c.EpsilonMin < 0 || c.EpsilonMin > c.EpsilonStart {
		return fmt.Errorf("epsilon_min must be in [0, epsilon_start], got %f", c.EpsilonMin)
	}
	if c.EpsilonDecay <= 0 || c.EpsilonDecay > 1 {
		return fmt.Errorf("epsilon_decay must be in (0, 1], got %f", c.EpsilonDecay)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0, got %f", c.LearningRate)
	}
	if c.Discount <= 0 || c.Discount > 1 {
		return fmt.Errorf("discount must be in (0, 1], got %f", c.Discount)
	}
	if c.GradClip < 0 {
		return fmt.Errorf("grad_clip must be >= 0, got %f", c.GradClip)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1), got %f", c.Dropout)
	}
	for _, size := range c.HiddenSizes {
		if size <= 0 {
			return fmt.Errorf("hidden_sizes entries must be > 0, got %d", size)
		}
	}
	if c.MaxProgramLength < 2 {
		return fmt.Errorf("max_program_length must be >= 2, got %d", c.MaxProgramLength)
	}
	if c.SuccessThreshold <= 0 || c.SuccessThreshold > 1 {
		return fmt.Errorf("success_threshold must be in (0, 1], got %f", c.SuccessThreshold)
	}
	if c.RollingWindow <= 0 {
		return fmt.Errorf("rolling_window must be > 0, got %d", c.RollingWindow)
	}
	if c.LatencyRepetitions <= 0 {
		return fmt.Errorf("latency_repetitions must be > 0, got %d", c.LatencyRepetitions)
	}
	if c.PriorWeight < 0 || c.PriorWeight > 1 {
		return fmt.Errorf("prior_weight must be in [0, 1], got %f", c.PriorWeight)
	}
	if c.Episodes <= 0 {
		return fmt.Errorf("episodes must be > 0, got %d", c.Episodes)
	}
	if c.CheckpointEvery <= 0 {
		return fmt.Errorf("checkpoint_every must be > 0, got %d", c.CheckpointEvery)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	switch c.StoreKind {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("unsupported store backend: %s", c.StoreKind)
	}
	return nil
}
