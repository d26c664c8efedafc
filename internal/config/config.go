// Package config loads exprdiag settings: defaults, then an optional YAML
// file, then EXPRDIAG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/danielpatrickdp/exprdiag/internal/blocker"
	"github.com/danielpatrickdp/exprdiag/internal/diagnostics"
	"github.com/danielpatrickdp/exprdiag/internal/logging"
	"gopkg.in/yaml.v3"
)

// #region types
// Config is the full settings tree.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
	Logging    logging.Config   `yaml:"logging"`
}

// SimulationConfig controls sampling.
type SimulationConfig struct {
	SampleCount        int     `yaml:"sample_count" env:"EXPRDIAG_SAMPLE_COUNT"`
	Seed               uint64  `yaml:"seed" env:"EXPRDIAG_SEED"`
	Workers            int     `yaml:"workers" env:"EXPRDIAG_WORKERS"`
	ConfidenceLevel    float64 `yaml:"confidence_level" env:"EXPRDIAG_CONFIDENCE_LEVEL"`
	SampleWithinRegime bool    `yaml:"sample_within_regime" env:"EXPRDIAG_SAMPLE_WITHIN_REGIME"`
}

// AnalysisConfig tunes blockers, fit and recommendations.
type AnalysisConfig struct {
	NearMissEpsilon       float64 `yaml:"near_miss_epsilon" env:"EXPRDIAG_NEAR_MISS_EPSILON"`
	GateChokeShare        float64 `yaml:"gate_choke_share" env:"EXPRDIAG_GATE_CHOKE_SHARE"`
	ThresholdChokeShare   float64 `yaml:"threshold_choke_share" env:"EXPRDIAG_THRESHOLD_CHOKE_SHARE"`
	PassGivenGateSuppress float64 `yaml:"pass_given_gate_suppress" env:"EXPRDIAG_PASS_GIVEN_GATE_SUPPRESS"`
	DefaultThreshold      float64 `yaml:"default_threshold" env:"EXPRDIAG_DEFAULT_THRESHOLD"`
	MaxBlockers           int     `yaml:"max_blockers" env:"EXPRDIAG_MAX_BLOCKERS"`
	MaxRecommendations    int     `yaml:"max_recommendations" env:"EXPRDIAG_MAX_RECOMMENDATIONS"`
}

// StorageConfig locates the snapshot database.
type StorageConfig struct {
	DBPath string `yaml:"db_path" env:"EXPRDIAG_DB_PATH"`
}

// ServerConfig configures the gRPC listener.
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr" env:"EXPRDIAG_GRPC_ADDR"`
}

// #endregion types

// #region defaults
// Default mirrors each package's DefaultConfig.
func Default() Config {
	d := diagnostics.DefaultConfig()
	return Config{
		Simulation: SimulationConfig{
			SampleCount:        d.Simulation.SampleCount,
			Seed:               d.Simulation.Seed,
			Workers:            d.Simulation.Workers,
			ConfidenceLevel:    d.Simulation.ConfidenceLevel,
			SampleWithinRegime: d.Simulation.SampleWithinRegime,
		},
		Analysis: AnalysisConfig{
			NearMissEpsilon:       d.Blocker.NearMissEpsilon,
			GateChokeShare:        d.Recommend.GateChokeShare,
			ThresholdChokeShare:   d.Recommend.ThresholdChokeShare,
			PassGivenGateSuppress: d.Recommend.PassGivenGateSuppress,
			DefaultThreshold:      d.Fit.DefaultThreshold,
			MaxBlockers:           d.Blocker.MaxBlockers,
			MaxRecommendations:    d.Recommend.MaxRecommendations,
		},
		Storage: StorageConfig{DBPath: "exprdiag.db"},
		Server:  ServerConfig{GRPCAddr: "127.0.0.1:7070"},
		Logging: logging.DefaultConfig(),
	}
}

// #endregion defaults

// #region load
// Load applies the YAML file at path (skipped when path is empty) and then
// the environment over the defaults. A named file that does not exist is an
// error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no run could use.
func (c Config) Validate() error {
	var errs []error
	if c.Simulation.SampleCount < 0 {
		errs = append(errs, fmt.Errorf("simulation.sample_count must be >= 0, got %d", c.Simulation.SampleCount))
	}
	if c.Simulation.ConfidenceLevel <= 0 || c.Simulation.ConfidenceLevel >= 1 {
		errs = append(errs, fmt.Errorf("simulation.confidence_level must be in (0, 1), got %v", c.Simulation.ConfidenceLevel))
	}
	if c.Analysis.ThresholdChokeShare > c.Analysis.GateChokeShare {
		errs = append(errs, fmt.Errorf("analysis.threshold_choke_share %v exceeds gate_choke_share %v",
			c.Analysis.ThresholdChokeShare, c.Analysis.GateChokeShare))
	}
	if c.Analysis.NearMissEpsilon < 0 {
		errs = append(errs, fmt.Errorf("analysis.near_miss_epsilon must be >= 0, got %v", c.Analysis.NearMissEpsilon))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// #endregion load

// #region convert
// Diagnostics converts the settings into the pipeline config.
func (c Config) Diagnostics() diagnostics.Config {
	d := diagnostics.DefaultConfig()
	d.Simulation.SampleCount = c.Simulation.SampleCount
	d.Simulation.Seed = c.Simulation.Seed
	d.Simulation.Workers = c.Simulation.Workers
	d.Simulation.ConfidenceLevel = c.Simulation.ConfidenceLevel
	d.Simulation.SampleWithinRegime = c.Simulation.SampleWithinRegime

	d.Blocker = blocker.Config{
		NearMissEpsilon: c.Analysis.NearMissEpsilon,
		TunableShare:    d.Blocker.TunableShare,
		DecisiveShare:   d.Blocker.DecisiveShare,
		MaxBlockers:     c.Analysis.MaxBlockers,
	}
	d.Fit.DefaultThreshold = c.Analysis.DefaultThreshold
	d.Recommend.GateChokeShare = c.Analysis.GateChokeShare
	d.Recommend.ThresholdChokeShare = c.Analysis.ThresholdChokeShare
	d.Recommend.PassGivenGateSuppress = c.Analysis.PassGivenGateSuppress
	d.Recommend.MaxRecommendations = c.Analysis.MaxRecommendations
	return d
}

// #endregion convert
