// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Matching MatchingConfig
	Review   ReviewConfig
	Analyzer AnalyzerConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// MatchingConfig tunes duplicate detection.
type MatchingConfig struct {
	DateToleranceDays int     `mapstructure:"date_tolerance_days"`
	SimilarityCutoff  float64 `mapstructure:"similarity_cutoff"`
}

// ReviewConfig tunes the review and undo flow.
type ReviewConfig struct {
	ConfidenceHigh   int `mapstructure:"confidence_high"`
	ConfidenceMedium int `mapstructure:"confidence_medium"`
	UndoWindowDays   int `mapstructure:"undo_window_days"`
}

// AnalyzerConfig tunes the reconciliation scan.
type AnalyzerConfig struct {
	DateGapDays          int     `mapstructure:"date_gap_days"`
	UncategorizedHighPct float64 `mapstructure:"uncategorized_high_pct"`
}

// Load reads configuration from file and env. Env var overrides use prefix
// QUIDBOOKS_; the file lives at $QUIDBOOKS_CONFIG or
// ~/.config/quidbooks/config.toml.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "quidbooks", "quidbooks.db"))
	v.SetDefault("matching.date_tolerance_days", 3)
	v.SetDefault("matching.similarity_cutoff", 0.60)
	v.SetDefault("review.confidence_high", 80)
	v.SetDefault("review.confidence_medium", 50)
	v.SetDefault("review.undo_window_days", 7)
	v.SetDefault("analyzer.date_gap_days", 30)
	v.SetDefault("analyzer.uncategorized_high_pct", 0.25)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("QUIDBOOKS_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "quidbooks"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("QUIDBOOKS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// config file is optional
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate(c); err != nil {
		return Config{}, err
	}
	return c, nil
}

func validate(c Config) error {
	if c.Matching.DateToleranceDays < 0 {
		return fmt.Errorf("matching.date_tolerance_days cannot be negative")
	}
	if c.Matching.SimilarityCutoff < 0 || c.Matching.SimilarityCutoff > 1 {
		return fmt.Errorf("matching.similarity_cutoff must be in [0,1]")
	}
	if c.Review.ConfidenceMedium > c.Review.ConfidenceHigh {
		return fmt.Errorf("review.confidence_medium cannot exceed review.confidence_high")
	}
	if c.Review.UndoWindowDays < 1 {
		return fmt.Errorf("review.undo_window_days must be at least 1")
	}
	if c.Analyzer.DateGapDays < 1 {
		return fmt.Errorf("analyzer.date_gap_days must be at least 1")
	}
	return nil
}
