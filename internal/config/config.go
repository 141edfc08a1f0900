// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/pricecast/internal/modules/additive"
	"github.com/aristath/pricecast/internal/modules/forecasting"
	"github.com/aristath/pricecast/internal/modules/sequence"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Deployment limits for the model hyperparameters. Fitting cost grows with each of them.
const (
	MaxWindowSize  = 250
	MaxEpochs      = 100
	MaxHiddenUnits = 256
	MaxHorizon     = 365
)

// Config holds application configuration
type Config struct {
	DataDir              string // Base directory for the cache database (always absolute)
	LogLevel             string
	LogPretty            bool
	Port                 int
	DevMode              bool
	RequestTimeout       time.Duration
	YahooTimeout         time.Duration
	SeriesCacheTTL       time.Duration
	CacheCleanupSchedule string
	Model                ModelConfig
}

// ModelConfig holds the per-deployment forecasting parameters.
// It can be loaded from a YAML profile (MODEL_PROFILE); environment variables override it.
type ModelConfig struct {
	HistoryYears int `yaml:"history_years"`
	Horizon      int `yaml:"horizon"`

	SeasonalityDaily  bool    `yaml:"seasonality_daily"`
	SeasonalityWeekly bool    `yaml:"seasonality_weekly"`
	SeasonalityYearly bool    `yaml:"seasonality_yearly"`
	IntervalWidth     float64 `yaml:"interval_width"`

	WindowSize   int     `yaml:"window_size"`
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	HiddenUnits  []int   `yaml:"hidden_units"`
	LearningRate float64 `yaml:"learning_rate"`
	Seed         uint64  `yaml:"seed"`
}

func defaultModelConfig() ModelConfig {
	return ModelConfig{
		HistoryYears:      5,
		Horizon:           30,
		SeasonalityDaily:  false,
		SeasonalityWeekly: true,
		SeasonalityYearly: true,
		IntervalWidth:     0.8,
		WindowSize:        60,
		Epochs:            1,
		BatchSize:         1,
		HiddenUnits:       []int{50, 50},
		LearningRate:      0.001,
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PRICECAST_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	model := defaultModelConfig()
	if path := getEnv("MODEL_PROFILE", ""); path != "" {
		if err := loadProfile(path, &model); err != nil {
			return nil, err
		}
	}
	if err := applyModelEnv(&model); err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:              absDataDir,
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogPretty:            getEnvAsBool("LOG_PRETTY", false),
		Port:                 getEnvAsInt("GO_PORT", 8001),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		RequestTimeout:       getEnvAsDuration("REQUEST_TIMEOUT", 120*time.Second),
		YahooTimeout:         getEnvAsDuration("YAHOO_TIMEOUT", 30*time.Second),
		SeriesCacheTTL:       getEnvAsDuration("SERIES_CACHE_TTL", 12*time.Hour),
		CacheCleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", "0 0 3 * * *"),
		Model:                model,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadProfile overlays a YAML model profile onto model. Keys absent from the file keep their current value.
func loadProfile(path string, model *ModelConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model profile: %w", err)
	}
	if err := yaml.Unmarshal(data, model); err != nil {
		return fmt.Errorf("failed to parse model profile %s: %w", path, err)
	}
	return nil
}

func applyModelEnv(m *ModelConfig) error {
	m.HistoryYears = getEnvAsInt("HISTORY_YEARS", m.HistoryYears)
	m.Horizon = getEnvAsInt("FORECAST_HORIZON", m.Horizon)
	m.SeasonalityDaily = getEnvAsBool("SEASONALITY_DAILY", m.SeasonalityDaily)
	m.SeasonalityWeekly = getEnvAsBool("SEASONALITY_WEEKLY", m.SeasonalityWeekly)
	m.SeasonalityYearly = getEnvAsBool("SEASONALITY_YEARLY", m.SeasonalityYearly)
	m.IntervalWidth = getEnvAsFloat("INTERVAL_WIDTH", m.IntervalWidth)
	m.WindowSize = getEnvAsInt("WINDOW_SIZE", m.WindowSize)
	m.Epochs = getEnvAsInt("EPOCHS", m.Epochs)
	m.BatchSize = getEnvAsInt("BATCH_SIZE", m.BatchSize)
	m.LearningRate = getEnvAsFloat("LEARNING_RATE", m.LearningRate)
	m.Seed = uint64(getEnvAsInt("MODEL_SEED", int(m.Seed)))

	if value := os.Getenv("HIDDEN_UNITS"); value != "" {
		units, err := parseHiddenUnits(value)
		if err != nil {
			return err
		}
		m.HiddenUnits = units
	}
	return nil
}

// parseHiddenUnits parses a comma-separated list such as "50,50".
func parseHiddenUnits(value string) ([]int, error) {
	parts := strings.Split(value, ",")
	units := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid HIDDEN_UNITS %q: %w", value, err)
		}
		units = append(units, n)
	}
	return units, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.SeriesCacheTTL <= 0 {
		return fmt.Errorf("SERIES_CACHE_TTL must be positive")
	}
	return c.Model.Validate()
}

// Validate enforces the model parameter ranges.
func (m *ModelConfig) Validate() error {
	if m.HistoryYears <= 0 {
		return fmt.Errorf("history_years must be positive, got %d", m.HistoryYears)
	}
	if m.Horizon <= 0 || m.Horizon > MaxHorizon {
		return fmt.Errorf("horizon must be in [1, %d], got %d", MaxHorizon, m.Horizon)
	}
	if m.IntervalWidth <= 0 || m.IntervalWidth >= 1 {
		return fmt.Errorf("interval_width must be in (0, 1), got %v", m.IntervalWidth)
	}
	if m.WindowSize <= 0 || m.WindowSize > MaxWindowSize {
		return fmt.Errorf("window_size must be in [1, %d], got %d", MaxWindowSize, m.WindowSize)
	}
	if m.Epochs <= 0 || m.Epochs > MaxEpochs {
		return fmt.Errorf("epochs must be in [1, %d], got %d", MaxEpochs, m.Epochs)
	}
	if m.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", m.BatchSize)
	}
	if len(m.HiddenUnits) != 2 {
		return fmt.Errorf("hidden_units must list exactly two layers, got %d", len(m.HiddenUnits))
	}
	for _, u := range m.HiddenUnits {
		if u <= 0 || u > MaxHiddenUnits {
			return fmt.Errorf("hidden units per layer must be in [1, %d], got %d", MaxHiddenUnits, u)
		}
	}
	if m.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive, got %v", m.LearningRate)
	}
	return nil
}

// ToAdditiveConfig converts the model settings to the additive forecaster's configuration
func (m *ModelConfig) ToAdditiveConfig() additive.Config {
	cfg := additive.DefaultConfig()
	cfg.DailySeasonality = m.SeasonalityDaily
	cfg.WeeklySeasonality = m.SeasonalityWeekly
	cfg.YearlySeasonality = m.SeasonalityYearly
	cfg.IntervalWidth = m.IntervalWidth
	return cfg
}

// ToSequenceConfig converts the model settings to the sequence forecaster's configuration
func (m *ModelConfig) ToSequenceConfig() sequence.Config {
	cfg := sequence.DefaultConfig()
	cfg.WindowSize = m.WindowSize
	cfg.Hidden1 = m.HiddenUnits[0]
	cfg.Hidden2 = m.HiddenUnits[1]
	cfg.Epochs = m.Epochs
	cfg.BatchSize = m.BatchSize
	cfg.LearningRate = m.LearningRate
	cfg.Seed = m.Seed
	return cfg
}

// ToPipelineConfig converts the model settings to the pipeline's request defaults
func (m *ModelConfig) ToPipelineConfig() forecasting.Config {
	cfg := forecasting.DefaultConfig()
	cfg.DefaultHorizon = m.Horizon
	cfg.MaxHorizon = MaxHorizon
	cfg.HistoryYears = m.HistoryYears
	cfg.WindowSize = m.WindowSize
	return cfg
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
