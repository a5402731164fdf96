// Package config loads process configuration from the environment.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the risk engine service.
type Config struct {
	ListenAddr    string
	LogLevel      string
	DatabaseDSN   string
	RedisAddr     string
	LatencyBudget time.Duration

	TrainingWindowDays   int
	TrainingMinSamples   int
	TrainingLearningRate float64
	TrainingEpochs       int
}

// Load reads configuration from environment variables (and a .env file when
// present), applying defaults for anything unset.
func Load() *Config {
	viper.AutomaticEnv()

	viper.SetDefault("LISTEN_ADDR", ":8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LATENCY_BUDGET_MS", 2000)
	viper.SetDefault("TRAINING_WINDOW_DAYS", 90)
	viper.SetDefault("TRAINING_MIN_SAMPLES", 100)
	viper.SetDefault("TRAINING_LEARNING_RATE", 0.01)
	viper.SetDefault("TRAINING_EPOCHS", 1000)

	return &Config{
		ListenAddr:    viper.GetString("LISTEN_ADDR"),
		LogLevel:      viper.GetString("LOG_LEVEL"),
		DatabaseDSN:   viper.GetString("DATABASE_DSN"),
		RedisAddr:     viper.GetString("REDIS_ADDR"),
		LatencyBudget: time.Duration(viper.GetInt("LATENCY_BUDGET_MS")) * time.Millisecond,

		TrainingWindowDays:   viper.GetInt("TRAINING_WINDOW_DAYS"),
		TrainingMinSamples:   viper.GetInt("TRAINING_MIN_SAMPLES"),
		TrainingLearningRate: viper.GetFloat64("TRAINING_LEARNING_RATE"),
		TrainingEpochs:       viper.GetInt("TRAINING_EPOCHS"),
	}
}
