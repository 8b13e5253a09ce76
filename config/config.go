// Package config loads engine configuration from the environment and an
// optional .env file, and builds the structured logger.
package config

import (
	"errors"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	DB      DBConfig
	Booking BookingConfig
}

type AppConfig struct {
	Name    string
	Port    int
	Debug   bool
	LogPath string
}

type DBConfig struct {
	Path string
}

type BookingConfig struct {
	CancellationWindowHours int
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	viper.SetDefault("APP_NAME", "cargo-engine")
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("DB_PATH", "cargo.db")
	viper.SetDefault("CANCELLATION_WINDOW_HOURS", 24)

	if err := viper.ReadInConfig(); err != nil {
		// A missing .env is fine; environment variables still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}
	viper.AutomaticEnv()

	return &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetInt("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		DB: DBConfig{
			Path: viper.GetString("DB_PATH"),
		},
		Booking: BookingConfig{
			CancellationWindowHours: viper.GetInt("CANCELLATION_WINDOW_HOURS"),
		},
	}, nil
}
