package config

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	// WebServer Configuration
	WebServerPort int `mapstructure:"WEBSERVER_PORT"`

	// Database Configuration
	DatabaseDSN     string `mapstructure:"DATABASE_DSN" validate:"required"`
	DatabaseRetries int    `mapstructure:"DATABASE_RETRIES"`

	// Storage Configuration
	MediaDir     string `mapstructure:"MEDIA_DIR" validate:"required"`
	ThumbnailDir string `mapstructure:"THUMBNAIL_DIR" validate:"required"`

	// Thumbnail Configuration
	ThumbnailOffsetPercent float64 `mapstructure:"THUMBNAIL_OFFSET_PERCENT" validate:"gt=0,lt=1"`
	ThumbnailTimeoutSecs   int     `mapstructure:"THUMBNAIL_TIMEOUT_SECONDS" validate:"gt=0"`

	// AI Enrichment Configuration
	DeepSeekAPIKey    string `mapstructure:"DEEPSEEK_API_KEY"`
	DeepSeekBaseURL   string `mapstructure:"DEEPSEEK_BASE_URL"`
	DeepSeekModel     string `mapstructure:"DEEPSEEK_MODEL"`
	AIItemTimeoutSecs int    `mapstructure:"AI_ITEM_TIMEOUT_SECONDS" validate:"gt=0"`
	AISystemPrompt    string `mapstructure:"AI_SYSTEM_PROMPT"`
	AIUserPromptTmpl  string `mapstructure:"AI_USER_PROMPT_TEMPLATE"`
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag != "" {
			viper.BindEnv(tag)
		}

		// Handle nested structs
		if field.Type.Kind() == reflect.Struct && tag == "" {
			nestedTyp := fieldVal.Type()
			for j := 0; j < fieldVal.NumField(); j++ {
				nestedField := nestedTyp.Field(j)
				nestedTag := nestedField.Tag.Get("mapstructure")
				if nestedTag != "" {
					viper.BindEnv(nestedTag)
				}
			}
		}
	}
	slog.Info("Environment variables bound", "config", c)
}

func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("WEBSERVER_PORT", 8080)
	viper.SetDefault("DATABASE_RETRIES", 10)
	viper.SetDefault("THUMBNAIL_OFFSET_PERCENT", 0.10)
	viper.SetDefault("THUMBNAIL_TIMEOUT_SECONDS", 30)
	viper.SetDefault("AI_ITEM_TIMEOUT_SECONDS", 45)

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	slog.Info("Loaded configuration", "config", cfg)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
