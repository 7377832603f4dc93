// Package config loads ambient operational settings (ADB path, image
// matcher binary, OCR endpoint/engine, default thresholds, log level)
// through viper, with cobra flags binding into it and a local .env
// loaded for development credentials.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Settings is the ambient, operational configuration — distinct from
// the per-run input JSON documented in SPEC_FULL.md §6, which carries
// the test case itself.
type Settings struct {
	AdbPath          string  `mapstructure:"adb_path"`
	DeviceID         string  `mapstructure:"device_id"`
	ImageMatcherPath string  `mapstructure:"image_matcher_path"`
	OfflineOCRPath   string  `mapstructure:"offline_ocr_path"`
	OCREndpoint      string  `mapstructure:"ocr_endpoint"`
	ImageThreshold   float64 `mapstructure:"image_threshold"`
	LogLevel         string  `mapstructure:"log_level"`
	LogPretty        bool    `mapstructure:"log_pretty"`
	GeminiAPIKey     string  `mapstructure:"gemini_api_key"`
	GeminiModel      string  `mapstructure:"gemini_model"`
	KnowledgeBaseDir string  `mapstructure:"knowledge_base_dir"`
	ScriptOutputDir  string  `mapstructure:"script_output_dir"`
	MaxRounds        int     `mapstructure:"max_rounds"`
}

// Defaults returns the built-in settings used when nothing else is configured.
func Defaults() Settings {
	return Settings{
		AdbPath:        "adb",
		ImageThreshold: 0.6,
		LogLevel:       "info",
		LogPretty:      true,
		GeminiModel:    "gemini-2.5-flash",
		MaxRounds:      30,
	}
}

// Load merges built-in defaults, an optional config file, environment
// variables prefixed TKE_ (a .env file, if present, only adds variables
// not already set) and the given flags. Precedence, lowest to highest:
// defaults, config file, environment, flags set on the command line; a
// flag left at its default does not override any other source.
func Load(configPath string, flags *pflag.FlagSet) (Settings, error) {
	_ = godotenv.Load() // a missing .env is not an error

	v := viper.New()
	def := Defaults()
	v.SetDefault("adb_path", def.AdbPath)
	v.SetDefault("image_threshold", def.ImageThreshold)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_pretty", def.LogPretty)
	v.SetDefault("gemini_model", def.GeminiModel)
	v.SetDefault("max_rounds", def.MaxRounds)

	v.SetEnvPrefix("TKE")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return Settings{}, fmt.Errorf("config: read %s: %w", configPath, err)
			}
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Settings{}, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return s, nil
}

// RequireEnv reads a required environment variable, returning a
// configuration error (fatal at startup per the error taxonomy) if unset.
func RequireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("config: required environment variable %s is not set", key)
	}
	return v, nil
}
