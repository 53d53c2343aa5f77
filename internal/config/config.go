package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the resolved proxy configuration.
type Config struct {
	Host string
	Port int

	LogLevel string

	// ProxyAPIKey is the short key clients present to the proxy.
	ProxyAPIKey string

	// Bloxs upstream credentials and base URL.
	BloxsAPIKey    string
	BloxsAPISecret string
	BloxsBaseURL   string

	// EnableLearning is the raw flag value ("1", "true", "yes" enable).
	EnableLearning string
	// LearningDB is the SQLite path backing the learn keyspace.
	LearningDB string

	// ForbiddenNames are owner names that must never appear in responses.
	ForbiddenNames []string
}

// Init loads .env and config.yaml, then binds environment variables.
func Init(cfgFile string) {
	// Load .env file (ignore if not exists)
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()

	// The deployment contract names these variables exactly, so they are
	// bound outside the usual key replacer scheme.
	_ = viper.BindEnv("proxy.api_key", "PROXY_API_KEY")
	_ = viper.BindEnv("bloxs.api_key", "BLOXS_API_KEY")
	_ = viper.BindEnv("bloxs.api_secret", "BLOXS_API_SECRET")
	_ = viper.BindEnv("bloxs.base_url", "BLOXS_BASE_URL")
	_ = viper.BindEnv("learning.enabled", "ENABLE_LEARNING")
	_ = viper.BindEnv("learning.db", "LEARNING_DB")
	_ = viper.BindEnv("proxy.forbidden_names", "PROXY_FORBIDDEN_NAMES")
	_ = viper.BindEnv("log.level", "LOG_LEVEL")
	_ = viper.BindEnv("server.port", "PORT")
	_ = viper.BindEnv("server.host", "HOST")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	}
}

// Load resolves the typed configuration from viper and validates required
// fields.
func Load() (*Config, error) {
	cfg := &Config{
		Host:           viper.GetString("server.host"),
		Port:           viper.GetInt("server.port"),
		LogLevel:       viper.GetString("log.level"),
		ProxyAPIKey:    viper.GetString("proxy.api_key"),
		BloxsAPIKey:    viper.GetString("bloxs.api_key"),
		BloxsAPISecret: viper.GetString("bloxs.api_secret"),
		BloxsBaseURL:   strings.TrimRight(viper.GetString("bloxs.base_url"), "/"),
		EnableLearning: viper.GetString("learning.enabled"),
		LearningDB:     viper.GetString("learning.db"),
		ForbiddenNames: splitNames(viper.GetString("proxy.forbidden_names")),
	}

	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.ProxyAPIKey == "" {
		return nil, fmt.Errorf("config: PROXY_API_KEY is required")
	}
	if cfg.BloxsBaseURL == "" {
		return nil, fmt.Errorf("config: BLOXS_BASE_URL is required")
	}

	return cfg, nil
}

// LearningEnabled reports whether the learning flag parses as truthy.
func (c *Config) LearningEnabled() bool {
	switch strings.ToLower(strings.TrimSpace(c.EnableLearning)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func splitNames(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}
