// Package config loads the process-wide configuration shared by the board Lambdas.
//
// Configuration is read once per process in main and passed explicitly to the
// handlers; it is never mutated afterwards. Missing credentials do not fail
// loading: each handler checks the keys it needs at invocation time so the
// caller receives a 500 listing what is absent.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment keys.
const (
	KeySupabaseURL     = "SUPABASE_URL"
	KeySupabaseKey     = "SUPABASE_KEY"
	KeySupabaseDBURL   = "SUPABASE_DB_URL"
	KeyDeepSeekAPIKey  = "DEEPSEEK_API_KEY"
	KeyDeepSeekBaseURL = "DEEPSEEK_BASE_URL"
	KeyDeepSeekModel   = "DEEPSEEK_MODEL"
	KeyVoyageKey       = "VOYAGE_KEY"
	KeyVoyageBaseURL   = "VOYAGE_BASE_URL"
	KeyLogLevel        = "LOG_LEVEL"
	KeyLogFormat       = "LOG_FORMAT"
	KeyEnvironment     = "ENVIRONMENT"
)

// Config holds the values every handler may read.
type Config struct {
	SupabaseURL     string
	SupabaseKey     string
	SupabaseDBURL   string
	DeepSeekAPIKey  string
	DeepSeekBaseURL string
	DeepSeekModel   string
	VoyageKey       string
	VoyageBaseURL   string
	LogLevel        string
	LogFormat       string
	Environment     string
}

// Load reads configuration from the environment, after merging a local .env
// file when one exists (local runs; Lambda never ships one).
func Load() *Config {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	v := viper.New()
	v.SetDefault(KeyDeepSeekBaseURL, "https://api.deepseek.com")
	v.SetDefault(KeyDeepSeekModel, "deepseek-chat")
	v.SetDefault(KeyVoyageBaseURL, "https://api.voyageai.com/v1")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")
	v.SetDefault(KeyEnvironment, "dev")
	v.AutomaticEnv()

	get := func(key string) string {
		return strings.TrimSpace(v.GetString(key))
	}

	return &Config{
		SupabaseURL:     strings.TrimRight(get(KeySupabaseURL), "/"),
		SupabaseKey:     get(KeySupabaseKey),
		SupabaseDBURL:   get(KeySupabaseDBURL),
		DeepSeekAPIKey:  get(KeyDeepSeekAPIKey),
		DeepSeekBaseURL: strings.TrimRight(get(KeyDeepSeekBaseURL), "/"),
		DeepSeekModel:   get(KeyDeepSeekModel),
		VoyageKey:       get(KeyVoyageKey),
		VoyageBaseURL:   strings.TrimRight(get(KeyVoyageBaseURL), "/"),
		LogLevel:        get(KeyLogLevel),
		LogFormat:       get(KeyLogFormat),
		Environment:     get(KeyEnvironment),
	}
}

// Missing returns, in the order given, the keys whose value is empty.
func (c *Config) Missing(keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if c.value(k) == "" {
			missing = append(missing, k)
		}
	}
	return missing
}

func (c *Config) value(key string) string {
	switch key {
	case KeySupabaseURL:
		return c.SupabaseURL
	case KeySupabaseKey:
		return c.SupabaseKey
	case KeySupabaseDBURL:
		return c.SupabaseDBURL
	case KeyDeepSeekAPIKey:
		return c.DeepSeekAPIKey
	case KeyDeepSeekBaseURL:
		return c.DeepSeekBaseURL
	case KeyDeepSeekModel:
		return c.DeepSeekModel
	case KeyVoyageKey:
		return c.VoyageKey
	case KeyVoyageBaseURL:
		return c.VoyageBaseURL
	}
	return ""
}

// KeyPrefix returns a loggable prefix of a credential, never the full secret.
func KeyPrefix(key string) string {
	if len(key) > 15 {
		return key[:15] + "..."
	}
	return "SHORT"
}
