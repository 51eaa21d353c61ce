package initialization

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all service configuration
type Config struct {
	HTTPAddress string

	// Storage
	MongoURI      string
	MongoDatabase string
	RedisURL      string

	// Google OAuth client
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleScopes       string
	CalendarID         string

	// Secrets
	TokenMasterKey string
	SessionSecret  string

	StateTTL                time.Duration
	AccessTokenSafetyMargin time.Duration
	ExportConcurrency       int
	ExportRatePerSecond     float64

	CORSOrigins string
}

// LoadConfig loads configuration from files and environment variables.
// configFile overrides the config file search when set.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set up explicit mappings between struct fields and environment variables
	envMappings := map[string]string{
		"HTTPAddress":             "HTTP_ADDRESS",
		"MongoURI":                "MONGODB_URI",
		"MongoDatabase":           "MONGODB_DATABASE",
		"RedisURL":                "REDIS_URL",
		"GoogleClientID":          "GOOGLE_CLIENT_ID",
		"GoogleClientSecret":      "GOOGLE_CLIENT_SECRET",
		"GoogleRedirectURL":       "GOOGLE_REDIRECT_URL",
		"GoogleScopes":            "GOOGLE_SCOPES",
		"CalendarID":              "GOOGLE_CALENDAR_ID",
		"TokenMasterKey":          "TOKEN_MASTER_KEY",
		"SessionSecret":           "SESSION_SECRET",
		"StateTTL":                "OAUTH_STATE_TTL",
		"AccessTokenSafetyMargin": "ACCESS_TOKEN_SAFETY_MARGIN",
		"ExportConcurrency":       "EXPORT_CONCURRENCY",
		"ExportRatePerSecond":     "EXPORT_RATE_PER_SECOND",
		"CORSOrigins":             "CORS_ORIGINS",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("calendarlink")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.calendarlink")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	log.Debug().
		Str("http_address", config.HTTPAddress).
		Str("mongo_database", config.MongoDatabase).
		Bool("redis_state_store", config.RedisURL != "").
		Str("calendar_id", config.CalendarID).
		Msg("Config loaded")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTPAddress", ":8080")
	v.SetDefault("MongoURI", "mongodb://localhost:27017")
	v.SetDefault("MongoDatabase", "MiCuatriDatabase")
	v.SetDefault("GoogleScopes", "openid https://www.googleapis.com/auth/userinfo.email https://www.googleapis.com/auth/calendar.events")
	v.SetDefault("CalendarID", "primary")
	v.SetDefault("StateTTL", 10*time.Minute)
	v.SetDefault("AccessTokenSafetyMargin", 60*time.Second)
	v.SetDefault("ExportConcurrency", 4)
	v.SetDefault("ExportRatePerSecond", 8)
	v.SetDefault("CORSOrigins", "http://localhost:3000")
}

func validateConfig(config *Config) error {
	var missingVars []string

	if config.GoogleClientID == "" {
		missingVars = append(missingVars, "GOOGLE_CLIENT_ID")
	}

	if config.GoogleClientSecret == "" {
		missingVars = append(missingVars, "GOOGLE_CLIENT_SECRET")
	}

	if config.GoogleRedirectURL == "" {
		missingVars = append(missingVars, "GOOGLE_REDIRECT_URL")
	}

	if config.TokenMasterKey == "" {
		missingVars = append(missingVars, "TOKEN_MASTER_KEY")
	}

	if config.SessionSecret == "" {
		missingVars = append(missingVars, "SESSION_SECRET")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %s\n\nGenerate a master key with: calendarlink keygen",
			strings.Join(missingVars, ", "))
	}

	key, err := base64.StdEncoding.DecodeString(config.TokenMasterKey)
	if err != nil || len(key) != 32 {
		return fmt.Errorf("TOKEN_MASTER_KEY must be 32 bytes encoded as base64")
	}

	if config.ExportConcurrency < 1 {
		return fmt.Errorf("EXPORT_CONCURRENCY must be at least 1, got %d", config.ExportConcurrency)
	}

	if config.ExportRatePerSecond < 0 {
		return fmt.Errorf("EXPORT_RATE_PER_SECOND cannot be negative")
	}

	if config.StateTTL <= 0 {
		return fmt.Errorf("OAUTH_STATE_TTL must be positive")
	}

	return nil
}

// Scopes splits GoogleScopes on whitespace or commas.
func (c *Config) Scopes() []string {
	return splitList(c.GoogleScopes)
}

func (c *Config) CORSOriginList() []string {
	return splitList(c.CORSOrigins)
}

func splitList(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}
