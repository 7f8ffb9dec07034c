package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the runtime settings of sparrowmaestro
type Config struct {
	Hub struct {
		BaseURL                  string  `mapstructure:"base_url"`
		ProjectUID               string  `mapstructure:"project_uid"`
		AuthToken                string  `mapstructure:"auth_token"`
		HistoricalDataRecentMins int     `mapstructure:"historical_data_recent_minutes"`
		RequestsPerSecond        float64 `mapstructure:"requests_per_second"`
		RequestBurst             int     `mapstructure:"request_burst"`
	} `mapstructure:"hub"`
	Database struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"database"`
	Redis struct {
		Addr     string        `mapstructure:"addr"`
		CacheTTL time.Duration `mapstructure:"cache_ttl"`
	} `mapstructure:"redis"`
	MQTT struct {
		Broker   string `mapstructure:"broker"`
		Topic    string `mapstructure:"topic"`
		ClientID string `mapstructure:"client_id"`
	} `mapstructure:"mqtt"`
	Server struct {
		Port           string `mapstructure:"port"`
		AllowedOrigins string `mapstructure:"allowed_origins"`
	} `mapstructure:"server"`
	JWT struct {
		Secret string `mapstructure:"secret"`
	} `mapstructure:"jwt"`
}

// envKeys maps config keys to the environment variables that set them
var envKeys = map[string]string{
	"hub.base_url":                       "HUB_BASE_URL",
	"hub.project_uid":                    "HUB_PROJECT_UID",
	"hub.auth_token":                     "HUB_AUTH_TOKEN",
	"hub.historical_data_recent_minutes": "HUB_HISTORICAL_DATA_RECENT_MINUTES",
	"hub.requests_per_second":            "HUB_REQUESTS_PER_SECOND",
	"hub.request_burst":                  "HUB_REQUEST_BURST",
	"database.url":                       "DATABASE_URL",
	"redis.addr":                         "REDIS_ADDR",
	"redis.cache_ttl":                    "REDIS_CACHE_TTL",
	"mqtt.broker":                        "MQTT_BROKER",
	"mqtt.topic":                         "MQTT_TOPIC",
	"mqtt.client_id":                     "MQTT_CLIENT_ID",
	"server.port":                        "SERVER_PORT",
	"server.allowed_origins":             "SERVER_ALLOWED_ORIGINS",
	"jwt.secret":                         "JWT_SECRET",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("hub.base_url", "https://api.notefile.net")
	v.SetDefault("hub.historical_data_recent_minutes", 4320)
	v.SetDefault("hub.requests_per_second", 5.0)
	v.SetDefault("hub.request_burst", 10)
	v.SetDefault("redis.cache_ttl", time.Minute)
	v.SetDefault("mqtt.topic", "sparrow/events")
	v.SetDefault("mqtt.client_id", "sparrowmaestro")
	v.SetDefault("server.port", "8059")
}

// Load reads sparrowmaestro.yaml from path when present and applies the environment on top
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("sparrowmaestro")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	setDefaults(v)

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		log.Printf("✓ Loaded config file %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings every command needs
func (c *Config) Validate() error {
	if c.Hub.ProjectUID == "" {
		return errors.New("HUB_PROJECT_UID is not set")
	}
	if c.Hub.AuthToken == "" {
		return errors.New("HUB_AUTH_TOKEN is not set")
	}
	if c.Hub.HistoricalDataRecentMins <= 0 {
		return fmt.Errorf("HUB_HISTORICAL_DATA_RECENT_MINUTES must be positive, got %d", c.Hub.HistoricalDataRecentMins)
	}
	return nil
}

// AllowedOrigins returns the configured CORS origins, or the local development defaults
func (c *Config) AllowedOrigins() []string {
	if c.Server.AllowedOrigins == "" {
		return []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}
	}

	origins := strings.Split(c.Server.AllowedOrigins, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	return origins
}

// HasDatabase reports whether a persisted store is configured
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}
