package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "supersecretjwtkey"

type Config struct {
	Port                    string        `mapstructure:"PORT"`
	MetricsPort             string        `mapstructure:"METRICS_PORT"`
	Env                     string        `mapstructure:"APP_ENV"`
	PostgresConnStr         string        `mapstructure:"POSTGRES_CONN_STR"`
	MongoURI                string        `mapstructure:"MONGO_URI"`
	MongoDatabase           string        `mapstructure:"MONGO_DATABASE"`
	RedisURL                string        `mapstructure:"REDIS_URL"`
	JWTSecret               string        `mapstructure:"JWT_SECRET"`
	SessionTTL              time.Duration `mapstructure:"SESSION_TTL"`
	FirebaseCredentialsPath string        `mapstructure:"FIREBASE_CREDENTIALS_PATH"`
	LogLevel                string        `mapstructure:"LOG_LEVEL"`
	AllowedOrigins          string        `mapstructure:"ALLOWED_ORIGINS"`
}

// ClientConfig configures the SDK-based binaries.
type ClientConfig struct {
	APIURL        string        `mapstructure:"MINISOCIAL_API_URL"`
	Token         string        `mapstructure:"MINISOCIAL_TOKEN"`
	RemoteTimeout time.Duration `mapstructure:"REMOTE_TIMEOUT"`
	RetryMax      int           `mapstructure:"RETRY_MAX"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
}

// Load reads .env when present, then the environment, into a validated Config.
func Load() (*Config, error) {
	loadDotEnv()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8080")
	v.SetDefault("METRICS_PORT", "9090")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("POSTGRES_CONN_STR", "host=localhost user=postgres password=postgres dbname=minisocial port=5432 sslmode=disable")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "minisocial")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("SESSION_TTL", "72h")
	v.SetDefault("FIREBASE_CREDENTIALS_PATH", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ALLOWED_ORIGINS", "*")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// LoadClient reads the configuration shared by SDK consumers.
func LoadClient() (*ClientConfig, error) {
	loadDotEnv()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("MINISOCIAL_API_URL", "http://localhost:8080/api/v1")
	v.SetDefault("MINISOCIAL_TOKEN", "")
	v.SetDefault("REMOTE_TIMEOUT", "10s")
	v.SetDefault("RETRY_MAX", 3)
	v.SetDefault("LOG_LEVEL", "info")

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode client config: %w", err)
	}
	if cfg.APIURL == "" {
		return nil, errors.New("MINISOCIAL_API_URL is required")
	}
	if cfg.RemoteTimeout <= 0 {
		return nil, errors.New("REMOTE_TIMEOUT must be positive")
	}
	if cfg.RetryMax < 0 {
		return nil, errors.New("RETRY_MAX must not be negative")
	}
	return &cfg, nil
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, assuming environment variables are set.")
	}
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.AllowedOrigins == "*" {
			log.Warn("ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Warn("JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}
	return nil
}
