package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Mail     MailConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	CORSOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN assembles the postgres connection URL.
func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

type AuthConfig struct {
	JWTSecret          string
	SessionSecret      string
	GoogleClientID     string
	GoogleClientSecret string
	OIDCIssuer         string
	OIDCRedirectURL    string
	AdminEmail         string
}

type MailConfig struct {
	Enabled         bool
	AWSRegion       string
	AccessKeyID     string
	SecretAccessKey string
	Sender          string
}

type RedisConfig struct {
	Addr      string
	Password  string
	RateLimit bool
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type ObservabilityConfig struct {
	TracingEnabled bool
	JaegerEndpoint string
	ServiceName    string
}

// IsProduction reports whether the service runs in release mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || os.Getenv("GIN_MODE") == "release"
}

// Load reads configs/.env or .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        getenv("PORT", "8080"),
			Env:         getenv("ENV", "development"),
			CORSOrigins: splitCSV(getenv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		},
		Database: DatabaseConfig{
			Host:     getenv("DB_HOST", "localhost"),
			Port:     getenv("DB_PORT", "5432"),
			User:     getenv("DB_USER", "postgres"),
			Password: getenv("DB_PASSWORD", "postgres"),
			Name:     getenv("DB_NAME", "postgres"),
			SSLMode:  getenv("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:          os.Getenv("JWT_SECRET"),
			SessionSecret:      os.Getenv("SESSION_SECRET"),
			GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			OIDCIssuer:         getenv("OIDC_ISSUER", "https://accounts.google.com"),
			OIDCRedirectURL:    getenv("OIDC_REDIRECT_URL", "http://localhost:8080/auth/callback"),
			AdminEmail:         os.Getenv("ADMIN_EMAIL"),
		},
		Mail: MailConfig{
			Enabled:         getbool("ENABLE_EMAIL", false),
			AWSRegion:       getenv("AWS_REGION", "ap-southeast-1"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Sender:          os.Getenv("MAIL_SENDER"),
		},
		Redis: RedisConfig{
			Addr:      getenv("REDIS_ADDR", "localhost:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			RateLimit: getbool("RATE_LIMIT_ENABLED", true),
		},
		Kafka: KafkaConfig{
			Enabled: getbool("KAFKA_ENABLED", false),
			Brokers: splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getenv("KAFKA_TOPIC_EVENTS", "kelabpetani.events"),
		},
		Observ: ObservabilityConfig{
			TracingEnabled: getbool("TRACING_ENABLED", false),
			JaegerEndpoint: getenv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			ServiceName:    getenv("SERVICE_NAME", "kelabpetani-api"),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET environment variable is required in production mode")
		}
		cfg.Auth.JWTSecret = "default_super_secret_key" // development fallback only
	}
	if cfg.Auth.SessionSecret == "" {
		cfg.Auth.SessionSecret = cfg.Auth.JWTSecret
	}
	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
