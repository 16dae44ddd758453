package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all service configuration. Values come from an optional YAML
// file and are then overridden by environment variables.
type Config struct {
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-default:"http://localhost:5173,http://localhost:3000"`

	Gemini   GeminiConfig   `yaml:"gemini"`
	Agent    AgentConfig    `yaml:"agent"`
	Postgres PostgresConfig `yaml:"postgres"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	Minio    MinioConfig    `yaml:"minio"`
}

type GeminiConfig struct {
	// APIKey may be empty; backend calls then fail through the normal error path.
	APIKey string `yaml:"api_key" env:"GEMINI_API_KEY"`
	Model  string `yaml:"model" env:"GEMINI_MODEL" env-default:"gemini-2.5-flash"`

	// CallTimeout bounds each individual generation request.
	CallTimeout time.Duration `yaml:"call_timeout" env:"GEMINI_CALL_TIMEOUT" env-default:"90s"`

	RequestsPerSecond float64 `yaml:"requests_per_second" env:"GEMINI_RPS" env-default:"2"`
	Burst             int     `yaml:"burst" env:"GEMINI_BURST" env-default:"4"`
}

type AgentConfig struct {
	MaxInFlight       int64         `yaml:"max_in_flight" env:"AGENT_MAX_IN_FLIGHT" env-default:"8"`
	AnalyticsMaxChars int           `yaml:"analytics_max_chars" env:"AGENT_ANALYTICS_MAX_CHARS" env-default:"8000"`
	SessionRetention  time.Duration `yaml:"session_retention" env:"AGENT_SESSION_RETENTION" env-default:"1h"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn" env:"POSTGRES_DSN"`
}

type MongoConfig struct {
	URI      string `yaml:"uri" env:"MONGO_URI"`
	Database string `yaml:"database" env:"MONGO_DB" env-default:"research_dashboard"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"redis:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"minio:9000"`
	AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET" env-default:"research-exports"`
	UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
}

// Load reads configuration. When path is empty only the environment is used.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	// API_KEY is the name the browser build used.
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("API_KEY")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Agent.AnalyticsMaxChars <= 0 {
		return fmt.Errorf("agent.analytics_max_chars must be positive, got %d", c.Agent.AnalyticsMaxChars)
	}
	if c.Agent.MaxInFlight <= 0 {
		return fmt.Errorf("agent.max_in_flight must be positive, got %d", c.Agent.MaxInFlight)
	}
	if c.Agent.SessionRetention <= 0 {
		return fmt.Errorf("agent.session_retention must be positive, got %s", c.Agent.SessionRetention)
	}
	if c.Gemini.RequestsPerSecond <= 0 || c.Gemini.Burst <= 0 {
		return fmt.Errorf("gemini rate limit must be positive")
	}
	return nil
}
