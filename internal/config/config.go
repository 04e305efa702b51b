// Package config provides configuration for the memory proxy.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xiaot623/gogo/memproxy/internal/domain"
)

// EnvConfigFile names the environment variable holding the optional YAML config path.
const EnvConfigFile = "MEMPROXY_CONFIG"

// Config holds the memory proxy configuration.
type Config struct {
	// Server settings
	HTTPPort    int    `yaml:"http_port"`
	RoutePrefix string `yaml:"route_prefix"`

	// Database
	DatabaseDriver string `yaml:"database_driver"`
	DatabaseURL    string `yaml:"database_url"`

	// Inference backend
	InferenceBaseURL string        `yaml:"inference_base_url"`
	InferenceAPIKey  string        `yaml:"inference_api_key"`
	InferenceTimeout time.Duration `yaml:"inference_timeout"`
	InferenceMode    string        `yaml:"inference_mode"`

	// Conversation memory
	ContextWindowSize int                `yaml:"context_window_size"`
	SessionTitle      string             `yaml:"session_title"`
	Consistency       domain.Consistency `yaml:"consistency"`

	// Retention
	RetentionAge  time.Duration `yaml:"retention_age"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	SweepTimeout  time.Duration `yaml:"sweep_timeout"`

	// Admission policy
	PolicyFile string `yaml:"policy_file"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPPort:          8080,
		RoutePrefix:       "/llm_api",
		DatabaseDriver:    "sqlite",
		DatabaseURL:       "file:memproxy.db?mode=rwc",
		InferenceTimeout:  60 * time.Second,
		ContextWindowSize: 20,
		SessionTitle:      domain.DefaultSessionTitle,
		Consistency:       domain.ConsistencyRacy,
		RetentionAge:      7 * 24 * time.Hour,
		SweepInterval:     24 * time.Hour,
		SweepTimeout:      30 * time.Second,
		LogLevel:          "info",
	}
}

// Load builds the configuration from defaults, then the YAML file at path (if any),
// then environment variables. An empty path falls back to $MEMPROXY_CONFIG.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.RoutePrefix = getEnv("ROUTE_PREFIX", c.RoutePrefix)
	c.DatabaseDriver = getEnv("DATABASE_DRIVER", c.DatabaseDriver)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)

	// Legacy deployments only name the GPU host; the backend listens on :8000 there.
	if ip := os.Getenv("GPU_SERVER_IP"); ip != "" {
		c.InferenceBaseURL = fmt.Sprintf("http://%s:8000", ip)
	}
	c.InferenceBaseURL = getEnv("INFERENCE_BASE_URL", c.InferenceBaseURL)
	c.InferenceAPIKey = getEnv("LLM_API_KEY", c.InferenceAPIKey)
	c.InferenceTimeout = getEnvDurationMS("INFERENCE_TIMEOUT_MS", c.InferenceTimeout)
	c.InferenceMode = getEnv("INFERENCE_MODE", c.InferenceMode)

	c.ContextWindowSize = getEnvInt("CONTEXT_WINDOW_SIZE", c.ContextWindowSize)
	c.SessionTitle = getEnv("SESSION_TITLE", c.SessionTitle)
	c.Consistency = domain.Consistency(getEnv("CONSISTENCY", string(c.Consistency)))

	if days := getEnvInt("RETENTION_DAYS", 0); days != 0 {
		c.RetentionAge = time.Duration(days) * 24 * time.Hour
	}
	c.SweepInterval = getEnvDurationMS("SWEEP_INTERVAL_MS", c.SweepInterval)
	c.SweepTimeout = getEnvDurationMS("SWEEP_TIMEOUT_MS", c.SweepTimeout)

	c.PolicyFile = getEnv("POLICY_FILE", c.PolicyFile)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("http_port out of range: %d", c.HTTPPort))
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown database_driver %q", c.DatabaseDriver))
	}
	if c.ContextWindowSize <= 0 {
		errs = append(errs, fmt.Errorf("context_window_size must be positive: %d", c.ContextWindowSize))
	}
	if c.RetentionAge <= 0 {
		errs = append(errs, fmt.Errorf("retention_age must be positive: %s", c.RetentionAge))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("sweep_interval must be positive: %s", c.SweepInterval))
	}
	if c.SweepTimeout <= 0 {
		errs = append(errs, fmt.Errorf("sweep_timeout must be positive: %s", c.SweepTimeout))
	}
	if c.InferenceTimeout <= 0 {
		errs = append(errs, fmt.Errorf("inference_timeout must be positive: %s", c.InferenceTimeout))
	}
	if !c.Consistency.Valid() {
		errs = append(errs, fmt.Errorf("unknown consistency %q", c.Consistency))
	}
	if strings.TrimSpace(c.SessionTitle) == "" {
		errs = append(errs, errors.New("session_title must not be empty"))
	}
	if c.RoutePrefix != "" && !strings.HasPrefix(c.RoutePrefix, "/") {
		errs = append(errs, fmt.Errorf("route_prefix must start with '/': %q", c.RoutePrefix))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvDurationMS(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}
