package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultConfigFile is read from the working directory when CONFIG_FILE is unset.
const DefaultConfigFile = "todo.toml"

type Config struct {
	ServerAddr      string        `toml:"server_addr"`
	GinMode         string        `toml:"gin_mode"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	// TrustedProxies lists proxy IPs or CIDRs whose forwarding headers set
	// the client IP. Empty trusts none.
	TrustedProxies  []string      `toml:"trusted_proxies"`

	DBDriver   string `toml:"db_driver"`
	DBPath     string `toml:"db_path"`
	DBHost     string `toml:"db_host"`
	DBPort     string `toml:"db_port"`
	DBUser     string `toml:"db_user"`
	DBPassword string `toml:"db_password"`
	DBName     string `toml:"db_name"`

	SessionStore  string `toml:"session_store"`
	SessionSecret string `toml:"session_secret"`
	SessionMaxAge int    `toml:"session_max_age"`

	RedisHost     string `toml:"redis_host"`
	RedisPort     string `toml:"redis_port"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	LoginLimiter     string        `toml:"login_limiter"`
	LoginMaxAttempts int           `toml:"login_max_attempts"`
	LoginWindow      time.Duration `toml:"login_window"`

	BcryptCost int `toml:"bcrypt_cost"`

	OpenAIAPIKey  string `toml:"openai_api_key"`
	OpenAIBaseURL string `toml:"openai_base_url"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		ServerAddr:       ":8080",
		GinMode:          "debug",
		ShutdownTimeout:  10 * time.Second,
		DBDriver:         "sqlite",
		DBPath:           "todo.db",
		DBHost:           "localhost",
		DBPort:           "3306",
		DBUser:           "todo",
		DBPassword:       "todo",
		DBName:           "todo",
		SessionStore:     "cookie",
		SessionMaxAge:    86400 * 7,
		RedisHost:        "localhost",
		RedisPort:        "6379",
		LoginLimiter:     "memory",
		LoginMaxAttempts: 5,
		LoginWindow:      15 * time.Minute,
		BcryptCost:       10,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load builds the configuration from defaults, an optional TOML file and
// the environment, in that order of precedence.
func Load() (*Config, error) {
	cfg := Defaults()

	path, explicit := os.LookupEnv("CONFIG_FILE")
	if !explicit {
		path = DefaultConfigFile
	}
	if err := loadFile(cfg, path, explicit); err != nil {
		return nil, err
	}

	applyEnv(cfg)
	return cfg, nil
}

func loadFile(cfg *Config, path string, required bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("decoding config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.ServerAddr = getEnv("SERVER_ADDR", cfg.ServerAddr)
	cfg.GinMode = getEnv("GIN_MODE", cfg.GinMode)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.TrustedProxies = getEnvList("TRUSTED_PROXIES", cfg.TrustedProxies)

	cfg.DBDriver = getEnv("DB_DRIVER", cfg.DBDriver)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)

	cfg.SessionStore = getEnv("SESSION_STORE", cfg.SessionStore)
	cfg.SessionSecret = getEnv("SESSION_SECRET", cfg.SessionSecret)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", cfg.SessionMaxAge)

	cfg.RedisHost = getEnv("REDIS_HOST", cfg.RedisHost)
	cfg.RedisPort = getEnv("REDIS_PORT", cfg.RedisPort)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)

	cfg.LoginLimiter = getEnv("LOGIN_LIMITER", cfg.LoginLimiter)
	cfg.LoginMaxAttempts = getEnvInt("LOGIN_MAX_ATTEMPTS", cfg.LoginMaxAttempts)
	cfg.LoginWindow = getEnvDuration("LOGIN_WINDOW", cfg.LoginWindow)

	cfg.BcryptCost = getEnvInt("BCRYPT_COST", cfg.BcryptCost)

	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
}

// RedisAddr returns host:port for the Redis server.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvList(key string, defaultValue []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
