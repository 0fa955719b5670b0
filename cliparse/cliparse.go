package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             int
	DatabaseURL      string
	DatabaseType     string
	JWTSecret        string
	JWTAudience      string
	RedisURL         string
	CacheTTL         time.Duration
	CORSOrigin       string
	LoginURL         string
	ConcealOwnership bool
	LogLevel         string
	LogFormat        string
}

// ParseFlags reads flags, then an optional .env file, then the environment.
// Flags win over env; env already set wins over the .env file.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var envFile string
	var cacheTTL int

	flags := flag.NewFlagSet("pollbase", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	flags.IntVar(&cfg.Port, "p", 0, "Server port")
	flags.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	flags.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	flags.StringVar(&cfg.RedisURL, "redis", "", "Redis URL for the results cache (optional)")
	flags.IntVar(&cacheTTL, "cache-ttl", 0, "Results cache TTL in seconds")
	flags.StringVar(&cfg.CORSOrigin, "cors-origin", "", "Frontend origin allowed to send credentials (default: any origin, no credentials)")
	flags.StringVar(&cfg.LoginURL, "login-url", "", "Where form posts are redirected when unauthenticated")
	flags.BoolVar(&cfg.ConcealOwnership, "conceal-ownership", false, "Report other users' polls as not found")

	// Secrets (prefer env variables, but allow CLI for dev)
	flags.StringVar(&cfg.JWTSecret, "jwt-secret", "", "Access token signing secret (prefer env)")
	flags.StringVar(&cfg.JWTAudience, "jwt-audience", "", "Required access token audience")

	// Logging
	flags.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&cfg.LogFormat, "log-format", "", "Log format (text or json)")

	flags.StringVar(&envFile, "env-file", ".env", "Optional dotenv file")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	// Explicit flags win even when they hold the zero value
	set := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	// Fall back to environment variables
	if !set["p"] {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("invalid database type %q (sqlite or postgres)", cfg.DatabaseType)
	}

	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}

	if !set["cache-ttl"] {
		if ttlStr := os.Getenv("CACHE_TTL_SECONDS"); ttlStr != "" {
			ttl, err := strconv.Atoi(ttlStr)
			if err != nil || ttl <= 0 {
				return Config{}, errors.New("invalid CACHE_TTL_SECONDS env variable")
			}
			cacheTTL = ttl
		} else {
			cacheTTL = 60
		}
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("invalid cache TTL %d (must be positive)", cacheTTL)
	}
	cfg.CacheTTL = time.Duration(cacheTTL) * time.Second

	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = os.Getenv("CORS_ORIGIN")
	}
	if cfg.LoginURL == "" {
		cfg.LoginURL = os.Getenv("LOGIN_URL")
	}
	if !set["conceal-ownership"] {
		if v := os.Getenv("CONCEAL_OWNERSHIP"); v != "" {
			conceal, err := strconv.ParseBool(v)
			if err != nil {
				return Config{}, errors.New("invalid CONCEAL_OWNERSHIP env variable")
			}
			cfg.ConcealOwnership = conceal
		}
	}

	// Secrets - MUST be provided
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET required")
	}
	if cfg.JWTAudience == "" {
		cfg.JWTAudience = os.Getenv("JWT_AUDIENCE")
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = envOr("LOG_LEVEL", "info")
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = envOr("LOG_FORMAT", "text")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("invalid log format %q (text or json)", cfg.LogFormat)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
