// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Sources

Values are resolved in this order:

  1. CLI flags
  2. Environment variables
  3. The dotenv file named by -env-file (default .env, ignored if missing)
  4. Built-in defaults

# Flags and Environment Variables

	-p                  PORT               Server port (default 3318)
	-d                  DATABASE_URL       Database URL (required)
	-t                  DATABASE_TYPE      sqlite or postgres (default sqlite)
	-jwt-secret         JWT_SECRET         Access token secret (required)
	-jwt-audience       JWT_AUDIENCE       Required token audience
	-redis              REDIS_URL          Results cache
	-cache-ttl          CACHE_TTL_SECONDS  Cache TTL (default 60)
	-cors-origin        CORS_ORIGIN        Allowed origin
	-login-url          LOGIN_URL          Redirect for unauthenticated form posts
	-conceal-ownership  CONCEAL_OWNERSHIP  Report others' polls as not found
	-log-level          LOG_LEVEL          debug, info, warn, error
	-log-format         LOG_FORMAT         text or json

# Validation

ParseFlags returns an error if DATABASE_URL or JWT_SECRET is missing, or if
any value fails to parse.
*/
package cliparse
