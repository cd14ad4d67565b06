package config // package config loads application configuration from environment variables

import (
    "log/slog" // slog reports a .env file that exists but cannot be parsed
    "os"       // os provides access to environment variables
    "time"     // time parses the shutdown grace period

    "github.com/joho/godotenv" // godotenv fills the environment from a local .env file
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; every variable has a default so the service
// starts with no configuration at all.
type Config struct {
    Env             string          // application environment (e.g. "dev", "prod")
    Port            string          // HTTP port to listen on
    StorePath       string          // JSON file holding every patient record
    LogLevel        string          // debug, info, warn or error
    ShutdownTimeout time.Duration   // grace period for in-flight requests on shutdown
    RateLimit       RateLimitConfig // token bucket settings, see ratelimit.go
    Events          EventsConfig    // patient event publishing, see events.go
}

// Load reads configuration values from environment variables and returns a
// Config.  When a .env file is present in the working directory (or at the
// path in ENV_FILE) it is loaded first; variables already set in the process
// environment win over the file.
func Load() Config {
    loadDotEnv()
    return Config{
        Env:             envStr("APP_ENV", "dev"),            // environment (dev/test/prod)
        Port:            envStr("APP_PORT", "8000"),          // port to bind the HTTP server
        StorePath:       envStr("STORE_PATH", "patient.json"), // backing store file
        LogLevel:        envStr("LOG_LEVEL", "info"),         // log verbosity
        ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
        RateLimit:       LoadRateLimitConfig(),
        Events:          LoadEventsConfig(),
    }
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string { return ":" + c.Port }

func loadDotEnv() {
    path := envStr("ENV_FILE", ".env")
    if _, err := os.Stat(path); err != nil {
        return
    }
    if err := godotenv.Load(path); err != nil {
        slog.Warn("ignoring unreadable env file", "path", path, "error", err)
    }
}
