package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MemoryDSN as DATABASE_URL selects the in-process store.
const MemoryDSN = "memory"

// Config holds all configuration for the server.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// DatabaseURL is the Postgres connection string, or MemoryDSN.
	DatabaseURL string

	// SessionSecret signs the cookie session holding identity and preferences.
	SessionSecret string

	// SiteURL is the public base URL, used for the sitemap and canonical links.
	SiteURL string

	// RefreshInterval is the max age of the list before a page view refetches it.
	RefreshInterval time.Duration

	TemplatesDir string
	StaticDir    string

	LogLevel string
	LogJSON  bool

	// CORSOrigins are allowed to call the JSON API. Empty allows all.
	CORSOrigins []string
}

// InMemory reports whether the in-process store is selected.
func (c *Config) InMemory() bool {
	return c.DatabaseURL == MemoryDSN
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
	}

	refresh := 15 * time.Second
	if v := os.Getenv("LIST_REFRESH_INTERVAL"); v != "" {
		var err error
		refresh, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid LIST_REFRESH_INTERVAL: %w", err)
		}
	}

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "launchpad_secret_change_me"
	}

	var origins []string
	for _, o := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	logJSON, _ := strconv.ParseBool(os.Getenv("LOG_JSON"))

	return &Config{
		Port:            port,
		DatabaseURL:     getenv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=launchpad port=5432 sslmode=disable"),
		SessionSecret:   secret,
		SiteURL:         strings.TrimRight(getenv("SITE_URL", fmt.Sprintf("http://localhost:%d", port)), "/"),
		RefreshInterval: refresh,
		TemplatesDir:    getenv("TEMPLATES_DIR", "./web/templates"),
		StaticDir:       getenv("STATIC_DIR", "./web/static"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogJSON:         logJSON,
		CORSOrigins:     origins,
	}, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
