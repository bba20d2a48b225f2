package config

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"rdwrapper/internal/logger"
	"rdwrapper/internal/store"
	"rdwrapper/pkg/realdebrid"
)

type Config struct {
	APIToken  string
	Username  string
	Password  string
	Anonymous bool

	Timeout           time.Duration
	Proxy             string
	BaseURL           string
	WebURL            string
	TokenCache        string
	FolderConcurrency int

	Port     int
	LogLevel string
	LogDev   bool
	APIKey   string
}

func Load() *Config {
	return &Config{
		APIToken:          getEnv("RDW_API_TOKEN", ""),
		Username:          getEnv("RDW_USERNAME", ""),
		Password:          getEnv("RDW_PASSWORD", ""),
		Anonymous:         getEnvBool("RDW_ANONYMOUS", false),
		Timeout:           getEnvDuration("RDW_TIMEOUT", realdebrid.DefaultTimeout),
		Proxy:             getEnv("RDW_PROXY", ""),
		BaseURL:           getEnv("RDW_BASE_URL", realdebrid.DefaultBaseURL),
		WebURL:            getEnv("RDW_WEB_URL", realdebrid.DefaultWebURL),
		TokenCache:        getEnv("RDW_TOKEN_CACHE", store.DefaultPath()),
		FolderConcurrency: getEnvInt("RDW_FOLDER_CONCURRENCY", realdebrid.DefaultFolderConcurrency),
		Port:              getEnvInt("PORT", 8080),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogDev:            getEnvBool("LOG_DEV", false),
		APIKey:            getEnv("API_KEY", ""),
	}
}

// Validate reports a realdebrid configuration error when no usable
// credential mode is configured.
func (c *Config) Validate() error {
	switch {
	case c.Anonymous:
	case c.APIToken != "":
	case c.Username != "" && c.Password != "":
	case c.Username != "" || c.Password != "":
		return &realdebrid.Error{Code: realdebrid.CodeConfiguration, Message: "RDW_USERNAME and RDW_PASSWORD must be set together"}
	default:
		return &realdebrid.Error{Code: realdebrid.CodeConfiguration, Message: "set RDW_API_TOKEN, RDW_USERNAME and RDW_PASSWORD, or RDW_ANONYMOUS"}
	}
	if c.Timeout <= 0 {
		return &realdebrid.Error{Code: realdebrid.CodeConfiguration, Message: "RDW_TIMEOUT must be positive"}
	}
	if c.FolderConcurrency <= 0 {
		return &realdebrid.Error{Code: realdebrid.CodeConfiguration, Message: "RDW_FOLDER_CONCURRENCY must be positive"}
	}
	return nil
}

// usesTokenCache is true when the client will log in with a username and
// password, the only mode that produces tokens worth caching.
func (c *Config) usesTokenCache() bool {
	return !c.Anonymous && c.APIToken == "" && c.Username != "" && c.TokenCache != ""
}

// ClientOptions maps the configuration to realdebrid options. The returned
// closer releases the token cache and must be called once the client is
// no longer needed.
func (c *Config) ClientOptions() ([]realdebrid.Option, io.Closer, error) {
	opts := []realdebrid.Option{
		realdebrid.WithTimeout(c.Timeout),
		realdebrid.WithBaseURL(c.BaseURL),
		realdebrid.WithWebURL(c.WebURL),
		realdebrid.WithFolderConcurrency(c.FolderConcurrency),
		realdebrid.WithLogger(logger.L),
	}
	if c.Proxy != "" {
		opts = append(opts, realdebrid.WithProxy(c.Proxy))
	}

	switch {
	case c.Anonymous:
		opts = append(opts, realdebrid.WithAnonymousAccess())
	case c.APIToken != "":
		opts = append(opts, realdebrid.WithAPIToken(c.APIToken))
	default:
		opts = append(opts, realdebrid.WithCredentials(c.Username, c.Password))
	}

	if !c.usesTokenCache() {
		return opts, nopCloser{}, nil
	}
	cache, err := store.Open(c.TokenCache)
	if err != nil {
		return nil, nil, &realdebrid.Error{Code: realdebrid.CodeConfiguration, Message: "cannot open token cache " + c.TokenCache, Err: err}
	}
	return append(opts, realdebrid.WithTokenCache(cache)), cache, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

// getEnvDuration accepts Go durations ("30s") and plain seconds ("30").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return fallback
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}
