package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"go.pilab.hu/wikigate"
)

// Storage backend selectors.
const (
	BackendMemory  = "memory"
	BackendRedis   = "redis"
	BackendMongoDB = "mongodb"
)

// Config holds all configuration for the gateway. Tags use mapstructure for
// Viper unmarshalling; every key is also readable from the environment.
type Config struct {
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	// PublicURL is the externally visible base URL of this gateway; the
	// OAuth callback URL is derived from it.
	PublicURL string `mapstructure:"PUBLIC_URL"`

	ConsumerKey    string `mapstructure:"WIKI_CONSUMER_KEY"`
	ConsumerSecret string `mapstructure:"WIKI_CONSUMER_SECRET"`

	// UseOutOfBand switches the deployment to the verification-code flow.
	// Out-of-band and redirect completion are mutually exclusive per
	// deployment; each session records the mode it was begun with.
	UseOutOfBand bool `mapstructure:"WIKI_OAUTH_USE_OOB"`

	// Provider endpoints. Empty values fall back to the Wikimedia set.
	RequestTokenURL string `mapstructure:"WIKI_REQUEST_TOKEN_URL"`
	AuthorizeURL    string `mapstructure:"WIKI_AUTHORIZE_URL"`
	AccessTokenURL  string `mapstructure:"WIKI_ACCESS_TOKEN_URL"`
	APIURL          string `mapstructure:"WIKI_API_URL"`

	// AllowedOrigins is a comma-separated CORS allow-list. The first entry
	// is the fallback origin for non-matching requests and the target of
	// the callback page's postMessage.
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	UserAgent      string `mapstructure:"USER_AGENT"`
	HTTPTimeoutSec int    `mapstructure:"HTTP_TIMEOUT_SEC"`

	PendingSessionTTLMin int `mapstructure:"PENDING_SESSION_TTL_MIN"`
	SessionTTLHour       int `mapstructure:"SESSION_TTL_HOUR"`

	// StorageBackend selects memory, redis or mongodb. The durable
	// backends are fronted by a memory fallback unless disabled.
	StorageBackend        string `mapstructure:"STORAGE_BACKEND"`
	DisableMemoryFallback bool   `mapstructure:"DISABLE_MEMORY_FALLBACK"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPrefix   string `mapstructure:"REDIS_PREFIX"`

	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`
}

// LoadConfig reads configuration from file, environment variables, and
// defaults. A missing config file is fine; missing consumer credentials are
// not.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/wikigate/")
	v.AddConfigPath("$HOME/.wikigate")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Every key needs a default so AutomaticEnv can see it during Unmarshal.
	v.SetDefault("WIKI_CONSUMER_KEY", "")
	v.SetDefault("WIKI_CONSUMER_SECRET", "")
	v.SetDefault("WIKI_REQUEST_TOKEN_URL", "")
	v.SetDefault("WIKI_AUTHORIZE_URL", "")
	v.SetDefault("WIKI_ACCESS_TOKEN_URL", "")
	v.SetDefault("WIKI_API_URL", "")
	v.SetDefault("USER_AGENT", "")
	v.SetDefault("DISABLE_MEMORY_FALLBACK", false)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("PUBLIC_URL", "http://localhost:8080")
	v.SetDefault("WIKI_OAUTH_USE_OOB", false)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("HTTP_TIMEOUT_SEC", 15)
	v.SetDefault("PENDING_SESSION_TTL_MIN", 10)
	v.SetDefault("SESSION_TTL_HOUR", 24)
	v.SetDefault("STORAGE_BACKEND", BackendMemory)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PREFIX", "wikigate")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/wikigate")
	v.SetDefault("MONGO_DB_NAME", "wikigate")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	cfg.ConsumerKey = strings.TrimSpace(cfg.ConsumerKey)
	cfg.ConsumerSecret = strings.TrimSpace(cfg.ConsumerSecret)
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, errors.New("WIKI_CONSUMER_KEY and WIKI_CONSUMER_SECRET must be set")
	}

	return &cfg, nil
}

// Origins returns the parsed CORS allow-list.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Endpoints returns the provider endpoint set, falling back to Wikimedia
// for any URL left unset.
func (c *Config) Endpoints() wikigate.Endpoints {
	eps := wikigate.WikimediaEndpoints()
	if c.RequestTokenURL != "" {
		eps.RequestTokenURL = c.RequestTokenURL
	}
	if c.AuthorizeURL != "" {
		eps.AuthorizeURL = c.AuthorizeURL
	}
	if c.AccessTokenURL != "" {
		eps.AccessTokenURL = c.AccessTokenURL
	}
	if c.APIURL != "" {
		eps.APIURL = c.APIURL
	}
	return eps
}

// CallbackURL derives the OAuth callback target from the public base URL.
func (c *Config) CallbackURL() string {
	return strings.TrimRight(c.PublicURL, "/") + "/auth/callback"
}

// HTTPTimeout returns the provider call timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// PendingTTL returns the lifetime of sessions awaiting authorization.
func (c *Config) PendingTTL() time.Duration {
	return time.Duration(c.PendingSessionTTLMin) * time.Minute
}

// SessionTTL returns the sliding window for authenticated sessions.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHour) * time.Hour
}
