package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("WIKI_CONSUMER_KEY", "ckey")
	t.Setenv("WIKI_CONSUMER_SECRET", "csecret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "ckey", cfg.ConsumerKey)
	assert.Equal(t, "csecret", cfg.ConsumerSecret)
	assert.False(t, cfg.UseOutOfBand)
	assert.Equal(t, BackendMemory, cfg.StorageBackend)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout())
	assert.Equal(t, 10*time.Minute, cfg.PendingTTL())
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL())
}

func TestLoadConfigRequiresConsumerCredentials(t *testing.T) {
	t.Setenv("WIKI_CONSUMER_KEY", "")
	t.Setenv("WIKI_CONSUMER_SECRET", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigTrimsCredentials(t *testing.T) {
	t.Setenv("WIKI_CONSUMER_KEY", "  ckey \n")
	t.Setenv("WIKI_CONSUMER_SECRET", " csecret ")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "ckey", cfg.ConsumerKey)
	assert.Equal(t, "csecret", cfg.ConsumerSecret)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WIKI_OAUTH_USE_OOB", "true")
	t.Setenv("STORAGE_BACKEND", BackendRedis)
	t.Setenv("WIKI_API_URL", "https://wiki.internal/w/api.php")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.UseOutOfBand)
	assert.Equal(t, BackendRedis, cfg.StorageBackend)
	assert.Equal(t, "https://wiki.internal/w/api.php", cfg.Endpoints().APIURL)
}

func TestOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: "http://localhost:3000, https://app.example ,,"}
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example"}, cfg.Origins())

	empty := &Config{}
	assert.Empty(t, empty.Origins())
}

func TestEndpointsFallBackToWikimedia(t *testing.T) {
	cfg := &Config{APIURL: "https://wiki.internal/w/api.php"}
	eps := cfg.Endpoints()

	assert.Equal(t, "https://wiki.internal/w/api.php", eps.APIURL)
	assert.Contains(t, eps.RequestTokenURL, "meta.wikimedia.org")
	assert.Contains(t, eps.RequestTokenURL, "Special:OAuth/initiate")
	assert.Contains(t, eps.AuthorizeURL, "Special:OAuth/authorize")
	assert.Contains(t, eps.AccessTokenURL, "Special:OAuth/token")
}

func TestCallbackURL(t *testing.T) {
	cfg := &Config{PublicURL: "https://gateway.example/"}
	assert.Equal(t, "https://gateway.example/auth/callback", cfg.CallbackURL())

	cfg.PublicURL = "https://gateway.example"
	assert.Equal(t, "https://gateway.example/auth/callback", cfg.CallbackURL())
}
