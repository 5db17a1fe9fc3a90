package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/wikigate"
	"go.pilab.hu/wikigate/api"
	apiecho "go.pilab.hu/wikigate/api/echo"
	"go.pilab.hu/wikigate/config"
	wlog "go.pilab.hu/wikigate/log"
	"go.pilab.hu/wikigate/middleware"
	"go.pilab.hu/wikigate/store"
	mongostore "go.pilab.hu/wikigate/store/mongodb"
	redisstore "go.pilab.hu/wikigate/store/redis"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("configured_level", cfg.LogLevel).Msg("invalid log level in config, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("backend", cfg.StorageBackend).
		Bool("out_of_band", cfg.UseOutOfBand).
		Str("consumer_key", wikigate.TokenPreview(cfg.ConsumerKey)).
		Msg("wikigate starting")

	sessionStore, cleanup, err := buildStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session store")
	}
	defer cleanup()

	requester := wikigate.NewRequester(wikigate.RequesterConfig{
		Consumer:  wikigate.Credentials{Key: cfg.ConsumerKey, Secret: cfg.ConsumerSecret},
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
	})

	endpoints := cfg.Endpoints()
	auth := wikigate.NewAuthService(requester, sessionStore, wikigate.AuthServiceConfig{
		Endpoints:   endpoints,
		CallbackURL: cfg.CallbackURL(),
		OutOfBand:   cfg.UseOutOfBand,
		PendingTTL:  cfg.PendingTTL(),
		SessionTTL:  cfg.SessionTTL(),
	})
	proxy := wikigate.NewProxyService(requester, sessionStore, endpoints.APIURL, cfg.SessionTTL())

	origins := cfg.Origins()
	messageOrigin := ""
	if len(origins) > 0 {
		messageOrigin = origins[0]
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.CORS(origins))
	e.Use(middleware.RequestLogger(wlog.NewZerologAdapter(level, cfg.LogPretty)))

	gw := apiecho.NewGatewayAPI(auth, proxy, api.ClientConfig{
		IsOutOfBand: cfg.UseOutOfBand,
		APIURL:      endpoints.APIURL,
	}, messageOrigin)
	gw.RegisterRoutes(e)

	go func() {
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// buildStore assembles the configured session store. Durable backends are
// fronted by a memory fallback unless explicitly disabled, so a storage
// outage degrades to process-local sessions instead of failed logins.
func buildStore(cfg *config.Config) (wikigate.SessionStore, func(), error) {
	memory := store.NewMemoryStore()

	wrap := func(durable wikigate.SessionStore) wikigate.SessionStore {
		if cfg.DisableMemoryFallback {
			return durable
		}
		return store.NewFallbackStore(durable, memory)
	}

	switch cfg.StorageBackend {
	case config.BackendRedis:
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return wrap(redisstore.New(rdb, cfg.RedisPrefix)), func() {
			_ = rdb.Close()
			_ = memory.Close()
		}, nil

	case config.BackendMongoDB:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient, err := mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		durable, err := mongostore.New(ctx, mongoClient.Database(cfg.MongoDBName))
		if err != nil {
			return nil, nil, err
		}
		return wrap(durable), func() {
			disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer disconnectCancel()
			_ = mongoClient.Disconnect(disconnectCtx)
			_ = memory.Close()
		}, nil

	default:
		return memory, func() { _ = memory.Close() }, nil
	}
}
