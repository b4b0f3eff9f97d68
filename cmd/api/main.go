package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/karpool/karpool-client/internal/api/handlers"
	"github.com/karpool/karpool-client/internal/api/routes"
	"github.com/karpool/karpool-client/internal/backend"
	"github.com/karpool/karpool-client/internal/config"
	"github.com/karpool/karpool-client/internal/domain/geo"
	"github.com/karpool/karpool-client/internal/service/auth"
	"github.com/karpool/karpool-client/internal/service/lifecycle"
	"github.com/karpool/karpool-client/internal/service/location"
	"github.com/karpool/karpool-client/internal/service/prompt"
	"github.com/karpool/karpool-client/internal/service/search"
	"github.com/karpool/karpool-client/internal/store"
	"github.com/karpool/karpool-client/pkg/cache"
	"github.com/karpool/karpool-client/pkg/chat"
	"github.com/karpool/karpool-client/pkg/logger"
	"github.com/karpool/karpool-client/pkg/maps"
	"github.com/karpool/karpool-client/pkg/monitoring"
	"github.com/karpool/karpool-client/pkg/session"
	"github.com/karpool/karpool-client/pkg/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Karpool client engine",
		logger.String("env", cfg.Server.Env),
		logger.String("port", cfg.Server.Port),
		logger.String("backend", cfg.Backend.BaseURL),
	)

	// Initialize New Relic
	nrApp, err := monitoring.New(monitoring.Config{
		LicenseKey: cfg.NewRelic.LicenseKey,
		AppName:    cfg.NewRelic.AppName,
		Enabled:    cfg.NewRelic.Enabled,
		LogLevel:   cfg.NewRelic.LogLevel,
	})
	if err != nil {
		appLogger.Warn("Failed to initialize New Relic", logger.Err(err))
		nrApp = monitoring.Disabled()
	} else if nrApp.IsEnabled() {
		appLogger.Info("New Relic APM initialized successfully",
			logger.String("app_name", cfg.NewRelic.AppName),
			logger.Bool("enabled", true))
	} else {
		appLogger.Info("New Relic APM disabled")
	}
	defer nrApp.Shutdown(10 * time.Second)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Token persistence
	tokens, redisClient, err := newTokenStore(rootCtx, cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize token store", logger.Err(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
		appLogger.Info("Connected to Redis successfully")
	}

	// Chat storage
	chats, err := newChatStore(rootCtx, cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize chat store", logger.Err(err))
	}
	defer chats.Close()

	// Map providers
	geocoder, router, err := newMapProviders(cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize map providers", logger.Err(err))
	}

	// Initialize WebSocket hub and the bridge that feeds it
	wsHub := websocket.NewHub(appLogger)
	push := handlers.NewPush(rootCtx, wsHub, chats, appLogger)
	go wsHub.Run(rootCtx)

	// Stores
	sessionStore := store.NewSession()
	geoStore := store.NewGeo(geo.Coordinate{Latitude: cfg.Defaults.Latitude, Longitude: cfg.Defaults.Longitude})
	scheduleStore := store.NewSchedule(sessionStore.Role, time.Now)
	tripStore := store.NewTrips()
	requestStore := store.NewRequests()
	defer push.Follow(sessionStore, geoStore, scheduleStore, tripStore, requestStore)()

	// Backend client
	api := backend.NewClient(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	}, tokens, appLogger, backend.WithNewRelic(nrApp))

	// Services
	confirm := prompt.FromContext{}
	authService := auth.NewService(api, tokens, auth.Stores{
		Session:  sessionStore,
		Geo:      geoStore,
		Schedule: scheduleStore,
		Trips:    tripStore,
		Requests: requestStore,
	}, push, confirm, nrApp, appLogger)
	lifecycleService := lifecycle.NewService(api, sessionStore, tripStore, requestStore, push, confirm, nrApp, appLogger)
	searchService := search.NewService(api, sessionStore, geoStore, scheduleStore, tripStore, push, nrApp, appLogger)
	locationService := location.NewService(api, geocoder, router, geoStore, push, appLogger)

	txn := nrApp.StartTransaction("session-restore")
	restoreCtx := newrelic.NewContext(rootCtx, txn)
	if restored, err := authService.Restore(restoreCtx); err != nil {
		appLogger.Warn("Failed to restore session", logger.Err(err))
	} else if restored {
		if err := locationService.SyncBookmarks(restoreCtx); err != nil {
			appLogger.Warn("Failed to sync bookmarks", logger.Err(err))
		}
	}
	txn.End()

	h := &handlers.Handlers{
		Auth:      authService,
		Lifecycle: lifecycleService,
		Search:    searchService,
		Location:  locationService,
		Chat:      chats,
		Session:   sessionStore,
		Geo:       geoStore,
		Schedule:  scheduleStore,
		Trips:     tripStore,
		Requests:  requestStore,
		Hub:       wsHub,
		Upgrader:  newUpgrader(cfg.WebSocket),
		Logger:    appLogger,
	}

	// Initialize Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	var nrApplication *newrelic.Application
	if nrApp.IsEnabled() {
		nrApplication = nrApp.Application
	}
	routes.SetupRoutes(engine, h, nrApplication, cfg.WebSocket.AllowedOrigins)

	appLogger.Info("Routes configured successfully")

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		// Writes wait on the backend, which has its own timeout
		WriteTimeout:      cfg.Backend.Timeout + 15*time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in a goroutine
	go func() {
		appLogger.Info("Server starting", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", logger.Err(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.Err(err))
	}
	stop()

	appLogger.Info("Server stopped gracefully")
}

func newTokenStore(ctx context.Context, cfg *config.Config) (session.TokenStore, *cache.Client, error) {
	switch cfg.Session.Store {
	case config.SessionMemory:
		return session.NewMemoryStore(), nil, nil
	case config.SessionRedis:
		client, err := cache.NewRedisClient(ctx, cache.Config{
			Host:       cfg.Redis.Host,
			Port:       cfg.Redis.Port,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			MaxRetries: cfg.Redis.MaxRetries,
			PoolSize:   cfg.Redis.PoolSize,
			Timeout:    cfg.Redis.Timeout,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisStore(client, cfg.Session.DeviceID), client, nil
	default:
		return session.NewFileStore(cfg.Session.TokenFile), nil, nil
	}
}

func newChatStore(ctx context.Context, cfg *config.Config) (chat.Store, error) {
	if !cfg.Firebase.Enabled {
		return chat.NewMemoryStore(nil), nil
	}
	return chat.NewFirestoreStore(ctx, chat.FirestoreConfig{
		ProjectID:       cfg.Firebase.ProjectID,
		CredentialsFile: cfg.Firebase.CredentialsFile,
	})
}

func newMapProviders(cfg *config.Config) (maps.Geocoder, maps.Router, error) {
	var google *maps.GoogleMapsProvider
	if cfg.Maps.Geocoder == config.ProviderGoogle || cfg.Maps.Router == config.ProviderGoogle {
		var err error
		google, err = maps.NewGoogleMapsProvider(cfg.Maps.GoogleAPIKey, cfg.Maps.GoogleBaseURL)
		if err != nil {
			return nil, nil, err
		}
	}

	var geocoder maps.Geocoder = maps.NewNominatimProvider(cfg.Maps.NominatimURL, cfg.Maps.UserAgent)
	if cfg.Maps.Geocoder == config.ProviderGoogle {
		geocoder = google
	}

	var router maps.Router = maps.NewOpenRouteServiceProvider(cfg.Maps.ORSAPIKey, cfg.Maps.ORSBaseURL)
	if cfg.Maps.Router == config.ProviderGoogle {
		router = google
	}
	return geocoder, router, nil
}

func newUpgrader(cfg config.WebSocketConfig) gorilla.Upgrader {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = true
	}

	return gorilla.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Native shells send no Origin; the server listens on loopback by default
			return origin == "" || len(allowed) == 0 || allowed[origin]
		},
	}
}
