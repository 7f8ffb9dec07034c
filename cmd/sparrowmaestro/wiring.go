package main

import (
	"context"
	"fmt"
	"log"

	"github.com/sguter90/sparrowmaestro/pkg/cache"
	"github.com/sguter90/sparrowmaestro/pkg/config"
	"github.com/sguter90/sparrowmaestro/pkg/database"
	"github.com/sguter90/sparrowmaestro/pkg/ingest"
	"github.com/sguter90/sparrowmaestro/pkg/live"
	"github.com/sguter90/sparrowmaestro/pkg/notehub"
	"github.com/sguter90/sparrowmaestro/pkg/parser/sparrow"
	"github.com/sguter90/sparrowmaestro/pkg/provider"
	"github.com/sguter90/sparrowmaestro/pkg/service"
)

// App holds the wired components shared by all commands
type App struct {
	Config    *config.Config
	Client    *notehub.Client
	DB        *database.DatabaseManager
	Cache     *cache.RedisCache
	Composite *provider.CompositeDataProvider
	Service   *service.AppService
	Ingestor  *ingest.Ingestor
	Hub       *live.Hub
}

// buildApp wires the remote provider, the optional persisted store and the
// application service from the configuration
func buildApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}
	registry := sparrow.NewRegistry()

	clientOpts := []notehub.ClientOption{
		notehub.WithHistoricalMinutes(cfg.Hub.HistoricalDataRecentMins),
		notehub.WithRateLimit(cfg.Hub.RequestsPerSecond, cfg.Hub.RequestBurst),
	}
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.CacheTTL)
		if err != nil {
			log.Printf("⚠ Redis unavailable, Notehub responses will not be cached: %v", err)
		} else {
			app.Cache = redisCache
			clientOpts = append(clientOpts, notehub.WithCache(redisCache))
			log.Printf("✓ Caching Notehub responses in Redis at %s", cfg.Redis.Addr)
		}
	}

	app.Client = notehub.NewClient(cfg.Hub.BaseURL, cfg.Hub.ProjectUID, cfg.Hub.AuthToken, clientOpts...)
	remote := notehub.NewProvider(app.Client, registry)
	store := notehub.NewAttributeStore(app.Client)

	var (
		persisted   provider.DataProvider
		handler     provider.EventHandler
		serviceOpts []service.Option
	)
	if cfg.HasDatabase() {
		dm, err := database.NewDatabaseManager(cfg.Database.URL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := dm.Init(); err != nil {
			dm.Close()
			app.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		app.DB = dm
		persisted = database.NewProvider(dm, database.WithDefaultWindow(cfg.Hub.HistoricalDataRecentMins))
		handler = database.NewEventHandler(dm)
		serviceOpts = append(serviceOpts, service.WithAttributeMirror(dm))
		log.Println("✓ Persisted store enabled")
	} else {
		handler = provider.NoopEventHandler{}
		log.Println("⚠ DATABASE_URL not set, serving Notehub data only")
	}

	app.Composite = provider.NewCompositeDataProvider(handler, app.Client, registry, remote, persisted)
	app.Hub = live.NewHub(cfg.AllowedOrigins())
	serviceOpts = append(serviceOpts, service.WithPublisher(app.Hub))

	svc, err := service.NewAppService(cfg.Hub.ProjectUID, app.Composite, store, registry, app.Composite, serviceOpts...)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Service = svc
	app.Ingestor = ingest.NewIngestor(svc)

	return app, nil
}

// Close releases the database and cache connections
func (a *App) Close() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Printf("❌ Failed to close database: %v", err)
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			log.Printf("❌ Failed to close Redis: %v", err)
		}
	}
}
