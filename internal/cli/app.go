package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-wiki/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-wiki/internal/adapters/driven/bleve"
	"github.com/custodia-labs/sercha-wiki/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/sercha-wiki/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-wiki/internal/adapters/driven/urls"
	"github.com/custodia-labs/sercha-wiki/internal/adapters/driven/vespa"
	"github.com/custodia-labs/sercha-wiki/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-wiki/internal/config"
	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-wiki/internal/core/services"
	"github.com/custodia-labs/sercha-wiki/internal/normalisers"
	"github.com/custodia-labs/sercha-wiki/internal/runtime"
	"github.com/custodia-labs/sercha-wiki/internal/worker"
)

// app holds the wired service graph shared by the commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db        *postgres.DB
	redis     *redis.Client
	redisLock *redisadapter.Lock
	engines   *runtime.EngineRegistry
	indexer   *services.BatchIndexer

	search   driving.SearchService
	indexing driving.IndexingService
	events   driving.EventListener
	tokens   driven.TokenValidator
}

// newApp connects the stores and builds the services. The engine is opened
// lazily by the registry; the indexer's workers are not started.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	factory, err := engineFactory(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.engines = runtime.NewEngineRegistry(cfg.Engine.Backend, factory)

	logger.Info("connecting to PostgreSQL")
	dbConfig := postgres.DefaultConfig(cfg.Database.URL)
	dbConfig.MaxOpenConns = cfg.Database.MaxOpenConns
	dbConfig.MaxIdleConns = cfg.Database.MaxIdleConns
	a.db, err = postgres.Connect(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := a.db.InitSchema(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	var (
		jobStore driven.JobStore        = postgres.NewJobStore(a.db)
		lock     driven.DistributedLock = postgres.NewAdvisoryLock(a.db)
	)
	if cfg.Redis.URL != "" {
		logger.Info("connecting to Redis")
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		jobStore = redisadapter.NewJobStore(a.redis, cfg.Redis.JobRetention)
		a.redisLock = redisadapter.NewLock(a.redis)
		lock = a.redisLock
	}

	tokens, err := auth.NewValidator(auth.Config{
		Secret:     cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.Issuer,
		APIKeyHash: cfg.Auth.APIKeyHash,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("configure auth: %w", err)
	}
	a.tokens = tokens

	contentStore := postgres.NewContentStore(a.db)
	registry := normalisers.DefaultRegistry()
	mapper := services.NewFieldMapper(services.FieldMapperConfig{
		Renderer:           normalisers.NewRenderer(registry),
		Extractor:          normalisers.NewExtractor(registry, cfg.Indexing.MaxExtractBytes),
		DefaultLanguage:    cfg.Search.DefaultLanguage,
		ExcludedProperties: cfg.Indexing.ExcludedProperties,
		Logger:             logger,
	})

	a.indexer = services.NewBatchIndexer(services.BatchIndexerConfig{
		Engines:      a.engines,
		ContentStore: contentStore,
		Mapper:       mapper,
		JobStore:     jobStore,
		Pool: worker.NewPool(worker.PoolConfig{
			Logger:      logger,
			Concurrency: cfg.Indexing.WorkerConcurrency,
			QueueSize:   cfg.Indexing.QueueSize,
		}),
		BatchSize:        cfg.Indexing.BatchSize,
		BatchesPerSecond: cfg.Indexing.BatchesPerSecond,
		Logger:           logger,
	})

	a.indexing = services.NewIndexingService(services.IndexingServiceConfig{
		Indexer:      a.indexer,
		ContentStore: contentStore,
		Engines:      a.engines,
		Mapper:       mapper,
		JobStore:     jobStore,
		Lock:         lock,
		LockTTL:      cfg.Indexing.RebuildLockTTL,
		Logger:       logger,
	})

	a.events = services.NewEventListener(services.EventListenerConfig{
		Indexing:     a.indexing,
		ContentStore: contentStore,
		Engines:      a.engines,
		Mapper:       mapper,
		Logger:       logger,
	})

	a.search = services.NewSearchService(services.SearchServiceConfig{
		Engines: a.engines,
		Builder: services.NewQueryBuilder(logger),
		Processor: services.NewResponseProcessor(services.ResponseProcessorConfig{
			Access:           postgres.NewAccessChecker(a.db),
			URLs:             urls.NewBuilder(cfg.Wiki.BaseURL, cfg.Wiki.MainWiki),
			FallbackLanguage: cfg.Search.FallbackLanguage,
			Parallelism:      cfg.Search.Parallelism,
			Logger:           logger,
		}),
		DefaultLanguage: cfg.Search.DefaultLanguage,
		QueryTimeout:    cfg.Search.QueryTimeout,
		FieldsCacheTTL:  cfg.Search.FieldsCacheTTL,
		Logger:          logger,
	})

	return a, nil
}

// engineFactory returns the opener for the configured backend.
func engineFactory(cfg *config.Config, logger *slog.Logger) (runtime.EngineFactory, error) {
	switch cfg.Engine.Backend {
	case config.BackendBleve:
		return func(ctx context.Context) (driven.IndexEngine, error) {
			engine, err := bleve.Open(bleve.Config{Path: cfg.Engine.BlevePath, Logger: logger})
			if err != nil {
				return nil, err
			}
			return engine, nil
		}, nil

	case config.BackendVespa:
		return func(ctx context.Context) (driven.IndexEngine, error) {
			if cfg.Engine.VespaConfigURL != "" {
				deployer, err := vespa.NewDeployer(cfg.Engine.VespaConfigURL)
				if err != nil {
					return nil, err
				}
				logger.Info("deploying vespa schema", "languages", cfg.Engine.Languages)
				if err := deployer.Deploy(ctx, cfg.Engine.Languages); err != nil {
					return nil, fmt.Errorf("deploy vespa schema: %w", err)
				}
			}
			vespaConfig := vespa.DefaultConfig(cfg.Engine.VespaURL, cfg.Engine.Languages)
			vespaConfig.Logger = logger
			engine, err := vespa.NewEngine(vespaConfig)
			if err != nil {
				return nil, err
			}
			return engine, nil
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedBackend, cfg.Engine.Backend)
	}
}

// newServer builds the HTTP server over the app's services.
func (a *app) newServer() *http.Server {
	serverConfig := http.Config{
		Host:           a.cfg.Server.Host,
		Port:           a.cfg.Server.Port,
		Version:        Version,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		Logger:         a.logger,
	}

	// A nil *Lock stored in the interface would defeat the server's nil check
	var redisPinger http.Pinger
	if a.redisLock != nil {
		redisPinger = a.redisLock
	}

	return http.NewServer(
		serverConfig,
		a.search,
		a.indexing,
		a.events,
		a.tokens,
		http.PingFunc(a.pingEngine),
		a.db,
		redisPinger,
	)
}

func (a *app) pingEngine(ctx context.Context) error {
	engine, err := a.engines.Engine(ctx)
	if err != nil {
		return err
	}
	return engine.HealthCheck(ctx)
}

// Close stops the indexer and releases every connection.
func (a *app) Close() error {
	var errs []error
	if a.indexer != nil {
		a.indexer.Stop()
	}
	if a.engines != nil {
		if err := a.engines.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("close engine: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
