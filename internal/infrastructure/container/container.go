package container

import (
	"context"
	"fmt"

	"github.com/gdugdh24/handshake-backend/internal/config"
	deliveryhttp "github.com/gdugdh24/handshake-backend/internal/delivery/http"
	"github.com/gdugdh24/handshake-backend/internal/delivery/http/handler"
	"github.com/gdugdh24/handshake-backend/internal/delivery/http/middleware"
	"github.com/gdugdh24/handshake-backend/internal/infrastructure/database"
	"github.com/gdugdh24/handshake-backend/internal/infrastructure/eventbus"
	"github.com/gdugdh24/handshake-backend/internal/infrastructure/gemini"
	"github.com/gdugdh24/handshake-backend/internal/infrastructure/graphdb"
	"github.com/gdugdh24/handshake-backend/internal/infrastructure/server"
	"github.com/gdugdh24/handshake-backend/internal/repository"
	neo4jrepo "github.com/gdugdh24/handshake-backend/internal/repository/neo4j"
	"github.com/gdugdh24/handshake-backend/internal/repository/postgres"
	"github.com/gdugdh24/handshake-backend/internal/usecase/chain"
	"github.com/gdugdh24/handshake-backend/internal/usecase/cluster"
	"github.com/gdugdh24/handshake-backend/internal/usecase/recipient"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client
	Graph  graphdb.Client
	Gemini *gemini.GeminiClient

	Connections repository.ConnectionRepository

	Recipients *recipient.RecipientUseCase
	Chains     *chain.ChainUseCase
	Clusters   *cluster.ClusterUseCase

	Server *server.Server
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log}

	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	c.DB = db

	var publisher eventbus.Publisher = eventbus.NewLogPublisher(log)
	if cfg.Redis.Enabled() {
		redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		c.Redis = redisClient
		publisher = eventbus.NewRedisPublisher(redisClient, cfg.Redis.Stream)
	} else {
		log.Warn("redis not configured, events go to the log")
	}

	var narrator gemini.ChainNarrator = gemini.TemplateNarrator{}
	if cfg.GeminiAPIKey != "" {
		geminiClient, err := gemini.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			// Don't fail, summaries fall back to the template
			log.Warn("failed to initialize gemini client", zap.Error(err))
		} else {
			c.Gemini = geminiClient
			narrator = geminiClient
		}
	}

	userRepo := postgres.NewUserRepository(db)
	skillRepo := postgres.NewSkillRepository(db)
	chainRepo := postgres.NewChainRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	switch cfg.Graph.Backend {
	case config.GraphBackendNeo4j:
		graphClient, err := graphdb.NewNeo4jClient(ctx, graphdb.Options{
			URI:      cfg.Graph.Neo4jURI,
			Database: cfg.Graph.Neo4jDatabase,
			Username: cfg.Graph.Neo4jUser,
			Password: cfg.Graph.Neo4jPassword,
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize graph store: %w", err)
		}
		c.Graph = graphClient
		c.Connections = neo4jrepo.NewConnectionRepository(graphClient)
	default:
		c.Connections = postgres.NewConnectionRepository(db)
	}

	c.Recipients = recipient.NewRecipientUseCase(
		userRepo,
		c.Connections,
		notificationRepo,
		publisher,
		log.Named("recipient"),
		recipient.Config{
			MaxDepth:        cfg.Engine.HelpMaxDepth,
			MaxRecipients:   cfg.Engine.HelpMaxRecipients,
			NotificationTTL: cfg.Engine.NotificationTTL,
		},
	)

	c.Chains = chain.NewChainUseCase(
		userRepo,
		c.Connections,
		skillRepo,
		chainRepo,
		publisher,
		narrator,
		log.Named("chain"),
		chain.Config{
			MaxNewPerRun: cfg.Engine.ChainMaxNewPerRun,
			MaxCycles:    cfg.Engine.ChainMaxCycles,
		},
	)

	c.Clusters = cluster.NewClusterUseCase(
		userRepo,
		c.Connections,
		log.Named("cluster"),
		cluster.Config{MinMembersExclusive: cfg.Engine.ClusterMinMembersExclusive},
	)

	router := deliveryhttp.NewRouter(
		handler.NewNetworkHandler(c.Recipients),
		handler.NewChainHandler(c.Chains),
		handler.NewClusterHandler(c.Clusters),
		middleware.NewAuthMiddleware(cfg.JWT.AccessSecret),
		log.Named("http"),
	)

	c.Server = server.NewServer(&cfg.Server, cfg.CORS, router.Setup(), log)

	return c, nil
}

// Close closes all connections
func (c *Container) Close() error {
	if c.Gemini != nil {
		c.Gemini.Close()
	}

	if c.Graph != nil {
		if err := c.Graph.Close(context.Background()); err != nil {
			c.Log.Warn("error closing graph store", zap.Error(err))
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Log.Warn("error closing redis", zap.Error(err))
		}
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	return nil
}
