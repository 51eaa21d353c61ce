package initialization

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/micuatri/calendarlink/internal/auth"
	"github.com/micuatri/calendarlink/internal/controllers"
	"github.com/micuatri/calendarlink/internal/domain"
	"github.com/micuatri/calendarlink/internal/managers"
	"github.com/micuatri/calendarlink/internal/server"
	"github.com/micuatri/calendarlink/internal/storage/inmemory"
	mongostore "github.com/micuatri/calendarlink/internal/storage/mongodb"
	redisstore "github.com/micuatri/calendarlink/internal/storage/redis"
	googlecalendar "github.com/micuatri/calendarlink/pkg/integrations/google/google_calendar"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	connectTimeout     = 10 * time.Second
	statePruneInterval = 5 * time.Minute
)

// Container owns the long-lived clients and the managers built on them.
type Container struct {
	config *Config

	mongoClient *mongo.Client
	redisClient *redis.Client
	stopPruning context.CancelFunc

	repository    domain.AccountRepository
	linkManager   domain.LinkManager
	tokenManager  domain.TokenManager
	exportManager domain.ExportManager
	verifier      *auth.SessionVerifier
}

func NewContainer(ctx context.Context, config *Config) (*Container, error) {
	c := &Container{config: config}

	userStore, err := c.connectUserStore(ctx)
	if err != nil {
		return nil, err
	}

	stateStore, err := c.connectStateStore(ctx)
	if err != nil {
		c.Close(ctx)
		return nil, err
	}

	protector, err := managers.NewTokenProtectorFromBase64(config.TokenMasterKey, managers.LinkedAccountTokenPurpose)
	if err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("failed to create token protector: %w", err)
	}

	verifier, err := auth.NewSessionVerifier(config.SessionSecret)
	if err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("failed to create session verifier: %w", err)
	}

	provider := googlecalendar.NewOAuthProvider(googlecalendar.OAuthProviderConfig{
		ClientID:     config.GoogleClientID,
		ClientSecret: config.GoogleClientSecret,
		RedirectURL:  config.GoogleRedirectURL,
		Scopes:       config.Scopes(),
	})

	calendars := googlecalendar.NewCalendarClientFactory(googlecalendar.CalendarClientFactoryConfig{
		CalendarID: config.CalendarID,
	})

	c.verifier = verifier
	c.repository = managers.NewAccountRepository(managers.AccountRepositoryDependencies{
		Store:     userStore,
		Protector: protector,
	})

	c.linkManager = managers.NewLinkManager(managers.LinkManagerDependencies{
		Repository: c.repository,
		States:     stateStore,
		Provider:   provider,
		StateTTL:   config.StateTTL,
	})

	c.tokenManager = managers.NewTokenManager(managers.TokenManagerDependencies{
		Repository:   c.repository,
		Provider:     provider,
		SafetyMargin: config.AccessTokenSafetyMargin,
	})

	c.exportManager = managers.NewExportManager(managers.ExportManagerDependencies{
		Repository:    c.repository,
		Tokens:        c.tokenManager,
		Calendars:     calendars,
		Concurrency:   config.ExportConcurrency,
		RatePerSecond: config.ExportRatePerSecond,
	})

	return c, nil
}

func (c *Container) connectUserStore(ctx context.Context) (*mongostore.UserStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.config.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	c.mongoClient = client

	store := mongostore.NewUserStore(client.Database(c.config.MongoDatabase))
	if err := store.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure user indexes: %w", err)
	}

	log.Info().Str("database", c.config.MongoDatabase).Msg("Connected to MongoDB")

	return store, nil
}

func (c *Container) connectStateStore(ctx context.Context) (domain.StateStore, error) {
	if c.config.RedisURL == "" {
		log.Warn().Msg("REDIS_URL not set, pending OAuth states are kept in memory")

		store := inmemory.NewStateStore()

		pruneCtx, cancel := context.WithCancel(context.Background())
		c.stopPruning = cancel
		go pruneStates(pruneCtx, store)

		return store, nil
	}

	opts, err := redis.ParseURL(c.config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	c.redisClient = client

	log.Info().Str("addr", opts.Addr).Msg("Connected to Redis")

	return redisstore.NewStateStore(client, redisstore.Opts{}), nil
}

// HTTPServer builds the API application on top of the container.
func (c *Container) HTTPServer() *fiber.App {
	calendarController := controllers.NewCalendarController(controllers.CalendarControllerDependencies{
		LinkManager:   c.linkManager,
		ExportManager: c.exportManager,
	})

	return server.NewHTTPServer(server.HTTPServerDependencies{
		CORSOrigins:        c.config.CORSOriginList(),
		SessionVerifier:    c.verifier,
		CalendarController: calendarController,
	})
}

func (c *Container) Config() *Config {
	return c.config
}

func (c *Container) LinkManager() domain.LinkManager {
	return c.linkManager
}

func (c *Container) ExportManager() domain.ExportManager {
	return c.exportManager
}

func pruneStates(ctx context.Context, store *inmemory.StateStore) {
	ticker := time.NewTicker(statePruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if pruned := store.Prune(now); pruned > 0 {
				log.Debug().Int("pruned", pruned).Msg("Pruned expired OAuth states")
			}
		}
	}
}

func (c *Container) Close(ctx context.Context) {
	if c.stopPruning != nil {
		c.stopPruning()
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis client")
		}
	}

	if c.mongoClient != nil {
		if err := c.mongoClient.Disconnect(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to disconnect mongodb client")
		}
	}
}
