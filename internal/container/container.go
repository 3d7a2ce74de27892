package container

import (
	"context"
	"time"

	"github.com/rob0403/LiveVotingRW/internal/config"
	"github.com/rob0403/LiveVotingRW/internal/repository"
	"github.com/rob0403/LiveVotingRW/internal/service"
	"github.com/rob0403/LiveVotingRW/pkg/database"
	"github.com/rob0403/LiveVotingRW/pkg/logger"
	"github.com/rob0403/LiveVotingRW/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          *database.PostgresDB
	RedisClient *redis.Client
	Repos       *repository.Repositories
	Registry    *service.RegistryService
	Player      *service.PlayerService
	Attendees   service.AttendeeTracker
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// Redis is optional: without it the registry skips its pin cache and
	// attendee tracking falls back to the in-process counter.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			redisClient = client
			log.Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, proceeding without caching")
	}

	repos := &repository.Repositories{
		Session: repository.NewSessionRepository(db),
		Vote:    repository.NewVoteRepository(db),
	}

	registry := service.NewRegistryService(
		repos.Session,
		redisClient,
		log.Logger,
		cfg.PinLength,
		time.Duration(cfg.PinGracePeriodSecs)*time.Second,
	)
	player := service.NewPlayerService(repos.Session, repos.Vote, registry, redisClient, log.Logger)

	var attendees service.AttendeeTracker
	if redisClient != nil {
		attendees = service.NewRedisAttendeeTracker(redisClient, log.Logger)
	} else {
		attendees = service.NewMemoryAttendeeTracker()
	}

	return &Container{
		Config:      cfg,
		Logger:      log,
		DB:          db,
		RedisClient: redisClient,
		Repos:       repos,
		Registry:    registry,
		Player:      player,
		Attendees:   attendees,
	}, nil
}

// Close releases the container's connections
func (c *Container) Close(ctx context.Context) error {
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.WithError(err).Error("Failed to close Redis connection")
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
	return nil
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetDB returns the database pool
func (c *Container) GetDB() *database.PostgresDB {
	return c.DB
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// AttendeeWindow returns the configured liveness window
func (c *Container) AttendeeWindow() time.Duration {
	return time.Duration(c.Config.AttendeeWindowSecs) * time.Second
}
