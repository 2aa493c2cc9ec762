// Package backend assembles the record store, change feed and token
// revocation list into one handle shared by every component.
package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"focusrooms/backend/internal/config"
	"focusrooms/backend/internal/db"
	"focusrooms/backend/internal/logging"
	"focusrooms/backend/internal/model"
	"focusrooms/backend/internal/realtime"
	"focusrooms/backend/internal/repository"
)

type Client struct {
	DB    *sql.DB
	Redis *redis.Client
	Feed  *realtime.Hub

	Users        *repository.UserRepository
	Profiles     *repository.ProfileRepository
	Rooms        *repository.RoomRepository
	Participants *repository.ParticipantRepository
	Sessions     *repository.SessionRepository
	Goals        *repository.GoalRepository
	Revocations  *Revocations

	bridge *realtime.Bridge
}

// New wires repositories over an open database. redisClient may be nil.
func New(database *sql.DB, redisClient *redis.Client) *Client {
	feed := realtime.NewHub(realtime.DefaultBuffer)
	return &Client{
		DB:           database,
		Redis:        redisClient,
		Feed:         feed,
		Users:        repository.NewUserRepository(database, feed),
		Profiles:     repository.NewProfileRepository(database),
		Rooms:        repository.NewRoomRepository(database, feed),
		Participants: repository.NewParticipantRepository(database, feed),
		Sessions:     repository.NewSessionRepository(database, feed),
		Goals:        repository.NewGoalRepository(database, feed),
		Revocations:  NewRevocations(redisClient),
	}
}

// Open connects everything cfg names: sqlite with migrations applied and,
// when REDIS_URL is set, redis with the change feed bridge running.
func Open(ctx context.Context, cfg config.Config) (*Client, error) {
	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.RunMigrations(ctx, database, cfg.MigrationsDir); err != nil {
		_ = database.Close()
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			_ = redisClient.Close()
			_ = database.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	client := New(database, redisClient)
	if redisClient != nil {
		client.bridge = realtime.NewBridge(redisClient, client.Feed, realtime.DefaultChannel)
		if err := client.bridge.Start(ctx); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	return client, nil
}

var (
	sharedOnce   sync.Once
	sharedClient *Client
	sharedErr    error
)

// Shared returns the process-wide client, opening it on first use. Later
// calls return the same handle (or the same error) regardless of cfg.
func Shared(ctx context.Context, cfg config.Config) (*Client, error) {
	sharedOnce.Do(func() {
		sharedClient, sharedErr = Open(ctx, cfg)
	})
	return sharedClient, sharedErr
}

func (c *Client) Close() error {
	var errs []error
	if c.bridge != nil {
		errs = append(errs, c.bridge.Close())
	}
	c.Feed.Close()
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	errs = append(errs, c.DB.Close())
	return errors.Join(errs...)
}

// Ping checks the store and, when configured, redis.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (c *Client) DisplayName(ctx context.Context, userID string) string {
	profile, err := c.Profiles.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logging.Warn().Err(err).Str("user_id", userID).Msg("profile lookup failed")
		}
		return model.AnonymousDisplayName
	}
	return profile.DisplayName()
}

func (c *Client) ListGoals(ctx context.Context, roomID string) ([]model.Goal, error) {
	return c.Goals.ListByRoom(ctx, roomID)
}

func (c *Client) ListActiveParticipants(ctx context.Context, roomID string) ([]model.RoomParticipant, error) {
	return c.Participants.ListActive(ctx, roomID)
}

func (c *Client) ListOpenSessions(ctx context.Context, roomID string) ([]model.FocusSession, error) {
	return c.Sessions.ListOpenByRoom(ctx, roomID)
}

func (c *Client) LookupProfiles(ctx context.Context, userIDs []string) (map[string]*model.Profile, error) {
	return c.Profiles.ListByIDs(ctx, userIDs)
}
