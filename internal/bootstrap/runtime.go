// Package bootstrap prepares the process-wide runtime shared by the commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/media"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/seed"
	"inkwell/internal/service"
	"inkwell/internal/validation"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty database with generated content.
	SeedDemo bool
}

// InitRuntime connects to DB and Redis, ensures the configured superuser and
// optionally seeds demo data.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis may be nil when unreachable.
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	ctx := context.Background()
	if _, err := EnsureSuperuser(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap superuser: %w", err)
	}

	if opts.SeedDemo {
		if err := seedIfEmpty(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// EnsureSuperuser creates the SUPERUSER_EMAIL account when it is configured and
// missing. An existing account with that email is returned unchanged.
func EnsureSuperuser(ctx context.Context, cfg *config.Config, db *gorm.DB) (*models.User, error) {
	if cfg == nil || db == nil {
		return nil, nil
	}
	email := validation.NormalizeEmail(cfg.SuperuserEmail)
	if email == "" {
		return nil, nil
	}
	if cfg.SuperuserPassword == "" {
		return nil, errors.New("SUPERUSER_PASSWORD must be set when SUPERUSER_EMAIL is")
	}

	users := repository.NewUserRepository(db)
	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	identity := service.NewIdentityService(users, media.NewDiskAvatarStore(cfg.AvatarDir))
	user, err := identity.CreateSuperuser(ctx, email, cfg.SuperuserPassword)
	if err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "superuser created",
		slog.String("username", user.Username), slog.String("user_id", user.ID.String()))
	return user, nil
}

func seedIfEmpty(ctx context.Context, db *gorm.DB) error {
	var blogs int64
	if err := db.WithContext(ctx).Model(&models.Blog{}).Count(&blogs).Error; err != nil {
		return err
	}
	if blogs > 0 {
		return nil
	}
	_, err := seed.NewSeeder(db, seed.DefaultOptions()).Run(ctx)
	return err
}
