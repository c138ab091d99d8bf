package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"labcomm/config"
	"labcomm/storage/models"
	"time"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type Manager struct {
	db    *gorm.DB
	sqlDB *sql.DB
	pool  *pgxpool.Pool
}

// Open connects to the configured database. Postgres connections go through a
// pgx pool; sqlite uses a single connection so in-memory databases are shared.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Manager, error) {
	gormConfig := &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}

	switch cfg.Driver {
	case "postgres":
		poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("invalid postgres dsn: %w", err)
		}
		if cfg.MaxConns > 0 {
			poolConfig.MaxConns = cfg.MaxConns
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		sqlDB := stdlib.OpenDBFromPool(pool)
		db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig)
		if err != nil {
			sqlDB.Close()
			pool.Close()
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		return &Manager{db: db, sqlDB: sqlDB, pool: pool}, nil

	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.DSN), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return &Manager{db: db, sqlDB: sqlDB}, nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidDatabaseDriver, cfg.Driver)
	}
}

func (m *Manager) Migrate() error {
	return models.Migrate(m.db, nil)
}

// MigrateTo applies the first toIndex migrations, or all of them when toIndex is nil.
func (m *Manager) MigrateTo(toIndex *int) error {
	return models.Migrate(m.db, toIndex)
}

func (m *Manager) Revert(toIndex *int) error {
	return models.Revert(m.db, toIndex)
}

func (m *Manager) Ping(ctx context.Context) error {
	if m.sqlDB == nil {
		return errors.New("database connection unavailable")
	}
	return m.sqlDB.PingContext(ctx)
}

func (m *Manager) Close() error {
	var err error
	if m.sqlDB != nil {
		err = m.sqlDB.Close()
	}
	if m.pool != nil {
		m.pool.Close()
	}
	return err
}

func (m *Manager) ListPosts(ctx context.Context) ([]models.Post, error) {
	posts := make([]models.Post, 0)
	err := m.db.WithContext(ctx).Order("created_at desc").Order("id desc").Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

func (m *Manager) GetPost(ctx context.Context, slug string) (models.Post, error) {
	var post models.Post
	err := m.db.WithContext(ctx).Where("slug = ?", slug).First(&post).Error
	if err != nil {
		return models.Post{}, translate(err, "post "+slug)
	}
	return post, nil
}

func (m *Manager) CreatePost(ctx context.Context, post *models.Post) error {
	if err := m.db.WithContext(ctx).Create(post).Error; err != nil {
		return translate(err, "post "+post.Slug)
	}
	return nil
}

func (m *Manager) UpdatePost(ctx context.Context, post *models.Post) error {
	result := m.db.WithContext(ctx).Model(post).
		Select("slug", "title", "link", "updated_at").
		Updates(map[string]interface{}{
			"slug":       post.Slug,
			"title":      post.Title,
			"link":       post.Link,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return translate(result.Error, "post "+post.Slug)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("post %s: %w", post.Slug, ErrNotFound)
	}
	return nil
}

func (m *Manager) DeletePost(ctx context.Context, slug string) error {
	result := m.db.WithContext(ctx).Where("slug = ?", slug).Delete(&models.Post{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete post %s: %w", slug, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("post %s: %w", slug, ErrNotFound)
	}
	return nil
}

func (m *Manager) ListCommentaries(ctx context.Context) ([]models.Commentary, error) {
	commentaries := make([]models.Commentary, 0)
	err := m.db.WithContext(ctx).Order("created_at desc").Order("id desc").Find(&commentaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list commentaries: %w", err)
	}
	return commentaries, nil
}

func (m *Manager) CreateCommentary(ctx context.Context, commentary *models.Commentary) error {
	if err := m.db.WithContext(ctx).Create(commentary).Error; err != nil {
		return translate(err, "commentary "+commentary.Slug)
	}
	return nil
}

func (m *Manager) ListAddresses(ctx context.Context) ([]models.LabAddress, error) {
	addresses := make([]models.LabAddress, 0)
	if err := m.db.WithContext(ctx).Order("id").Find(&addresses).Error; err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	return addresses, nil
}

func (m *Manager) CreateAddress(ctx context.Context, address *models.LabAddress) error {
	return m.db.WithContext(ctx).Create(address).Error
}

func (m *Manager) ListLocations(ctx context.Context) ([]models.LabLocation, error) {
	locations := make([]models.LabLocation, 0)
	if err := m.db.WithContext(ctx).Order("id").Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}

func (m *Manager) CreateLocation(ctx context.Context, location *models.LabLocation) error {
	return m.db.WithContext(ctx).Create(location).Error
}

func translate(err error, what string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
