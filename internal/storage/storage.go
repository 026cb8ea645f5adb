package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openboard/moderation-server/internal/config"
	"github.com/openboard/moderation-server/internal/moderr"
	"github.com/openboard/moderation-server/internal/model"
	storage_logger "github.com/openboard/moderation-server/internal/storage/storage_logger"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type Storage struct {
	db      *gorm.DB
	timeout time.Duration
}

func New(config *config.Config, logger *slog.Logger) (*Storage, error) {
	dialector, err := createDialector(&config.Database)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(
		dialector,
		&gorm.Config{
			NamingStrategy: schema.NamingStrategy{},
			Logger:         storage_logger.NewGormSlogLogger(logger),
			NowFunc:        func() time.Time { return time.Now().UTC() },
			TranslateError: true,
		})
	if err != nil {
		return nil, err
	}

	// Migrations
	const timeoutSeconds = 15 * 60
	ctx, cancel := context.WithTimeout(context.Background(), timeoutSeconds*time.Second)
	defer cancel() // releases resources if slowOperation completes before timeout elapses
	if err := db.WithContext(ctx).AutoMigrate(
		&model.Report{},
		&model.ModerationAction{},
		&model.Suspension{},
		&model.Ban{},
		&model.Appeal{},
		&model.ModeratorActivityStats{},
		&model.AuditLogEntry{},
	); err != nil {
		return nil, err
	}

	timeout := config.Database.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Storage{db: db, timeout: timeout}, nil
}

// Close - close the database connection
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Status - report whether the database answers a trivial query.
func (s *Storage) Status() (bool, string) {
	ctx, cancel := s.opCtx(context.Background())
	defer cancel()

	var result int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error; err != nil {
		return false, err.Error()
	}
	return true, "ok"
}

// opCtx bounds every storage call so no operation blocks indefinitely.
func (s *Storage) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// wrapError maps gorm and context errors onto the moderation error taxonomy.
func wrapError(entity string, id int64, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return moderr.NotFound(entity, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return moderr.Conflict(entity, id, "duplicate")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return moderr.Transient(entity, err)
	default:
		var modErr *moderr.Error
		if errors.As(err, &modErr) {
			return err
		}
		return fmt.Errorf("%s: %w", entity, err)
	}
}
