package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/nano-midea/socialape/internal/events"
	"github.com/anonto42/nano-midea/socialape/internal/models"
	"gorm.io/gorm"
)

// DeadLetterRepository stores events that triggers gave up on
type DeadLetterRepository interface {
	events.DeadLetterSink
	GetRecent(ctx context.Context, limit int) ([]models.DeadLetter, error)
	GetByEntity(ctx context.Context, kind, entityID string) ([]models.DeadLetter, error)
}

// PostgresDeadLetterRepository implements DeadLetterRepository for PostgreSQL
type PostgresDeadLetterRepository struct {
	db *gorm.DB
}

// NewPostgresDeadLetterRepository creates a new PostgresDeadLetterRepository and migrates its table
func NewPostgresDeadLetterRepository(db *gorm.DB) (*PostgresDeadLetterRepository, error) {
	if err := db.AutoMigrate(&models.DeadLetter{}); err != nil {
		return nil, err
	}
	return &PostgresDeadLetterRepository{db: db}, nil
}

// Record persists a failed event together with its cause
func (r *PostgresDeadLetterRepository) Record(ctx context.Context, handler string, ev events.Event, cause error) error {
	payload, err := ev.Encode()
	if err != nil {
		return err
	}
	entry := &models.DeadLetter{
		Kind:      string(ev.Kind),
		Operation: string(ev.Op),
		EntityID:  ev.ID,
		Handler:   handler,
		Code:      errorCode(cause),
		Payload:   string(payload),
		CreatedAt: time.Now().UTC(),
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// GetRecent retrieves the newest dead letters
func (r *PostgresDeadLetterRepository) GetRecent(ctx context.Context, limit int) ([]models.DeadLetter, error) {
	var entries []models.DeadLetter
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// GetByEntity retrieves the dead letters of one document
func (r *PostgresDeadLetterRepository) GetByEntity(ctx context.Context, kind, entityID string) ([]models.DeadLetter, error) {
	var entries []models.DeadLetter
	err := r.db.WithContext(ctx).
		Where("kind = ? AND entity_id = ?", kind, entityID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

func errorCode(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return models.CodeInternal
}
