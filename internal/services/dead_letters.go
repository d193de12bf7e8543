package services

import (
	"context"

	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/repositories"
)

const (
	DefaultDeadLetterLimit = 50
	MaxDeadLetterLimit     = 500
)

// DeadLetterService lets operators inspect the events the triggers gave up on.
type DeadLetterService struct {
	deadLetters repositories.DeadLetterRepository
	operators   map[string]bool
}

// NewDeadLetterService allows only the given handles to read dead letters.
func NewDeadLetterService(deadLetters repositories.DeadLetterRepository, operators []string) *DeadLetterService {
	set := make(map[string]bool, len(operators))
	for _, h := range operators {
		set[h] = true
	}
	return &DeadLetterService{deadLetters: deadLetters, operators: set}
}

// List returns the newest dead letters, or all dead letters of one document when entityID
// is set.
func (s *DeadLetterService) List(ctx context.Context, requester, kind, entityID string, limit int) ([]models.DeadLetter, error) {
	if !s.operators[requester] {
		return nil, models.NewForbiddenError("dead letters are restricted to operators")
	}
	if entityID != "" {
		if kind == "" {
			return nil, models.NewValidationError("kind is required with entityId")
		}
		return s.deadLetters.GetByEntity(ctx, kind, entityID)
	}
	if limit <= 0 || limit > MaxDeadLetterLimit {
		limit = DefaultDeadLetterLimit
	}
	return s.deadLetters.GetRecent(ctx, limit)
}
