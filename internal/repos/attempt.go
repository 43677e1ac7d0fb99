package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/ndstyle/mindflow-backend/internal/logger"
	"github.com/ndstyle/mindflow-backend/internal/types"
)

// Attempts are append-only; there is deliberately no update or delete here.
type AttemptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *types.Attempt) (*types.Attempt, error)
}

type attemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttemptRepo(db *gorm.DB, baseLog *logger.Logger) AttemptRepo {
	return &attemptRepo{db: db, log: baseLog.With("repo", "AttemptRepo")}
}

func (r *attemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *types.Attempt) (*types.Attempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if attempt == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}
