package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ndstyle/mindflow-backend/internal/logger"
	"github.com/ndstyle/mindflow-backend/internal/types"
)

type ReviewRepo interface {
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, nodeID uuid.UUID) (*types.Review, error)
	Create(ctx context.Context, tx *gorm.DB, review *types.Review) (*types.Review, error)
	// UpdateIfScore applies the new schedule only when the stored score still
	// matches expectedScore. Returns false on a lost race so the caller can
	// re-read and retry.
	UpdateIfScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, expectedScore int, newScore int, intervalDays int, lastReviewedAt time.Time, nextReviewAt time.Time) (bool, error)
}

type reviewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewRepo(db *gorm.DB, baseLog *logger.Logger) ReviewRepo {
	return &reviewRepo{db: db, log: baseLog.With("repo", "ReviewRepo")}
}

func (r *reviewRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, nodeID uuid.UUID) (*types.Review, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || nodeID == uuid.Nil {
		return nil, nil
	}
	var row types.Review
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND node_id = ?", userID, nodeID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *reviewRepo) Create(ctx context.Context, tx *gorm.DB, review *types.Review) (*types.Review, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if review == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

func (r *reviewRepo) UpdateIfScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, expectedScore int, newScore int, intervalDays int, lastReviewedAt time.Time, nextReviewAt time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(ctx).
		Model(&types.Review{}).
		Where("id = ? AND score = ?", id, expectedScore).
		Updates(map[string]interface{}{
			"score":            newScore,
			"interval_days":    intervalDays,
			"last_reviewed_at": lastReviewedAt,
			"next_review_at":   nextReviewAt,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
