package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is the persisted mastery state for one (node, user) pair.
// Score stays in [0,100]; IntervalDays doubles per 20 points of mastery.
type Review struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index:idx_review_user_node,unique,priority:1" json:"user_id"`
	NodeID         uuid.UUID `gorm:"type:uuid;not null;index:idx_review_user_node,unique,priority:2" json:"node_id"`
	Node           *Node     `gorm:"constraint:OnDelete:CASCADE;foreignKey:NodeID;references:ID" json:"node,omitempty"`
	Score          int       `gorm:"column:score;not null;default:0" json:"score"`
	IntervalDays   int       `gorm:"column:interval_days;not null;default:1" json:"interval_days"`
	LastReviewedAt time.Time `gorm:"column:last_reviewed_at;not null" json:"last_reviewed_at"`
	NextReviewAt   time.Time `gorm:"column:next_review_at;not null;index" json:"next_review_at"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (Review) TableName() string { return "review" }

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
