package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attempt is one user response to a question. Append-only.
type Attempt struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID  uuid.UUID `gorm:"type:uuid;not null;index" json:"question_id"`
	Question    *Question `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestionID;references:ID" json:"question,omitempty"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Answer      string    `gorm:"column:answer;not null" json:"answer"`
	Correct     bool      `gorm:"column:correct;not null" json:"correct"`
	TimeSpentMS int64     `gorm:"column:time_spent_ms;not null;default:0" json:"time_spent_ms"`
	SessionTag  string    `gorm:"column:session_tag" json:"session_tag"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (Attempt) TableName() string { return "attempt" }

func (a *Attempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
