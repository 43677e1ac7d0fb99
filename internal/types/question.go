package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeFallback       = "fallback"
)

// Question is one multiple choice item tied to a node. Distractors always
// holds exactly three entries, none equal to the correct answer.
type Question struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	NodeID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"node_id"`
	Node          *Node          `gorm:"constraint:OnDelete:CASCADE;foreignKey:NodeID;references:ID" json:"node,omitempty"`
	Prompt        string         `gorm:"column:prompt;not null" json:"prompt"`
	CorrectAnswer string         `gorm:"column:correct_answer;not null" json:"correct_answer"`
	Distractors   datatypes.JSON `gorm:"type:jsonb;column:distractors;not null" json:"distractors"`
	Evidence      string         `gorm:"column:evidence" json:"evidence"`
	QType         string         `gorm:"column:q_type;not null;default:'multiple_choice'" json:"q_type"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (Question) TableName() string { return "question" }

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
