package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

const (
	DocTypePDF  = "pdf"
	DocTypeTXT  = "txt"
	DocTypeDOCX = "docx"
)

type Document struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	OriginalName  string         `gorm:"column:original_name;not null" json:"original_name"`
	DocType       string         `gorm:"column:doc_type;not null" json:"doc_type"`
	Status        string         `gorm:"column:status;not null;default:'processing';index" json:"status"`
	ExtractedText string         `gorm:"column:extracted_text" json:"extracted_text,omitempty"`
	PageCount     int            `gorm:"column:page_count;not null;default:0" json:"page_count"`
	SizeBytes     int64          `gorm:"column:size_bytes;not null;default:0" json:"size_bytes"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Document) TableName() string { return "document" }

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
