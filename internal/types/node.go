package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Node is one entry in the three level knowledge hierarchy of a document.
// Level 0 is the single root topic, level 1 concepts, level 2 details.
// Every non-root node points at a parent exactly one level above it.
type Node struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID uuid.UUID      `gorm:"type:uuid;not null;index" json:"document_id"`
	Document   *Document      `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID" json:"document,omitempty"`
	ParentID   *uuid.UUID     `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Title      string         `gorm:"column:title;not null" json:"title"`
	Summary    string         `gorm:"column:summary" json:"summary"`
	Level      int            `gorm:"column:level;not null" json:"level"`
	PosX       float64        `gorm:"column:pos_x;not null;default:0" json:"pos_x"`
	PosY       float64        `gorm:"column:pos_y;not null;default:0" json:"pos_y"`
	Color      string         `gorm:"column:color" json:"color"`
	Evidence   datatypes.JSON `gorm:"type:jsonb;column:evidence" json:"evidence,omitempty"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
}

func (Node) TableName() string { return "node" }

func (n *Node) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
