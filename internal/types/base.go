package types

import (
	"context"
	"time"
)

// Status is the row-level lifecycle status shared by all persisted entities.
// It is independent of the subscription state machine.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Metadata is a free-form key/value bag persisted as JSONB
type Metadata map[string]string

// BaseModel carries the audit columns shared by every persisted entity
type BaseModel struct {
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by"`
	UpdatedBy string    `json:"updated_by"`
}

// GetDefaultBaseModel returns a BaseModel stamped with the current time and
// the acting user from the context
func GetDefaultBaseModel(ctx context.Context) BaseModel {
	now := time.Now().UTC()
	userID := GetUserID(ctx)
	return BaseModel{
		Status:    StatusPublished,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: userID,
		UpdatedBy: userID,
	}
}
