package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityType string

const (
	ActivityCreate   ActivityType = "create"
	ActivityView     ActivityType = "view"
	ActivityEdit     ActivityType = "edit"
	ActivityDownload ActivityType = "download"
)

// Activity is an immutable audit entry. ContractName is denormalized so the
// entry stays readable even if the contract is later renamed or deleted.
type Activity struct {
	ID           uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	UserID       uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	ContractID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"contract_id"`
	ContractName string       `gorm:"not null" json:"contract_name"`
	Type         ActivityType `gorm:"type:varchar(20);not null" json:"type"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
