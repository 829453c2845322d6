package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContractStatus string

const (
	ContractStatusDraft            ContractStatus = "draft"
	ContractStatusActive           ContractStatus = "active"
	ContractStatusPendingSignature ContractStatus = "pending_signature"
	ContractStatusSigned           ContractStatus = "signed"
	ContractStatusExpired          ContractStatus = "expired"
	ContractStatusCanceled         ContractStatus = "canceled"
)

// SignatureState is derived from which artifact paths are set, independent of
// the persisted status column. It is the single source of truth used by both
// the lifecycle engine and the artifact resolver.
type SignatureState int

const (
	SignatureNone SignatureState = iota
	SignatureOwnerSigned
	SignatureFullySigned
)

type Contract struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Title   string    `gorm:"not null" json:"title"`
	Content string    `gorm:"type:text" json:"content"` // HTML-ish contract body

	// Party fields captured from the form
	ClientName     string     `json:"client_name"`
	ClientEmail    string     `json:"client_email"`
	ClientDocument string     `json:"client_document"` // CPF or CNPJ
	ClientAddress  string     `json:"client_address"`
	Amount         float64    `json:"amount"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`

	Status ContractStatus `gorm:"type:varchar(20);default:'draft';index" json:"status"`

	// Signature artifacts and provenance
	SignedFilePath       string     `json:"signed_file_path,omitempty"`
	ClientSignedFilePath string     `json:"client_signed_file_path,omitempty"`
	ClientSignedAt       *time.Time `json:"client_signed_at,omitempty"`
	SignerIP             string     `json:"signer_ip,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (c *Contract) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = ContractStatusDraft
	}
	return nil
}

// SignatureState derives the workflow position from the artifact fields.
// A client artifact never exists without the owner artifact; the counter-party
// always signs second.
func (c *Contract) SignatureState() SignatureState {
	switch {
	case c.SignedFilePath != "" && c.ClientSignedFilePath != "":
		return SignatureFullySigned
	case c.SignedFilePath != "":
		return SignatureOwnerSigned
	default:
		return SignatureNone
	}
}

// IsTerminal reports whether the signature workflow accepts no further
// signature transitions from this status.
func (s ContractStatus) IsTerminal() bool {
	return s == ContractStatusSigned || s == ContractStatusExpired || s == ContractStatusCanceled
}

// ValidOverrideTarget reports whether the owner may manually set this status.
// pending_signature and signed are only ever reached through signature uploads.
func (s ContractStatus) ValidOverrideTarget() bool {
	switch s {
	case ContractStatusDraft, ContractStatusActive, ContractStatusExpired, ContractStatusCanceled:
		return true
	}
	return false
}
