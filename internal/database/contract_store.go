package database

import (
	"errors"
	"time"

	"github.com/contratofacil/platform/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a contract record does not exist.
var ErrNotFound = errors.New("contract not found")

// ContractStore is the gorm-backed record store for contracts and activities.
// State transitions are single guarded UPDATE statements: the precondition and
// the write are one atomic operation, so two concurrent uploads can never both
// pass the guard.
type ContractStore struct {
	db *gorm.DB
}

func NewContractStore(db *gorm.DB) *ContractStore {
	return &ContractStore{db: db}
}

func (s *ContractStore) GetContract(id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := s.db.First(&contract, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &contract, nil
}

func (s *ContractStore) GetOwnedContract(id, userID uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := s.db.First(&contract, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &contract, nil
}

func (s *ContractStore) ListContracts(userID uuid.UUID) ([]models.Contract, error) {
	var contracts []models.Contract
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&contracts).Error
	return contracts, err
}

func (s *ContractStore) CreateContract(contract *models.Contract) error {
	return s.db.Create(contract).Error
}

// UpdateContent updates editable fields. Signature artifact fields are never
// touched here; once the counter-party has signed, the record's signature
// fields are immutable.
func (s *ContractStore) UpdateContent(contract *models.Contract) error {
	return s.db.Model(&models.Contract{}).
		Where("id = ?", contract.ID).
		Updates(map[string]interface{}{
			"title":           contract.Title,
			"content":         contract.Content,
			"client_name":     contract.ClientName,
			"client_email":    contract.ClientEmail,
			"client_document": contract.ClientDocument,
			"client_address":  contract.ClientAddress,
			"amount":          contract.Amount,
			"start_date":      contract.StartDate,
			"end_date":        contract.EndDate,
		}).Error
}

// ApplyOwnerSignature records the owner's signature artifact, guarded on the
// contract still being a draft with no artifact. Returns false if the
// precondition did not hold.
func (s *ContractStore) ApplyOwnerSignature(id uuid.UUID, path, clientEmail, signerIP string) (bool, error) {
	res := s.db.Model(&models.Contract{}).
		Where("id = ? AND status = ? AND (signed_file_path IS NULL OR signed_file_path = '')",
			id, models.ContractStatusDraft).
		Updates(map[string]interface{}{
			"signed_file_path": path,
			"client_email":     clientEmail,
			"signer_ip":        signerIP,
			"status":           models.ContractStatusPendingSignature,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ApplyClientSignature records the counter-party's signature artifact and moves
// the contract to signed. Guards: not already signed or administratively
// terminal, owner artifact present, no client artifact yet. Provenance fields
// are written exactly once; a losing concurrent writer sees RowsAffected == 0.
func (s *ContractStore) ApplyClientSignature(id uuid.UUID, path, clientEmail, signerIP string, signedAt time.Time) (bool, error) {
	res := s.db.Model(&models.Contract{}).
		Where("id = ? AND status NOT IN ? AND signed_file_path IS NOT NULL AND signed_file_path <> '' AND (client_signed_file_path IS NULL OR client_signed_file_path = '')",
			id, []models.ContractStatus{
				models.ContractStatusSigned,
				models.ContractStatusExpired,
				models.ContractStatusCanceled,
			}).
		Updates(map[string]interface{}{
			"client_signed_file_path": path,
			"client_signed_at":        signedAt,
			"client_email":            clientEmail,
			"signer_ip":               signerIP,
			"status":                  models.ContractStatusSigned,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// OverrideStatus applies a manual status change, refused once a contract is
// signed so an administrative action can never mask a completed signature.
func (s *ContractStore) OverrideStatus(id, userID uuid.UUID, status models.ContractStatus) (bool, error) {
	res := s.db.Model(&models.Contract{}).
		Where("id = ? AND user_id = ? AND status <> ?", id, userID, models.ContractStatusSigned).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *ContractStore) DeleteContract(id uuid.UUID) error {
	return s.db.Delete(&models.Contract{}, "id = ?", id).Error
}

func (s *ContractStore) InsertActivity(activity *models.Activity) error {
	return s.db.Create(activity).Error
}

func (s *ContractStore) ListActivities(userID uuid.UUID, limit int) ([]models.Activity, error) {
	var activities []models.Activity
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}
