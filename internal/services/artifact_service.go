package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/contratofacil/platform/internal/models"
	"github.com/google/uuid"
)

type ArtifactKind string

const (
	ArtifactFinal    ArtifactKind = "final-pdf"
	ArtifactPartial  ArtifactKind = "partial-pdf"
	ArtifactRendered ArtifactKind = "rendered"
)

// ResolvedArtifact is the canonical document for a contract at its current
// point in the lifecycle.
type ResolvedArtifact struct {
	Kind        ArtifactKind
	Filename    string
	ContentType string
	Data        []byte
}

// ContractRecords is the slice of the record store the workflow services
// depend on. Injected explicitly, never reached through ambient state.
type ContractRecords interface {
	GetContract(id uuid.UUID) (*models.Contract, error)
	ApplyOwnerSignature(id uuid.UUID, path, clientEmail, signerIP string) (bool, error)
	ApplyClientSignature(id uuid.UUID, path, clientEmail, signerIP string, signedAt time.Time) (bool, error)
	OverrideStatus(id, userID uuid.UUID, status models.ContractStatus) (bool, error)
	InsertActivity(activity *models.Activity) error
}

// ArtifactService decides which representation of a contract is authoritative
// for viewing and downloading: final dual-signed file, then single-signed
// file, then a fresh render of the draft content.
type ArtifactService struct {
	records   ContractRecords
	blobs     BlobStore
	documents *DocumentService
	timeout   time.Duration
}

func NewArtifactService(records ContractRecords, blobs BlobStore, documents *DocumentService, timeout time.Duration) *ArtifactService {
	return &ArtifactService{
		records:   records,
		blobs:     blobs,
		documents: documents,
		timeout:   timeout,
	}
}

// Resolve returns the canonical artifact and records an Activity matching the
// caller's intent (view or download). A blob missing at a recorded path is a
// data-integrity fault (ErrArtifactMissing) and never falls through to a
// lower precedence level: presenting a stale unsigned render as the current
// document would be worse than failing loudly.
func (s *ArtifactService) Resolve(ctx context.Context, contract *models.Contract, intent models.ActivityType) (*ResolvedArtifact, error) {
	artifact, err := s.resolve(ctx, contract)
	if err != nil {
		return nil, err
	}

	activity := &models.Activity{
		UserID:       contract.UserID,
		ContractID:   contract.ID,
		ContractName: contract.Title,
		Type:         intent,
	}
	if err := s.records.InsertActivity(activity); err != nil {
		// The document itself resolved; a failed audit append is logged, not fatal.
		log.Printf("Warning: failed to record %s activity for contract %s: %v", intent, contract.ID, err)
	}

	return artifact, nil
}

func (s *ArtifactService) resolve(ctx context.Context, contract *models.Contract) (*ResolvedArtifact, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if contract.Status == models.ContractStatusSigned && contract.ClientSignedFilePath != "" {
		data, err := s.fetchBlob(ctx, contract.ClientSignedFilePath)
		if err != nil {
			return nil, err
		}
		return &ResolvedArtifact{
			Kind:        ArtifactFinal,
			Filename:    fmt.Sprintf("contrato-%s-assinado-final.pdf", contract.ID),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	}

	if contract.SignedFilePath != "" {
		data, err := s.fetchBlob(ctx, contract.SignedFilePath)
		if err != nil {
			return nil, err
		}
		return &ResolvedArtifact{
			Kind:        ArtifactPartial,
			Filename:    fmt.Sprintf("contrato-%s-parcialmente-assinado.pdf", contract.ID),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	}

	data, err := s.documents.RenderContractPDF(contract)
	if err != nil {
		return nil, err
	}
	return &ResolvedArtifact{
		Kind:        ArtifactRendered,
		Filename:    fmt.Sprintf("contrato-%s.pdf", contract.ID),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

func (s *ArtifactService) fetchBlob(ctx context.Context, path string) ([]byte, error) {
	data, err := s.blobs.Download(ctx, path)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return data, nil
}
