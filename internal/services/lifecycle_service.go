package services

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"time"

	"github.com/contratofacil/platform/internal/models"
	"github.com/google/uuid"
)

// Notifier dispatches workflow emails. Dispatch failures are reported but
// never unwind a committed signature transition.
type Notifier interface {
	SendSignatureInvitation(contract *models.Contract) error
	SendCompletionNotice(contract *models.Contract) error
}

// TransitionResult is the outcome of an accepted signature transition.
// NotificationErr carries a non-fatal dispatch failure: the signature itself
// is the legally significant fact and is already committed.
type TransitionResult struct {
	Contract        *models.Contract
	Verification    *SignatureVerification
	NotificationErr error
}

// LifecycleService governs contract state transitions: which party may
// trigger each one, the guards that protect signature provenance, and the
// side effects each transition produces. All stores are injected.
type LifecycleService struct {
	records  ContractRecords
	blobs    BlobStore
	verifier *SignatureService
	notifier Notifier
	timeout  time.Duration
}

func NewLifecycleService(records ContractRecords, blobs BlobStore, verifier *SignatureService, notifier Notifier, timeout time.Duration) *LifecycleService {
	return &LifecycleService{
		records:  records,
		blobs:    blobs,
		verifier: verifier,
		notifier: notifier,
		timeout:  timeout,
	}
}

// SubmitOwnerSignature accepts the owner's signed PDF for a draft contract,
// persists it as the partial artifact and invites the counter-party by email.
func (s *LifecycleService) SubmitOwnerSignature(ctx context.Context, contract *models.Contract, fileBytes []byte, clientEmail, signerIP string) (*TransitionResult, error) {
	if err := validateEmail(clientEmail); err != nil {
		return nil, err
	}
	if contract.Status != models.ContractStatusDraft || contract.SignatureState() != models.SignatureNone {
		return nil, fmt.Errorf("%w: contract %s is not an unsigned draft", ErrIllegalTransition, contract.ID)
	}

	verification, err := s.verifier.Verify(fileBytes)
	if err != nil {
		return nil, err
	}
	if !verification.Signed {
		return nil, fmt.Errorf("%w: %d marker(s) found", ErrUnsignedDocument, len(verification.MatchedMarkers))
	}

	path := partialArtifactPath(contract.ID)
	if err := s.uploadBlob(ctx, path, fileBytes); err != nil {
		return nil, err
	}

	ok, err := s.records.ApplyOwnerSignature(contract.ID, path, clientEmail, signerIP)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		// Lost a race or the draft moved on; the uploaded blob is orphaned,
		// remove it best-effort.
		s.deleteBlob(ctx, path)
		return nil, fmt.Errorf("%w: contract %s left draft before the write", ErrIllegalTransition, contract.ID)
	}

	contract.SignedFilePath = path
	contract.ClientEmail = clientEmail
	contract.SignerIP = signerIP
	contract.Status = models.ContractStatusPendingSignature

	s.recordActivity(contract, models.ActivityEdit)

	result := &TransitionResult{Contract: contract, Verification: verification}
	if err := s.notifier.SendSignatureInvitation(contract); err != nil {
		log.Printf("Warning: signature invitation for contract %s not sent: %v", contract.ID, err)
		result.NotificationErr = fmt.Errorf("%w: %v", ErrNotificationDispatch, err)
	}
	return result, nil
}

// SubmitClientSignature accepts the counter-party's signed PDF via the upload
// link and completes the contract. The owner must have signed first, and a
// contract that is already signed is never overwritten: provenance fields are
// written exactly once.
func (s *LifecycleService) SubmitClientSignature(ctx context.Context, contractID uuid.UUID, fileBytes []byte, signerEmail, signerIP string) (*TransitionResult, error) {
	if err := validateEmail(signerEmail); err != nil {
		return nil, err
	}

	contract, err := s.records.GetContract(contractID)
	if err != nil {
		return nil, err
	}
	// Rejected before any storage write.
	if contract.Status == models.ContractStatusSigned || contract.SignatureState() == models.SignatureFullySigned {
		return nil, fmt.Errorf("%w: contract %s is already signed", ErrIllegalTransition, contractID)
	}
	if contract.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: contract %s is %s", ErrIllegalTransition, contractID, contract.Status)
	}
	if contract.SignatureState() != models.SignatureOwnerSigned {
		return nil, fmt.Errorf("%w: owner has not signed contract %s yet", ErrIllegalTransition, contractID)
	}

	verification, err := s.verifier.Verify(fileBytes)
	if err != nil {
		return nil, err
	}
	if !verification.Signed {
		return nil, fmt.Errorf("%w: %d marker(s) found", ErrUnsignedDocument, len(verification.MatchedMarkers))
	}

	path := finalArtifactPath(contract.ID)
	if err := s.uploadBlob(ctx, path, fileBytes); err != nil {
		return nil, err
	}

	signedAt := time.Now().UTC()
	ok, err := s.records.ApplyClientSignature(contract.ID, path, signerEmail, signerIP, signedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		// A concurrent upload won; the stored provenance belongs to the first
		// writer and stays untouched.
		s.deleteBlob(ctx, path)
		return nil, fmt.Errorf("%w: contract %s was signed concurrently", ErrIllegalTransition, contractID)
	}

	contract.ClientSignedFilePath = path
	contract.ClientSignedAt = &signedAt
	contract.ClientEmail = signerEmail
	contract.SignerIP = signerIP
	contract.Status = models.ContractStatusSigned

	s.recordActivity(contract, models.ActivityEdit)

	result := &TransitionResult{Contract: contract, Verification: verification}
	if err := s.notifier.SendCompletionNotice(contract); err != nil {
		log.Printf("Warning: completion notice for contract %s not sent: %v", contract.ID, err)
		result.NotificationErr = fmt.Errorf("%w: %v", ErrNotificationDispatch, err)
	}
	return result, nil
}

// OverrideStatus applies a manual status change by the owner. Only draft,
// active, expired and canceled are valid targets, and a signed contract never
// accepts one: an administrative action must not mask a completed signature.
func (s *LifecycleService) OverrideStatus(ctx context.Context, contract *models.Contract, target models.ContractStatus) (*models.Contract, error) {
	if !target.ValidOverrideTarget() {
		return nil, fmt.Errorf("%w: %q is not a valid manual status", ErrIllegalTransition, target)
	}
	if contract.Status == models.ContractStatusSigned {
		return nil, fmt.Errorf("%w: contract %s is signed", ErrIllegalTransition, contract.ID)
	}

	ok, err := s.records.OverrideStatus(contract.ID, contract.UserID, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: contract %s was signed concurrently", ErrIllegalTransition, contract.ID)
	}

	contract.Status = target
	s.recordActivity(contract, models.ActivityEdit)
	return contract, nil
}

func (s *LifecycleService) uploadBlob(ctx context.Context, path string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.blobs.Upload(ctx, path, data, "application/pdf"); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *LifecycleService) deleteBlob(ctx context.Context, path string) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.blobs.Delete(ctx, path); err != nil {
		log.Printf("Warning: failed to remove orphaned blob %s: %v", path, err)
	}
}

func (s *LifecycleService) recordActivity(contract *models.Contract, activityType models.ActivityType) {
	activity := &models.Activity{
		UserID:       contract.UserID,
		ContractID:   contract.ID,
		ContractName: contract.Title,
		Type:         activityType,
	}
	if err := s.records.InsertActivity(activity); err != nil {
		log.Printf("Warning: failed to record %s activity for contract %s: %v", activityType, contract.ID, err)
	}
}

func validateEmail(address string) error {
	if address == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidEmail)
	}
	if _, err := mail.ParseAddress(address); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, address)
	}
	return nil
}

// Blob paths carry a per-attempt segment: a losing concurrent upload cleans up
// only its own blob, not the path a committed record references. Download
// filenames are derived at resolve time, not from the stored path.
func partialArtifactPath(id uuid.UUID) string {
	return fmt.Sprintf("contracts/%s/%s/contrato-%s-parcialmente-assinado.pdf", id, uuid.New(), id)
}

func finalArtifactPath(id uuid.UUID) string {
	return fmt.Sprintf("contracts/%s/%s/contrato-%s-assinado-final.pdf", id, uuid.New(), id)
}
