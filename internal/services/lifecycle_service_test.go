package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/contratofacil/platform/internal/database"
	"github.com/contratofacil/platform/internal/models"
	"github.com/google/uuid"
)

type lifecycleFixture struct {
	svc      *LifecycleService
	store    *database.ContractStore
	blobs    *memBlobStore
	notifier *recordingNotifier
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	store := database.NewContractStore(newTestDB(t))
	blobs := newMemBlobStore()
	notifier := &recordingNotifier{}
	svc := NewLifecycleService(store, blobs, NewSignatureService(), notifier, 5*time.Second)
	return &lifecycleFixture{svc: svc, store: store, blobs: blobs, notifier: notifier}
}

func signedUpload() []byte {
	return pdfWith("/Type /Sig", "/ByteRange [0 1 2 3]", "ICP-Brasil")
}

func TestSubmitOwnerSignature(t *testing.T) {
	f := newLifecycleFixture(t)
	contract := seedContract(t, f.store, nil)

	result, err := f.svc.SubmitOwnerSignature(context.Background(), contract, signedUpload(), "maria@example.com", "203.0.113.7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NotificationErr != nil {
		t.Errorf("unexpected notification error: %v", result.NotificationErr)
	}
	if !result.Verification.Signed {
		t.Error("expected signed verification verdict")
	}

	stored, err := f.store.GetContract(contract.ID)
	if err != nil {
		t.Fatalf("failed to reload contract: %v", err)
	}
	if stored.Status != models.ContractStatusPendingSignature {
		t.Errorf("status = %s, want %s", stored.Status, models.ContractStatusPendingSignature)
	}
	if stored.SignedFilePath == "" {
		t.Error("signed file path not persisted")
	}
	if stored.SignerIP != "203.0.113.7" {
		t.Errorf("signer IP = %q, want 203.0.113.7", stored.SignerIP)
	}
	if _, ok := f.blobs.blobs[stored.SignedFilePath]; !ok {
		t.Error("partial artifact not uploaded to blob storage")
	}
	if len(f.notifier.invitations) != 1 {
		t.Errorf("expected 1 invitation dispatch, got %d", len(f.notifier.invitations))
	}

	activities, _ := f.store.ListActivities(contract.UserID, 10)
	if len(activities) != 1 || activities[0].Type != models.ActivityEdit {
		t.Errorf("expected one edit activity, got %v", activities)
	}
}

func TestSubmitOwnerSignatureRejectsUnsignedUpload(t *testing.T) {
	f := newLifecycleFixture(t)
	contract := seedContract(t, f.store, nil)

	_, err := f.svc.SubmitOwnerSignature(context.Background(), contract, pdfWith("/Type /Sig"), "maria@example.com", "203.0.113.7")
	if !errors.Is(err, ErrUnsignedDocument) {
		t.Fatalf("expected ErrUnsignedDocument, got %v", err)
	}

	// Nothing persisted, nothing dispatched.
	stored, _ := f.store.GetContract(contract.ID)
	if stored.Status != models.ContractStatusDraft || stored.SignedFilePath != "" {
		t.Error("rejected upload must not modify the contract")
	}
	if len(f.blobs.blobs) != 0 {
		t.Error("rejected upload must not write to blob storage")
	}
	if len(f.notifier.invitations) != 0 {
		t.Error("rejected upload must not dispatch an invitation")
	}
}

func TestSubmitOwnerSignatureRejectsInvalidEmail(t *testing.T) {
	f := newLifecycleFixture(t)
	contract := seedContract(t, f.store, nil)

	for _, email := range []string{"", "not-an-email", "two@@example.com"} {
		_, err := f.svc.SubmitOwnerSignature(context.Background(), contract, signedUpload(), email, "203.0.113.7")
		if !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("email %q: expected ErrInvalidEmail, got %v", email, err)
		}
	}
	if len(f.blobs.blobs) != 0 {
		t.Error("invalid email must abort before any store write")
	}
}

func TestSubmitOwnerSignatureRequiresDraft(t *testing.T) {
	f := newLifecycleFixture(t)
	contract := seedContract(t, f.store, func(c *models.Contract) {
		c.Status = models.ContractStatusPendingSignature
		c.SignedFilePath = "contracts/x/partial.pdf"
	})

	_, err := f.svc.SubmitOwnerSignature(context.Background(), contract, signedUpload(), "maria@example.com", "203.0.113.7")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestSubmitOwnerSignatureNotificationFailureIsNonFatal(t *testing.T) {
	f := newLifecycleFixture(t)
	f.notifier.failWith = errors.New("smtp: connection refused")
	contract := seedContract(t, f.store, nil)

	result, err := f.svc.SubmitOwnerSignature(context.Background(), contract, signedUpload(), "maria@example.com", "203.0.113.7")
	if err != nil {
		t.Fatalf("notification failure must not fail the transition: %v", err)
	}
	if !errors.Is(result.NotificationErr, ErrNotificationDispatch) {
		t.Errorf("expected wrapped ErrNotificationDispatch, got %v", result.NotificationErr)
	}

	// The signature transition itself stays committed.
	stored, _ := f.store.GetContract(contract.ID)
	if stored.Status != models.ContractStatusPendingSignature {
		t.Errorf("status = %s, want %s", stored.Status, models.ContractStatusPendingSignature)
	}
}

func TestSubmitClientSignatureBeforeOwnerFails(t *testing.T) {
	f := newLifecycleFixture(t)
	contract := seedContract(t, f.store, nil)

	// Regardless of verifier result: even a properly signed upload is refused.
	_, err := f.svc.SubmitClientSignature(context.Background(), contract.ID, signedUpload(), "maria@example.com", "198.51.100.1")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}

	// And the guard fires before verification ever runs.
	_, err = f.svc.SubmitClientSignature(context.Background(), contract.ID, pdfWith("no markers"), "maria@example.com", "198.51.100.1")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition for unsigned upload too, got %v", err)
	}
}

func ownerSignedContract(t *testing.T, f *lifecycleFixture) *models.Contract {
	t.Helper()
	contract := seedContract(t, f.store, nil)
	if _, err := f.svc.SubmitOwnerSignature(context.Background(), contract, signedUpload(), "maria@example.com", "203.0.113.7"); err != nil {
		t.Fatalf("owner signature failed: %v", err)
	}
	return contract
}

func TestSubmitClientSignature(t *testing.T) {
	f := newLifecycleFixture(t)
	contract := ownerSignedContract(t, f)

	result, err := f.svc.SubmitClientSignature(context.Background(), contract.ID, signedUpload(), "maria@example.com", "198.51.100.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Contract.Status != models.ContractStatusSigned {
		t.Errorf("status = %s, want %s", result.Contract.Status, models.ContractStatusSigned)
	}

	stored, _ := f.store.GetContract(contract.ID)
	if stored.Status != models.ContractStatusSigned {
		t.Errorf("persisted status = %s, want signed", stored.Status)
	}
	if stored.ClientSignedFilePath == "" || stored.ClientSignedAt == nil {
		t.Error("counter-party provenance not persisted")
	}
	if stored.ClientEmail != "maria@example.com" || stored.SignerIP != "198.51.100.1" {
		t.Errorf("provenance = %q/%q, want maria@example.com/198.51.100.1", stored.ClientEmail, stored.SignerIP)
	}
	if _, ok := f.blobs.blobs[stored.ClientSignedFilePath]; !ok {
		t.Error("final artifact not uploaded to blob storage")
	}
	if len(f.notifier.completions) != 1 {
		t.Errorf("expected 1 completion notice, got %d", len(f.notifier.completions))
	}
}

func TestSubmitClientSignatureIsWriteOnce(t *testing.T) {
	f := newLifecycleFixture(t)
	contract := ownerSignedContract(t, f)

	if _, err := f.svc.SubmitClientSignature(context.Background(), contract.ID, signedUpload(), "first@example.com", "198.51.100.1"); err != nil {
		t.Fatalf("first upload failed: %v", err)
	}
	first, _ := f.store.GetContract(contract.ID)

	_, err := f.svc.SubmitClientSignature(context.Background(), contract.ID, signedUpload(), "second@example.com", "198.51.100.2")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition on replay, got %v", err)
	}

	// Provenance belongs to the first writer, untouched by the replay.
	after, _ := f.store.GetContract(contract.ID)
	if after.ClientEmail != first.ClientEmail || after.SignerIP != first.SignerIP {
		t.Errorf("replay clobbered provenance: %q/%q", after.ClientEmail, after.SignerIP)
	}
	if !after.ClientSignedAt.Equal(*first.ClientSignedAt) {
		t.Errorf("replay clobbered client_signed_at: %v vs %v", after.ClientSignedAt, first.ClientSignedAt)
	}
}

func TestArtifactPathsUniquePerAttempt(t *testing.T) {
	id := uuid.New()
	if partialArtifactPath(id) == partialArtifactPath(id) {
		t.Error("two owner upload attempts share a blob path")
	}
	if finalArtifactPath(id) == finalArtifactPath(id) {
		t.Error("two counter-party upload attempts share a blob path")
	}
}

func TestSubmitClientSignatureLosingRaceKeepsWinnerArtifact(t *testing.T) {
	f := newLifecycleFixture(t)
	contract := ownerSignedContract(t, f)

	winnerData := []byte("%PDF-1.7 winner")
	winnerPath := fmt.Sprintf("contracts/%s/w/contrato-%s-assinado-final.pdf", contract.ID, contract.ID)
	// A concurrent submission commits while the losing upload is in flight.
	f.blobs.uploadHook = func(string) {
		f.blobs.blobs[winnerPath] = winnerData
		ok, err := f.store.ApplyClientSignature(contract.ID, winnerPath, "first@example.com", "198.51.100.1", time.Now().UTC())
		if err != nil || !ok {
			t.Fatalf("concurrent write: ok=%v err=%v", ok, err)
		}
	}

	_, err := f.svc.SubmitClientSignature(context.Background(), contract.ID, signedUpload(), "second@example.com", "198.51.100.2")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}

	stored, _ := f.store.GetContract(contract.ID)
	if stored.ClientSignedFilePath != winnerPath {
		t.Fatalf("recorded path = %q, want the winner's", stored.ClientSignedFilePath)
	}
	// The loser's cleanup must not touch the blob the committed record references.
	data, err := f.blobs.Download(context.Background(), stored.ClientSignedFilePath)
	if err != nil {
		t.Fatalf("winner's recorded artifact is gone after the loser's cleanup: %v", err)
	}
	if !bytes.Equal(data, winnerData) {
		t.Error("winner's artifact bytes were overwritten by the loser's upload")
	}
}

func TestSubmitOwnerSignatureLosingRaceKeepsWinnerArtifact(t *testing.T) {
	f := newLifecycleFixture(t)
	contract := seedContract(t, f.store, nil)

	winnerData := []byte("%PDF-1.7 winner")
	winnerPath := fmt.Sprintf("contracts/%s/w/contrato-%s-parcialmente-assinado.pdf", contract.ID, contract.ID)
	f.blobs.uploadHook = func(string) {
		f.blobs.blobs[winnerPath] = winnerData
		ok, err := f.store.ApplyOwnerSignature(contract.ID, winnerPath, "first@example.com", "203.0.113.1")
		if err != nil || !ok {
			t.Fatalf("concurrent write: ok=%v err=%v", ok, err)
		}
	}

	_, err := f.svc.SubmitOwnerSignature(context.Background(), contract, signedUpload(), "second@example.com", "203.0.113.2")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}

	stored, _ := f.store.GetContract(contract.ID)
	if stored.SignedFilePath != winnerPath {
		t.Fatalf("recorded path = %q, want the winner's", stored.SignedFilePath)
	}
	data, err := f.blobs.Download(context.Background(), stored.SignedFilePath)
	if err != nil {
		t.Fatalf("winner's recorded artifact is gone after the loser's cleanup: %v", err)
	}
	if !bytes.Equal(data, winnerData) {
		t.Error("winner's artifact bytes were overwritten by the loser's upload")
	}
}

func TestSubmitClientSignatureOnTerminalContractFails(t *testing.T) {
	f := newLifecycleFixture(t)
	contract := seedContract(t, f.store, func(c *models.Contract) {
		c.Status = models.ContractStatusCanceled
		c.SignedFilePath = "contracts/x/partial.pdf"
	})

	_, err := f.svc.SubmitClientSignature(context.Background(), contract.ID, signedUpload(), "maria@example.com", "198.51.100.1")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestOverrideStatus(t *testing.T) {
	f := newLifecycleFixture(t)
	contract := seedContract(t, f.store, nil)

	updated, err := f.svc.OverrideStatus(context.Background(), contract, models.ContractStatusActive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != models.ContractStatusActive {
		t.Errorf("status = %s, want active", updated.Status)
	}

	stored, _ := f.store.GetContract(contract.ID)
	if stored.Status != models.ContractStatusActive {
		t.Errorf("persisted status = %s, want active", stored.Status)
	}
}

func TestOverrideStatusRejectsSignatureStates(t *testing.T) {
	f := newLifecycleFixture(t)
	contract := seedContract(t, f.store, nil)

	for _, target := range []models.ContractStatus{models.ContractStatusSigned, models.ContractStatusPendingSignature, "bogus"} {
		if _, err := f.svc.OverrideStatus(context.Background(), contract, target); !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("target %q: expected ErrIllegalTransition, got %v", target, err)
		}
	}
}

func TestOverrideStatusOnSignedContractFails(t *testing.T) {
	f := newLifecycleFixture(t)
	contract := ownerSignedContract(t, f)
	if _, err := f.svc.SubmitClientSignature(context.Background(), contract.ID, signedUpload(), "maria@example.com", "198.51.100.1"); err != nil {
		t.Fatalf("client signature failed: %v", err)
	}

	signed, _ := f.store.GetContract(contract.ID)
	_, err := f.svc.OverrideStatus(context.Background(), signed, models.ContractStatusCanceled)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}

	after, _ := f.store.GetContract(contract.ID)
	if after.Status != models.ContractStatusSigned {
		t.Errorf("override masked a completed signature: status = %s", after.Status)
	}
}
