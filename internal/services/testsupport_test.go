package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/contratofacil/platform/internal/database"
	"github.com/contratofacil/platform/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// memBlobStore is an in-memory BlobStore with optional failure injection.
// uploadHook, if set, fires once after the next upload completes; tests use it
// to interleave a concurrent operation while an upload is in flight.
type memBlobStore struct {
	mu          sync.Mutex
	blobs       map[string][]byte
	downloadErr error
	uploadHook  func(path string)
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte)}
}

func (s *memBlobStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	s.mu.Lock()
	s.blobs[path] = data
	hook := s.uploadHook
	s.uploadHook = nil
	s.mu.Unlock()
	if hook != nil {
		hook(path)
	}
	return nil
}

func (s *memBlobStore) Download(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.downloadErr != nil {
		return nil, s.downloadErr
	}
	data, ok := s.blobs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, path)
	}
	return data, nil
}

func (s *memBlobStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, path)
	return nil
}

func (s *memBlobStore) PublicURL(path string) string {
	return "http://blobs.test/" + path
}

// recordingNotifier captures workflow emails and can be told to fail.
type recordingNotifier struct {
	invitations []uuid.UUID
	completions []uuid.UUID
	failWith    error
}

func (n *recordingNotifier) SendSignatureInvitation(contract *models.Contract) error {
	if n.failWith != nil {
		return n.failWith
	}
	n.invitations = append(n.invitations, contract.ID)
	return nil
}

func (n *recordingNotifier) SendCompletionNotice(contract *models.Contract) error {
	if n.failWith != nil {
		return n.failWith
	}
	n.completions = append(n.completions, contract.ID)
	return nil
}

func seedContract(t *testing.T, store *database.ContractStore, mutate func(*models.Contract)) *models.Contract {
	t.Helper()
	contract := &models.Contract{
		UserID:      uuid.New(),
		Title:       "Contrato de Design",
		Content:     "<p>Objeto do contrato.</p>",
		ClientName:  "Maria Souza",
		ClientEmail: "maria@example.com",
		Status:      models.ContractStatusDraft,
		CreatedAt:   time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(contract)
	}
	if err := store.CreateContract(contract); err != nil {
		t.Fatalf("failed to seed contract: %v", err)
	}
	return contract
}
