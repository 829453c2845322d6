package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/contratofacil/platform/internal/database"
	"github.com/contratofacil/platform/internal/middleware"
	"github.com/contratofacil/platform/internal/models"
	"github.com/contratofacil/platform/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ContractHandler struct {
	store       *database.ContractStore
	lifecycle   *services.LifecycleService
	artifacts   *services.ArtifactService
	blobs       services.BlobStore
	authService *services.AuthService
}

func NewContractHandler(store *database.ContractStore, lifecycle *services.LifecycleService, artifacts *services.ArtifactService, blobs services.BlobStore, authService *services.AuthService) *ContractHandler {
	return &ContractHandler{
		store:       store,
		lifecycle:   lifecycle,
		artifacts:   artifacts,
		blobs:       blobs,
		authService: authService,
	}
}

// CreateContractRequest represents contract creation input
type CreateContractRequest struct {
	Title          string     `json:"title" binding:"required"`
	Content        string     `json:"content"`
	ClientName     string     `json:"client_name"`
	ClientEmail    string     `json:"client_email" binding:"omitempty,email"`
	ClientDocument string     `json:"client_document"`
	ClientAddress  string     `json:"client_address"`
	Amount         float64    `json:"amount"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
}

// CreateContract creates a new draft contract. Without explicit content the
// body is assembled from the party fields by the template builder.
func (h *ContractHandler) CreateContract(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract := &models.Contract{
		UserID:         userID,
		Title:          req.Title,
		Content:        req.Content,
		ClientName:     req.ClientName,
		ClientEmail:    req.ClientEmail,
		ClientDocument: req.ClientDocument,
		ClientAddress:  req.ClientAddress,
		Amount:         req.Amount,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Status:         models.ContractStatusDraft,
	}

	if contract.Content == "" {
		owner, err := h.authService.GetUserByID(userID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		contract.Content = services.BuildContractBody(contract, owner)
	}

	if err := h.store.CreateContract(contract); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create contract"})
		return
	}

	h.recordActivity(contract, models.ActivityCreate)

	c.JSON(http.StatusCreated, gin.H{"contract": contract})
}

// ListContracts returns the current user's contracts
func (h *ContractHandler) ListContracts(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	contracts, err := h.store.ListContracts(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch contracts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"contracts": contracts})
}

// GetContract returns a single contract owned by the current user
func (h *ContractHandler) GetContract(c *gin.Context) {
	contract, ok := h.ownedContract(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"contract": contract})
}

// UpdateContractRequest represents contract edit input
type UpdateContractRequest struct {
	Title          string     `json:"title" binding:"required"`
	Content        string     `json:"content"`
	ClientName     string     `json:"client_name"`
	ClientEmail    string     `json:"client_email" binding:"omitempty,email"`
	ClientDocument string     `json:"client_document"`
	ClientAddress  string     `json:"client_address"`
	Amount         float64    `json:"amount"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
}

// UpdateContract edits content and party fields. Once the counter-party has
// signed, the record is immutable.
func (h *ContractHandler) UpdateContract(c *gin.Context) {
	contract, ok := h.ownedContract(c)
	if !ok {
		return
	}

	if contract.SignatureState() == models.SignatureFullySigned {
		c.JSON(http.StatusConflict, gin.H{
			"code":  "rejected-already-signed",
			"error": "Contratos assinados não podem ser alterados",
		})
		return
	}

	var req UpdateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract.Title = req.Title
	contract.Content = req.Content
	contract.ClientName = req.ClientName
	contract.ClientEmail = req.ClientEmail
	contract.ClientDocument = req.ClientDocument
	contract.ClientAddress = req.ClientAddress
	contract.Amount = req.Amount
	contract.StartDate = req.StartDate
	contract.EndDate = req.EndDate

	if err := h.store.UpdateContent(contract); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update contract"})
		return
	}

	h.recordActivity(contract, models.ActivityEdit)

	c.JSON(http.StatusOK, gin.H{"contract": contract})
}

// UpdateStatusRequest represents a manual status override
type UpdateStatusRequest struct {
	Status models.ContractStatus `json:"status" binding:"required"`
}

// UpdateStatus applies a manual status override through the state machine.
func (h *ContractHandler) UpdateStatus(c *gin.Context) {
	contract, ok := h.ownedContract(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.lifecycle.OverrideStatus(c.Request.Context(), contract, req.Status)
	if err != nil {
		rejectWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contract": updated})
}

// DeleteContract removes a contract. Blob deletion precedes record deletion,
// never follows it: once the record is gone the artifact paths are gone too.
func (h *ContractHandler) DeleteContract(c *gin.Context) {
	contract, ok := h.ownedContract(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	for _, path := range []string{contract.ClientSignedFilePath, contract.SignedFilePath} {
		if path == "" {
			continue
		}
		if err := h.blobs.Delete(ctx, path); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"code":  "rejected-store-error",
				"error": "Falha ao remover documentos do contrato",
			})
			return
		}
	}

	if err := h.store.DeleteContract(contract.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete contract"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Contract deleted"})
}

// ViewContract streams the canonical document inline.
func (h *ContractHandler) ViewContract(c *gin.Context) {
	h.serveArtifact(c, models.ActivityView, "inline")
}

// DownloadContract streams the canonical document as an attachment.
func (h *ContractHandler) DownloadContract(c *gin.Context) {
	h.serveArtifact(c, models.ActivityDownload, "attachment")
}

func (h *ContractHandler) serveArtifact(c *gin.Context, intent models.ActivityType, disposition string) {
	contract, ok := h.ownedContract(c)
	if !ok {
		return
	}

	artifact, err := h.artifacts.Resolve(c.Request.Context(), contract, intent)
	if err != nil {
		rejectWorkflowError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, artifact.Filename))
	c.Header("X-Artifact-Kind", string(artifact.Kind))
	c.Data(http.StatusOK, artifact.ContentType, artifact.Data)
}

// ownedContract loads the contract from the path id and enforces ownership.
func (h *ContractHandler) ownedContract(c *gin.Context) (*models.Contract, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return nil, false
	}

	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contract ID"})
		return nil, false
	}

	contract, err := h.store.GetOwnedContract(contractID, userID)
	if err != nil {
		rejectWorkflowError(c, err)
		return nil, false
	}
	return contract, true
}

func (h *ContractHandler) recordActivity(contract *models.Contract, activityType models.ActivityType) {
	activity := &models.Activity{
		UserID:       contract.UserID,
		ContractID:   contract.ID,
		ContractName: contract.Title,
		Type:         activityType,
	}
	if err := h.store.InsertActivity(activity); err != nil {
		log.Printf("Warning: failed to record %s activity for contract %s: %v", activityType, contract.ID, err)
	}
}
