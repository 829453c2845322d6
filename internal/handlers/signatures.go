package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/contratofacil/platform/internal/database"
	"github.com/contratofacil/platform/internal/middleware"
	"github.com/contratofacil/platform/internal/models"
	"github.com/contratofacil/platform/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MaxUploadSize bounds signed PDF uploads (10MB).
const MaxUploadSize = 10 * 1024 * 1024

type SignatureHandler struct {
	store     *database.ContractStore
	lifecycle *services.LifecycleService
	artifacts *services.ArtifactService
}

func NewSignatureHandler(store *database.ContractStore, lifecycle *services.LifecycleService, artifacts *services.ArtifactService) *SignatureHandler {
	return &SignatureHandler{
		store:     store,
		lifecycle: lifecycle,
		artifacts: artifacts,
	}
}

// UploadOwnerSignature accepts the owner's externally signed PDF together
// with the counter-party email, and starts the counter-signature step.
func (h *SignatureHandler) UploadOwnerSignature(c *gin.Context) {
	contract, ok := ownedContractForUpload(c, h.store)
	if !ok {
		return
	}

	fileBytes, ok := readUpload(c)
	if !ok {
		return
	}
	clientEmail := c.PostForm("client_email")

	result, err := h.lifecycle.SubmitOwnerSignature(c.Request.Context(), contract, fileBytes, clientEmail, c.ClientIP())
	if err != nil {
		rejectWorkflowError(c, err)
		return
	}

	respondAccepted(c, result)
}

// GetPublicContract returns what the counter-party upload page needs to know
// about a contract, nothing more.
func (h *SignatureHandler) GetPublicContract(c *gin.Context) {
	contract, ok := publicContract(c, h.store)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           contract.ID,
		"title":        contract.Title,
		"status":       contract.Status,
		"owner_signed": contract.SignatureState() != models.SignatureNone,
		"signed":       contract.Status == models.ContractStatusSigned,
	})
}

// DownloadPublicDocument serves the partially-signed document to the
// counter-party, the target of the invitation email's download link.
func (h *SignatureHandler) DownloadPublicDocument(c *gin.Context) {
	contract, ok := publicContract(c, h.store)
	if !ok {
		return
	}

	// The public link only ever exposes signed artifacts, never a draft render.
	if contract.SignatureState() == models.SignatureNone {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not available yet"})
		return
	}

	artifact, err := h.artifacts.Resolve(c.Request.Context(), contract, models.ActivityDownload)
	if err != nil {
		rejectWorkflowError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	c.Data(http.StatusOK, artifact.ContentType, artifact.Data)
}

// UploadClientSignature accepts the counter-party's signed PDF via the public
// upload link and completes the signature workflow.
func (h *SignatureHandler) UploadClientSignature(c *gin.Context) {
	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contract ID"})
		return
	}

	fileBytes, ok := readUpload(c)
	if !ok {
		return
	}
	signerEmail := c.PostForm("email")

	result, err := h.lifecycle.SubmitClientSignature(c.Request.Context(), contractID, fileBytes, signerEmail, c.ClientIP())
	if err != nil {
		rejectWorkflowError(c, err)
		return
	}

	respondPublicAccepted(c, result)
}

func respondAccepted(c *gin.Context, result *services.TransitionResult) {
	resp := gin.H{
		"code":     "accepted",
		"status":   result.Contract.Status,
		"contract": result.Contract,
	}
	if result.NotificationErr != nil {
		resp["warning"] = "A assinatura foi registrada, mas o e-mail de notificação não pôde ser enviado"
	}
	c.JSON(http.StatusOK, resp)
}

// respondPublicAccepted is the counter-party variant: the public surface only
// ever exposes id, title and status, never the full record.
func respondPublicAccepted(c *gin.Context, result *services.TransitionResult) {
	resp := gin.H{
		"code":   "accepted",
		"id":     result.Contract.ID,
		"title":  result.Contract.Title,
		"status": result.Contract.Status,
	}
	if result.NotificationErr != nil {
		resp["warning"] = "A assinatura foi registrada, mas o e-mail de notificação não pôde ser enviado"
	}
	c.JSON(http.StatusOK, resp)
}

// readUpload pulls the uploaded file out of the multipart form. The content
// is handed to the verifier as-is; the declared type and extension are not
// trusted.
func readUpload(c *gin.Context) ([]byte, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "rejected-invalid-file",
			"error": "Nenhum arquivo enviado",
		})
		return nil, false
	}
	if fileHeader.Size > MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "rejected-invalid-file",
			"error": "Arquivo muito grande. O tamanho máximo é 10MB",
		})
		return nil, false
	}

	data, err := readAll(fileHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "rejected-invalid-file",
			"error": "Não foi possível ler o arquivo enviado",
		})
		return nil, false
	}
	return data, true
}

func readAll(fileHeader *multipart.FileHeader) ([]byte, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}

func ownedContractForUpload(c *gin.Context, store *database.ContractStore) (*models.Contract, bool) {
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

	contract, err := store.GetOwnedContract(contractID, userID)
	if err != nil {
		rejectWorkflowError(c, err)
		return nil, false
	}
	return contract, true
}

func publicContract(c *gin.Context, store *database.ContractStore) (*models.Contract, bool) {
	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contract ID"})
		return nil, false
	}

	contract, err := store.GetContract(contractID)
	if err != nil {
		rejectWorkflowError(c, err)
		return nil, false
	}
	return contract, true
}
