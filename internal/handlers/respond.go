package handlers

import (
	"errors"
	"net/http"

	"github.com/contratofacil/platform/internal/database"
	"github.com/contratofacil/platform/internal/services"
	"github.com/gin-gonic/gin"
)

// rejectWorkflowError maps the workflow error taxonomy onto distinct HTTP
// rejections so the UI can tell the user what to do next.
func rejectWorkflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
	case errors.Is(err, services.ErrInvalidFile):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "rejected-invalid-file",
			"error": "O arquivo enviado não é um PDF válido",
		})
	case errors.Is(err, services.ErrUnsignedDocument):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":  "rejected-unsigned",
			"error": "O documento não contém uma assinatura digital reconhecida. Assine o PDF no portal de assinatura e envie novamente",
		})
	case errors.Is(err, services.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "rejected-invalid-email",
			"error": "Endereço de e-mail inválido",
		})
	case errors.Is(err, services.ErrIllegalTransition):
		c.JSON(http.StatusConflict, gin.H{
			"code":  "rejected-already-signed",
			"error": "O contrato não aceita esta transição no estado atual",
		})
	case errors.Is(err, services.ErrArtifactMissing):
		// Data-integrity fault: an artifact the record points at is gone.
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "artifact-missing",
			"error": "Documento assinado não encontrado no armazenamento",
		})
	case errors.Is(err, services.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":  "rejected-store-error",
			"error": "Armazenamento temporariamente indisponível, tente novamente",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
