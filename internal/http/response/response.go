package response

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// StatusForKind maps the orchestration error taxonomy to HTTP statuses.
// Provider-side failures surface as gateway errors; configuration problems
// are the client's to fix.
func StatusForKind(kind errors.Kind) int {
	switch kind {
	case errors.KindUnknownTemplateKey, errors.KindNoActiveProvider:
		return http.StatusBadRequest
	case errors.KindProviderTimeout:
		return http.StatusGatewayTimeout
	case errors.KindProviderAuth, errors.KindProviderProtocol, errors.KindEmbeddingDimensionMismatch, errors.KindEmbeddingUnsupported:
		return http.StatusBadGateway
	case errors.KindCancelled:
		// Client went away; 499 by nginx convention.
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// RespondDomainError picks the status from the error's kind, falling back to
// 404 for missing rows and 500 otherwise.
func RespondDomainError(c *gin.Context, err error) {
	if stderrors.Is(err, errors.ErrNotFound) {
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	if kind := errors.KindOf(err); kind != "" {
		RespondError(c, StatusForKind(kind), string(kind), err)
		return
	}
	RespondError(c, http.StatusInternalServerError, "internal_error", err)
}
