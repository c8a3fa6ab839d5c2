// Package httpkit holds the gin helpers shared by every module: response
// writers, apperr mapping, service-token auth and request middleware.
package httpkit

import (
	"errors"
	"net/http"

	"contract_workflow_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func OK(c *gin.Context, payload any)       { c.JSON(http.StatusOK, payload) }
func Accepted(c *gin.Context, payload any) { c.JSON(http.StatusAccepted, payload) }

// Error writes an ErrorResponse with status.
func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// HandleError writes err and reports whether there was one. An *apperr.Error
// anywhere in the chain picks the status; anything else is a 500 whose text
// is not echoed to the caller.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, "internal error", nil)
		return true
	}
	Error(c, ae.HTTPStatus(), ae.Message, ae.Details)
	return true
}
