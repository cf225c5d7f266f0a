// Package respond writes error responses for the apperr taxonomy.
package respond

import (
	"net/http"

	"subscription-backend/internal/app/http/middleware"
	"subscription-backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindConflict, apperr.KindPrecondition:
		return http.StatusBadRequest
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindGateway:
		return http.StatusBadGateway
	case apperr.KindGatewayUnavailable:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error aborts with {"error": message}. Outside release mode the full error chain
// is added as "details".
func Error(c *gin.Context, err error) {
	status := StatusFor(apperr.KindOf(err))
	body := gin.H{"error": apperr.MessageOf(err)}
	if gin.IsDebugging() {
		body["details"] = err.Error()
	}

	log := middleware.Logger(c)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "status", status, "error", err)
	} else {
		log.Debug("request rejected", "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, body)
}

// BadRequest is for malformed input caught before reaching a service.
func BadRequest(c *gin.Context, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil && gin.IsDebugging() {
		body["details"] = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}
