package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/cucm"
	"github.com/mrlokans/phonedir/internal/database/contacts"
	syncrepo "github.com/mrlokans/phonedir/internal/database/sync"
	"github.com/mrlokans/phonedir/internal/directory"
	"github.com/mrlokans/phonedir/internal/importer"
	"github.com/mrlokans/phonedir/internal/importers"
	"github.com/mrlokans/phonedir/internal/mail"
	"github.com/mrlokans/phonedir/internal/services"
	"github.com/mrlokans/phonedir/internal/settingsstore"
	"github.com/mrlokans/phonedir/internal/tasks"
)

const loggerContextKey = "logger"

// --- Response Types ---

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// LoggerMiddleware makes logger available to handlers through requestLogger.
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Set(loggerContextKey, logger)
		c.Next()
	}
}

func requestLogger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(loggerContextKey); ok {
		if logger, ok := v.(*zap.Logger); ok {
			return logger
		}
	}
	return zap.NewNop()
}

// --- Success Response Helpers ---

// respondOK sends {"success": true} merged with fields.
func respondOK(c *gin.Context, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// respondAccepted sends a 202 Accepted envelope (for async operations).
func respondAccepted(c *gin.Context, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusAccepted, body)
}

// --- Error Response Helpers ---

// respondError sends an error envelope with the given status code.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, message)
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	requestLogger(c).Error("internal error", zap.String("context", context), zap.Error(err))
	respondError(c, http.StatusInternalServerError, "internal server error")
}

// respondServiceError maps a service error to its status code. Unlike
// respondInternalError the message is passed through, since directory and
// CUCM failures are actionable for the operator.
func respondServiceError(c *gin.Context, err error, context string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		requestLogger(c).Error("request failed", zap.String("context", context), zap.Error(err))
	} else {
		requestLogger(c).Debug("request refused", zap.String("context", context), zap.Error(err))
	}
	respondError(c, status, err.Error())
}

func statusFor(err error) int {
	var (
		validation *services.ValidationError
		rejected   *importer.RejectedError
		invalid    *settingsstore.InvalidValueError
	)
	switch {
	case errors.Is(err, contacts.ErrNotFound),
		errors.Is(err, syncrepo.ErrNotFound),
		errors.Is(err, directory.ErrEntryNotFound),
		errors.Is(err, cucm.ErrPhoneNotFound),
		errors.Is(err, services.ErrNoAuthCode):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNoConflict),
		errors.Is(err, services.ErrDuplicateUID),
		errors.Is(err, services.ErrSyncRunning):
		return http.StatusConflict
	case errors.Is(err, services.ErrNoDirectory),
		errors.Is(err, services.ErrNoMailer),
		errors.Is(err, cucm.ErrNotConfigured),
		errors.Is(err, mail.ErrNotConfigured),
		errors.Is(err, directory.ErrDirectoryUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &validation),
		errors.As(err, &rejected),
		errors.As(err, &invalid),
		errors.Is(err, services.ErrDNRequired),
		errors.Is(err, services.ErrNoUID),
		errors.Is(err, services.ErrActiveContact),
		errors.Is(err, services.ErrNoImportData),
		errors.Is(err, directory.ErrSearchTermRequired),
		errors.Is(err, directory.ErrServerRequired),
		errors.Is(err, directory.ErrPortRequired),
		errors.Is(err, directory.ErrBaseDNRequired),
		errors.Is(err, directory.ErrPartialCredentials),
		errors.Is(err, directory.ErrCredentialsRequired),
		errors.Is(err, cucm.ErrInvalidMAC),
		errors.Is(err, cucm.ErrPatternEmpty),
		errors.Is(err, mail.ErrNoRecipient),
		errors.Is(err, mail.ErrNoPIN),
		errors.Is(err, importers.ErrEmptyCSV),
		errors.Is(err, importers.ErrMissingColumns),
		errors.Is(err, tasks.ErrBatchTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, cucm.ErrAuthentication):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// bindJSON decodes the request body or responds with 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
