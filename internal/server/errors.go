package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/siteassist/insight/internal/analytics/domain"
	authdomain "github.com/siteassist/insight/internal/auth/domain"
	eventlogdomain "github.com/siteassist/insight/internal/eventlog/domain"
	licensedomain "github.com/siteassist/insight/internal/license/domain"
	productcatalogdomain "github.com/siteassist/insight/internal/productcatalog/domain"
	"github.com/siteassist/insight/internal/tenancy"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

// ErrorHandlingMiddleware translates errors recorded on the context into the
// JSON error envelope. Handlers never write error bodies themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// mapError keeps internal detail out of responses: everything not matched
// explicitly collapses to a generic 500.
func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, eventlogdomain.ErrMissingSessionID),
		errors.Is(err, eventlogdomain.ErrInvalidTimestamp),
		errors.Is(err, productcatalogdomain.ErrInvalidProduct),
		errors.Is(err, productcatalogdomain.ErrInvalidTableName):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: err.Error(),
		}

	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, tenancy.ErrNotAuthenticated),
		errors.Is(err, authdomain.ErrMissingToken),
		errors.Is(err, authdomain.ErrInvalidLicenseKey),
		errors.Is(err, authdomain.ErrDomainNotFound),
		errors.Is(err, eventlogdomain.ErrUnknownLicense):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: err.Error(),
		}

	case errors.Is(err, ErrForbidden),
		errors.Is(err, tenancy.ErrMasterRequired),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, analyticsdomain.ErrLicenseForbidden),
		errors.Is(err, eventlogdomain.ErrLicenseInactive):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: err.Error(),
		}

	case errors.Is(err, ErrNotFound),
		errors.Is(err, licensedomain.ErrNotFound),
		errors.Is(err, productcatalogdomain.ErrUnknownProduct),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}

	case errors.Is(err, ErrConflict),
		errors.Is(err, eventlogdomain.ErrDuplicateEntry):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}

	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}

	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
