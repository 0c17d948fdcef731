package httpadapter

import (
	"context"
	"errors"
	"net/http"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		// Client went away mid-turn.
		return 499
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
