package httpadapter

import (
	"net/http"

	"github.com/uscbytes/course-qa/internal/core/domain"
)

// mapServiceError translates domain failures into an HTTP status and a
// user-facing message. Internal detail never leaks into the response
// body.
func mapServiceError(err error) (int, string) {
	switch {
	case domain.IsKind(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest, "Please ask a complete question about the course, for example: when are the office hours?"
	case domain.IsKind(err, domain.ErrInvalidParameter):
		return http.StatusBadRequest, "The request parameters are invalid. top_k must be a positive number."
	case domain.IsKind(err, domain.ErrEmbeddingUnavailable),
		domain.IsKind(err, domain.ErrIndexUnavailable),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable, "The answering service is temporarily unavailable. Please try again in a moment."
	default:
		return http.StatusInternalServerError, "Something went wrong while answering your question. Please try again."
	}
}
