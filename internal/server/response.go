package server

import (
	"net/http"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/apperrors"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/utils"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	utils.WriteJSONResponse(w, status, errorResponse{Error: message})
}

// writeError maps application errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.IsNotFoundError(err):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case apperrors.IsUnauthorizedError(err):
		writeErrorMessage(w, http.StatusForbidden, err.Error())
	case apperrors.IsDuplicateError(err) || apperrors.IsConflictError(err):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case apperrors.IsBadRequestError(err) || apperrors.IsValidationError(err) || apperrors.IsFatal(err):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	default:
		writeErrorMessage(w, http.StatusInternalServerError, err.Error())
	}
}
