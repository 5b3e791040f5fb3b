package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	messagesvc "github.com/rzbill/smq/internal/services/messages"
)

// Helper functions for common HTTP responses

// writeData writes a success response wrapping the payload in the shared
// envelope: {"data": <payload>}.
func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

// writeError writes an error response with the given status code and
// message: {"error": <message>}.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeDomainError maps a service error to a status code. Validation and
// storage failures are the caller's fault; everything else is a server
// fault.
func writeDomainError(w http.ResponseWriter, err error) {
	var invalidID *messagesvc.InvalidIDError
	var invalidFilter *messagesvc.InvalidFilterError
	var storageErr *messagesvc.StorageError
	switch {
	case errors.Is(err, messagesvc.ErrBodyTooLarge),
		errors.Is(err, messagesvc.ErrNoIDs),
		errors.As(err, &invalidID),
		errors.As(err, &invalidFilter),
		errors.As(err, &storageErr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// normalizeCount applies the transport-level default of 1 and floors
// non-positive values.
func normalizeCount(count int) int {
	if count < 1 {
		return 1
	}
	return count
}
