package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/grant"
)

// errorResponse is the OAuth 2.0 error body.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("WARNING: encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, errorResponse{Error: code, ErrorDescription: description})
}

// writeGrantError maps a dispatcher error onto the token endpoint response.
// Non-protocol errors never leak their text.
func writeGrantError(w http.ResponseWriter, err error) {
	var oidcErr *oidc.Error
	if !errors.As(err, &oidcErr) {
		writeJSONError(w, http.StatusInternalServerError, string(oidc.ServerError), grant.DescInternal)
		return
	}

	status := http.StatusBadRequest
	switch oidcErr.ErrorType {
	case oidc.InvalidClient:
		status = http.StatusUnauthorized
		w.Header().Set("WWW-Authenticate", `Basic realm="token"`)
	case oidc.ServerError:
		status = http.StatusInternalServerError
	}
	writeJSONError(w, status, string(oidcErr.ErrorType), oidcErr.Description)
}
