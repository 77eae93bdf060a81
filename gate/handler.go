// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gatehouse-project/gatehouse/lib/secret"
)

// CheckPath is the credential-check endpoint the homeserver's
// password-provider shim calls.
const CheckPath = "/_gatehouse/v1/check"

// maxCheckBodySize bounds a credential-check request body. Requests
// are three short strings; 64 KB is generous.
const maxCheckBodySize = 64 * 1024

// Failure reason codes returned with 401 responses.
const (
	// ReasonCredentials: the email/password pair was rejected.
	ReasonCredentials = "credentials"
	// ReasonNoTickets: valid credentials, but no tickets.
	ReasonNoTickets = "no_tickets"
	// ReasonUnsupportedMedium: gatehouse only authenticates email.
	ReasonUnsupportedMedium = "unsupported_medium"
)

type checkRequest struct {
	Medium   string `json:"medium"`
	Address  string `json:"address"`
	Password string `json:"password"`
}

type authResult struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id,omitempty"`
}

type checkResponse struct {
	Auth   authResult `json:"auth"`
	Reason string     `json:"reason,omitempty"`
}

// Handler serves the credential-check endpoint. It is an http.Handler
// suitable for HTTPServer or any standard mux.
type Handler struct {
	authenticator *Authenticator
	log           *slog.Logger
}

// NewHandler wraps an Authenticator in the REST surface the
// homeserver shim consumes.
func NewHandler(authenticator *Authenticator, log *slog.Logger) *Handler {
	return &Handler{authenticator: authenticator, log: log}
}

// ServeHTTP handles one credential check. Status codes: 200 for an
// authenticated login, 401 with a reason code for a declined one, 502
// when the ticketing service was unreachable, 500 when provisioning
// failed after valid credentials.
func (h *Handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(writer, "", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(request.Body, maxCheckBodySize))
	if err != nil {
		http.Error(writer, "", http.StatusInternalServerError)
		return
	}

	var check checkRequest
	if err := json.Unmarshal(body, &check); err != nil {
		http.Error(writer, "", http.StatusBadRequest)
		return
	}
	secret.Zero(body)
	if check.Address == "" || check.Password == "" {
		h.respond(writer, http.StatusUnauthorized, checkResponse{Reason: ReasonCredentials})
		return
	}

	password, err := secret.NewFromBytes([]byte(check.Password))
	if err != nil {
		h.log.Error("could not allocate password buffer", "error", err)
		http.Error(writer, "", http.StatusInternalServerError)
		return
	}
	defer password.Close()
	check.Password = ""

	userID, err := h.authenticator.Authenticate(request.Context(), check.Medium, check.Address, password)
	if err != nil {
		var credentialErr *CredentialError
		var entitlementErr *EntitlementError
		var serviceErr *ServiceError
		var provisioningErr *ProvisioningError
		switch {
		case errors.As(err, &credentialErr):
			h.respond(writer, http.StatusUnauthorized, checkResponse{Reason: ReasonCredentials})
		case errors.As(err, &entitlementErr):
			h.respond(writer, http.StatusUnauthorized, checkResponse{Reason: ReasonNoTickets})
		case errors.As(err, &serviceErr):
			h.log.Error("ticketing service failure", "address", check.Address, "error", err)
			http.Error(writer, "ticketing service unavailable", http.StatusBadGateway)
		case errors.As(err, &provisioningErr):
			h.log.Error("provisioning failure", "address", check.Address, "error", err)
			http.Error(writer, "", http.StatusInternalServerError)
		default:
			h.log.Error("unclassified authentication failure", "address", check.Address, "error", err)
			http.Error(writer, "", http.StatusInternalServerError)
		}
		return
	}

	if userID.IsZero() {
		// Not our medium. Decline so the shim falls through.
		h.respond(writer, http.StatusUnauthorized, checkResponse{Reason: ReasonUnsupportedMedium})
		return
	}

	h.respond(writer, http.StatusOK, checkResponse{
		Auth: authResult{Success: true, UserID: userID.String()},
	})
}

func (h *Handler) respond(writer http.ResponseWriter, status int, response checkResponse) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(response); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}
