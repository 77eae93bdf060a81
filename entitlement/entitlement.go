// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package entitlement validates login credentials against the conference
// ticketing service and returns the attendee's entitlement profile. The
// profile is the sole input to room-policy decisions: which rooms an
// attendee belongs in is derived from their tickets, staff flag, and
// speaker flag, never from Matrix-side state.
package entitlement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gatehouse-project/gatehouse/lib/netutil"
	"github.com/gatehouse-project/gatehouse/lib/secret"
)

// Ticket is a single purchased ticket. Only the fare code matters for
// room policy; everything else the ticketing service returns about a
// ticket is ignored.
type Ticket struct {
	FareCode string `json:"fare_code"`
}

// Profile is the attendee record the ticketing service returns for a
// successful credential check. It is immutable for the duration of a
// login attempt.
type Profile struct {
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Username  string   `json:"username"`
	IsStaff   bool     `json:"is_staff"`
	IsSpeaker bool     `json:"is_speaker"`
	Tickets   []Ticket `json:"tickets"`
}

// ErrNoEntitlement reports that the ticketing service rejected the
// credentials. The account either does not exist or the password is
// wrong; the two cases are indistinguishable at this boundary.
var ErrNoEntitlement = errors.New("ticketing service rejected credentials")

// ErrNoTickets reports that the credentials were valid but the account
// holds no tickets. Kept distinct from ErrNoEntitlement so the login
// surface can tell the user why they were turned away.
var ErrNoTickets = errors.New("no tickets found for account")

// ServiceError reports that the ticketing service could not be
// consulted at all: transport failure, non-2xx status, or a response
// body that does not parse. Credential checks are never retried; the
// caller surfaces the outage and the user tries again later.
type ServiceError struct {
	StatusCode int // zero when the request never completed
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ticketing service returned status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ticketing service unreachable: %v", e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Validator checks credentials against the ticketing service's
// authentication endpoint.
type Validator struct {
	endpoint   string
	httpClient *http.Client
	log        *slog.Logger
}

// NewValidator builds a Validator for the given ticketing endpoint URL.
func NewValidator(endpoint string, httpClient *http.Client, log *slog.Logger) (*Validator, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("ticketing endpoint is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Validator{
		endpoint:   endpoint,
		httpClient: httpClient,
		log:        log,
	}, nil
}

// wireResult is the ticketing service's response envelope. A rejection
// carries an "error" member (its value is uninteresting, presence is
// the signal) and optionally a human-readable "message"; a success is
// the profile itself.
type wireResult struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Profile
}

// Validate performs exactly one credential check against the ticketing
// service. The password crosses into the request body only at the JSON
// boundary and the serialized form is zeroed after the request is
// written.
//
// Returns ErrNoEntitlement for rejected credentials, ErrNoTickets for
// valid credentials with an empty ticket list, and *ServiceError when
// the service itself failed.
func (v *Validator) Validate(ctx context.Context, address string, password *secret.Buffer) (*Profile, error) {
	requestBody, err := json.Marshal(map[string]string{
		"email":    address,
		"password": password.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding credential check: %w", err)
	}
	defer secret.Zero(requestBody)

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return nil, &ServiceError{Err: err}
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := v.httpClient.Do(request)
	if err != nil {
		return nil, &ServiceError{Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &ServiceError{
			StatusCode: response.StatusCode,
			Err:        fmt.Errorf("%s", netutil.ErrorBody(response.Body)),
		}
	}

	var result wireResult
	if err := netutil.DecodeResponse(response.Body, &result); err != nil {
		return nil, &ServiceError{
			StatusCode: response.StatusCode,
			Err:        fmt.Errorf("decoding response: %w", err),
		}
	}

	if len(result.Error) > 0 {
		v.log.Info("credentials rejected by ticketing service",
			"address", address,
			"message", result.Message)
		return nil, ErrNoEntitlement
	}
	if len(result.Tickets) == 0 {
		v.log.Info("account holds no tickets", "address", address)
		return nil, ErrNoTickets
	}

	v.log.Info("credentials accepted by ticketing service",
		"address", address,
		"tickets", len(result.Tickets),
		"staff", result.IsStaff,
		"speaker", result.IsSpeaker)
	return &result.Profile, nil
}
