// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import "fmt"

// The authentication pipeline distinguishes four terminal failure
// classes. Room-membership failures are deliberately absent: they are
// logged and swallowed, never surfaced to the login.

// CredentialError: the ticketing service rejected the email/password
// pair. Indistinguishable from an unknown account on purpose.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credentials rejected: %v", e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// EntitlementError: the credentials were valid but the account holds
// no tickets, so there is nothing to grant.
type EntitlementError struct {
	Err error
}

func (e *EntitlementError) Error() string {
	return fmt.Sprintf("no entitlement: %v", e.Err)
}

func (e *EntitlementError) Unwrap() error { return e.Err }

// ServiceError: the ticketing service could not be consulted. The
// credentials were neither accepted nor rejected.
type ServiceError struct {
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("ticketing service failure: %v", e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ProvisioningError: valid credentials and entitlement, but the
// Matrix account could not be resolved or created.
type ProvisioningError struct {
	Err error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("account provisioning failed: %v", e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }
