// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

// Package volume is the client side of the remote block storage service.
// It spreads requests over a pool of volume api servers, retries idempotent
// calls on connection errors, pages through listings, translates volume
// metadata between the local and the remote schema and hides volumes the
// caller does not own.
package volume

// Identity of the caller, supplied with every operation.
type RequestContext struct {
	// Id of the calling user.
	UserID string
	// Id of the project (tenant) the caller acts in.
	TenantID string
	// Keystone token of the caller, if any.
	AuthToken string
	// Whether the caller has admin privileges.
	IsAdmin bool
}
