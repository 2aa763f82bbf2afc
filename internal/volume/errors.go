// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package volume

import (
	"errors"
	"fmt"
	"strings"
)

// Kinds of errors raised by the volume service client. Use errors.Is to
// check which kind an error is.
var (
	// The client is misconfigured, for example no endpoints are given.
	ErrConfiguration = errors.New("volume service misconfigured")
	// The volume api server could not be reached.
	ErrConnectivity = errors.New("cannot connect to volume service")
	// All attempts of a retried call failed with connection errors.
	ErrServiceUnavailable = errors.New("volume service unavailable")
	// The caller is not allowed to perform the operation.
	ErrNotAuthorized = errors.New("not authorized")
	// The volume does not exist or is not visible to the caller.
	ErrNotFound = errors.New("volume not found")
	// The request was rejected as invalid.
	ErrInvalidRequest = errors.New("invalid request")
	// A listing page could not be continued.
	ErrPaginationProtocol = errors.New("volume listing cannot be continued")
	// Volume metadata returned by the remote side is malformed.
	ErrTranslation = errors.New("malformed volume metadata")
)

// Error raised by the volume service client.
type Error struct {
	// One of the Err* kinds above.
	Kind error
	// The volume the error refers to, if any.
	VolumeID string
	// Human readable detail, if any.
	Detail string
	// The underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())
	if e.VolumeID != "" {
		fmt.Fprintf(&sb, " (volume %s)", e.VolumeID)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Err != nil && e.Err.Error() != e.Detail {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Allow errors.Is to match both the kind and the underlying error.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Kind of failure reported by a remote volume api.
type RemoteCode int

const (
	RemoteForbidden RemoteCode = iota + 1
	RemoteNotAuthenticated
	RemoteMissingCredential
	RemoteNotFound
	RemoteInvalid
	RemoteConnectivity
)

func (c RemoteCode) String() string {
	switch c {
	case RemoteForbidden:
		return "forbidden"
	case RemoteNotAuthenticated:
		return "not authenticated"
	case RemoteMissingCredential:
		return "missing credential"
	case RemoteNotFound:
		return "not found"
	case RemoteInvalid:
		return "invalid"
	case RemoteConnectivity:
		return "connectivity"
	default:
		return fmt.Sprintf("remote code %d", int(c))
	}
}

// Error returned by Client implementations for failures of the remote side.
type RemoteError struct {
	Code   RemoteCode
	Detail string
	Err    error
}

func (e *RemoteError) Error() string {
	msg := "remote volume api: " + e.Code.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Check if the error is a connection failure towards the remote side.
func IsConnectivity(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote) && remote.Code == RemoteConnectivity
}

// Map remote failures onto the local error kinds. Errors that are not
// remote failures pass through unchanged.
func translateError(volumeID string, err error) error {
	if err == nil {
		return nil
	}
	var local *Error
	if errors.As(err, &local) {
		return err
	}
	var remote *RemoteError
	if !errors.As(err, &remote) {
		return err
	}
	switch remote.Code {
	case RemoteForbidden, RemoteNotAuthenticated, RemoteMissingCredential:
		return &Error{Kind: ErrNotAuthorized, VolumeID: volumeID, Detail: remote.Detail, Err: err}
	case RemoteNotFound:
		return &Error{Kind: ErrNotFound, VolumeID: volumeID, Err: err}
	case RemoteInvalid:
		return &Error{Kind: ErrInvalidRequest, VolumeID: volumeID, Detail: remote.Detail, Err: err}
	case RemoteConnectivity:
		return &Error{Kind: ErrConnectivity, VolumeID: volumeID, Err: err}
	default:
		return err
	}
}
