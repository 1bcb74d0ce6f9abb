// Copyright (c) 2026 Jeremy Hahn
// Copyright (c) 2026 Automate The Things, LLC
//
// This file is part of go-nitrocert.
//
// go-nitrocert is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package nitro

import (
	"errors"
	"fmt"
)

// Common store errors
var (
	// ErrNotFound is returned when a certificate object or file does
	// not exist on the appliance
	ErrNotFound = errors.New("nitro: resource not found")

	// ErrAlreadyExists is returned when adding a certificate object
	// whose name is already taken
	ErrAlreadyExists = errors.New("nitro: resource already exists")

	// ErrAlreadyLinked is returned when linking a certificate that is
	// already linked to a different chain
	ErrAlreadyLinked = errors.New("nitro: certificate already linked")

	// ErrNotLinked is returned when unlinking a certificate that has
	// no chain link
	ErrNotLinked = errors.New("nitro: certificate not linked")

	// ErrLinkMismatch is returned when unlinking names a chain other
	// than the one the certificate is linked to
	ErrLinkMismatch = errors.New("nitro: certificate linked to a different chain")

	// ErrUnauthorized is returned when the appliance rejects the
	// configured credentials
	ErrUnauthorized = errors.New("nitro: invalid credentials")

	// ErrInvalidArgument is returned when the appliance rejects a
	// request parameter
	ErrInvalidArgument = errors.New("nitro: invalid argument")

	// ErrClosed is returned when operating on a closed store
	ErrClosed = errors.New("nitro: store is closed")
)

// NITRO error codes returned in response envelopes.
const (
	CodeDone          = 0
	CodeNotFound      = 258
	CodeAlreadyExists = 273
	CodeBadAuth       = 354
	CodeNotLoggedIn   = 444
	CodeInvalidArg    = 1094
	CodeAlreadyLinked = 1540
	CodeNotLinked     = 1541
)

// APIError is a NITRO error envelope. Unwrap maps well-known error
// codes onto the sentinel errors above so callers can use errors.Is
// without inspecting codes.
type APIError struct {
	Code     int
	Message  string
	Severity string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("nitro: errorcode %d: %s", e.Code, e.Message)
}

// Unwrap maps the NITRO error code to its sentinel error.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case CodeNotFound:
		return ErrNotFound
	case CodeAlreadyExists:
		return ErrAlreadyExists
	case CodeBadAuth, CodeNotLoggedIn:
		return ErrUnauthorized
	case CodeInvalidArg:
		return ErrInvalidArgument
	case CodeAlreadyLinked:
		return ErrAlreadyLinked
	case CodeNotLinked:
		return ErrNotLinked
	}
	return nil
}

// HTTPStatus returns the HTTP status the appliance pairs with this
// error code.
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case CodeNotFound:
		return 404
	case CodeAlreadyExists, CodeAlreadyLinked:
		return 409
	case CodeBadAuth, CodeNotLoggedIn:
		return 401
	case CodeInvalidArg, CodeNotLinked:
		return 400
	}
	return 500
}

func newAPIError(code int, format string, args ...any) *APIError {
	return &APIError{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityError,
	}
}
