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

package reconcile

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrLeafNameRequired is returned when no leaf object name was
	// supplied
	ErrLeafNameRequired = errors.New("reconcile: leaf certificate name is required")

	// ErrChainNameRequired is returned when the chain certificate has
	// no usable common name and no explicit chain name was supplied
	ErrChainNameRequired = errors.New("reconcile: chain has no common name, an explicit chain name is required")
)

// ChainMismatchError reports a chain object whose remote serial differs
// from the local chain file. Chains are shared between leaves, so they
// are never replaced without explicit permission.
type ChainMismatchError struct {
	Name         string
	LocalSerial  *big.Int
	RemoteSerial *big.Int
}

// Error implements the error interface.
func (e *ChainMismatchError) Error() string {
	return fmt.Sprintf("reconcile: chain %q exists with serial 0x%x but local file has serial 0x%x; chain update not permitted",
		e.Name, e.RemoteSerial, e.LocalSerial)
}

// AlreadyLinkedError reports a link attempt while the certificate is
// linked to a different chain.
type AlreadyLinkedError struct {
	Name    string
	Current string
	Desired string
}

// Error implements the error interface.
func (e *AlreadyLinkedError) Error() string {
	return fmt.Sprintf("reconcile: certificate %q is linked to %q, cannot link to %q without unlinking first",
		e.Name, e.Current, e.Desired)
}

// NotLinkedError reports an unlink attempt on an unlinked certificate.
type NotLinkedError struct {
	Name string
}

// Error implements the error interface.
func (e *NotLinkedError) Error() string {
	return fmt.Sprintf("reconcile: certificate %q is not linked", e.Name)
}

// LinkMismatchError reports an unlink attempt naming a chain other than
// the one the certificate is linked to.
type LinkMismatchError struct {
	Name    string
	Current string
	Chain   string
}

// Error implements the error interface.
func (e *LinkMismatchError) Error() string {
	return fmt.Sprintf("reconcile: certificate %q is linked to %q, not %q",
		e.Name, e.Current, e.Chain)
}
