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

package certs

import "errors"

// Common certificate and key errors
var (
	// ErrNoCertificate is returned when no certificate could be found
	// in the supplied data
	ErrNoCertificate = errors.New("certs: no certificate found")

	// ErrInvalidBlockType is returned when a PEM block is not of the
	// expected type
	ErrInvalidBlockType = errors.New("certs: unexpected PEM block type")

	// ErrParseCertificate is returned when certificate bytes cannot
	// be parsed
	ErrParseCertificate = errors.New("certs: failed to parse certificate")

	// ErrParsePKCS7 is returned when PKCS#7 data cannot be parsed
	ErrParsePKCS7 = errors.New("certs: failed to parse PKCS#7 data")

	// ErrInvalidSerial is returned when a serial number string cannot
	// be parsed as hexadecimal
	ErrInvalidSerial = errors.New("certs: invalid serial number")

	// ErrNoPrivateKey is returned when no private key could be found
	// in the supplied data
	ErrNoPrivateKey = errors.New("certs: no private key found")

	// ErrUnsupportedKey is returned for private key types the tool
	// cannot handle
	ErrUnsupportedKey = errors.New("certs: unsupported private key type")

	// ErrPassphraseRequired is returned when a private key is encrypted
	// and no passphrase was configured
	ErrPassphraseRequired = errors.New("certs: private key is encrypted and no passphrase was provided")

	// ErrKeyMismatch is returned when a private key does not belong to
	// the certificate it was supplied with
	ErrKeyMismatch = errors.New("certs: private key does not match certificate")
)
