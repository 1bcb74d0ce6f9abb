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

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/youmark/pkcs8"
)

// DecodePrivateKey parses a PEM-encoded private key. PKCS#1, SEC1 and
// PKCS#8 blocks are handled with the standard library; encrypted PKCS#8
// blocks are decrypted with the supplied passphrase. Raw DER input is
// treated as unencrypted PKCS#8.
func DecodePrivateKey(data, passphrase []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		key, err := x509.ParsePKCS8PrivateKey(data)
		if err != nil {
			return nil, ErrNoPrivateKey
		}
		return key, nil
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("certs: failed to parse PKCS#1 key: %w", err)
		}
		return key, nil
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("certs: failed to parse EC key: %w", err)
		}
		return key, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("certs: failed to parse PKCS#8 key: %w", err)
		}
		return key, nil
	case "ENCRYPTED PRIVATE KEY":
		if len(passphrase) == 0 {
			return nil, ErrPassphraseRequired
		}
		key, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, passphrase)
		if err != nil {
			return nil, fmt.Errorf("certs: failed to decrypt PKCS#8 key: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKey, block.Type)
	}
}

// IsEncryptedKey reports whether the PEM data holds an encrypted
// private key block.
func IsEncryptedKey(data []byte) bool {
	block, _ := pem.Decode(data)
	if block == nil {
		return false
	}
	if block.Type == "ENCRYPTED PRIVATE KEY" {
		return true
	}
	_, ok := block.Headers["DEK-Info"]
	return ok
}

// EncodePrivateKeyPEM renders a private key as an unencrypted PKCS#8
// PEM block.
func EncodePrivateKeyPEM(key crypto.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("certs: failed to encode private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: der,
	}), nil
}

// KeyMatches verifies that the private key belongs to the certificate
// by comparing public key material.
func KeyMatches(cert *x509.Certificate, key crypto.PrivateKey) error {
	signer, ok := key.(crypto.Signer)
	if !ok {
		return ErrUnsupportedKey
	}
	pub, ok := cert.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	if !ok {
		return ErrUnsupportedKey
	}
	if !pub.Equal(signer.Public()) {
		return ErrKeyMismatch
	}
	return nil
}
