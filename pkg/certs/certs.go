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

// Package certs decodes certificate and private key material from the
// formats the tool accepts on disk: PEM, raw DER and PKCS#7 bundles for
// certificates, PKCS#1/SEC1/PKCS#8 (optionally encrypted) for keys.
package certs

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"

	"github.com/cloudflare/cfssl/crypto/pkcs7"
)

const certBlockType = "CERTIFICATE"

// Material is the identity of one parsed certificate: the pieces the
// reconciliation pass compares against the remote trust store.
type Material struct {
	SerialNumber *big.Int
	CommonName   string
}

// NewMaterial extracts the reconciliation-relevant identity from a
// parsed certificate.
func NewMaterial(cert *x509.Certificate) Material {
	return Material{
		SerialNumber: cert.SerialNumber,
		CommonName:   cert.Subject.CommonName,
	}
}

// Decode parses a single certificate from PEM, DER or PKCS#7 data.
// PEM input must carry a CERTIFICATE block; for bundles the first
// certificate wins.
func Decode(data []byte) (*x509.Certificate, error) {
	if isPEM(data) {
		block, _ := pem.Decode(data)
		if block.Type != certBlockType {
			return nil, fmt.Errorf("%w: %s", ErrInvalidBlockType, block.Type)
		}
		data = block.Bytes
	}

	cert, err := x509.ParseCertificate(data)
	if err == nil {
		return cert, nil
	}

	// Fall back to PKCS#7, some CAs hand out .p7b bundles
	p, err := pkcs7.ParsePKCS7(data)
	if err != nil {
		return nil, ErrParsePKCS7
	}
	if len(p.Content.SignedData.Certificates) == 0 {
		return nil, ErrNoCertificate
	}
	return p.Content.SignedData.Certificates[0], nil
}

// DecodeAll parses every certificate in the supplied data. The order of
// the input is preserved.
func DecodeAll(data []byte) ([]*x509.Certificate, error) {
	if isPEM(data) {
		var certs []*x509.Certificate
		for len(data) > 0 {
			block, rest := pem.Decode(data)
			if block == nil {
				break
			}
			if block.Type != certBlockType {
				return nil, fmt.Errorf("%w: %s", ErrInvalidBlockType, block.Type)
			}
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, ErrParseCertificate
			}
			certs = append(certs, cert)
			data = rest
		}
		if len(certs) == 0 {
			return nil, ErrNoCertificate
		}
		return certs, nil
	}

	if certs, err := x509.ParseCertificates(data); err == nil && len(certs) > 0 {
		return certs, nil
	}

	p, err := pkcs7.ParsePKCS7(data)
	if err != nil {
		return nil, ErrParsePKCS7
	}
	if len(p.Content.SignedData.Certificates) == 0 {
		return nil, ErrNoCertificate
	}
	return p.Content.SignedData.Certificates, nil
}

// EncodePEM encodes a certificate to PEM.
func EncodePEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  certBlockType,
		Bytes: cert.Raw,
	})
}

// FormatSerial renders a serial number in the 0x-prefixed lowercase
// hexadecimal form used in log output and by the in-memory store.
func FormatSerial(n *big.Int) string {
	return fmt.Sprintf("0x%x", n)
}

// ParseSerial parses the hexadecimal serial number representation used
// by the appliance, with or without a 0x prefix, into an integer.
func ParseSerial(s string) (*big.Int, error) {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "0x") || strings.HasPrefix(t, "0X") {
		t = t[2:]
	}
	if t == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSerial, s)
	}
	n, ok := new(big.Int).SetString(t, 16)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSerial, s)
	}
	return n, nil
}

func isPEM(data []byte) bool {
	block, _ := pem.Decode(data)
	return block != nil
}
