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

// Package naming derives and validates certificate object names for the
// ADC configuration namespace. Object names are limited to 31 characters,
// so subject common names that exceed the limit are truncated and given a
// short digest suffix to keep them unique and re-derivable.
package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// MaxNameLength is the longest object name the appliance accepts.
const MaxNameLength = 31

const (
	truncateLength = 24
	digestLength   = 6
)

var (
	// ErrEmptyName is returned when a name is empty after sanitization
	ErrEmptyName = errors.New("naming: name is empty after sanitization")

	// ErrNameTooLong is returned when a supplied name exceeds MaxNameLength
	ErrNameTooLong = errors.New("naming: name exceeds 31 characters")

	// ErrInvalidFirstChar is returned when a name does not start with an
	// alphanumeric character or underscore
	ErrInvalidFirstChar = errors.New("naming: name must start with an alphanumeric character or underscore")

	// ErrInvalidChar is returned when a name contains a character outside
	// the allowed set
	ErrInvalidChar = errors.New("naming: name contains an invalid character")
)

// Derive maps a certificate subject common name to a deterministic object
// name. Apostrophes are deleted outright and every other character outside
// [A-Za-z0-9_- ] is replaced with a single hyphen. Results longer than
// MaxNameLength are truncated to 24 characters and suffixed with a hyphen
// plus the first 6 hex characters of the SHA-256 digest of the sanitized,
// untruncated name, so distinct long names stay distinct.
func Derive(commonName string) (string, error) {
	sanitized := sanitize(commonName)
	if sanitized == "" {
		return "", ErrEmptyName
	}
	if len(sanitized) <= MaxNameLength {
		return sanitized, nil
	}
	sum := sha256.Sum256([]byte(sanitized))
	digest := hex.EncodeToString(sum[:])
	return sanitized[:truncateLength] + "-" + digest[:digestLength], nil
}

// Validate checks an operator-supplied object name against the appliance
// namespace rules: 1 to 31 characters, leading character alphanumeric or
// underscore, remaining characters alphanumeric or one of _-#. :@=
func Validate(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: %q is %d characters", ErrNameTooLong, name, len(name))
	}
	for i, r := range name {
		if i == 0 {
			if !isAlnum(r) && r != '_' {
				return fmt.Errorf("%w: %q", ErrInvalidFirstChar, name)
			}
			continue
		}
		if !isNameChar(r) {
			return fmt.Errorf("%w: %q at position %d", ErrInvalidChar, name, i)
		}
	}
	return nil
}

// sanitize applies the character rules of Derive without the length cap.
// Disallowed characters map to exactly one hyphen each; runs are kept
// as-is so the result length stays predictable.
func sanitize(name string) string {
	out := make([]byte, 0, len(name))
	for _, r := range name {
		switch {
		case r == '\'':
			// dropped, not substituted
		case isAlnum(r), r == '_', r == '-', r == ' ':
			out = append(out, byte(r))
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}

func isAlnum(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

func isNameChar(r rune) bool {
	if isAlnum(r) {
		return true
	}
	switch r {
	case '_', '-', '#', '.', ' ', ':', '@', '=':
		return true
	}
	return false
}
