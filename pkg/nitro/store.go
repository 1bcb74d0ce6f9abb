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

import "context"

// Store is the certificate trust store surface of an appliance. The
// Client implementation speaks NITRO over HTTP; MemoryStore implements
// the same contract in-process for tests.
type Store interface {
	// Get returns the certificate object with the given name, or
	// ErrNotFound.
	Get(ctx context.Context, name string) (*CertKey, error)

	// Add installs a new certificate object referencing previously
	// uploaded files. Chain objects are added with an empty keyFile.
	// Returns ErrAlreadyExists when the name is taken.
	Add(ctx context.Context, name, certFile, keyFile string) error

	// Update points an existing certificate object at new files,
	// preserving any chain link. Returns ErrNotFound when the object
	// does not exist.
	Update(ctx context.Context, name, certFile, keyFile string) error

	// Link links the named certificate to a chain object. Linking to
	// the chain it is already linked to succeeds; linking while linked
	// to a different chain returns ErrAlreadyLinked.
	Link(ctx context.Context, name, chain string) error

	// Unlink removes the link between the named certificate and the
	// given chain. Returns ErrNotLinked when no link exists and
	// ErrLinkMismatch when the certificate is linked to a different
	// chain. The NITRO wire operation carries only the certificate
	// name; the chain argument lets implementations enforce the
	// mismatch rule.
	Unlink(ctx context.Context, name, chain string) error

	// Upload writes a file into the appliance SSL directory.
	Upload(ctx context.Context, filename string, data []byte) error

	// Delete removes a previously uploaded file from the appliance
	// SSL directory.
	Delete(ctx context.Context, filename string) error

	// SaveConfig persists the running configuration.
	SaveConfig(ctx context.Context) error

	// Version returns the appliance software version, doubling as a
	// connectivity and credential probe.
	Version(ctx context.Context) (string, error)

	// Close releases any resources held by the store.
	Close() error
}
