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
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jeremyhahn/go-nitrocert/pkg/certs"
)

// MemoryStore is an in-process Store implementation with the same
// semantics as the appliance, including its error codes. It backs unit
// tests and the nitrotest HTTP server. Like the appliance, it parses
// uploaded certificate files when an object is added so that serial and
// subject reflect the file content.
type MemoryStore struct {
	mu        sync.RWMutex
	objects   map[string]*CertKey
	files     map[string][]byte
	saves     int
	mutations int
	closed    bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]*CertKey),
		files:   make(map[string][]byte),
	}
}

// Get returns a copy of the named certificate object.
func (s *MemoryStore) Get(ctx context.Context, name string) (*CertKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	obj, ok := s.objects[name]
	if !ok {
		return nil, newAPIError(CodeNotFound, "No such resource [certkeyName, %s]", name)
	}
	copied := *obj
	return &copied, nil
}

// Add installs a certificate object from a previously uploaded file.
func (s *MemoryStore) Add(ctx context.Context, name, certFile, keyFile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, ok := s.objects[name]; ok {
		return newAPIError(CodeAlreadyExists, "Resource already exists [certkeyName, %s]", name)
	}
	obj, err := s.buildObject(name, certFile, keyFile)
	if err != nil {
		return err
	}
	s.objects[name] = obj
	s.mutations++
	return nil
}

// Update points an existing object at new files, keeping its link.
func (s *MemoryStore) Update(ctx context.Context, name, certFile, keyFile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	existing, ok := s.objects[name]
	if !ok {
		return newAPIError(CodeNotFound, "No such resource [certkeyName, %s]", name)
	}
	obj, err := s.buildObject(name, certFile, keyFile)
	if err != nil {
		return err
	}
	obj.LinkedTo = existing.LinkedTo
	s.objects[name] = obj
	s.mutations++
	return nil
}

// Link links a certificate to a chain object. Re-linking to the same
// chain succeeds without a state change.
func (s *MemoryStore) Link(ctx context.Context, name, chain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	obj, ok := s.objects[name]
	if !ok {
		return newAPIError(CodeNotFound, "No such resource [certkeyName, %s]", name)
	}
	if _, ok := s.objects[chain]; !ok {
		return newAPIError(CodeNotFound, "No such resource [linkCertKeyName, %s]", chain)
	}
	if obj.LinkedTo == chain {
		return nil
	}
	if obj.LinkedTo != "" {
		return newAPIError(CodeAlreadyLinked, "Certificate already linked to %s", obj.LinkedTo)
	}
	obj.LinkedTo = chain
	s.mutations++
	return nil
}

// Unlink removes a certificate's chain link.
func (s *MemoryStore) Unlink(ctx context.Context, name, chain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	obj, ok := s.objects[name]
	if !ok {
		return newAPIError(CodeNotFound, "No such resource [certkeyName, %s]", name)
	}
	if obj.LinkedTo == "" {
		return newAPIError(CodeNotLinked, "Certificate not linked [%s]", name)
	}
	if chain != "" && obj.LinkedTo != chain {
		return fmt.Errorf("%w: linked to %s", ErrLinkMismatch, obj.LinkedTo)
	}
	obj.LinkedTo = ""
	s.mutations++
	return nil
}

// Upload stores a file under the appliance SSL directory.
func (s *MemoryStore) Upload(ctx context.Context, filename string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	s.files[filename] = copied
	s.mutations++
	return nil
}

// Delete removes an uploaded file.
func (s *MemoryStore) Delete(ctx context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, ok := s.files[filename]; !ok {
		return newAPIError(CodeNotFound, "No such resource [fileName, %s]", filename)
	}
	delete(s.files, filename)
	s.mutations++
	return nil
}

// SaveConfig records a configuration save.
func (s *MemoryStore) SaveConfig(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.saves++
	s.mutations++
	return nil
}

// Version returns a fixed appliance version string.
func (s *MemoryStore) Version(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", ErrClosed
	}
	return "NetScaler NS13.1: Build 37.38.nc", nil
}

// Close marks the store closed; further operations fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Reset clears all state and reopens the store.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = make(map[string]*CertKey)
	s.files = make(map[string][]byte)
	s.saves = 0
	s.mutations = 0
	s.closed = false
}

// RemoveObject deletes a certificate object directly, bypassing the
// Store surface. Test support for scenarios where another operator
// removed an object between runs.
func (s *MemoryStore) RemoveObject(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, name)
}

// Mutations returns how many state-changing calls the store has seen.
func (s *MemoryStore) Mutations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mutations
}

// Saves returns how many times the configuration was saved.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// File returns the content of an uploaded file, or nil.
func (s *MemoryStore) File(filename string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[filename]
	if !ok {
		return nil
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied
}

// FileNames returns the names of all uploaded files.
func (s *MemoryStore) FileNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	return names
}

// buildObject resolves and parses the referenced certificate file the
// way the appliance does on add and update. Callers hold the lock.
func (s *MemoryStore) buildObject(name, certFile, keyFile string) (*CertKey, error) {
	data, ok := s.files[certFile]
	if !ok {
		return nil, newAPIError(CodeInvalidArg, "Invalid argument [cert]: no such file %s", certFile)
	}
	if keyFile != "" {
		if _, ok := s.files[keyFile]; !ok {
			return nil, newAPIError(CodeInvalidArg, "Invalid argument [key]: no such file %s", keyFile)
		}
	}
	cert, err := certs.Decode(data)
	if err != nil {
		return nil, newAPIError(CodeInvalidArg, "Invalid argument [cert]: %s is not a certificate", certFile)
	}
	return &CertKey{
		Name:             name,
		Cert:             certFile,
		Key:              keyFile,
		Serial:           certs.FormatSerial(cert.SerialNumber),
		Status:           "Valid",
		DaysToExpiration: int(time.Until(cert.NotAfter).Hours() / 24),
		Subject:          cert.Subject.String(),
		Issuer:           cert.Issuer.String(),
	}, nil
}
