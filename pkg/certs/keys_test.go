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

package certs_test

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-nitrocert/pkg/certs"
	"github.com/jeremyhahn/go-nitrocert/pkg/certs/certstest"
)

func TestDecodePrivateKey_PKCS8(t *testing.T) {
	kp := certstest.SelfSigned(t, "example.com", 1)

	key, err := certs.DecodePrivateKey(kp.KeyPEM, nil)
	require.NoError(t, err)

	ecKey, ok := key.(*ecdsa.PrivateKey)
	require.True(t, ok)
	assert.True(t, kp.Key.Equal(ecKey))
}

func TestDecodePrivateKey_SEC1(t *testing.T) {
	kp := certstest.SelfSigned(t, "example.com", 1)

	der, err := x509.MarshalECPrivateKey(kp.Key)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})

	key, err := certs.DecodePrivateKey(keyPEM, nil)
	require.NoError(t, err)

	ecKey, ok := key.(*ecdsa.PrivateKey)
	require.True(t, ok)
	assert.True(t, kp.Key.Equal(ecKey))
}

func TestDecodePrivateKey_PKCS1(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(rsaKey),
	})

	key, err := certs.DecodePrivateKey(keyPEM, nil)
	require.NoError(t, err)

	parsed, ok := key.(*rsa.PrivateKey)
	require.True(t, ok)
	assert.True(t, rsaKey.Equal(parsed))
}

func TestDecodePrivateKey_EncryptedPKCS8(t *testing.T) {
	kp := certstest.SelfSigned(t, "example.com", 1)
	passphrase := []byte("correct horse battery staple")
	encrypted := kp.EncryptedKeyPEM(t, passphrase)

	key, err := certs.DecodePrivateKey(encrypted, passphrase)
	require.NoError(t, err)

	ecKey, ok := key.(*ecdsa.PrivateKey)
	require.True(t, ok)
	assert.True(t, kp.Key.Equal(ecKey))
}

func TestDecodePrivateKey_EncryptedWithoutPassphrase(t *testing.T) {
	kp := certstest.SelfSigned(t, "example.com", 1)
	encrypted := kp.EncryptedKeyPEM(t, []byte("secret"))

	_, err := certs.DecodePrivateKey(encrypted, nil)
	assert.ErrorIs(t, err, certs.ErrPassphraseRequired)
}

func TestDecodePrivateKey_EncryptedWrongPassphrase(t *testing.T) {
	kp := certstest.SelfSigned(t, "example.com", 1)
	encrypted := kp.EncryptedKeyPEM(t, []byte("secret"))

	_, err := certs.DecodePrivateKey(encrypted, []byte("wrong"))
	assert.Error(t, err)
}

func TestDecodePrivateKey_NotAKey(t *testing.T) {
	_, err := certs.DecodePrivateKey([]byte("garbage"), nil)
	assert.ErrorIs(t, err, certs.ErrNoPrivateKey)
}

func TestDecodePrivateKey_UnsupportedBlockType(t *testing.T) {
	kp := certstest.SelfSigned(t, "example.com", 1)

	_, err := certs.DecodePrivateKey(kp.CertPEM, nil)
	assert.ErrorIs(t, err, certs.ErrUnsupportedKey)
}

func TestKeyMatches(t *testing.T) {
	kp := certstest.SelfSigned(t, "example.com", 1)
	assert.NoError(t, certs.KeyMatches(kp.Cert, kp.Key))
}

func TestKeyMatches_Mismatch(t *testing.T) {
	kp := certstest.SelfSigned(t, "example.com", 1)
	other := certstest.SelfSigned(t, "other.example.com", 2)

	err := certs.KeyMatches(kp.Cert, other.Key)
	assert.ErrorIs(t, err, certs.ErrKeyMismatch)
}
