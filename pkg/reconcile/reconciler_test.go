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
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/jeremyhahn/go-nitrocert/pkg/certs"
	"github.com/jeremyhahn/go-nitrocert/pkg/certs/certstest"
	"github.com/jeremyhahn/go-nitrocert/pkg/logging"
	"github.com/jeremyhahn/go-nitrocert/pkg/naming"
	"github.com/jeremyhahn/go-nitrocert/pkg/nitro"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testLeafName  = "example.com"
	testChainCN   = "Test Issuing CA E6"
	testTimestamp = int64(1700000000)
)

func newTestReconciler(store nitro.Store, ts int64) *Reconciler {
	logger := logging.NewWithWriter(io.Discard, false, true)
	return New(store, logger).WithClock(func() time.Time {
		return time.Unix(ts, 0)
	})
}

func testRequest(leaf, chain *certstest.KeyPair) Request {
	return Request{
		LeafName:  testLeafName,
		LeafCert:  leaf.CertPEM,
		LeafKey:   leaf.KeyPEM,
		ChainCert: chain.CertPEM,
	}
}

func TestReconciler_FreshInstall(t *testing.T) {
	leaf := certstest.SelfSigned(t, testLeafName, 1001)
	chain := certstest.SelfSigned(t, testChainCN, 2001)
	store := nitro.NewMemoryStore()

	result, err := newTestReconciler(store, testTimestamp).
		Reconcile(context.Background(), testRequest(leaf, chain))
	require.NoError(t, err)

	assert.Equal(t, ChainInstalled, result.Chain)
	assert.Equal(t, LeafInstalled, result.Leaf)
	assert.Equal(t, LinkCreated, result.Link)
	assert.Equal(t, testChainCN, result.ChainName)
	assert.True(t, result.Executed)
	assert.True(t, result.Saved)
	assert.True(t, result.Changed())

	ops := make([]Op, len(result.Plan))
	for i, action := range result.Plan {
		ops[i] = action.Op
	}
	assert.Equal(t, []Op{
		OpUpload, OpAdd,
		OpUpload, OpUpload, OpAdd,
		OpLink,
		OpSaveConfig,
	}, ops)

	obj, err := store.Get(context.Background(), testLeafName)
	require.NoError(t, err)
	assert.Equal(t, testChainCN, obj.LinkedTo)
	assert.Equal(t, "0x3e9", obj.Serial)

	chainFile := fmt.Sprintf("%s-%d.crt", testChainCN, testTimestamp)
	assert.Equal(t, chain.CertPEM, store.File(chainFile))
	assert.Equal(t, leaf.CertPEM, store.File(fmt.Sprintf("%s-%d.crt", testLeafName, testTimestamp)))
	assert.Equal(t, leaf.KeyPEM, store.File(fmt.Sprintf("%s-%d.key", testLeafName, testTimestamp)))
	assert.Equal(t, 1, store.Saves())
}

func TestReconciler_SecondRunPlansNothing(t *testing.T) {
	leaf := certstest.SelfSigned(t, testLeafName, 1001)
	chain := certstest.SelfSigned(t, testChainCN, 2001)
	store := nitro.NewMemoryStore()

	_, err := newTestReconciler(store, testTimestamp).
		Reconcile(context.Background(), testRequest(leaf, chain))
	require.NoError(t, err)
	converged := store.Mutations()

	result, err := newTestReconciler(store, testTimestamp+100).
		Reconcile(context.Background(), testRequest(leaf, chain))
	require.NoError(t, err)

	assert.Equal(t, ChainUnchanged, result.Chain)
	assert.Equal(t, LeafUnchanged, result.Leaf)
	assert.Equal(t, LinkUnchanged, result.Link)
	assert.False(t, result.Changed())
	assert.Empty(t, result.Plan)
	assert.True(t, result.Executed)
	assert.False(t, result.Saved)

	assert.Equal(t, converged, store.Mutations())
	assert.Equal(t, 1, store.Saves())
}

func TestReconciler_Renewal(t *testing.T) {
	leaf := certstest.SelfSigned(t, testLeafName, 1001)
	chain := certstest.SelfSigned(t, testChainCN, 2001)
	store := nitro.NewMemoryStore()

	_, err := newTestReconciler(store, testTimestamp).
		Reconcile(context.Background(), testRequest(leaf, chain))
	require.NoError(t, err)

	// renewal issues a fresh key pair under the same name
	renewed := certstest.SelfSigned(t, testLeafName, 1002)
	result, err := newTestReconciler(store, testTimestamp+100).
		Reconcile(context.Background(), testRequest(renewed, chain))
	require.NoError(t, err)

	assert.Equal(t, ChainUnchanged, result.Chain)
	assert.Equal(t, LeafUpdated, result.Leaf)
	assert.Equal(t, LinkUnchanged, result.Link)

	obj, err := store.Get(context.Background(), testLeafName)
	require.NoError(t, err)
	assert.Equal(t, "0x3ea", obj.Serial)
	assert.Equal(t, testChainCN, obj.LinkedTo)

	renewedCert := fmt.Sprintf("%s-%d.crt", testLeafName, testTimestamp+100)
	assert.Equal(t, renewed.CertPEM, store.File(renewedCert))
}

func TestReconciler_ChainRotation(t *testing.T) {
	leaf := certstest.SelfSigned(t, testLeafName, 1001)
	chainE6 := certstest.SelfSigned(t, "Test CA E6", 2001)
	store := nitro.NewMemoryStore()

	_, err := newTestReconciler(store, testTimestamp).Reconcile(context.Background(), Request{
		LeafName:  testLeafName,
		LeafCert:  leaf.CertPEM,
		LeafKey:   leaf.KeyPEM,
		ChainCert: chainE6.CertPEM,
	})
	require.NoError(t, err)

	// the CA moved issuance to a new intermediate
	renewed := certstest.SelfSigned(t, testLeafName, 1002)
	chainE7 := certstest.SelfSigned(t, "Test CA E7", 2101)
	result, err := newTestReconciler(store, testTimestamp+100).Reconcile(context.Background(), Request{
		LeafName:  testLeafName,
		LeafCert:  renewed.CertPEM,
		LeafKey:   renewed.KeyPEM,
		ChainCert: chainE7.CertPEM,
	})
	require.NoError(t, err)

	assert.Equal(t, ChainInstalled, result.Chain)
	assert.Equal(t, LeafUpdated, result.Leaf)
	assert.Equal(t, LinkRotated, result.Link)

	obj, err := store.Get(context.Background(), testLeafName)
	require.NoError(t, err)
	assert.Equal(t, "Test CA E7", obj.LinkedTo)

	// the old intermediate stays, other leaves may still link to it
	oldChain, err := store.Get(context.Background(), "Test CA E6")
	require.NoError(t, err)
	assert.Equal(t, "0x7d1", oldChain.Serial)
}

func TestReconciler_StaleChainRefused(t *testing.T) {
	leaf := certstest.SelfSigned(t, testLeafName, 1001)
	chainV1 := certstest.SelfSigned(t, testChainCN, 2001)
	store := nitro.NewMemoryStore()

	_, err := newTestReconciler(store, testTimestamp).
		Reconcile(context.Background(), testRequest(leaf, chainV1))
	require.NoError(t, err)
	converged := store.Mutations()

	// same subject, different certificate
	chainV2 := certstest.SelfSigned(t, testChainCN, 2002)
	_, err = newTestReconciler(store, testTimestamp+100).
		Reconcile(context.Background(), testRequest(leaf, chainV2))
	require.Error(t, err)

	var mismatch *ChainMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, testChainCN, mismatch.Name)
	assert.Equal(t, int64(2002), mismatch.LocalSerial.Int64())
	assert.Equal(t, int64(2001), mismatch.RemoteSerial.Int64())

	// refused before any mutation
	assert.Equal(t, converged, store.Mutations())
}

func TestReconciler_StaleChainUpdated(t *testing.T) {
	leaf := certstest.SelfSigned(t, testLeafName, 1001)
	chainV1 := certstest.SelfSigned(t, testChainCN, 2001)
	store := nitro.NewMemoryStore()

	_, err := newTestReconciler(store, testTimestamp).
		Reconcile(context.Background(), testRequest(leaf, chainV1))
	require.NoError(t, err)

	chainV2 := certstest.SelfSigned(t, testChainCN, 2002)
	req := testRequest(leaf, chainV2)
	req.AllowChainUpdate = true
	result, err := newTestReconciler(store, testTimestamp+100).
		Reconcile(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, ChainUpdated, result.Chain)
	assert.Equal(t, LeafUnchanged, result.Leaf)
	assert.Equal(t, LinkUnchanged, result.Link)

	obj, err := store.Get(context.Background(), testChainCN)
	require.NoError(t, err)
	assert.Equal(t, "0x7d2", obj.Serial)
}

func TestReconciler_DryRun(t *testing.T) {
	leaf := certstest.SelfSigned(t, testLeafName, 1001)
	chain := certstest.SelfSigned(t, testChainCN, 2001)
	store := nitro.NewMemoryStore()

	req := testRequest(leaf, chain)
	req.DryRun = true
	result, err := newTestReconciler(store, testTimestamp).
		Reconcile(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, result.Executed)
	assert.False(t, result.Saved)
	assert.Len(t, result.Plan, 7)
	assert.Equal(t, 0, store.Mutations())

	_, err = store.Get(context.Background(), testLeafName)
	assert.True(t, errors.Is(err, nitro.ErrNotFound))
}

func TestReconciler_EncryptedKey(t *testing.T) {
	leaf := certstest.SelfSigned(t, testLeafName, 1001)
	chain := certstest.SelfSigned(t, testChainCN, 2001)
	passphrase := []byte("correct horse battery staple")
	store := nitro.NewMemoryStore()

	req := Request{
		LeafName:      testLeafName,
		LeafCert:      leaf.CertPEM,
		LeafKey:       leaf.EncryptedKeyPEM(t, passphrase),
		ChainCert:     chain.CertPEM,
		KeyPassphrase: passphrase,
	}
	result, err := newTestReconciler(store, testTimestamp).
		Reconcile(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, LeafInstalled, result.Leaf)

	// the uploaded key must be plain PKCS#8 the appliance can load
	uploaded := store.File(fmt.Sprintf("%s-%d.key", testLeafName, testTimestamp))
	require.NotNil(t, uploaded)
	block, _ := pem.Decode(uploaded)
	require.NotNil(t, block)
	assert.Equal(t, "PRIVATE KEY", block.Type)

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	require.NoError(t, err)
	assert.True(t, parsed.(*ecdsa.PrivateKey).Equal(leaf.Key))
}

func TestReconciler_EncryptedKeyWithoutPassphrase(t *testing.T) {
	leaf := certstest.SelfSigned(t, testLeafName, 1001)
	chain := certstest.SelfSigned(t, testChainCN, 2001)
	store := nitro.NewMemoryStore()

	req := Request{
		LeafName:  testLeafName,
		LeafCert:  leaf.CertPEM,
		LeafKey:   leaf.EncryptedKeyPEM(t, []byte("secret")),
		ChainCert: chain.CertPEM,
	}
	_, err := newTestReconciler(store, testTimestamp).
		Reconcile(context.Background(), req)
	assert.True(t, errors.Is(err, certs.ErrPassphraseRequired))
	assert.Equal(t, 0, store.Mutations())
}

func TestReconciler_KeyMismatch(t *testing.T) {
	leaf := certstest.SelfSigned(t, testLeafName, 1001)
	other := certstest.SelfSigned(t, "other.example.com", 1002)
	chain := certstest.SelfSigned(t, testChainCN, 2001)
	store := nitro.NewMemoryStore()

	req := Request{
		LeafName:  testLeafName,
		LeafCert:  leaf.CertPEM,
		LeafKey:   other.KeyPEM,
		ChainCert: chain.CertPEM,
	}
	_, err := newTestReconciler(store, testTimestamp).
		Reconcile(context.Background(), req)
	assert.True(t, errors.Is(err, certs.ErrKeyMismatch))
	assert.Equal(t, 0, store.Mutations())
}

func TestReconciler_ChainBundleFirstCertIdentifies(t *testing.T) {
	leaf := certstest.SelfSigned(t, testLeafName, 1001)
	chain := certstest.SelfSigned(t, testChainCN, 2001)
	root := certstest.SelfSigned(t, "Test Root CA X1", 3001)
	store := nitro.NewMemoryStore()

	bundle := append(append([]byte{}, chain.CertPEM...), root.CertPEM...)
	req := Request{
		LeafName:  testLeafName,
		LeafCert:  leaf.CertPEM,
		LeafKey:   leaf.KeyPEM,
		ChainCert: bundle,
	}
	result, err := newTestReconciler(store, testTimestamp).
		Reconcile(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, testChainCN, result.ChainName)

	// the bundle is uploaded verbatim
	uploaded := store.File(fmt.Sprintf("%s-%d.crt", testChainCN, testTimestamp))
	assert.Equal(t, bundle, uploaded)

	_, err = store.Get(context.Background(), "Test Root CA X1")
	assert.True(t, errors.Is(err, nitro.ErrNotFound))
}

func TestReconciler_ExplicitChainName(t *testing.T) {
	leaf := certstest.SelfSigned(t, testLeafName, 1001)
	chain := certstest.SelfSigned(t, testChainCN, 2001)
	store := nitro.NewMemoryStore()

	req := testRequest(leaf, chain)
	req.ChainName = "corp-issuing-ca"
	result, err := newTestReconciler(store, testTimestamp).
		Reconcile(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "corp-issuing-ca", result.ChainName)

	obj, err := store.Get(context.Background(), "corp-issuing-ca")
	require.NoError(t, err)
	assert.Equal(t, "0x7d1", obj.Serial)
}

func TestReconciler_LongChainNameDerivation(t *testing.T) {
	cn := "Very Long Intermediate Authority Name 42"
	leaf := certstest.SelfSigned(t, testLeafName, 1001)
	chain := certstest.SelfSigned(t, cn, 2001)
	store := nitro.NewMemoryStore()

	result, err := newTestReconciler(store, testTimestamp).
		Reconcile(context.Background(), testRequest(leaf, chain))
	require.NoError(t, err)

	expected, err := naming.Derive(cn)
	require.NoError(t, err)
	assert.Equal(t, expected, result.ChainName)
	assert.Len(t, result.ChainName, naming.MaxNameLength)

	_, err = store.Get(context.Background(), expected)
	assert.NoError(t, err)
}

func TestReconciler_RecreateAfterOperatorDelete(t *testing.T) {
	leaf := certstest.SelfSigned(t, testLeafName, 1001)
	chain := certstest.SelfSigned(t, testChainCN, 2001)
	store := nitro.NewMemoryStore()

	_, err := newTestReconciler(store, testTimestamp).
		Reconcile(context.Background(), testRequest(leaf, chain))
	require.NoError(t, err)

	// another operator removed the object between runs
	store.RemoveObject(testLeafName)

	result, err := newTestReconciler(store, testTimestamp+100).
		Reconcile(context.Background(), testRequest(leaf, chain))
	require.NoError(t, err)

	assert.Equal(t, ChainUnchanged, result.Chain)
	assert.Equal(t, LeafInstalled, result.Leaf)
	assert.Equal(t, LinkCreated, result.Link)

	obj, err := store.Get(context.Background(), testLeafName)
	require.NoError(t, err)
	assert.Equal(t, testChainCN, obj.LinkedTo)
}

func TestReconciler_ValidationErrors(t *testing.T) {
	leaf := certstest.SelfSigned(t, testLeafName, 1001)
	chain := certstest.SelfSigned(t, testChainCN, 2001)
	store := nitro.NewMemoryStore()
	r := newTestReconciler(store, testTimestamp)

	_, err := r.Reconcile(context.Background(), Request{})
	assert.True(t, errors.Is(err, ErrLeafNameRequired))

	req := testRequest(leaf, chain)
	req.LeafName = "bad*name"
	_, err = r.Reconcile(context.Background(), req)
	assert.Error(t, err)

	req = testRequest(leaf, chain)
	req.LeafCert = nil
	_, err = r.Reconcile(context.Background(), req)
	assert.Error(t, err)

	req = testRequest(leaf, chain)
	req.LeafKey = nil
	_, err = r.Reconcile(context.Background(), req)
	assert.Error(t, err)

	req = testRequest(leaf, chain)
	req.ChainCert = nil
	_, err = r.Reconcile(context.Background(), req)
	assert.Error(t, err)

	req = testRequest(leaf, chain)
	req.ChainName = testLeafName
	_, err = r.Reconcile(context.Background(), req)
	assert.Error(t, err)

	assert.Equal(t, 0, store.Mutations())
}

type failingLinkStore struct {
	*nitro.MemoryStore
}

func (s *failingLinkStore) Link(ctx context.Context, name, chain string) error {
	return errors.New("connection reset")
}

func TestReconciler_StopsAtFirstFailure(t *testing.T) {
	leaf := certstest.SelfSigned(t, testLeafName, 1001)
	chain := certstest.SelfSigned(t, testChainCN, 2001)
	store := &failingLinkStore{nitro.NewMemoryStore()}

	_, err := newTestReconciler(store, testTimestamp).
		Reconcile(context.Background(), testRequest(leaf, chain))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "link example.com -> Test Issuing CA E6")
	assert.Contains(t, err.Error(), "connection reset")

	// objects were installed before the failing step, nothing was saved
	_, getErr := store.Get(context.Background(), testLeafName)
	assert.NoError(t, getErr)
	assert.Equal(t, 0, store.Saves())
}
