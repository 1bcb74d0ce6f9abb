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

// Package reconcile converges a remote appliance trust store on local
// certificate material. Each pass reads the remote state, computes the
// minimal ordered plan of mutations and executes it. Running a pass
// twice with the same inputs leaves the second pass with nothing to do.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-nitrocert/pkg/certs"
	"github.com/jeremyhahn/go-nitrocert/pkg/logging"
	"github.com/jeremyhahn/go-nitrocert/pkg/naming"
	"github.com/jeremyhahn/go-nitrocert/pkg/nitro"
)

// Request carries the inputs for one reconciliation pass.
type Request struct {
	// LeafName is the certificate object name on the appliance
	LeafName string

	// ChainName overrides the chain object name. When empty the name
	// is derived from the chain certificate's common name.
	ChainName string

	// LeafCert is the PEM or DER encoded leaf certificate
	LeafCert []byte

	// LeafKey is the PEM encoded private key for the leaf
	LeafKey []byte

	// ChainCert is the issuing chain certificate, PEM or DER. Bundles
	// are allowed, the first certificate identifies the chain.
	ChainCert []byte

	// KeyPassphrase decrypts an encrypted leaf key. Encrypted keys are
	// decrypted locally and uploaded as plain PKCS#8.
	KeyPassphrase []byte

	// AllowChainUpdate permits replacing a chain object whose serial
	// differs from the local chain file. Chains are shared between
	// leaves, so replacement is refused without it.
	AllowChainUpdate bool

	// DryRun computes and reports the plan without executing it
	DryRun bool
}

// Reconciler compares local certificate material against appliance
// state and applies the minimal set of mutations to converge them.
type Reconciler struct {
	store  nitro.Store
	logger *logging.Logger
	now    func() time.Time
}

// New creates a reconciler over the given store.
func New(store nitro.Store, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the timestamp source used for uploaded file
// names.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Reconcile runs one pass. The chain object is reconciled first so the
// link target always exists, then the leaf object, then the link
// between them. The running configuration is persisted only when at
// least one mutation was executed.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) (*Result, error) {
	if req.LeafName == "" {
		return nil, ErrLeafNameRequired
	}
	if err := naming.Validate(req.LeafName); err != nil {
		return nil, fmt.Errorf("reconcile: leaf name: %w", err)
	}
	if len(req.LeafCert) == 0 {
		return nil, errors.New("reconcile: leaf certificate is required")
	}
	if len(req.LeafKey) == 0 {
		return nil, errors.New("reconcile: leaf private key is required")
	}
	if len(req.ChainCert) == 0 {
		return nil, errors.New("reconcile: chain certificate is required")
	}

	leaf, keyPEM, err := r.leafMaterial(req)
	if err != nil {
		return nil, err
	}
	chain, chainName, err := r.chainMaterial(req)
	if err != nil {
		return nil, err
	}
	if chainName == req.LeafName {
		return nil, fmt.Errorf("reconcile: leaf and chain cannot share the name %q", chainName)
	}

	chainObj, err := r.lookup(ctx, chainName)
	if err != nil {
		return nil, err
	}
	leafObj, err := r.lookup(ctx, req.LeafName)
	if err != nil {
		return nil, err
	}

	result := &Result{
		LeafName:  req.LeafName,
		ChainName: chainName,
		Chain:     ChainUnchanged,
		Leaf:      LeafUnchanged,
		Link:      LinkUnchanged,
	}
	ts := r.now().Unix()
	var plan Plan

	chainState, err := Classify(chainObj, chain.SerialNumber)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("classified chain", "name", chainName, "state", chainState.String())
	chainFile := fmt.Sprintf("%s-%d.crt", chainName, ts)
	switch chainState {
	case StateAbsent:
		plan = append(plan,
			Action{Op: OpUpload, Name: chainFile, Data: req.ChainCert},
			Action{Op: OpAdd, Name: chainName, CertFile: chainFile},
		)
		result.Chain = ChainInstalled
	case StateStale:
		if !req.AllowChainUpdate {
			remoteSerial, serr := certs.ParseSerial(chainObj.Serial)
			if serr != nil {
				return nil, serr
			}
			return nil, &ChainMismatchError{
				Name:         chainName,
				LocalSerial:  chain.SerialNumber,
				RemoteSerial: remoteSerial,
			}
		}
		plan = append(plan,
			Action{Op: OpUpload, Name: chainFile, Data: req.ChainCert},
			Action{Op: OpUpdate, Name: chainName, CertFile: chainFile},
		)
		result.Chain = ChainUpdated
	}

	leafState, err := Classify(leafObj, leaf.SerialNumber)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("classified leaf", "name", req.LeafName, "state", leafState.String())
	leafCertFile := fmt.Sprintf("%s-%d.crt", req.LeafName, ts)
	leafKeyFile := fmt.Sprintf("%s-%d.key", req.LeafName, ts)
	switch leafState {
	case StateAbsent:
		plan = append(plan,
			Action{Op: OpUpload, Name: leafCertFile, Data: req.LeafCert},
			Action{Op: OpUpload, Name: leafKeyFile, Data: keyPEM},
			Action{Op: OpAdd, Name: req.LeafName, CertFile: leafCertFile, KeyFile: leafKeyFile},
		)
		result.Leaf = LeafInstalled
	case StateStale:
		plan = append(plan,
			Action{Op: OpUpload, Name: leafCertFile, Data: req.LeafCert},
			Action{Op: OpUpload, Name: leafKeyFile, Data: keyPEM},
			Action{Op: OpUpdate, Name: req.LeafName, CertFile: leafCertFile, KeyFile: leafKeyFile},
		)
		result.Leaf = LeafUpdated
	}

	currentLink := ""
	if leafObj != nil {
		currentLink = leafObj.LinkedTo
	}
	delta := PlanLink(currentLink, chainName)
	switch {
	case delta.Empty():
	case delta.UnlinkFrom != "":
		plan = append(plan,
			Action{Op: OpUnlink, Name: req.LeafName, Chain: delta.UnlinkFrom},
			Action{Op: OpLink, Name: req.LeafName, Chain: delta.LinkTo},
		)
		result.Link = LinkRotated
	default:
		plan = append(plan, Action{Op: OpLink, Name: req.LeafName, Chain: delta.LinkTo})
		result.Link = LinkCreated
	}

	if len(plan) > 0 {
		plan = append(plan, Action{Op: OpSaveConfig})
	} else {
		r.logger.Debugf("%s: already up to date", req.LeafName)
	}
	result.Plan = plan

	if req.DryRun {
		r.logger.Info("dry run, skipping execution", "actions", len(plan))
		return result, nil
	}
	if err := r.execute(ctx, plan, currentLink); err != nil {
		return nil, err
	}
	result.Executed = true
	result.Saved = len(plan) > 0
	return result, nil
}

// leafMaterial parses the leaf certificate and private key, verifies
// they belong together and returns the key bytes to upload. Encrypted
// keys are re-encoded as plain PKCS#8 so the appliance can load them.
func (r *Reconciler) leafMaterial(req Request) (certs.Material, []byte, error) {
	cert, err := certs.Decode(req.LeafCert)
	if err != nil {
		return certs.Material{}, nil, fmt.Errorf("reconcile: leaf certificate: %w", err)
	}
	key, err := certs.DecodePrivateKey(req.LeafKey, req.KeyPassphrase)
	if err != nil {
		return certs.Material{}, nil, fmt.Errorf("reconcile: leaf key: %w", err)
	}
	if err := certs.KeyMatches(cert, key); err != nil {
		return certs.Material{}, nil, fmt.Errorf("reconcile: %s: %w", req.LeafName, err)
	}
	keyPEM := req.LeafKey
	if certs.IsEncryptedKey(req.LeafKey) {
		if keyPEM, err = certs.EncodePrivateKeyPEM(key); err != nil {
			return certs.Material{}, nil, err
		}
		r.logger.Debug("decrypted leaf key for upload", "name", req.LeafName)
	}
	return certs.NewMaterial(cert), keyPEM, nil
}

// chainMaterial parses the chain certificate and resolves the chain
// object name. Bundles are identified by their first certificate.
func (r *Reconciler) chainMaterial(req Request) (certs.Material, string, error) {
	chainCerts, err := certs.DecodeAll(req.ChainCert)
	if err != nil {
		return certs.Material{}, "", fmt.Errorf("reconcile: chain certificate: %w", err)
	}
	mat := certs.NewMaterial(chainCerts[0])
	if len(chainCerts) > 1 {
		r.logger.Debug("chain bundle holds multiple certificates, the first identifies the chain",
			"count", len(chainCerts), "subject", mat.CommonName)
	}
	name := req.ChainName
	if name == "" {
		if mat.CommonName == "" {
			return certs.Material{}, "", ErrChainNameRequired
		}
		if name, err = naming.Derive(mat.CommonName); err != nil {
			return certs.Material{}, "", fmt.Errorf("reconcile: chain name: %w", err)
		}
	} else if err := naming.Validate(name); err != nil {
		return certs.Material{}, "", fmt.Errorf("reconcile: chain name: %w", err)
	}
	return mat, name, nil
}

// lookup fetches a certificate object, mapping not-found to nil.
func (r *Reconciler) lookup(ctx context.Context, name string) (*nitro.CertKey, error) {
	obj, err := r.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, nitro.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("reconcile: reading %s: %w", name, err)
	}
	return obj, nil
}

// execute applies the plan in order, stopping at the first failure.
// The leaf's link state is tracked across actions so every link
// transition is validated before the remote call is issued.
func (r *Reconciler) execute(ctx context.Context, plan Plan, currentLink string) error {
	for _, action := range plan {
		r.logger.Infof("applying: %s", action)
		var err error
		switch action.Op {
		case OpUpload:
			err = r.store.Upload(ctx, action.Name, action.Data)
		case OpAdd:
			err = r.store.Add(ctx, action.Name, action.CertFile, action.KeyFile)
		case OpUpdate:
			err = r.store.Update(ctx, action.Name, action.CertFile, action.KeyFile)
		case OpUnlink:
			if err = CheckUnlink(action.Name, currentLink, action.Chain); err == nil {
				if err = r.store.Unlink(ctx, action.Name, action.Chain); err == nil {
					currentLink = ""
				}
			}
		case OpLink:
			if err = CheckLink(action.Name, currentLink, action.Chain); err == nil {
				if err = r.store.Link(ctx, action.Name, action.Chain); err == nil {
					currentLink = action.Chain
				}
			}
		case OpSaveConfig:
			err = r.store.SaveConfig(ctx)
		default:
			err = fmt.Errorf("unknown operation %q", action.Op)
		}
		if err != nil {
			return fmt.Errorf("reconcile: %s: %w", action, err)
		}
	}
	return nil
}
