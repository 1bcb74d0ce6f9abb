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

import "fmt"

// Op identifies one kind of remote mutation.
type Op string

const (
	OpUpload     Op = "upload"
	OpAdd        Op = "add"
	OpUpdate     Op = "update"
	OpLink       Op = "link"
	OpUnlink     Op = "unlink"
	OpSaveConfig Op = "save-config"
)

// Action is a single planned remote mutation.
type Action struct {
	// Op is the mutation kind
	Op Op `json:"op"`

	// Name is the certificate object name, or the file name for
	// uploads
	Name string `json:"name,omitempty"`

	// CertFile is the certificate file referenced by add and update
	CertFile string `json:"cert_file,omitempty"`

	// KeyFile is the private key file referenced by add and update
	KeyFile string `json:"key_file,omitempty"`

	// Chain is the chain object named by link and unlink
	Chain string `json:"chain,omitempty"`

	// Data is the file payload for uploads. Excluded from output,
	// key material must never be printed.
	Data []byte `json:"-"`
}

// String implements the fmt.Stringer interface.
func (a Action) String() string {
	switch a.Op {
	case OpUpload:
		return fmt.Sprintf("upload %s (%d bytes)", a.Name, len(a.Data))
	case OpAdd:
		return fmt.Sprintf("add %s cert=%s key=%s", a.Name, a.CertFile, a.KeyFile)
	case OpUpdate:
		return fmt.Sprintf("update %s cert=%s key=%s", a.Name, a.CertFile, a.KeyFile)
	case OpLink:
		return fmt.Sprintf("link %s -> %s", a.Name, a.Chain)
	case OpUnlink:
		return fmt.Sprintf("unlink %s -> %s", a.Name, a.Chain)
	case OpSaveConfig:
		return "save configuration"
	default:
		return string(a.Op)
	}
}

// Plan is the ordered list of remote mutations one reconciliation pass
// intends to execute. Chain operations come before leaf operations,
// link operations come last so their targets always exist.
type Plan []Action

// Strings renders the plan one action per line.
func (p Plan) Strings() []string {
	lines := make([]string, len(p))
	for i, a := range p {
		lines[i] = a.String()
	}
	return lines
}

// ChainOutcome reports what happened to the chain object.
type ChainOutcome string

const (
	ChainInstalled ChainOutcome = "installed"
	ChainUpdated   ChainOutcome = "updated"
	ChainUnchanged ChainOutcome = "unchanged"
)

// LeafOutcome reports what happened to the leaf object.
type LeafOutcome string

const (
	LeafInstalled LeafOutcome = "installed"
	LeafUpdated   LeafOutcome = "updated"
	LeafUnchanged LeafOutcome = "unchanged"
)

// LinkOutcome reports what happened to the leaf's chain link.
type LinkOutcome string

const (
	LinkCreated   LinkOutcome = "created"
	LinkRotated   LinkOutcome = "rotated"
	LinkUnchanged LinkOutcome = "unchanged"
)

// Result reports the outcome of one reconciliation pass.
type Result struct {
	// LeafName is the leaf certificate object name
	LeafName string `json:"leaf"`

	// ChainName is the chain certificate object name
	ChainName string `json:"chain"`

	// Chain is the chain object outcome
	Chain ChainOutcome `json:"chain_outcome"`

	// Leaf is the leaf object outcome
	Leaf LeafOutcome `json:"leaf_outcome"`

	// Link is the link outcome
	Link LinkOutcome `json:"link_outcome"`

	// Plan is the ordered list of mutations the pass computed
	Plan Plan `json:"plan,omitempty"`

	// Executed is false for dry runs
	Executed bool `json:"executed"`

	// Saved is true when the running configuration was persisted
	Saved bool `json:"saved"`
}

// Changed returns true when the pass computed at least one mutation.
func (r *Result) Changed() bool {
	return r.Chain != ChainUnchanged ||
		r.Leaf != LeafUnchanged ||
		r.Link != LinkUnchanged
}
