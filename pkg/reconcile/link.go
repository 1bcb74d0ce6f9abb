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

// LinkDelta describes the link operations required to move a leaf
// certificate from its current chain to the desired one.
type LinkDelta struct {
	// UnlinkFrom names the chain to unlink before linking, empty when
	// the leaf is unlinked or already linked to the desired chain
	UnlinkFrom string

	// LinkTo names the chain to link, empty when no change is needed
	LinkTo string
}

// Empty returns true when no link operations are required.
func (d LinkDelta) Empty() bool {
	return d.UnlinkFrom == "" && d.LinkTo == ""
}

// PlanLink computes the link delta for a leaf certificate. Current is
// the chain the leaf is linked to on the appliance, empty when
// unlinked. Desired is the chain it must end up linked to. Linking to
// the chain the leaf is already linked to is a no-op, moving between
// chains requires an unlink first.
func PlanLink(current, desired string) LinkDelta {
	switch current {
	case desired:
		return LinkDelta{}
	case "":
		return LinkDelta{LinkTo: desired}
	default:
		return LinkDelta{UnlinkFrom: current, LinkTo: desired}
	}
}

// CheckLink validates a link transition before any remote call is
// issued. Linking an unlinked certificate or re-linking to the same
// chain is allowed, linking over an existing link to a different chain
// is a conflict.
func CheckLink(name, current, desired string) error {
	if current == "" || current == desired {
		return nil
	}
	return &AlreadyLinkedError{
		Name:    name,
		Current: current,
		Desired: desired,
	}
}

// CheckUnlink validates an unlink transition before any remote call is
// issued. The named chain must match the chain the certificate is
// actually linked to.
func CheckUnlink(name, current, chain string) error {
	if current == "" {
		return &NotLinkedError{Name: name}
	}
	if current != chain {
		return &LinkMismatchError{
			Name:    name,
			Current: current,
			Chain:   chain,
		}
	}
	return nil
}
