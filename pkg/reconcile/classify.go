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
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-nitrocert/pkg/certs"
	"github.com/jeremyhahn/go-nitrocert/pkg/nitro"
)

// State describes a remote certificate object relative to local
// certificate material.
type State int

const (
	// StateAbsent means no object with the name exists on the appliance
	StateAbsent State = iota

	// StateCurrent means the object exists and its serial matches the
	// local certificate
	StateCurrent

	// StateStale means the object exists but holds a different
	// certificate than the local one
	StateStale
)

// String implements the fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateCurrent:
		return "current"
	case StateStale:
		return "stale"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Classify compares a remote certificate object against the serial
// number of the local certificate. A nil object classifies as absent.
// Serial numbers are compared as integers so formatting differences
// in the appliance's hex rendering never cause a false mismatch.
func Classify(obj *nitro.CertKey, localSerial *big.Int) (State, error) {
	if obj == nil {
		return StateAbsent, nil
	}
	remoteSerial, err := certs.ParseSerial(obj.Serial)
	if err != nil {
		return StateAbsent, fmt.Errorf("reconcile: certificate %s: %w", obj.Name, err)
	}
	if remoteSerial.Cmp(localSerial) == 0 {
		return StateCurrent, nil
	}
	return StateStale, nil
}
