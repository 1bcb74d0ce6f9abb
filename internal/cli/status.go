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

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/jeremyhahn/go-nitrocert/pkg/naming"
	"github.com/jeremyhahn/go-nitrocert/pkg/nitro"
	"github.com/spf13/cobra"
)

// statusCmd reports appliance state
var statusCmd = &cobra.Command{
	Use:   "status [name]",
	Short: "Show appliance or certificate status",
	Long: `Without arguments, status verifies connectivity and credentials and
prints the appliance version. With a certificate name it shows the
certificate object and, when linked, its chain object.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		store, err := cfg.CreateStore()
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = store.Close() }()

		version, err := store.Version(cmd.Context())
		if err != nil {
			handleError(fmt.Errorf("appliance unreachable: %w", err))
			return
		}
		printVerbose("Appliance version: %s", version)

		if len(args) == 0 {
			if err := printer.PrintApplianceVersion(version); err != nil {
				handleError(err)
			}
			return
		}

		name := args[0]
		if err := naming.Validate(name); err != nil {
			handleError(fmt.Errorf("invalid certificate name %q: %w", name, err))
			return
		}

		obj, err := store.Get(cmd.Context(), name)
		if err != nil {
			if errors.Is(err, nitro.ErrNotFound) {
				handleError(fmt.Errorf("certificate %q not found on the appliance", name))
				return
			}
			handleError(err)
			return
		}

		objs := []nitro.CertKey{*obj}
		if obj.Linked() {
			chain, err := store.Get(cmd.Context(), obj.LinkedTo)
			if err != nil {
				printVerbose("Linked chain %s not readable: %v", obj.LinkedTo, err)
			} else {
				objs = append(objs, *chain)
			}
		}

		if err := printer.PrintCertKeys(objs); err != nil {
			handleError(err)
		}
	},
}
