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
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeremyhahn/go-nitrocert/pkg/naming"
	"github.com/jeremyhahn/go-nitrocert/pkg/reconcile"
	"github.com/spf13/cobra"
)

var (
	deployName        string
	deployChainName   string
	deployCertFile    string
	deployKeyFile     string
	deployChainFile   string
	deployUpdateChain bool
	deployDryRun      bool
)

// deployCmd installs or renews a certificate on the appliance
var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Install or renew a certificate on the appliance",
	Long: `Deploy reads a certificate, its private key and its issuing chain
from disk and converges the appliance on them: the chain object is
installed if missing, the certificate object is installed or updated
when its serial differs, and the certificate is linked to its chain.

When run as a certbot deploy hook the material is read from
$RENEWED_LINEAGE and the certificate name is derived from the lineage
directory. Outside certbot, --name selects the lineage under the
configured certificate directory, and --cert, --privkey and
--chain-cert override individual file paths.

A chain object whose remote content differs from the local chain file
is never replaced unless --update-chain is given, other certificates
may still be linked against it.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		resolved, err := cfg.Resolve()
		if err != nil {
			handleError(err)
			return
		}

		name := deployName
		materialDir := ""
		if lineage := os.Getenv("RENEWED_LINEAGE"); lineage != "" {
			materialDir = lineage
			if name == "" {
				name = filepath.Base(lineage)
			}
		}
		if name == "" {
			handleError(fmt.Errorf("certificate name is required (--name, or RENEWED_LINEAGE when run as a certbot hook)"))
			return
		}
		if materialDir == "" {
			materialDir = filepath.Join(resolved.Certs.Dir, name)
		}

		certFile := deployCertFile
		if certFile == "" {
			certFile = filepath.Join(materialDir, "cert.pem")
		}
		keyFile := deployKeyFile
		if keyFile == "" {
			keyFile = filepath.Join(materialDir, "privkey.pem")
		}
		chainFile := deployChainFile
		if chainFile == "" {
			chainFile = filepath.Join(materialDir, "chain.pem")
		}

		if err := naming.Validate(name); err != nil {
			handleError(fmt.Errorf("invalid certificate name %q: %w", name, err))
			return
		}

		printVerbose("Deploying %s", name)
		printVerbose("Certificate: %s", certFile)
		printVerbose("Private key: %s", keyFile)
		printVerbose("Chain:       %s", chainFile)

		// #nosec G304 - Certificate file path from CLI argument
		leafCert, err := os.ReadFile(certFile)
		if err != nil {
			handleError(fmt.Errorf("failed to read certificate: %w", err))
			return
		}
		// #nosec G304 - Key file path from CLI argument
		leafKey, err := os.ReadFile(keyFile)
		if err != nil {
			handleError(fmt.Errorf("failed to read private key: %w", err))
			return
		}
		// #nosec G304 - Chain file path from CLI argument
		chainCert, err := os.ReadFile(chainFile)
		if err != nil {
			handleError(fmt.Errorf("failed to read chain: %w", err))
			return
		}

		store, err := cfg.CreateStore()
		if err != nil {
			handleError(err)
			return
		}
		defer func() { _ = store.Close() }()

		var passphrase []byte
		if resolved.Appliance.KeyPassphrase != "" {
			passphrase = []byte(resolved.Appliance.KeyPassphrase)
		}

		reconciler := reconcile.New(store, cfg.Logger())
		result, err := reconciler.Reconcile(cmd.Context(), reconcile.Request{
			LeafName:         name,
			ChainName:        deployChainName,
			LeafCert:         leafCert,
			LeafKey:          leafKey,
			ChainCert:        chainCert,
			KeyPassphrase:    passphrase,
			AllowChainUpdate: deployUpdateChain,
			DryRun:           deployDryRun,
		})
		if err != nil {
			handleError(err)
			return
		}

		if err := printer.PrintResult(result); err != nil {
			handleError(err)
		}
	},
}

func init() {
	deployCmd.Flags().StringVar(&deployName, "name", "",
		"certificate lineage name (defaults to the RENEWED_LINEAGE basename)")
	deployCmd.Flags().StringVar(&deployChainName, "chain", "",
		"chain object name (defaults to the chain certificate's common name)")
	deployCmd.Flags().StringVar(&deployCertFile, "cert", "",
		"certificate file (defaults to <lineage>/cert.pem)")
	deployCmd.Flags().StringVar(&deployKeyFile, "privkey", "",
		"private key file (defaults to <lineage>/privkey.pem)")
	deployCmd.Flags().StringVar(&deployChainFile, "chain-cert", "",
		"chain certificate file (defaults to <lineage>/chain.pem)")
	deployCmd.Flags().BoolVar(&deployUpdateChain, "update-chain", false,
		"replace the chain object when its content differs from the local chain file")
	deployCmd.Flags().BoolVar(&deployDryRun, "dry-run", false,
		"compute and print the plan without applying it")
}
