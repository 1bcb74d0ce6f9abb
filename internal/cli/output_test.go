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
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jeremyhahn/go-nitrocert/pkg/nitro"
	"github.com/jeremyhahn/go-nitrocert/pkg/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func installResult() *reconcile.Result {
	return &reconcile.Result{
		LeafName:  "example.com",
		ChainName: "Lets Encrypt E6",
		Chain:     reconcile.ChainInstalled,
		Leaf:      reconcile.LeafInstalled,
		Link:      reconcile.LinkCreated,
		Plan: reconcile.Plan{
			{Op: reconcile.OpLink, Name: "example.com", Chain: "Lets Encrypt E6"},
			{Op: reconcile.OpSaveConfig},
		},
		Executed: true,
		Saved:    true,
	}
}

func TestPrinter_PrintResultText(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter("text", &buf)

	require.NoError(t, printer.PrintResult(installResult()))

	out := buf.String()
	assert.Contains(t, out, "Leaf:  example.com (installed)")
	assert.Contains(t, out, "Chain: Lets Encrypt E6 (installed)")
	assert.Contains(t, out, "Link:  created")
	assert.Contains(t, out, "Applied:")
	assert.Contains(t, out, "link example.com -> Lets Encrypt E6")
}

func TestPrinter_PrintResultDryRun(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter("text", &buf)

	result := installResult()
	result.Executed = false
	result.Saved = false
	require.NoError(t, printer.PrintResult(result))

	assert.Contains(t, buf.String(), "Planned (not applied):")
}

func TestPrinter_PrintResultUnchanged(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter("text", &buf)

	result := &reconcile.Result{
		LeafName:  "example.com",
		ChainName: "Lets Encrypt E6",
		Chain:     reconcile.ChainUnchanged,
		Leaf:      reconcile.LeafUnchanged,
		Link:      reconcile.LinkUnchanged,
		Executed:  true,
	}
	require.NoError(t, printer.PrintResult(result))
	assert.Contains(t, buf.String(), "Already up to date")
}

func TestPrinter_PrintResultJSON(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter("json", &buf)

	require.NoError(t, printer.PrintResult(installResult()))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "example.com", decoded["leaf"])
	assert.Equal(t, "installed", decoded["leaf_outcome"])
	assert.Equal(t, true, decoded["saved"])
}

func TestPrinter_PrintCertKeysTable(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter("table", &buf)

	objs := []nitro.CertKey{
		{
			Name:             "example.com",
			Status:           "Valid",
			Serial:           "0x3e9",
			DaysToExpiration: 89,
			LinkedTo:         "Lets Encrypt E6",
		},
	}
	require.NoError(t, printer.PrintCertKeys(objs))

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "example.com")
	assert.Contains(t, out, "Lets Encrypt E6")
}

func TestPrinter_PrintCertKeysText(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter("text", &buf)

	objs := []nitro.CertKey{
		{
			Name:             "example.com",
			Status:           "Valid",
			Serial:           "0x3e9",
			Subject:          "CN=example.com",
			DaysToExpiration: 89,
		},
	}
	require.NoError(t, printer.PrintCertKeys(objs))

	out := buf.String()
	assert.Contains(t, out, "Name:    example.com")
	assert.Contains(t, out, "Expires: 89 days")
	assert.NotContains(t, out, "Linked:")
}

func TestPrinter_PrintCertKeysEmpty(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter("text", &buf)

	require.NoError(t, printer.PrintCertKeys(nil))
	assert.Contains(t, buf.String(), "No certificates found")
}

func TestPrinter_PrintApplianceVersion(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter("json", &buf)

	require.NoError(t, printer.PrintApplianceVersion("NetScaler NS13.1: Build 37.38.nc"))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "NetScaler NS13.1: Build 37.38.nc", decoded["appliance_version"])
}

func TestPrinter_PrintErrorJSON(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter("json", &buf)

	require.NoError(t, printer.PrintError(errors.New("boom")))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "error", decoded["status"])
	assert.Equal(t, "boom", decoded["error"])
}

func TestPrinter_UnknownFormat(t *testing.T) {
	printer := NewPrinter("yaml", &bytes.Buffer{})
	assert.Error(t, printer.PrintResult(installResult()))
	assert.Error(t, printer.PrintCertKeys(nil))
	assert.Error(t, printer.PrintApplianceVersion("x"))
}
