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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jeremyhahn/go-nitrocert/pkg/nitro"
	"github.com/jeremyhahn/go-nitrocert/pkg/reconcile"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText  OutputFormat = "text"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatTable OutputFormat = "table"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// PrintResult prints the outcome of a reconciliation pass
func (p *Printer) PrintResult(result *reconcile.Result) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(result)
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintf(p.writer, "Leaf:  %s (%s)\n", result.LeafName, result.Leaf)
		fmt.Fprintf(p.writer, "Chain: %s (%s)\n", result.ChainName, result.Chain)
		fmt.Fprintf(p.writer, "Link:  %s\n", result.Link)
		if len(result.Plan) > 0 {
			if result.Executed {
				fmt.Fprintln(p.writer, "Applied:")
			} else {
				fmt.Fprintln(p.writer, "Planned (not applied):")
			}
			for _, line := range result.Plan.Strings() {
				fmt.Fprintf(p.writer, "  - %s\n", line)
			}
		}
		if !result.Changed() {
			fmt.Fprintln(p.writer, "Already up to date")
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintCertKeys prints certificate objects as reported by the appliance
func (p *Printer) PrintCertKeys(objs []nitro.CertKey) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"certificates": objs,
		})
	case OutputFormatTable:
		if len(objs) == 0 {
			fmt.Fprintln(p.writer, "No certificates found")
			return nil
		}
		fmt.Fprintf(p.writer, "%-31s %-10s %-22s %-6s %-31s\n", "NAME", "STATUS", "SERIAL", "DAYS", "LINKED-TO")
		fmt.Fprintln(p.writer, strings.Repeat("-", 103))
		for _, obj := range objs {
			fmt.Fprintf(p.writer, "%-31s %-10s %-22s %-6d %-31s\n",
				obj.Name, obj.Status, obj.Serial, obj.DaysToExpiration, obj.LinkedTo)
		}
		return nil
	case OutputFormatText:
		if len(objs) == 0 {
			fmt.Fprintln(p.writer, "No certificates found")
			return nil
		}
		for i, obj := range objs {
			if i > 0 {
				fmt.Fprintln(p.writer)
			}
			fmt.Fprintf(p.writer, "Name:    %s\n", obj.Name)
			fmt.Fprintf(p.writer, "Status:  %s\n", obj.Status)
			fmt.Fprintf(p.writer, "Serial:  %s\n", obj.Serial)
			if obj.Subject != "" {
				fmt.Fprintf(p.writer, "Subject: %s\n", obj.Subject)
			}
			if obj.Issuer != "" {
				fmt.Fprintf(p.writer, "Issuer:  %s\n", obj.Issuer)
			}
			fmt.Fprintf(p.writer, "Expires: %d days\n", obj.DaysToExpiration)
			if obj.Linked() {
				fmt.Fprintf(p.writer, "Linked:  %s\n", obj.LinkedTo)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintApplianceVersion prints the appliance version string
func (p *Printer) PrintApplianceVersion(version string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"appliance_version": version,
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintln(p.writer, version)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// printJSON prints data as JSON
func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
