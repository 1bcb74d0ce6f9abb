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

// Package nitro talks to the NITRO configuration API of a Citrix ADC
// (NetScaler) appliance. It exposes the certificate store operations the
// reconciler needs behind the Store interface, with an HTTP client for
// real appliances and an in-memory implementation for tests.
package nitro

// APIVersion is the NITRO configuration API version this package
// speaks.
const APIVersion = "v1"

// SSLFileLocation is the appliance directory certificate and key files
// are uploaded to.
const SSLFileLocation = "/nsconfig/ssl"

// CertKey is an sslcertkey resource: one certificate object in the
// appliance trust store. Serial carries the hexadecimal representation
// the appliance reports; LinkedTo is the name of the chain object this
// certificate is linked to, empty when unlinked.
type CertKey struct {
	Name             string `json:"certkey"`
	Cert             string `json:"cert,omitempty"`
	Key              string `json:"key,omitempty"`
	Serial           string `json:"serial,omitempty"`
	LinkedTo         string `json:"linkcertkeyname,omitempty"`
	Status           string `json:"status,omitempty"`
	DaysToExpiration int    `json:"daystoexpiration,omitempty"`
	Subject          string `json:"subject,omitempty"`
	Issuer           string `json:"issuer,omitempty"`
}

// Linked reports whether the certificate is linked to a chain object.
func (c *CertKey) Linked() bool {
	return c.LinkedTo != ""
}

// Response is the NITRO envelope wrapped around every API response.
// Errorcode 0 with severity NONE means success; everything else maps to
// an error, see APIError.
type Response struct {
	Errorcode int        `json:"errorcode"`
	Message   string     `json:"message"`
	Severity  string     `json:"severity"`
	CertKeys  []CertKey  `json:"sslcertkey,omitempty"`
	NSVersion *NSVersion `json:"nsversion,omitempty"`
}

// NSVersion is the payload of the nsversion resource.
type NSVersion struct {
	Version string `json:"version"`
}

// SystemFile is the systemfile resource used to upload certificate and
// key files to the appliance filesystem.
type SystemFile struct {
	Filename     string `json:"filename"`
	FileLocation string `json:"filelocation"`
	FileContent  string `json:"filecontent"`
	FileEncoding string `json:"fileencoding"`
}

// Severity values used in NITRO envelopes.
const (
	SeverityNone    = "NONE"
	SeverityError   = "ERROR"
	SeverityWarning = "WARNING"
)
