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

package nitro

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const configPath = "/nitro/" + APIVersion + "/config"

// Config holds the connection settings for a NITRO client.
type Config struct {
	// URL is the appliance management address, e.g. https://ns.example.net
	URL string

	// Username and Password authenticate every request via the
	// X-NITRO-USER and X-NITRO-PASS headers.
	Username string
	Password string

	// Insecure disables TLS certificate verification. Appliances
	// frequently run their management interface on a self-signed
	// certificate.
	Insecure bool

	// Timeout bounds each request. Zero means no client timeout.
	Timeout time.Duration

	// RequestsPerSecond throttles outgoing calls when greater than
	// zero. The management API rejects bursts on busy appliances.
	RequestsPerSecond float64
}

// Client is a NITRO HTTP client implementing Store.
type Client struct {
	config     *Config
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	requestID  string
}

// NewClient creates a NITRO client for the configured appliance.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nitro: nil config")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("nitro: appliance URL is required")
	}

	baseURL := strings.TrimSuffix(cfg.URL, "/")
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("nitro: invalid appliance URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("nitro: appliance URL must use http or https, got %q", cfg.URL)
	}

	transport := &http.Transport{}
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, // #nosec G402 - operator opted out of verification
			MinVersion:         tls.VersionTLS12,
		}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		baseURL:   baseURL,
		limiter:   limiter,
		requestID: uuid.NewString(),
	}, nil
}

// RequestID returns the correlation ID attached to every request this
// client sends.
func (c *Client) RequestID() string {
	return c.requestID
}

// Close closes idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// doRequest performs one NITRO API request and returns the decoded
// envelope. Envelopes carrying an error code are returned as *APIError
// regardless of HTTP status; transport failures are wrapped as-is.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("nitro: rate limiter: %w", err)
		}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("nitro: failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("nitro: failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-NITRO-USER", c.config.Username)
	req.Header.Set("X-NITRO-PASS", c.config.Password)
	req.Header.Set("X-Request-ID", c.requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nitro: request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("failed to close response body: %v", closeErr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("nitro: failed to read response body: %w", err)
	}

	envelope := &Response{}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, envelope); err != nil {
			if resp.StatusCode >= 400 {
				return nil, fmt.Errorf("nitro: server returned status %d: %s", resp.StatusCode, string(respBody))
			}
			return nil, fmt.Errorf("nitro: failed to decode response: %w", err)
		}
	}

	if envelope.Errorcode != CodeDone || resp.StatusCode >= 400 {
		return nil, &APIError{
			Code:     envelope.Errorcode,
			Message:  envelope.Message,
			Severity: envelope.Severity,
		}
	}
	return envelope, nil
}

type certKeyParams struct {
	Name     string `json:"certkey"`
	Cert     string `json:"cert,omitempty"`
	Key      string `json:"key,omitempty"`
	LinkedTo string `json:"linkcertkeyname,omitempty"`
}

type certKeyRequest struct {
	CertKey certKeyParams `json:"sslcertkey"`
}

type systemFileRequest struct {
	SystemFile SystemFile `json:"systemfile"`
}

type saveConfigRequest struct {
	NSConfig struct{} `json:"nsconfig"`
}

// Get returns the certificate object with the given name.
func (c *Client) Get(ctx context.Context, name string) (*CertKey, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, configPath+"/sslcertkey/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}
	if len(resp.CertKeys) == 0 {
		return nil, ErrNotFound
	}
	certKey := resp.CertKeys[0]
	return &certKey, nil
}

// Add installs a new certificate object referencing uploaded files.
func (c *Client) Add(ctx context.Context, name, certFile, keyFile string) error {
	_, err := c.doRequest(ctx, http.MethodPost, configPath+"/sslcertkey", certKeyRequest{
		CertKey: certKeyParams{
			Name: name,
			Cert: certFile,
			Key:  keyFile,
		},
	})
	return err
}

// Update points an existing certificate object at new files.
func (c *Client) Update(ctx context.Context, name, certFile, keyFile string) error {
	_, err := c.doRequest(ctx, http.MethodPost, configPath+"/sslcertkey?action=update", certKeyRequest{
		CertKey: certKeyParams{
			Name: name,
			Cert: certFile,
			Key:  keyFile,
		},
	})
	return err
}

// Link links the named certificate to a chain certificate object.
func (c *Client) Link(ctx context.Context, name, chain string) error {
	_, err := c.doRequest(ctx, http.MethodPost, configPath+"/sslcertkey?action=link", certKeyRequest{
		CertKey: certKeyParams{
			Name:     name,
			LinkedTo: chain,
		},
	})
	return err
}

// Unlink removes the chain link of the named certificate. The wire
// operation does not name the chain; the argument is accepted for
// Store compatibility and ignored here.
func (c *Client) Unlink(ctx context.Context, name, _ string) error {
	_, err := c.doRequest(ctx, http.MethodPost, configPath+"/sslcertkey?action=unlink", certKeyRequest{
		CertKey: certKeyParams{
			Name: name,
		},
	})
	return err
}

// Upload writes a file into the appliance SSL directory, base64
// encoded as the systemfile resource requires.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) error {
	_, err := c.doRequest(ctx, http.MethodPost, configPath+"/systemfile", systemFileRequest{
		SystemFile: SystemFile{
			Filename:     filename,
			FileLocation: SSLFileLocation,
			FileContent:  base64.StdEncoding.EncodeToString(data),
			FileEncoding: "BASE64",
		},
	})
	return err
}

// Delete removes an uploaded file from the appliance SSL directory.
func (c *Client) Delete(ctx context.Context, filename string) error {
	path := configPath + "/systemfile/" + url.PathEscape(filename) +
		"?args=filelocation:" + url.QueryEscape(SSLFileLocation)
	_, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	return err
}

// SaveConfig persists the running configuration.
func (c *Client) SaveConfig(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodPost, configPath+"/nsconfig?action=save", saveConfigRequest{})
	return err
}

// Version returns the appliance software version.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, configPath+"/nsversion", nil)
	if err != nil {
		return "", err
	}
	if resp.NSVersion == nil {
		return "", fmt.Errorf("nitro: nsversion missing from response")
	}
	return resp.NSVersion.Version, nil
}
