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

// Package nitrotest runs a mock NITRO appliance over HTTP for tests.
// It speaks the same wire protocol, envelopes and error codes as a real
// ADC, backed by a MemoryStore that tests can inspect and reset.
package nitrotest

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"

	"github.com/jeremyhahn/go-nitrocert/pkg/nitro"
)

// Default credentials, matching a factory-fresh appliance.
const (
	DefaultUsername = "nsroot"
	DefaultPassword = "nsroot"
)

// Server is a mock NITRO appliance.
type Server struct {
	store      *nitro.MemoryStore
	username   string
	password   string
	httpServer *httptest.Server
}

// New starts a mock appliance with default credentials.
func New(store *nitro.MemoryStore) *Server {
	return NewWithCredentials(store, DefaultUsername, DefaultPassword)
}

// NewWithCredentials starts a mock appliance that requires the given
// credentials on every request.
func NewWithCredentials(store *nitro.MemoryStore, username, password string) *Server {
	s := &Server{
		store:    store,
		username: username,
		password: password,
	}
	s.httpServer = httptest.NewServer(s.router())
	return s
}

// URL returns the base URL of the mock appliance.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// Store returns the backing MemoryStore for state assertions.
func (s *Server) Store() *nitro.MemoryStore {
	return s.store
}

// Close shuts the mock appliance down.
func (s *Server) Close() {
	s.httpServer.Close()
}

func (s *Server) router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(s.authMiddleware)

	r.Route("/nitro/v1/config", func(r chi.Router) {
		r.Get("/nsversion", s.handleVersion)
		r.Post("/nsconfig", s.handleNSConfig)
		r.Get("/sslcertkey/{name}", s.handleGetCertKey)
		r.Post("/sslcertkey", s.handleCertKeyAction)
		r.Post("/systemfile", s.handleFileUpload)
		r.Delete("/systemfile/{name}", s.handleFileDelete)
	})
	return r
}

// authMiddleware enforces the NITRO header credentials on every route.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get("X-NITRO-USER")
		pass := r.Header.Get("X-NITRO-PASS")
		if user == "" && pass == "" {
			writeEnvelope(w, http.StatusUnauthorized, &nitro.Response{
				Errorcode: nitro.CodeNotLoggedIn,
				Message:   "Not logged in",
				Severity:  nitro.SeverityError,
			})
			return
		}
		if user != s.username || pass != s.password {
			writeEnvelope(w, http.StatusUnauthorized, &nitro.Response{
				Errorcode: nitro.CodeBadAuth,
				Message:   "Invalid username or password",
				Severity:  nitro.SeverityError,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleGetCertKey(w http.ResponseWriter, r *http.Request) {
	obj, err := s.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, &nitro.Response{
		Errorcode: nitro.CodeDone,
		Message:   "Done",
		Severity:  nitro.SeverityNone,
		CertKeys:  []nitro.CertKey{*obj},
	})
}

func (s *Server) handleCertKeyAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CertKey nitro.CertKey `json:"sslcertkey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, &nitro.Response{
			Errorcode: nitro.CodeInvalidArg,
			Message:   "Invalid request body",
			Severity:  nitro.SeverityError,
		})
		return
	}

	params := req.CertKey
	status := http.StatusOK
	var err error

	switch action := r.URL.Query().Get("action"); action {
	case "":
		err = s.store.Add(r.Context(), params.Name, params.Cert, params.Key)
		status = http.StatusCreated
	case "update":
		err = s.store.Update(r.Context(), params.Name, params.Cert, params.Key)
	case "link":
		err = s.store.Link(r.Context(), params.Name, params.LinkedTo)
	case "unlink":
		// The wire operation carries no chain name; resolve the
		// current link the way the appliance does.
		var obj *nitro.CertKey
		obj, err = s.store.Get(r.Context(), params.Name)
		if err == nil {
			err = s.store.Unlink(r.Context(), params.Name, obj.LinkedTo)
		}
	default:
		writeEnvelope(w, http.StatusBadRequest, &nitro.Response{
			Errorcode: nitro.CodeInvalidArg,
			Message:   "Invalid argument [action, " + action + "]",
			Severity:  nitro.SeverityError,
		})
		return
	}

	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeDone(w, status)
}

func (s *Server) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SystemFile nitro.SystemFile `json:"systemfile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, &nitro.Response{
			Errorcode: nitro.CodeInvalidArg,
			Message:   "Invalid request body",
			Severity:  nitro.SeverityError,
		})
		return
	}

	file := req.SystemFile
	if file.FileEncoding != "BASE64" {
		writeEnvelope(w, http.StatusBadRequest, &nitro.Response{
			Errorcode: nitro.CodeInvalidArg,
			Message:   "Invalid argument [fileencoding, " + file.FileEncoding + "]",
			Severity:  nitro.SeverityError,
		})
		return
	}
	if file.FileLocation != nitro.SSLFileLocation {
		writeEnvelope(w, http.StatusBadRequest, &nitro.Response{
			Errorcode: nitro.CodeInvalidArg,
			Message:   "Invalid argument [filelocation, " + file.FileLocation + "]",
			Severity:  nitro.SeverityError,
		})
		return
	}
	data, err := base64.StdEncoding.DecodeString(file.FileContent)
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, &nitro.Response{
			Errorcode: nitro.CodeInvalidArg,
			Message:   "Invalid argument [filecontent]: not base64",
			Severity:  nitro.SeverityError,
		})
		return
	}

	if err := s.store.Upload(r.Context(), file.Filename, data); err != nil {
		writeStoreError(w, err)
		return
	}
	writeDone(w, http.StatusCreated)
}

func (s *Server) handleFileDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeDone(w, http.StatusOK)
}

func (s *Server) handleNSConfig(w http.ResponseWriter, r *http.Request) {
	if action := r.URL.Query().Get("action"); action != "save" {
		writeEnvelope(w, http.StatusBadRequest, &nitro.Response{
			Errorcode: nitro.CodeInvalidArg,
			Message:   "Invalid argument [action, " + action + "]",
			Severity:  nitro.SeverityError,
		})
		return
	}
	if err := s.store.SaveConfig(r.Context()); err != nil {
		writeStoreError(w, err)
		return
	}
	writeDone(w, http.StatusOK)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	version, err := s.store.Version(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, &nitro.Response{
		Errorcode: nitro.CodeDone,
		Message:   "Done",
		Severity:  nitro.SeverityNone,
		NSVersion: &nitro.NSVersion{Version: version},
	})
}

// writeStoreError translates a store error into the NITRO envelope and
// HTTP status the appliance would produce.
func writeStoreError(w http.ResponseWriter, err error) {
	var apiErr *nitro.APIError
	if errors.As(err, &apiErr) {
		writeEnvelope(w, apiErr.HTTPStatus(), &nitro.Response{
			Errorcode: apiErr.Code,
			Message:   apiErr.Message,
			Severity:  apiErr.Severity,
		})
		return
	}
	writeEnvelope(w, http.StatusInternalServerError, &nitro.Response{
		Errorcode: -1,
		Message:   err.Error(),
		Severity:  nitro.SeverityError,
	})
}

func writeDone(w http.ResponseWriter, status int) {
	writeEnvelope(w, status, &nitro.Response{
		Errorcode: nitro.CodeDone,
		Message:   "Done",
		Severity:  nitro.SeverityNone,
	})
}

func writeEnvelope(w http.ResponseWriter, status int, resp *nitro.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
