package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gobeyondidentity/keyissuer/pkg/netutil"
)

type issueResponse struct {
	Credential string `json:"credential"`
}

type confirmRequest struct {
	Credential string        `json:"credential"`
	Status     ConfirmStatus `json:"status"`
	Message    string        `json:"message,omitempty"`
}

type confirmResponse struct {
	Status   string `json:"status"`
	Resolved bool   `json:"resolved"`
}

// handleIssue generates a credential and starts its confirmation window.
func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	ip := netutil.ClientIP(r)

	cred, err := s.issuer.Issue(r.Context(), ip)
	if err != nil {
		writeInternalError(w, r, err, "Failed to issue credential")
		return
	}

	writeJSON(w, http.StatusOK, issueResponse{Credential: cred})
}

// handleConfirm records the client's report about a credential.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	req.Credential = strings.TrimSpace(req.Credential)
	if req.Status == "" {
		writeError(w, r, http.StatusBadRequest, "status is required")
		return
	}
	if req.Status.RequiresCredential() && req.Credential == "" {
		writeError(w, r, http.StatusBadRequest, "credential is required for status "+string(req.Status))
		return
	}

	result, err := s.issuer.Confirm(r.Context(), netutil.ClientIP(r), req.Credential, req.Status, req.Message)
	if errors.Is(err, ErrUnknownStatus) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeInternalError(w, r, err, "Failed to record confirmation")
		return
	}

	writeJSON(w, http.StatusOK, confirmResponse{Status: "logged", Resolved: result.Resolved})
}

// handleIssueFailed records that the client gave up on an issuance request.
// The body is free-form and copied into the record as detail.
func (s *Server) handleIssueFailed(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Failed to read body: "+err.Error())
		return
	}

	if err := s.issuer.ReportClientError(r.Context(), netutil.ClientIP(r), strings.TrimSpace(string(body))); err != nil {
		writeInternalError(w, r, err, "Failed to record client error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged"})
}
