package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/MrWong99/socialsync/internal/agent"
	"github.com/MrWong99/socialsync/internal/event"
	"github.com/MrWong99/socialsync/internal/observe"
	"github.com/MrWong99/socialsync/pkg/profile"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Email     string `json:"email,omitempty"`
}

// chatResponse extends the turn outcome with the session identifier so
// clients that omitted one learn the id the server assigned.
type chatResponse struct {
	agent.TurnResponse
	SessionID string `json:"session_id"`
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type authResponse struct {
	Status  string `json:"status"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Profile string `json:"profile"`
}

type emailRequest struct {
	Email string      `json:"email"`
	Event event.Event `json:"event"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	turn, err := s.controller.Turn(r.Context(), agent.TurnRequest{
		SessionID: req.SessionID,
		Message:   req.Message,
		Email:     req.Email,
	})
	if err != nil {
		observe.Logger(r.Context()).Error("turn failed", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusBadGateway, "the agent is unavailable, try again")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{TurnResponse: *turn, SessionID: req.SessionID})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	s.controller.Reset(r.Context(), req.SessionID)
	writeJSON(w, http.StatusOK, statusResponse{Status: "reset"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !strings.Contains(req.Email, "@") || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	name := req.Name
	if name == "" {
		name, _, _ = strings.Cut(req.Email, "@")
	}

	p, err := s.profiles.Create(r.Context(), req.Email, req.Password, name)
	switch {
	case errors.Is(err, profile.ErrExists):
		writeError(w, http.StatusBadRequest, "email already registered")
		return
	case err != nil:
		observe.Logger(r.Context()).Error("register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Status:  "success",
		Email:   p.Email,
		Name:    p.DisplayName,
		Profile: p.TasteSummary,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := s.profiles.Authenticate(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, profile.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	case err != nil:
		observe.Logger(r.Context()).Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Status:  "success",
		Email:   p.Email,
		Name:    p.DisplayName,
		Profile: p.TasteSummary,
	})
}

func (s *Server) handleSendEventEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "valid email required")
		return
	}

	if err := s.mailer.SendEvent(req.Email, req.Event); err != nil {
		observe.Logger(r.Context()).Error("event email failed", "recipient", req.Email, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send email")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "success",
		Message: "Ticket info sent to your inbox!",
	})
}

// decodeJSON reads a bounded JSON body into v, writing a 400 and returning
// false on malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
