package http

import (
	"net/http"
	"strconv"

	"fina/internal/ledger"
	"fina/internal/log"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in ledger.RegisterInput
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	in.Username = sanitizeInput(in.Username)
	in.FullName = sanitizeInput(in.FullName)
	in.Email = sanitizeInput(in.Email)

	user, err := s.svc.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "User registered", log.FieldUserID, user.ID)
	NewJSONResponse().
		Status(http.StatusCreated).
		Location("/api/users/" + strconv.FormatInt(user.ID, 10)).
		Data(user).
		Write(w)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleVerifyPassword checks a username and password pair and returns the
// user on success. Session handling is left to the caller.
func (s *Server) handleVerifyPassword(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	user, err := s.svc.VerifyPassword(r.Context(), sanitizeInput(in.Username), in.Password)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	user, err := s.svc.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var in ledger.ProfileInput
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	in.Username = sanitizeInput(in.Username)
	in.FullName = sanitizeInput(in.FullName)
	in.Email = sanitizeInput(in.Email)

	user, err := s.svc.UpdateProfile(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var in struct {
		Password string `json:"password"`
	}
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := s.svc.ResetPassword(r.Context(), userID, in.Password); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	user, err := s.svc.Deactivate(r.Context(), userID)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteUser(r.Context(), userID); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "User deleted", log.FieldUserID, userID)
	w.WriteHeader(http.StatusNoContent)
}
