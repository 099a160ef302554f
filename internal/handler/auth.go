package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fitcoach/api-server-go/internal/audit"
	apperrors "github.com/fitcoach/api-server-go/internal/errors"
	"github.com/fitcoach/api-server-go/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, decodeError())
		return
	}

	if err := h.authService.Register(r.Context(), req.Email, req.Password); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventRegister, Identity: req.Email})
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Registration successful. Check your email for a verification code.",
	})
}

// POST /verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, decodeError())
		return
	}

	tok, err := h.authService.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeCodeInvalid) {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventCodeRejected, Identity: req.Email})
		}
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventCodeRedeemed, Identity: req.Email})
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": tok,
		"token_type":   "bearer",
	})
}

// POST /resend-code
func (h *AuthHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, decodeError())
		return
	}

	if err := h.authService.ResendCode(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventCodeIssued, Identity: req.Email})
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "A new verification code has been sent.",
	})
}

// POST /token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	email, password, err := credentialsFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	tok, err := h.authService.Login(r.Context(), email, password)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeCredentialsInvalid) {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventLoginFailure, Identity: email})
			log.Warn().Str("email", email).Msg("login rejected")
		}
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventLoginSuccess, Identity: email})
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": tok,
		"token_type":   "bearer",
	})
}

// credentialsFromRequest accepts either a JSON body or an OAuth2-style
// password form (username/password fields), which is what CLI clients and
// API explorers typically send to a token endpoint.
func credentialsFromRequest(r *http.Request) (email, password string, err error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return "", "", decodeError()
		}
		return r.PostFormValue("username"), r.PostFormValue("password"), nil
	}

	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", "", decodeError()
	}
	if req.Email != "" {
		return req.Email, req.Password, nil
	}
	return req.Username, req.Password, nil
}
