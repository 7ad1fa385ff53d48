package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/middleware"
	"github.com/vikasavnish/listinghub/internal/models"
	"github.com/vikasavnish/listinghub/internal/services"
	"github.com/vikasavnish/listinghub/internal/utils"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService services.AuthService
	onSignOut   func(userID uuid.UUID)
	log         logging.Logger
}

// NewAuthHandler creates a new auth handler. onSignOut, if set, runs after a
// successful sign-out.
func NewAuthHandler(authService services.AuthService, onSignOut func(userID uuid.UUID), log logging.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, onSignOut: onSignOut, log: log}
}

func (h *AuthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/signup", h.SignUp).Methods("POST")
	router.HandleFunc("/auth/login", h.Login).Methods("POST")
	router.HandleFunc("/auth/logout", h.Logout).Methods("POST")
	router.Handle("/auth/session", middleware.RequireSession(http.HandlerFunc(h.Session))).Methods("GET")
}

// SignUp creates an account. It does not sign the user in.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if !decode(r, &req) {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.authService.SignUp(r.Context(), req.Email, req.Password, services.SignUpMetadata{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      models.Role(req.Role),
	})
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles user login and returns a JWT token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if !decode(r, &loginReq) {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	session, err := h.authService.SignInWithPassword(r.Context(), loginReq.Email, loginReq.Password)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken: session.Token,
		TokenType:   "bearer",
		ExpiresAt:   session.ExpiresAt.Unix(),
	})
}

// Logout revokes the bearer token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.BearerToken(r); token != "" {
		if err := h.authService.SignOut(r.Context(), token); err != nil {
			writeError(r.Context(), w, h.log, err)
			return
		}
	}
	if s := utils.SessionFromContext(r.Context()); s != nil && h.onSignOut != nil {
		h.onSignOut(s.UserID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session returns the current session and profile.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"session": utils.SessionFromContext(r.Context()),
		"user":    utils.ViewerFromContext(r.Context()),
	})
}
