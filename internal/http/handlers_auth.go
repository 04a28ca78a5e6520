package http

import (
	"net/http"

	authmw "sprout/internal/middleware/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, token, err := s.auth.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.sessions.SetCookie(w, token)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "Account created successfully! You are now logged in.",
		"user":       userJSON{ID: user.ID, Email: user.Email},
		"auto_login": true,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.sessions.SetCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    userJSON{ID: user.ID, Email: user.Email},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if session, ok := authmw.SessionFrom(r.Context()); ok {
		if err := s.auth.Logout(r.Context(), session.Token); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	s.sessions.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.CurrentUser(r.Context(), authmw.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	createdAt := user.CreatedAt
	writeJSON(w, http.StatusOK, map[string]any{
		"user": userJSON{ID: user.ID, Email: user.Email, CreatedAt: &createdAt},
	})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}

	// The same answer regardless of whether the account exists.
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If an account with that email exists, we've sent password reset instructions.",
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password reset successful! You can now log in with your new password.",
	})
}
