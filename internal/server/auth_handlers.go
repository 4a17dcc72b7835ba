// internal/server/auth_handlers.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"vitrine/internal/auth"
	"vitrine/internal/content"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		token := s.csrf.Token(w, r)
		data := loginData{
			CSRFToken: token,
			CSRFMeta:  s.csrf.GetMeta(token),
		}
		if err := s.renderTemplate(w, r, "login.html", data); err != nil {
			s.logger.Printf("Error rendering login template: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}

	case http.MethodPost:
		if !s.csrf.Validate(w, r) {
			return
		}
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid request")
			return
		}
		session, err := s.auth.Authenticate(s.store.DB, req.Username, req.Password)
		if err != nil {
			s.logger.Printf("Authentication failed for %q: %v", req.Username, err)
			RespondWithError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     "session",
			Value:    session.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.csrf.config.Secure,
			SameSite: http.SameSiteStrictMode,
			Expires:  session.ExpiresAt,
		})
		RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}
	if !s.csrf.Validate(w, r) {
		return
	}

	if cookie, err := r.Cookie("session"); err == nil && cookie.Value != "" {
		if err := s.auth.InvalidateSession(s.store.DB, cookie.Value); err != nil {
			s.logger.Printf("Error invalidating session: %v", err)
		}
		http.SetCookie(w, &http.Cookie{
			Name:   "session",
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}

	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.csrf.Validate(w, r) {
		return
	}

	userID, ok := getUserID(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	currentUser, err := s.auth.GetUserByID(s.store.DB, userID)
	if err != nil {
		s.logger.Printf("Error getting user %d: %v", userID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve user information")
		return
	}

	if _, err := s.auth.Authenticate(s.store.DB, currentUser.Username, req.CurrentPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			RespondWithError(w, http.StatusUnauthorized, "Incorrect current password")
		} else {
			s.logger.Printf("Error verifying password for user %d: %v", userID, err)
			RespondWithError(w, http.StatusInternalServerError, "Authentication error")
		}
		return
	}

	if err := s.auth.UpdatePassword(s.store.DB, userID, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			RespondWithError(w, http.StatusBadRequest, "Password must be at least 8 characters")
			return
		}
		s.logger.Printf("Error updating password for user %d: %v", userID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

// handleSetup bootstraps the first admin account. Once a user exists the
// page permanently redirects to the login form.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	hasUsers, err := s.auth.HasUsers(s.store.DB)
	if err != nil {
		s.logger.Printf("Error checking for existing users: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if hasUsers {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}

	switch r.Method {
	case http.MethodGet:
		token := s.csrf.Token(w, r)
		data := loginData{
			CSRFToken: token,
			CSRFMeta:  s.csrf.GetMeta(token),
		}
		if err := s.renderTemplate(w, r, "setup.html", data); err != nil {
			s.logger.Printf("Error rendering setup template: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}

	case http.MethodPost:
		if !s.csrf.Validate(w, r) {
			return
		}
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid request")
			return
		}
		if req.Username == "" {
			RespondWithError(w, http.StatusBadRequest, "Username is required")
			return
		}
		if err := s.auth.CreateUser(s.store.DB, req.Username, req.Password); err != nil {
			if errors.Is(err, auth.ErrPasswordTooShort) {
				RespondWithError(w, http.StatusBadRequest, "Password must be at least 8 characters")
				return
			}
			s.logger.Printf("Error creating admin user: %v", err)
			RespondWithError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}
		s.logger.Printf("Initial admin user %q created", req.Username)
		RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != "/admin" && r.URL.Path != "/admin/" {
		s.handle404(w, r)
		return
	}

	stats := s.content.GlobalStats(r.Context())
	total := 0
	for _, n := range stats {
		total += n
	}

	token := s.csrf.Token(w, r)
	data := adminData{
		Title:      "Tableau de bord",
		Active:     "dashboard",
		CSRFToken:  token,
		CSRFMeta:   s.csrf.GetMeta(token),
		Categories: content.Categories(),
		Data: dashboardData{
			Stats: stats,
			Total: total,
		},
	}

	if err := s.renderTemplate(w, r, "admin/dashboard.html", data); err != nil {
		s.logger.Printf("Error rendering dashboard: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
