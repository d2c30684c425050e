package http

import (
	"errors"
	"net/http"

	"bottega/internal/auth"
	"bottega/internal/core"
	"bottega/internal/log"
)

type credentialsForm struct {
	Username string
	Email    string
}

// handleIndex shows the login page, or sends signed-in users to the dashboard.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.Sessions.Parse(r); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.renderForm(w, r, "login.html")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		SeeOther("/").Error("Invalid request.").Write(w)
		return
	}
	email := sanitizeInput(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")
	if email == "" || password == "" {
		SeeOther("/").Error("Email and password are required.").Write(w)
		return
	}

	user, err := s.deps.Identity.Authenticate(r.Context(), email, password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		SeeOther("/").Error("Invalid credentials.").Write(w)
		return
	case errors.Is(err, auth.ErrUserNotFound):
		SeeOther("/").Error("User not found. Please register.").Write(w)
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "Login failed", log.FieldError, err, log.FieldOperation, log.OpLogin)
		SeeOther("/").Error("Login is temporarily unavailable.").Write(w)
		return
	}

	if _, err := s.deps.Sessions.Issue(w, user); err != nil {
		s.logger.ErrorContext(r.Context(), "Session issue failed", log.FieldError, err, log.FieldUserID, user.ID)
		SeeOther("/").Error("Login is temporarily unavailable.").Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "User logged in", log.FieldUserID, user.ID, log.FieldOperation, log.OpLogin)
	SeeOther("/dashboard").Success("Login successful.").Write(w)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, r, "register.html")
}

// renderForm renders a page that posts before a session exists, with its
// CSRF token.
func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, page string) {
	token, err := s.deps.Sessions.FormToken(w, r)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "CSRF token issue failed", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, withFormToken(r, token), page, credentialsForm{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		SeeOther("/register").Error("Invalid request.").Write(w)
		return
	}
	form := r.PostForm
	if form.Get("password") != form.Get("confirm_password") {
		SeeOther("/register").Error("Passwords do not match.").Write(w)
		return
	}

	_, err := s.deps.Identity.Register(r.Context(),
		sanitizeInput(form.Get("username")),
		sanitizeInput(form.Get("email")),
		form.Get("password"))
	switch {
	case errors.Is(err, auth.ErrEmailExists):
		SeeOther("/register").Error("Email already registered.").Write(w)
		return
	case errors.Is(err, core.ErrInvalidUsername),
		errors.Is(err, core.ErrInvalidEmail),
		errors.Is(err, core.ErrPasswordTooShort):
		SeeOther("/register").Error("Registration error: " + err.Error() + ".").Write(w)
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "Registration failed", log.FieldError, err, log.FieldOperation, log.OpRegister)
		SeeOther("/register").Error("Registration is temporarily unavailable.").Write(w)
		return
	}
	SeeOther("/").Success("Registration successful. Please login.").Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Sessions.Clear(w)
	SeeOther("/").Success("Logged out.").Write(w)
}
