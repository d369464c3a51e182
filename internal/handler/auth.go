package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/calebdws/inkwell/internal/auth"
	"github.com/calebdws/inkwell/internal/flash"
	"github.com/calebdws/inkwell/internal/store"
)

const sessionCookieName = "inkwell_session"

type AuthHandler struct {
	userStore    *store.UserStore
	sessionStore *store.SessionStore
	logger       *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{userStore: us, sessionStore: ss, logger: logger}
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, "login.html", nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	user, err := h.userStore.GetByEmail(email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		render(w, r, "login.html", nil, flash.Error("Email does not exist"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		render(w, r, "login.html", nil, flash.Error("Incorrect password, try again"))
		return
	}

	// Lazy cleanup keeps the sessions table from growing unbounded.
	h.sessionStore.DeleteExpired()

	h.startSession(w, r, user.ID, "Logged in successfully")
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, "register.html", map[string]any{
		"Username":  "",
		"Email":     "",
		"FirstName": "",
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	firstName := strings.TrimSpace(r.FormValue("first_name"))
	password1 := r.FormValue("password1")
	password2 := r.FormValue("password2")

	data := map[string]any{
		"Username":  username,
		"Email":     email,
		"FirstName": firstName,
	}

	if msg := h.validateRegistration(username, email, password1, password2); msg != "" {
		render(w, r, "register.html", data, flash.Error(msg))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password1), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	user, err := h.userStore.Create(username, email, firstName, string(hash))
	if err != nil {
		if store.IsConstraintErr(err) {
			render(w, r, "register.html", data, flash.Error("Username or email already exists"))
			return
		}
		h.logger.Error("create user", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	h.startSession(w, r, user.ID, "Account created")
}

func (h *AuthHandler) validateRegistration(username, email, password1, password2 string) string {
	if existing, _ := h.userStore.GetByEmail(email); existing != nil {
		return "Email already exists"
	}
	if existing, _ := h.userStore.GetByUsername(username); existing != nil {
		return "Username already exists"
	}
	if len(username) < 3 {
		return "Username must be greater than 2 characters"
	}
	if len(email) < 4 {
		return "Email must be greater than 3 characters"
	}
	if password1 != password2 {
		return "Passwords don't match"
	}
	if len(password1) < 7 {
		return "Password must be at least 7 characters"
	}
	return ""
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, userID int64, msg string) {
	sess, err := h.sessionStore.Create(userID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	flash.Set(w, []flash.Message{flash.Success(msg)})
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if ac, ok := auth.FromContext(r.Context()); ok {
		if err := h.sessionStore.Delete(ac.SessionID); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
