package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/calebdws/inkwell/internal/auth"
	"github.com/calebdws/inkwell/internal/avatar"
	"github.com/calebdws/inkwell/internal/flash"
	"github.com/calebdws/inkwell/internal/model"
	"github.com/calebdws/inkwell/internal/store"
)

type AccountHandler struct {
	userStore *store.UserStore
	imageDir  string
	logger    *slog.Logger
}

func NewAccountHandler(us *store.UserStore, imageDir string, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{userStore: us, imageDir: imageDir, logger: logger}
}

func (h *AccountHandler) currentUser(w http.ResponseWriter, r *http.Request) *model.User {
	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil || user == nil {
		h.logger.Error("load account user", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return nil
	}
	return user
}

func accountData(user *model.User) map[string]any {
	return map[string]any{
		"Account":   user,
		"AvatarURL": "/static/images/" + user.AvatarFile,
	}
}

func (h *AccountHandler) Page(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	render(w, r, "account.html", accountData(user))
}

// Update applies up to three independent changes: username, email, avatar.
// Each field validates on its own; rejection messages accumulate so several
// can show on one page. Accepted changes commit together in one statement.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		// Plain form posts (no file field) land here.
		r.ParseForm()
	}

	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	file, header, ferr := r.FormFile("picture")
	hasFile := ferr == nil
	if hasFile {
		defer file.Close()
	}

	if username == "" && email == "" && !hasFile {
		render(w, r, "account.html", accountData(user), flash.Error("Information has not been changed"))
		return
	}

	var msgs []flash.Message
	changed := false
	newUsername, newEmail, newAvatar := user.Username, user.Email, user.AvatarFile

	if username != "" && username != user.Username {
		existing, err := h.userStore.GetByUsername(username)
		if err != nil {
			h.logger.Error("username lookup", "error", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		switch {
		case existing != nil:
			msgs = append(msgs, flash.Error("Username already exists"))
		case len(username) < 3:
			msgs = append(msgs, flash.Error("Username must be greater than 2 characters"))
		default:
			newUsername = username
			changed = true
		}
	}

	if email != "" && email != user.Email {
		existing, err := h.userStore.GetByEmail(email)
		if err != nil {
			h.logger.Error("email lookup", "error", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		switch {
		case existing != nil:
			msgs = append(msgs, flash.Error("Email already exists"))
		case len(email) < 4:
			msgs = append(msgs, flash.Error("Email must be greater than 3 characters"))
		default:
			newEmail = email
			changed = true
		}
	}

	if hasFile {
		if !avatar.AllowedExt(header.Filename) {
			msgs = append(msgs, flash.Error("Picture must be .png, .jpg, or .jpeg"))
		} else if fn, err := avatar.Save(file, header.Filename, h.imageDir); err != nil {
			h.logger.Warn("save avatar", "error", err)
			msgs = append(msgs, flash.Error("Picture could not be read as an image"))
		} else {
			newAvatar = fn
			changed = true
		}
	}

	if !changed {
		render(w, r, "account.html", accountData(user), msgs...)
		return
	}

	if _, err := h.userStore.UpdateProfile(user.ID, newUsername, newEmail, newAvatar); err != nil {
		// Lost a uniqueness race between the check and the commit.
		if store.IsConstraintErr(err) {
			msgs = append(msgs, flash.Error("Username or email already exists"))
			render(w, r, "account.html", accountData(user), msgs...)
			return
		}
		h.logger.Error("update profile", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	msgs = append(msgs, flash.Success("Your account information has been updated"))
	flash.Set(w, msgs)
	http.Redirect(w, r, "/account", http.StatusSeeOther)
}
