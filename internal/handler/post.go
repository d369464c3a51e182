package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/calebdws/inkwell/internal/auth"
	"github.com/calebdws/inkwell/internal/flash"
	"github.com/calebdws/inkwell/internal/model"
	"github.com/calebdws/inkwell/internal/store"
)

type PostHandler struct {
	postStore *store.PostStore
	logger    *slog.Logger
}

func NewPostHandler(ps *store.PostStore, logger *slog.Logger) *PostHandler {
	return &PostHandler{postStore: ps, logger: logger}
}

func (h *PostHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	render(w, r, "new_post.html", postFormData("New Post", "", ""))
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	title := r.FormValue("title")
	content := r.FormValue("content")

	data := postFormData("New Post", title, content)
	if msg := validatePost(title, content); msg != "" {
		render(w, r, "new_post.html", data, flash.Error(msg))
		return
	}

	if _, err := h.postStore.Create(title, content, auth.UserID(r.Context())); err != nil {
		if store.IsConstraintErr(err) {
			render(w, r, "new_post.html", data, flash.Error("Title is too long"))
			return
		}
		h.logger.Error("create post", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	flash.Set(w, []flash.Message{flash.Success("Your post has been created")})
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// Show is the one publicly viewable post route.
func (h *PostHandler) Show(w http.ResponseWriter, r *http.Request) {
	post := h.lookup(w, r)
	if post == nil {
		return
	}
	render(w, r, "post.html", map[string]any{"Post": post, "Title": post.Title})
}

func (h *PostHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	post := h.requireOwned(w, r)
	if post == nil {
		return
	}
	render(w, r, "new_post.html", postFormData("Update Post", post.Title, post.Content))
}

func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	post := h.requireOwned(w, r)
	if post == nil {
		return
	}

	title := r.FormValue("title")
	content := r.FormValue("content")

	data := postFormData("Update Post", title, content)
	if msg := validatePost(title, content); msg != "" {
		render(w, r, "new_post.html", data, flash.Error(msg))
		return
	}

	if _, err := h.postStore.Update(post.ID, title, content); err != nil {
		if store.IsConstraintErr(err) {
			render(w, r, "new_post.html", data, flash.Error("Title is too long"))
			return
		}
		h.logger.Error("update post", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	flash.Set(w, []flash.Message{flash.Success("Your post has been updated")})
	http.Redirect(w, r, fmt.Sprintf("/post/%d", post.ID), http.StatusSeeOther)
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	post := h.requireOwned(w, r)
	if post == nil {
		return
	}

	if err := h.postStore.Delete(post.ID); err != nil {
		h.logger.Error("delete post", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	flash.Set(w, []flash.Message{flash.Success("Your post has been deleted")})
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func postFormData(legend, title, content string) map[string]any {
	return map[string]any{"Legend": legend, "PostTitle": title, "PostContent": content}
}

func validatePost(title, content string) string {
	if len(title) < 1 {
		return "Title is too short"
	}
	if len(content) < 1 {
		return "Content is too short"
	}
	return ""
}

// lookup resolves the {id} path parameter, answering 404 when it doesn't
// reference a post. A nil return means the response is already written.
func (h *PostHandler) lookup(w http.ResponseWriter, r *http.Request) *model.Post {
	id, err := parseIDParam(r)
	if err != nil {
		http.NotFound(w, r)
		return nil
	}
	post, err := h.postStore.GetByID(id)
	if err != nil {
		h.logger.Error("get post", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return nil
	}
	if post == nil {
		http.NotFound(w, r)
		return nil
	}
	return post
}

// requireOwned additionally enforces that the caller authored the post.
func (h *PostHandler) requireOwned(w http.ResponseWriter, r *http.Request) *model.Post {
	post := h.lookup(w, r)
	if post == nil {
		return nil
	}
	if post.UserID != auth.UserID(r.Context()) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil
	}
	return post
}
