package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/calebdws/inkwell/internal/store"
)

type FeedHandler struct {
	postStore *store.PostStore
	userStore *store.UserStore
	logger    *slog.Logger
}

func NewFeedHandler(ps *store.PostStore, us *store.UserStore, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{postStore: ps, userStore: us, logger: logger}
}

// Home renders the global feed, newest first, five posts per page.
func (h *FeedHandler) Home(w http.ResponseWriter, r *http.Request) {
	page := pageParam(r)

	posts, err := h.postStore.ListPage(page)
	if err != nil {
		h.logger.Error("list posts", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	total, err := h.postStore.CountAll()
	if err != nil {
		h.logger.Error("count posts", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	data := map[string]any{"Posts": posts}
	addPagination(data, page, total)
	render(w, r, "home.html", data)
}

// UserPosts renders one author's posts; unknown usernames are a 404.
func (h *FeedHandler) UserPosts(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	author, err := h.userStore.GetByUsername(username)
	if err != nil {
		h.logger.Error("get author", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if author == nil {
		http.NotFound(w, r)
		return
	}

	page := pageParam(r)
	posts, err := h.postStore.ListByUserPage(author.ID, page)
	if err != nil {
		h.logger.Error("list posts by user", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	total, err := h.postStore.CountByUser(author.ID)
	if err != nil {
		h.logger.Error("count posts by user", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	data := map[string]any{"Posts": posts, "Author": author}
	addPagination(data, page, total)
	render(w, r, "user_posts.html", data)
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func addPagination(data map[string]any, page, total int) {
	totalPages := (total + store.PerPage - 1) / store.PerPage
	data["Page"] = page
	data["TotalPages"] = totalPages
	data["HasPrev"] = page > 1
	data["HasNext"] = page < totalPages
	data["PrevPage"] = page - 1
	data["NextPage"] = page + 1
}
