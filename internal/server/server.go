package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/calebdws/inkwell/internal/handler"
	"github.com/calebdws/inkwell/internal/middleware"
	"github.com/calebdws/inkwell/internal/store"
)

type Server struct {
	db           *sql.DB
	authH        *handler.AuthHandler
	accountH     *handler.AccountHandler
	noteH        *handler.NoteHandler
	postH        *handler.PostHandler
	feedH        *handler.FeedHandler
	sessionStore *store.SessionStore
	userStore    *store.UserStore
	staticDir    string
	logger       *slog.Logger
}

func New(db *sql.DB, staticDir string, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	noteStore := store.NewNoteStore(db)
	postStore := store.NewPostStore(db)
	sessionStore := store.NewSessionStore(db)

	imageDir := filepath.Join(staticDir, "images")

	return &Server{
		db:           db,
		authH:        handler.NewAuthHandler(userStore, sessionStore, logger.With("component", "auth")),
		accountH:     handler.NewAccountHandler(userStore, imageDir, logger.With("component", "account")),
		noteH:        handler.NewNoteHandler(noteStore, logger.With("component", "note")),
		postH:        handler.NewPostHandler(postStore, logger.With("component", "post")),
		feedH:        handler.NewFeedHandler(postStore, userStore, logger.With("component", "feed")),
		sessionStore: sessionStore,
		userStore:    userStore,
		staticDir:    staticDir,
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /login", s.authH.LoginPage)
	outerMux.HandleFunc("POST /login", s.authH.Login)
	outerMux.HandleFunc("GET /register", s.authH.RegisterPage)
	outerMux.HandleFunc("POST /register", s.authH.Register)
	outerMux.HandleFunc("GET /post/{id}", s.postH.Show)
	outerMux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	// "GET /post/new" must sit on the outer mux: the literal pattern wins over
	// "GET /post/{id}", which would otherwise swallow it.
	outerMux.Handle("GET /post/new", authMiddleware(http.HandlerFunc(s.postH.NewForm)))

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
	return middleware.RequestID(logged)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /home", s.feedH.Home)
	mux.HandleFunc("POST /home", s.feedH.Home)

	mux.HandleFunc("GET /account", s.accountH.Page)
	mux.HandleFunc("POST /account", s.accountH.Update)

	mux.HandleFunc("GET /notes", s.noteH.Page)
	mux.HandleFunc("POST /notes", s.noteH.Create)
	mux.HandleFunc("POST /delete-note", s.noteH.DeleteJSON)

	mux.HandleFunc("POST /post/new", s.postH.Create)
	mux.HandleFunc("GET /post/{id}/update", s.postH.EditForm)
	mux.HandleFunc("POST /post/{id}/update", s.postH.Update)
	mux.HandleFunc("POST /post/{id}/delete", s.postH.Delete)

	mux.HandleFunc("GET /user/{username}", s.feedH.UserPosts)
}
