package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/calebdws/inkwell/internal/auth"
	"github.com/calebdws/inkwell/internal/flash"
	"github.com/calebdws/inkwell/internal/store"
)

type NoteHandler struct {
	noteStore *store.NoteStore
	logger    *slog.Logger
}

func NewNoteHandler(ns *store.NoteStore, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{noteStore: ns, logger: logger}
}

func (h *NoteHandler) renderPage(w http.ResponseWriter, r *http.Request, msgs ...flash.Message) {
	notes, err := h.noteStore.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list notes", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	render(w, r, "notes.html", map[string]any{"Notes": notes}, msgs...)
}

func (h *NoteHandler) Page(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r)
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	body := r.FormValue("note")
	if len(body) < 1 {
		h.renderPage(w, r, flash.Error("Note is too short"))
		return
	}

	if _, err := h.noteStore.Create(body, auth.UserID(r.Context())); err != nil {
		if store.IsConstraintErr(err) {
			h.renderPage(w, r, flash.Error("Note is too long"))
			return
		}
		h.logger.Error("create note", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	h.renderPage(w, r, flash.Success("Note added"))
}

// DeleteJSON deletes a note identified by a JSON body. The response is always
// an empty object; callers cannot tell a missing note from one they don't own.
func (h *NoteHandler) DeleteJSON(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NoteID int64 `json:"noteId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	note, err := h.noteStore.GetByID(req.NoteID)
	if err != nil {
		h.logger.Error("get note", "error", err)
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	if note != nil && note.UserID == auth.UserID(r.Context()) {
		if err := h.noteStore.Delete(note.ID); err != nil {
			h.logger.Error("delete note", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{})
}
