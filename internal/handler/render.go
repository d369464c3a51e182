package handler

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/calebdws/inkwell/internal/auth"
	"github.com/calebdws/inkwell/internal/flash"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// render executes the named page template. Queued flash messages are drained
// into the page, followed by any messages produced by the current request.
func render(w http.ResponseWriter, r *http.Request, name string, data map[string]any, msgs ...flash.Message) {
	if data == nil {
		data = map[string]any{}
	}
	data["Flashes"] = append(flash.Pop(w, r), msgs...)
	if _, ok := data["Title"]; !ok {
		data["Title"] = "Inkwell"
	}
	if _, ok := data["User"]; !ok {
		if ac, ok := auth.FromContext(r.Context()); ok {
			data["User"] = ac
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("render template", "template", name, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
