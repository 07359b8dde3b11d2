package handler

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"
)

//go:embed pages/*.html
var pageFS embed.FS

var pages = template.Must(template.New("pages").Funcs(template.FuncMap{
	"year": func() int { return time.Now().Year() },
}).ParseFS(pageFS, "pages/*.html"))

type errorPage struct {
	Status    int
	Title     string
	Message   string
	RequestID string
}

// RenderError writes the HTML error page.
func RenderError(w http.ResponseWriter, status int, message, requestID string) {
	renderPage(w, status, "error.html", errorPage{
		Status:    status,
		Title:     http.StatusText(status),
		Message:   message,
		RequestID: requestID,
	})
}

// RenderRecovery writes the last-resort page shown after a panic. It offers
// a single Reload action.
func RenderRecovery(w http.ResponseWriter, requestID string) {
	renderPage(w, http.StatusInternalServerError, "recovery.html", errorPage{
		Status:    http.StatusInternalServerError,
		Title:     "Something went wrong",
		Message:   "An unexpected error interrupted this page.",
		RequestID: requestID,
	})
}

func renderPage(w http.ResponseWriter, status int, name string, data errorPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("render error", "template", name, "error", err)
	}
}
