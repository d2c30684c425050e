package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"bottega/internal/auth"
	"bottega/internal/core"
	"bottega/internal/log"
)

var pageNames = []string{
	"login.html",
	"register.html",
	"dashboard.html",
	"sales.html",
	"expenses.html",
	"calendar.html",
}

var templateFuncs = template.FuncMap{
	"money":    core.FormatAmount,
	"taskDate": taskDate,
	"taskTime": taskTime,
}

// loadPages parses every page together with the shared layout. Each page
// gets its own set so their "content" blocks do not collide.
func loadPages(fsys fs.FS) (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(fsys, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// view is the data every page template receives.
type view struct {
	Username string
	CSRF     string
	Flash    *Flash
	Data     any
}

type formTokenKey struct{}

// withFormToken hands the pre-session CSRF token to render.
func withFormToken(r *http.Request, token string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), formTokenKey{}, token))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, page string, data any) {
	s.renderFlash(w, r, page, data, nil)
}

// renderFlash executes page into a buffer first so a template error never
// leaves a half-written page. A nil flash shows the pending cookie message.
func (s *Server) renderFlash(w http.ResponseWriter, r *http.Request, page string, data any, flash *Flash) {
	t, ok := s.pages[page]
	if !ok {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", "template", page, log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	if flash == nil {
		flash = popFlash(w, r)
	}
	v := view{Flash: flash, Data: data}
	if sess := auth.FromContext(r.Context()); sess != nil {
		v.Username = sess.Username
		v.CSRF = sess.CSRF
	} else if token, ok := r.Context().Value(formTokenKey{}).(string); ok {
		v.CSRF = token
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			"template", page, log.FieldError, err, log.FieldOperation, log.OpRender)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
