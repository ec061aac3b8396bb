package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/persona"
	"github.com/pawan-ai/pawan/pkg/utils/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageHomeName   = "home"
	pageChatName   = "chat"
	pageAdminName  = "admin"
	pageNoticeName = "notice"
)

var templateFuncs = template.FuncMap{
	"createdAt": func(t time.Time) string {
		if t.IsZero() {
			return "Timestamp not available"
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"titleOr": func(title string) string {
		if title == "" {
			return "Untitled"
		}
		return title
	},
	"roleLabel": func(role model.Role) string {
		if role == "" {
			return "Unknown"
		}
		return strings.ToUpper(string(role[:1])) + string(role[1:])
	},
}

func loadPages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{pageHomeName, pageChatName, pageAdminName, pageNoticeName} {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse page template", goerr.V("page", name))
		}
		pages[name] = tmpl
	}
	return pages, nil
}

type pageHome struct {
	User    *model.User
	IsAdmin bool
	Email   string
	Flashes []flash
	Errors  []string
}

type pageChat struct {
	User          *model.User
	Modes         []*persona.Mode
	Mode          persona.ModeID
	Conversations []*model.Conversation
	ActiveIndex   int
	Active        *model.Conversation
	Flashes       []flash
	Errors        []string
}

type pageAdmin struct {
	User          *model.User
	Users         []*model.User
	Selected      *model.User
	Conversations []*model.Conversation
	Errors        []string
}

type pageNotice struct {
	Title    string
	Errors   []string
	Warnings []string
}

// render executes the page into a buffer first so a template failure can
// still produce a 500 instead of a truncated page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		logging.From(r.Context()).Error("failed to render page", "page", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderNotice(w http.ResponseWriter, r *http.Request, status int, notice pageNotice) {
	s.render(w, r, status, pageNoticeName, notice)
}
