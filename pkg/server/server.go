package server

import (
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pawan-ai/pawan/pkg/repository"
	"github.com/pawan-ai/pawan/pkg/usecase/account"
	"github.com/pawan-ai/pawan/pkg/usecase/admin"
	"github.com/pawan-ai/pawan/pkg/usecase/chat"
)

// DefaultSessionTTL is how long a login lasts without activity
const DefaultSessionTTL = 24 * time.Hour

// Server serves the login, chatbot and admin pages
type Server struct {
	router *chi.Mux

	account *account.UseCase
	chat    *chat.Orchestrator
	admin   *admin.UseCase

	sessions     *registry
	tokens       *tokenIssuer
	pages        map[string]*template.Template
	secureCookie bool
}

type Option func(*Server)

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.tokens.ttl = ttl
	}
}

// WithSecureCookie marks the session cookie HTTPS only
func WithSecureCookie(secure bool) Option {
	return func(s *Server) {
		s.secureCookie = secure
	}
}

func withClock(now func() time.Time) Option {
	return func(s *Server) {
		s.tokens.now = now
	}
}

func New(
	repo repository.Repository,
	accountUC *account.UseCase,
	chatUC *chat.Orchestrator,
	adminUC *admin.UseCase,
	secret []byte,
	opts ...Option,
) (*Server, error) {
	if len(secret) == 0 {
		return nil, goerr.New("session secret is required")
	}

	pages, err := loadPages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		account: accountUC,
		chat:    chatUC,
		admin:   adminUC,
		tokens: &tokenIssuer{
			secret: secret,
			ttl:    DefaultSessionTTL,
			now:    time.Now,
		},
		pages: pages,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = newRegistry(repo, s.tokens.ttl)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(s.loadSession)

	r.Get("/healthz", s.handleHealth)
	r.Get("/", s.handleHome)
	r.Post("/login", s.handleLogin)
	r.Post("/register", s.handleRegister)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireLogin)

		r.Get("/chat", s.handleChatPage)
		r.Post("/chat/new", s.handleNewChat)
		r.Post("/chat/select/{index}", s.handleSelectChat)
		r.Post("/chat/messages", s.handleSendMessage)
		r.Get("/admin", s.handleAdmin)
	})

	s.router = r
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
