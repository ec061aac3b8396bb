package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/patrickmn/go-cache"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/persona"
	"github.com/pawan-ai/pawan/pkg/repository"
	"github.com/pawan-ai/pawan/pkg/usecase/conversation"
)

const sessionCookieName = "pawan_session"

var errInvalidSession = goerr.New("invalid session token")

// sessionClaims is the payload of the session cookie. The JWT ID is the key
// of the session in the registry.
type sessionClaims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (t *tokenIssuer) issue(user *model.User, key string) (string, error) {
	now := t.now()
	claims := &sessionClaims{
		UID:   string(user.ID),
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        key,
			Subject:   string(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign session token")
	}
	return signed, nil
}

func (t *tokenIssuer) parse(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, goerr.Wrap(errInvalidSession, err.Error())
	}
	if !parsed.Valid || claims.UID == "" || claims.ID == "" {
		return nil, goerr.Wrap(errInvalidSession, "incomplete claims")
	}
	return claims, nil
}

type flash struct {
	Level   string
	Message string
}

// session is the server-side state of one logged-in browser
type session struct {
	key       string
	user      *model.User
	workspace *conversation.Workspace

	mu      sync.Mutex
	flashes []flash
	mode    persona.ModeID
}

func (s *session) setMode(mode persona.ModeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// currentMode returns the last used mode, or the catalog default
func (s *session) currentMode(catalog *persona.Catalog) persona.ModeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == "" {
		return catalog.Default().ID
	}
	return s.mode
}

func (s *session) addFlash(level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes = append(s.flashes, flash{Level: level, Message: message})
}

// popFlashes returns pending messages and forgets them
func (s *session) popFlashes() []flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	flashes := s.flashes
	s.flashes = nil
	return flashes
}

// registry maps session keys to sessions. Entries expire after the session
// TTL of inactivity.
type registry struct {
	cache *cache.Cache
	repo  repository.Repository
}

func newRegistry(repo repository.Repository, ttl time.Duration) *registry {
	return &registry{
		cache: cache.New(ttl, 10*time.Minute),
		repo:  repo,
	}
}

func (r *registry) create(user *model.User) *session {
	return r.restore(uuid.NewString(), user)
}

// restore registers a session under an existing key, e.g. after the
// registry lost it on restart while the cookie is still valid.
func (r *registry) restore(key string, user *model.User) *session {
	sess := &session{
		key:       key,
		user:      user,
		workspace: conversation.New(r.repo),
	}
	r.cache.Set(key, sess, cache.DefaultExpiration)
	return sess
}

func (r *registry) get(key string) (*session, bool) {
	x, found := r.cache.Get(key)
	if !found {
		return nil, false
	}
	sess := x.(*session)
	r.cache.Set(key, sess, cache.DefaultExpiration)
	return sess, true
}

func (r *registry) delete(key string) {
	r.cache.Delete(key)
}

type sessionKey struct{}

func withSession(ctx context.Context, sess *session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

func sessionFrom(ctx context.Context) *session {
	sess, _ := ctx.Value(sessionKey{}).(*session)
	return sess
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokens.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
