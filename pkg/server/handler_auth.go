package server

import (
	"errors"
	"net/http"

	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/utils/logging"
)

// authReason extracts the user facing reason of an authentication failure
func authReason(err error) string {
	var authErr *model.AuthError
	if errors.As(err, &authErr) && authErr.Reason != "" {
		return authErr.Reason
	}
	return "Unknown error"
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := pageHome{}

	if sess := sessionFrom(ctx); sess != nil {
		data.User = sess.user
		data.Flashes = sess.popFlashes()
		data.IsAdmin = s.admin.Authorize(ctx, sess.user) == nil
	}

	s.render(w, r, http.StatusOK, pageHomeName, data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := r.PostFormValue("email")

	user, err := s.account.Login(ctx, email, r.PostFormValue("password"))
	if err != nil {
		logging.From(ctx).Info("login rejected", "error", err)

		data := pageHome{Email: email}
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, model.ErrMissingCredentials):
			status = http.StatusBadRequest
			data.Flashes = []flash{{Level: "warning", Message: authReason(err)}}
		case errors.Is(err, model.ErrInvalidCredentials):
			data.Errors = []string{"Login failed: " + authReason(err)}
		default:
			status = http.StatusBadGateway
			data.Errors = []string{authReason(err)}
		}
		s.render(w, r, status, pageHomeName, data)
		return
	}

	if prev := sessionFrom(ctx); prev != nil {
		s.sessions.delete(prev.key)
	}

	sess := s.sessions.create(user)
	token, err := s.tokens.issue(user, sess.key)
	if err != nil {
		s.sessions.delete(sess.key)
		logging.From(ctx).Error("failed to issue session token", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.setSessionCookie(w, token)
	sess.addFlash("success", "Login successful!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	_, err := s.account.Register(ctx, r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		logging.From(ctx).Info("registration rejected", "error", err)

		data := pageHome{}
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, model.ErrMissingCredentials):
			data.Flashes = []flash{{Level: "warning", Message: authReason(err)}}
		case errors.Is(err, model.ErrEmailExists):
			status = http.StatusConflict
			data.Errors = []string{"Registration failed: " + authReason(err)}
		case errors.Is(err, model.ErrWeakPassword):
			data.Errors = []string{"Registration failed: " + authReason(err)}
		default:
			status = http.StatusBadGateway
			data.Errors = []string{"Registration failed: " + authReason(err)}
		}
		s.render(w, r, status, pageHomeName, data)
		return
	}

	s.render(w, r, http.StatusOK, pageHomeName, pageHome{
		Flashes: []flash{{Level: "success", Message: "Successfully registered! Please log in."}},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := sessionFrom(r.Context()); sess != nil {
		s.sessions.delete(sess.key)
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
