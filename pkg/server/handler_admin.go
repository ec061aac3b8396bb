package server

import (
	"errors"
	"net/http"

	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/utils/logging"
)

const (
	msgAdminFetchFailure = "An error occurred while fetching data. Please try again later."
	msgAdminUnknownUser  = "No user exists with that ID."
)

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := sessionFrom(ctx).user

	users, err := s.admin.ListUsers(ctx, actor)
	if errors.Is(err, model.ErrAccessDenied) {
		logging.From(ctx).Warn("admin page denied", "email", actor.Email)
		s.renderNotice(w, r, http.StatusForbidden, pageNotice{
			Title:    "Access denied",
			Errors:   []string{"You do not have permission to view this page."},
			Warnings: []string{"Please log in with your admin account."},
		})
		return
	}

	data := pageAdmin{User: actor}
	if err != nil {
		logging.From(ctx).Error("failed to list users", "error", err)
		data.Errors = []string{msgAdminFetchFailure}
		s.render(w, r, http.StatusBadGateway, pageAdminName, data)
		return
	}
	data.Users = users

	uid := model.UserID(r.URL.Query().Get("uid"))
	if uid == "" && len(users) > 0 {
		uid = users[0].ID
	}

	if uid != "" {
		selected, convs, err := s.admin.UserConversations(ctx, actor, uid)
		switch {
		case errors.Is(err, model.ErrUserNotFound):
			logging.From(ctx).Warn("admin requested unknown user", "uid", uid)
			data.Errors = []string{msgAdminUnknownUser}
			s.render(w, r, http.StatusNotFound, pageAdminName, data)
			return
		case err != nil:
			logging.From(ctx).Error("failed to read conversations", "uid", uid, "error", err)
			data.Errors = []string{msgAdminFetchFailure}
			s.render(w, r, http.StatusBadGateway, pageAdminName, data)
			return
		}
		data.Selected = selected
		data.Conversations = convs
	}

	s.render(w, r, http.StatusOK, pageAdminName, data)
}
