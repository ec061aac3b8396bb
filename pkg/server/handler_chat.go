package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/persona"
	"github.com/pawan-ai/pawan/pkg/usecase/chat"
	"github.com/pawan-ai/pawan/pkg/utils/logging"
)

const (
	msgHistoryUnavailable = "Failed to load your chat history. Please try again later."
	msgGenerationFailure  = "An error occurred. You might be making requests too quickly. Please wait a moment and try again."
	msgSaveFailure        = "Your message could not be saved. Please try again."
)

func (s *Server) handleChatPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(ctx)
	ws := sess.workspace

	data := pageChat{
		User:    sess.user,
		Modes:   s.chat.Personas().Modes(),
		Mode:    sess.currentMode(s.chat.Personas()),
		Flashes: sess.popFlashes(),
	}

	if err := ws.Ensure(ctx, sess.user); err != nil {
		logging.From(ctx).Error("failed to load conversations", "error", err)
		data.Errors = append(data.Errors, msgHistoryUnavailable)
	}

	data.Conversations = ws.Conversations()
	data.ActiveIndex = ws.ActiveIndex()
	data.Active = ws.Active()

	s.render(w, r, http.StatusOK, pageChatName, data)
}

func (s *Server) handleNewChat(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r.Context()).workspace.SelectNew()
	http.Redirect(w, r, "/chat", http.StatusSeeOther)
}

func (s *Server) handleSelectChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(ctx)

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid conversation index", http.StatusBadRequest)
		return
	}

	if err := sess.workspace.Ensure(ctx, sess.user); err != nil {
		logging.From(ctx).Error("failed to load conversations", "error", err)
		sess.addFlash("error", msgHistoryUnavailable)
	} else if err := sess.workspace.SelectExisting(index); err != nil {
		logging.From(ctx).Warn("invalid conversation selection", "error", err)
		sess.addFlash("error", "That conversation is no longer available.")
	}

	http.Redirect(w, r, "/chat", http.StatusSeeOther)
}

type chunkEvent struct {
	Text string `json:"text"`
}

type messageEvent struct {
	Message string `json:"message"`
}

type doneEvent struct {
	SessionID model.SessionID `json:"session_id"`
	Title     string          `json:"title"`
	Started   bool            `json:"started"`
}

// handleSendMessage runs one turn and streams the reply as server-sent
// events: chunk* then optional warning/error then done.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(ctx)
	logger := logging.From(ctx)

	message := r.PostFormValue("message")
	if strings.TrimSpace(message) == "" {
		http.Error(w, "Message is empty", http.StatusBadRequest)
		return
	}

	mode := persona.ModeID(r.PostFormValue("mode"))
	if _, err := s.chat.Personas().Get(mode); err != nil {
		http.Error(w, "Unknown chatbot mode", http.StatusBadRequest)
		return
	}
	sess.setMode(mode)

	if err := sess.workspace.Ensure(ctx, sess.user); err != nil {
		logger.Error("failed to load conversations", "error", err)
		http.Error(w, msgHistoryUnavailable, http.StatusServiceUnavailable)
		return
	}

	events, err := newEventWriter(w)
	if err != nil {
		logger.Error("failed to start event stream", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	result, err := s.chat.Send(ctx, sess.workspace, chat.Input{Mode: mode, Message: message}, func(text string) {
		if err := events.send("chunk", chunkEvent{Text: text}); err != nil {
			logger.Debug("failed to deliver chunk", "error", err)
		}
	})

	if result != nil && result.GenerationErr != nil {
		_ = events.send("warning", messageEvent{Message: msgGenerationFailure})
	}

	if err != nil {
		logger.Error("turn failed", "error", err)
		msg := msgSaveFailure
		if !errors.Is(err, model.ErrStoreUnavailable) {
			msg = "Failed to send the message."
		}
		_ = events.send("error", messageEvent{Message: msg})
	}

	if result != nil {
		_ = events.send("done", doneEvent{
			SessionID: result.Conversation.SessionID,
			Title:     result.Conversation.Title,
			Started:   result.Started,
		})
	}
}
