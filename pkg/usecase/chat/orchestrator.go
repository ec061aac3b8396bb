package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pawan-ai/pawan/pkg/adapter"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/persona"
	"github.com/pawan-ai/pawan/pkg/repository"
	"github.com/pawan-ai/pawan/pkg/usecase/conversation"
	"github.com/pawan-ai/pawan/pkg/utils/logging"
	"google.golang.org/genai"
)

// Orchestrator runs one user/assistant turn: it appends the user message,
// streams the reply from the model and persists the conversation once.
type Orchestrator struct {
	repo     repository.Repository
	gemini   adapter.Gemini
	personas *persona.Catalog
	now      func() time.Time
}

type Option func(*Orchestrator)

func WithPersonas(catalog *persona.Catalog) Option {
	return func(o *Orchestrator) {
		o.personas = catalog
	}
}

// WithClock sets the clock used to allocate session IDs
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func New(repo repository.Repository, gemini adapter.Gemini, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		repo:     repo,
		gemini:   gemini,
		personas: persona.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Personas() *persona.Catalog {
	return o.personas
}

// Input is one message typed by the user
type Input struct {
	Mode    persona.ModeID
	Message string
}

type Result struct {
	Conversation *model.Conversation
	Reply        string
	// Started is true when the turn created a new conversation
	Started bool
	// GenerationErr is set when the reply is partial or empty. The turn is
	// stored anyway.
	GenerationErr error
}

// Send executes one turn on the active conversation of ws, or on a new one
// when nothing is selected. onChunk receives each text fragment as it
// arrives and may be nil.
func (o *Orchestrator) Send(ctx context.Context, ws *conversation.Workspace, input Input, onChunk func(string)) (*Result, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, goerr.Wrap(model.ErrEmptyMessage, "cannot send message")
	}

	mode, err := o.personas.Get(input.Mode)
	if err != nil {
		return nil, err
	}
	prompt, err := mode.Prompt(input.Message)
	if err != nil {
		return nil, err
	}

	ws.Lock()
	defer ws.Unlock()

	user := ws.User()
	if user == nil {
		return nil, goerr.New("workspace has no user")
	}

	conv := ws.Active()
	started := conv == nil
	if started {
		conv = model.NewConversation(input.Message, o.now())
		ws.Start(conv)
	}

	// conv is private to this turn. Readers of ws only see committed copies.
	conv.Append(model.RoleUser, input.Message)
	ws.Commit(conv)

	reply, genErr := o.generate(ctx, prompt, onChunk)
	conv.Append(model.RoleAssistant, reply)

	result := &Result{
		Conversation:  conv,
		Reply:         reply,
		Started:       started,
		GenerationErr: genErr,
	}

	logger := logging.From(ctx).With("uid", user.ID, "session_id", conv.SessionID)
	if genErr != nil {
		logger.Warn("reply generation failed", "error", genErr, "received", len(reply))
	}

	// The turn is persisted even when the client went away mid-stream
	err = o.repo.SaveConversation(context.WithoutCancel(ctx), user.ID, conv)
	ws.Commit(conv)
	if err != nil {
		return result, goerr.Wrap(err, "failed to save conversation",
			goerr.V("uid", user.ID),
			goerr.V("session_id", conv.SessionID),
		)
	}
	logger.Debug("turn saved", "mode", mode.ID, "messages", len(conv.Messages))

	return result, nil
}

func (o *Orchestrator) generate(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var reply strings.Builder
	for resp, err := range o.gemini.GenerateStream(ctx, contents, nil) {
		if err != nil {
			return reply.String(), goerr.Wrap(errors.Join(model.ErrGenerationFailure, err),
				"stream interrupted", goerr.V("received", reply.Len()))
		}

		text := responseText(resp)
		if text == "" {
			continue
		}
		reply.WriteString(text)
		if onChunk != nil {
			onChunk(text)
		}
	}

	if reply.Len() == 0 {
		return "", goerr.Wrap(model.ErrGenerationFailure, "model returned no text")
	}
	return reply.String(), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		text.WriteString(part.Text)
	}
	return text.String()
}
