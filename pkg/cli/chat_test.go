package cli

import (
	"bytes"
	"context"
	"iter"
	"testing"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/repository"
	"github.com/pawan-ai/pawan/pkg/usecase/chat"
	"github.com/pawan-ai/pawan/pkg/usecase/conversation"
	"google.golang.org/genai"
)

type echoGemini struct{}

func (echoGemini) GenerateStream(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		text := contents[0].Parts[0].Text
		yield(&genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: genai.NewContentFromText("echo: "+text, genai.RoleModel)}},
		}, nil)
	}
}

func newTestREPL(t *testing.T) (*chatREPL, *bytes.Buffer, *repository.Memory, *model.User) {
	t.Helper()
	repo := repository.NewMemory()
	user := &model.User{ID: model.UserID(uuid.NewString()), Email: "user@example.com"}
	ws := conversation.New(repo)
	gt.NoError(t, ws.Ensure(context.Background(), user))

	var buf bytes.Buffer
	return &chatREPL{
		w:    &buf,
		orch: chat.New(repo, echoGemini{}),
		ws:   ws,
		mode: "general",
	}, &buf, repo, user
}

func TestChatREPLConversation(t *testing.T) {
	ctx := context.Background()
	repl, out, repo, user := newTestREPL(t)

	quit, err := repl.handle(ctx, "Hello")
	gt.NoError(t, err)
	gt.False(t, quit)
	gt.S(t, out.String()).Contains("echo: Hello")

	_, err = repl.handle(ctx, "/new")
	gt.NoError(t, err)
	_, err = repl.handle(ctx, "Second topic")
	gt.NoError(t, err)

	convs, err := repo.ListConversations(ctx, user.ID)
	gt.NoError(t, err)
	gt.A(t, convs).Length(2)

	out.Reset()
	_, err = repl.handle(ctx, "/list")
	gt.NoError(t, err)
	gt.S(t, out.String()).Contains("* [0]")
	gt.S(t, out.String()).Contains("Second topic")
	gt.S(t, out.String()).Contains("[1]")

	out.Reset()
	_, err = repl.handle(ctx, "/select 1")
	gt.NoError(t, err)
	gt.S(t, out.String()).Contains("--- Hello ---")
	gt.S(t, out.String()).Contains("assistant: echo: Hello")

	_, err = repl.handle(ctx, "follow up")
	gt.NoError(t, err)
	gt.A(t, repl.ws.Active().Messages).Length(4)
}

func TestChatREPLCommands(t *testing.T) {
	ctx := context.Background()
	repl, out, _, _ := newTestREPL(t)

	_, err := repl.handle(ctx, "/select 3")
	gt.NoError(t, err)
	gt.S(t, out.String()).Contains("No conversation at index 3.")

	_, err = repl.handle(ctx, "/select x")
	gt.NoError(t, err)
	gt.S(t, out.String()).Contains("usage: /select N")

	_, err = repl.handle(ctx, "/mode pirate")
	gt.NoError(t, err)
	gt.S(t, out.String()).Contains(`Unknown mode "pirate"`)

	_, err = repl.handle(ctx, "/mode interview")
	gt.NoError(t, err)
	gt.Equal(t, string(repl.mode), "interview")

	out.Reset()
	_, err = repl.handle(ctx, "/modes")
	gt.NoError(t, err)
	gt.S(t, out.String()).Contains("* interview")

	out.Reset()
	_, err = repl.handle(ctx, "/list")
	gt.NoError(t, err)
	gt.S(t, out.String()).Contains("No saved conversations.")

	quit, err := repl.handle(ctx, "   ")
	gt.NoError(t, err)
	gt.False(t, quit)

	quit, err = repl.handle(ctx, "exit")
	gt.NoError(t, err)
	gt.True(t, quit)
}
