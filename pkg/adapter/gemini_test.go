package adapter_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/pawan-ai/pawan/pkg/adapter"
	"google.golang.org/genai"
)

func TestGeminiRequiresBackend(t *testing.T) {
	_, err := adapter.NewGemini(context.Background(), adapter.GeminiBackend{Project: "only-project"})
	gt.Error(t, err)
}

func TestGenerateStream(t *testing.T) {
	backend := adapter.GeminiBackend{
		APIKey:   os.Getenv("TEST_GEMINI_API_KEY"),
		Project:  os.Getenv("TEST_GEMINI_PROJECT"),
		Location: "us-central1",
	}
	if backend.APIKey == "" && backend.Project == "" {
		t.Skip("TEST_GEMINI_API_KEY or TEST_GEMINI_PROJECT is not set")
	}

	ctx := context.Background()
	client, err := adapter.NewGemini(ctx, backend)
	gt.NoError(t, err)

	contents := []*genai.Content{
		genai.NewContentFromText("Hello, what is the capital of France?", genai.RoleUser),
	}

	var b strings.Builder
	chunks := 0
	for resp, err := range client.GenerateStream(ctx, contents, nil) {
		gt.NoError(t, err)
		chunks++
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			b.WriteString(part.Text)
		}
	}

	gt.True(t, chunks > 0)
	gt.S(t, b.String()).Contains("Paris")
	t.Log("response:", b.String())
}
