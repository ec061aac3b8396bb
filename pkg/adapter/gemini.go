package adapter

import (
	"context"
	"iter"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

type Gemini interface {
	// GenerateStream yields response chunks in emission order. Iteration stops
	// after the first error.
	GenerateStream(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// GeminiBackend selects how the client authenticates. APIKey takes
// precedence; otherwise Vertex AI is used with Project and Location.
type GeminiBackend struct {
	APIKey   string
	Project  string
	Location string
}

type GeminiClient struct {
	client          *genai.Client
	generativeModel string
}

type GeminiOption func(*GeminiClient)

func WithGenerativeModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.generativeModel = model
	}
}

func NewGemini(ctx context.Context, backend GeminiBackend, opts ...GeminiOption) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{}
	switch {
	case backend.APIKey != "":
		cfg.APIKey = backend.APIKey
		cfg.Backend = genai.BackendGeminiAPI
	case backend.Project != "" && backend.Location != "":
		cfg.Project = backend.Project
		cfg.Location = backend.Location
		cfg.Backend = genai.BackendVertexAI
	default:
		return nil, goerr.New("either gemini API key or project and location are required")
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiClient{
		client:          client,
		generativeModel: "gemini-2.5-flash",
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

func (g *GeminiClient) GenerateStream(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.generativeModel, contents, config) {
			if err != nil {
				yield(nil, goerr.Wrap(err, "failed to generate content stream", goerr.V("model", g.generativeModel)))
				return
			}
			if !yield(resp, nil) {
				return
			}
		}
	}
}
