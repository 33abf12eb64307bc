package summarize

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiModel = "gemini-1.5-flash"

type geminiClient struct {
	client *genai.Client
}

func newGeminiClient(apiKey string) (*geminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &geminiClient{client: client}, nil
}

func (g *geminiClient) name() string { return "gemini" }

func (g *geminiClient) annotate(ctx context.Context, title, content, category string) (*Annotation, error) {
	model := g.client.GenerativeModel(geminiModel)
	model.SetTemperature(0)

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(title, content, category)))
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	text := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	return parseAnnotation(text)
}

func (g *geminiClient) close() {
	if g.client != nil {
		g.client.Close()
	}
}
