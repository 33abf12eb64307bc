package summarize

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type openaiClient struct {
	client *openai.Client
	model  string
}

func newOpenAIClient(apiKey string) *openaiClient {
	return &openaiClient{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4oMini,
	}
}

func (o *openaiClient) name() string { return "openai" }

func (o *openaiClient) annotate(ctx context.Context, title, content, category string) (*Annotation, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0,
		MaxTokens:   1000,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(title, content, category),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	return parseAnnotation(resp.Choices[0].Message.Content)
}
