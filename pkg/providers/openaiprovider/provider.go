// Package openaiprovider produces image and text analyses through the
// OpenAI chat completions API.
package openaiprovider

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type Provider struct {
	client openai.Client
	model  string
}

func NewProvider(apiKey, model string) *Provider {
	return &Provider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// NewProviderWithOptions builds a provider with extra request options, such
// as option.WithBaseURL for tests.
func NewProviderWithOptions(model string, opts ...option.RequestOption) *Provider {
	return &Provider{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Summarize sends prompt to the model and returns its reply. When imageURL
// is non-empty the request carries the image alongside the prompt so the
// model can analyze the picture directly.
func (p *Provider) Summarize(ctx context.Context, prompt, imageURL string) (string, error) {
	var message openai.ChatCompletionMessageParamUnion
	if imageURL != "" {
		parts := []openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: imageURL,
			}),
		}
		message = openai.UserMessage(parts)
	} else {
		message = openai.UserMessage(prompt)
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{message},
	})
	if err != nil {
		return "", fmt.Errorf("openai API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai API call: empty response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("openai API call: empty completion")
	}
	return content, nil
}
