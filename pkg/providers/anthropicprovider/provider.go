// Package anthropicprovider produces image and text analyses through the
// Anthropic messages API.
package anthropicprovider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 1024

type Provider struct {
	client *anthropic.Client
	model  string
}

func NewProvider(apiKey, model string) *Provider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Provider{client: &client, model: model}
}

// NewProviderWithClient injects a preconfigured client; used by tests.
func NewProviderWithClient(client *anthropic.Client, model string) *Provider {
	return &Provider{client: client, model: model}
}

// Summarize sends prompt to the model and returns its reply. When imageURL
// is non-empty the request carries the image as a URL source block so the
// model can analyze the picture directly.
func (p *Provider) Summarize(ctx context.Context, prompt, imageURL string) (string, error) {
	blocks := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(prompt)}
	if imageURL != "" {
		blocks = append(blocks, anthropic.NewImageBlock(anthropic.URLImageSourceParam{
			URL: imageURL,
		}))
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: defaultMaxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	})
	if err != nil {
		return "", fmt.Errorf("claude API call: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	content := strings.TrimSpace(sb.String())
	if content == "" {
		return "", fmt.Errorf("claude API call: empty completion")
	}
	return content, nil
}
