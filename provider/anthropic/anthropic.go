// Package anthropic wraps the Anthropic SDK as a provider.Chat backend.
package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/novaguard/novaguard/provider"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5"

const defaultMaxTokens = 1024

// Client implements provider.Chat on the Anthropic Messages API.
type Client struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithModel sets the model for all requests.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) { c.maxTokens = int64(n) }
}

// New creates a client with the given API key.
func New(apiKey string, opts ...ClientOption) *Client {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	c := &Client{
		client:    &client,
		model:     DefaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chat sends the conversation and returns the reply text.
func (c *Client) Chat(ctx context.Context, messages []provider.Message) (string, error) {
	var msgs []anthropic.MessageParam
	var system []anthropic.TextBlockParam

	for _, msg := range messages {
		// The API rejects empty text blocks.
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case provider.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case provider.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = system
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	content := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	return content, nil
}
