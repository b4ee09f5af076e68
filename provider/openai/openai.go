// Package openai wraps the OpenAI SDK as a provider.Chat backend.
package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/novaguard/novaguard/provider"
)

// DefaultModel is used when no model is configured.
const DefaultModel = openai.ChatModelGPT4o

// Client implements provider.Chat on the Chat Completions API.
type Client struct {
	client *openai.Client
	model  string
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithModel sets the model for all requests.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// New creates a client with the given API key.
func New(apiKey string, opts ...ClientOption) *Client {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	c := &Client{
		client: &client,
		model:  DefaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chat sends the conversation and returns the reply text.
func (c *Client) Chat(ctx context.Context, messages []provider.Message) (string, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case provider.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(msg.Content))
		case provider.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(msg.Content))
		default:
			msgs = append(msgs, openai.UserMessage(msg.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
