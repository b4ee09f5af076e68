// Package provider abstracts the chat-completion surface the clinical
// pipeline needs. Concrete backends wrap the official vendor SDKs; the
// pipeline only ever sees this interface and receives it as an explicit
// dependency.
package provider

import "context"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// System creates a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User creates a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Chat is a synchronous chat-completion backend.
type Chat interface {
	// Chat sends the conversation and returns the assistant's reply text.
	Chat(ctx context.Context, messages []Message) (string, error)
}

// ChatFunc adapts a function to the Chat interface, mainly for tests.
type ChatFunc func(ctx context.Context, messages []Message) (string, error)

// Chat calls f.
func (f ChatFunc) Chat(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}
