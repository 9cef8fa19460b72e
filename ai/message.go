// Copyright (c) Microsoft. All rights reserved.

package ai

import "context"

// Role identifies the author of a [ChatMessage].
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ChatMessage is a message produced by a planner, typically carried by a [SayCommand].
type ChatMessage struct {
	Role    Role            `json:"role"`
	Content string          `json:"content"`
	Name    string          `json:"name,omitempty"`
	Context *MessageContext `json:"context,omitempty"`
}

// MessageContext holds the grounding information attached to a message.
type MessageContext struct {
	Intent    string     `json:"intent,omitempty"`
	Citations []Citation `json:"citations,omitempty"`
}

// Citation references a source used to produce part of a message.
type Citation struct {
	Content  string `json:"content"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	FilePath string `json:"filepath,omitempty"`
}

// NewAssistantMessage creates an assistant-role [ChatMessage] from a text string.
func NewAssistantMessage(text string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: text}
}

// Turn is the inbound side of a conversational turn.
type Turn struct {
	Text           string       `json:"text"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	ChannelID      string       `json:"channelId"`
	ConversationID string       `json:"conversationId"`
	UserID         string       `json:"userId,omitempty"`
	BotID          string       `json:"botId,omitempty"`
}

// Attachment is a file or card attached to an inbound or outbound message.
type Attachment struct {
	ContentType string `json:"contentType"`
	ContentURL  string `json:"contentUrl,omitempty"`
	Name        string `json:"name,omitempty"`
	Content     any    `json:"content,omitempty"`
}

// OutgoingMessage is the content sent to, or updated on, the channel.
type OutgoingMessage struct {
	Text                string           `json:"text,omitempty"`
	Attachments         []Attachment     `json:"attachments,omitempty"`
	Citations           []ClientCitation `json:"citations,omitempty"`
	FeedbackLoopEnabled bool             `json:"feedbackLoopEnabled,omitempty"`
}

// TurnContext is the channel collaborator for a single turn.
type TurnContext interface {
	// Turn returns the inbound turn being processed.
	Turn() Turn

	// SendMessage sends a new message and returns its channel-assigned id.
	SendMessage(ctx context.Context, msg *OutgoingMessage) (string, error)

	// UpdateMessage replaces the content of a previously sent message.
	UpdateMessage(ctx context.Context, id string, msg *OutgoingMessage) error
}
