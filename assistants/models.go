// Copyright (c) Microsoft. All rights reserved.

package assistants

import "encoding/json"

// RunStatus is the lifecycle status of a [Run].
type RunStatus string

const (
	StatusQueued         RunStatus = "queued"
	StatusInProgress     RunStatus = "in_progress"
	StatusRequiresAction RunStatus = "requires_action"
	StatusCancelling     RunStatus = "cancelling"
	StatusCancelled      RunStatus = "cancelled"
	StatusFailed         RunStatus = "failed"
	StatusCompleted      RunStatus = "completed"
	StatusIncomplete     RunStatus = "incomplete"
	StatusExpired        RunStatus = "expired"
)

// IsTerminal reports whether the run can no longer change status.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case StatusCancelled, StatusFailed, StatusCompleted, StatusIncomplete, StatusExpired:
		return true
	default:
		return false
	}
}

// Thread is a vendor conversation thread.
type Thread struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// Run is one execution of an assistant against a thread.
type Run struct {
	ID             string          `json:"id"`
	ThreadID       string          `json:"thread_id"`
	AssistantID    string          `json:"assistant_id,omitempty"`
	Status         RunStatus       `json:"status"`
	Model          string          `json:"model,omitempty"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
	LastError      *RunError       `json:"last_error,omitempty"`
	CreatedAt      int64           `json:"created_at,omitempty"`
}

// ToolCalls returns the tool calls the run is waiting on, if any.
func (r *Run) ToolCalls() []ToolCall {
	if r == nil || r.RequiredAction == nil {
		return nil
	}
	return r.RequiredAction.SubmitToolOutputs.ToolCalls
}

// RequiredAction describes what a run in [StatusRequiresAction] waits for.
type RequiredAction struct {
	Type              string            `json:"type"`
	SubmitToolOutputs SubmitToolOutputs `json:"submit_tool_outputs"`
}

// SubmitToolOutputs lists the tool calls whose outputs must be submitted.
type SubmitToolOutputs struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the function and carries its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// RunError is the vendor error reported by a failed run.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Message is a message on a thread.
type Message struct {
	ID        string           `json:"id"`
	ThreadID  string           `json:"thread_id,omitempty"`
	Role      string           `json:"role"`
	Content   []MessageContent `json:"content"`
	RunID     string           `json:"run_id,omitempty"`
	CreatedAt int64            `json:"created_at,omitempty"`
}

// MessageContent is one part of a [Message].
type MessageContent struct {
	Type      string       `json:"type"`
	Text      *TextContent `json:"text,omitempty"`
	ImageFile *ImageFile   `json:"image_file,omitempty"`
}

// TextContent is the text of a message part and its annotations.
type TextContent struct {
	Value       string           `json:"value"`
	Annotations []TextAnnotation `json:"annotations,omitempty"`
}

// Annotation types.
const (
	AnnotationFileCitation = "file_citation"
	AnnotationFilePath     = "file_path"
)

// TextAnnotation marks a span of text that cites an input file or links
// to a generated file.
type TextAnnotation struct {
	Type         string   `json:"type"`
	Text         string   `json:"text"`
	StartIndex   int      `json:"start_index"`
	EndIndex     int      `json:"end_index"`
	FileCitation *FileRef `json:"file_citation,omitempty"`
	FilePath     *FileRef `json:"file_path,omitempty"`
}

// FileID returns the id of the referenced file.
func (a TextAnnotation) FileID() string {
	switch {
	case a.FileCitation != nil:
		return a.FileCitation.FileID
	case a.FilePath != nil:
		return a.FilePath.FileID
	default:
		return ""
	}
}

// FileRef references a file by id.
type FileRef struct {
	FileID string `json:"file_id"`
	Quote  string `json:"quote,omitempty"`
}

// ImageFile references an image file by id.
type ImageFile struct {
	FileID string `json:"file_id"`
}

// File is file metadata.
type File struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Bytes     int64  `json:"bytes,omitempty"`
	Purpose   string `json:"purpose,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// ToolOutput is the result of one tool call.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// RunCreateParams is the body of a create-run request.
type RunCreateParams struct {
	AssistantID            string                `json:"assistant_id"`
	Model                  string                `json:"model,omitempty"`
	Instructions           string                `json:"instructions,omitempty"`
	AdditionalInstructions string                `json:"additional_instructions,omitempty"`
	AdditionalMessages     []MessageCreateParams `json:"additional_messages,omitempty"`
	Tools                  []ToolDefinition      `json:"tools,omitempty"`
	Temperature            *float64              `json:"temperature,omitempty"`
	TopP                   *float64              `json:"top_p,omitempty"`
	ToolChoice             any                   `json:"tool_choice,omitempty"`
	TruncationStrategy     *TruncationStrategy   `json:"truncation_strategy,omitempty"`
	ParallelToolCalls      *bool                 `json:"parallel_tool_calls,omitempty"`
	Stream                 bool                  `json:"stream,omitempty"`
}

// MessageCreateParams is a message added to the thread with a new run.
type MessageCreateParams struct {
	Role    string               `json:"role"`
	Content []MessageContentPart `json:"content"`
}

// MessageContentPart is one part of a [MessageCreateParams].
type MessageContentPart struct {
	Type      string     `json:"type"`
	Text      string     `json:"text,omitempty"`
	ImageFile *ImageFile `json:"image_file,omitempty"`
}

// Truncation strategy types.
const (
	TruncationAuto         = "auto"
	TruncationLastMessages = "last_messages"
)

// TruncationStrategy controls how the thread is truncated before a run.
type TruncationStrategy struct {
	Type         string `json:"type"`
	LastMessages int    `json:"last_messages,omitempty"`
}

// ToolDefinition is a tool made available to a run.
type ToolDefinition struct {
	Type     string              `json:"type"`
	Function *FunctionDefinition `json:"function,omitempty"`
}

// FunctionDefinition describes a callable function.
type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// FunctionTool returns a function [ToolDefinition].
func FunctionTool(name, description string, parameters json.RawMessage) ToolDefinition {
	return ToolDefinition{
		Type:     "function",
		Function: &FunctionDefinition{Name: name, Description: description, Parameters: parameters},
	}
}

// AssistantCreateParams is the body of a create-assistant request.
type AssistantCreateParams struct {
	Model        string           `json:"model"`
	Name         string           `json:"name,omitempty"`
	Description  string           `json:"description,omitempty"`
	Instructions string           `json:"instructions,omitempty"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Temperature  *float64         `json:"temperature,omitempty"`
	TopP         *float64         `json:"top_p,omitempty"`
}

// Assistant is a configured assistant.
type Assistant struct {
	ID           string           `json:"id"`
	Name         string           `json:"name,omitempty"`
	Model        string           `json:"model"`
	Instructions string           `json:"instructions,omitempty"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}
