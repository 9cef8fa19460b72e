// Copyright (c) Microsoft. All rights reserved.

package assistants

import (
	"context"

	"github.com/microsoft/teams-ai/go/ai"
)

// Client is the vendor assistant-run API consumed by [Planner].
// Errors should wrap [ai.ErrService] or [ai.ErrOperationFailed].
type Client interface {
	// CreateThread creates an empty thread.
	CreateThread(ctx context.Context) (*Thread, error)

	// CreateRun starts a run on threadID.
	CreateRun(ctx context.Context, threadID string, params *RunCreateParams) (*Run, error)

	// CreateRunStream starts a run on threadID and streams its events.
	CreateRunStream(ctx context.Context, threadID string, params *RunCreateParams) (*ai.ResponseStream[RunEvent], error)

	// GetRun fetches a run.
	GetRun(ctx context.Context, threadID, runID string) (*Run, error)

	// GetLastRun returns the most recent run on threadID, or nil when the
	// thread has none.
	GetLastRun(ctx context.Context, threadID string) (*Run, error)

	// ListNewMessages returns the thread's messages newer than
	// lastMessageID, newest first. An empty lastMessageID lists all messages.
	ListNewMessages(ctx context.Context, threadID, lastMessageID string) ([]Message, error)

	// SubmitToolOutputs answers the tool calls of a run waiting on them.
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*Run, error)

	// SubmitToolOutputsStream answers the tool calls of a run and streams
	// the events of the resumed run.
	SubmitToolOutputsStream(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*ai.ResponseStream[RunEvent], error)

	// GetFile fetches file metadata.
	GetFile(ctx context.Context, fileID string) (*File, error)

	// GetFileContent downloads a file's bytes.
	GetFileContent(ctx context.Context, fileID string) ([]byte, error)
}
