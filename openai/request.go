// Copyright (c) Microsoft. All rights reserved.

package openai

import "github.com/microsoft/teams-ai/go/assistants"

// submitToolOutputsRequest is the body of a submit_tool_outputs request.
type submitToolOutputsRequest struct {
	ToolOutputs []assistants.ToolOutput `json:"tool_outputs"`
	Stream      bool                    `json:"stream,omitempty"`
}

// moderationRequest is the body of a moderation request.
type moderationRequest struct {
	Input string `json:"input"`
	Model string `json:"model,omitempty"`
}
