// Copyright (c) Microsoft. All rights reserved.

package assistants

import (
	"github.com/microsoft/teams-ai/go/ai"
)

// StateKey is the conversation-scope key holding a conversation's [RunState].
const StateKey = "assistants_state"

// DefaultTruncationLastMessages is the message count kept by the
// last_messages truncation strategy when none is configured.
const DefaultTruncationLastMessages = 50

// ToolCallRef records one tool call awaiting output, in call order.
type ToolCallRef struct {
	ID       string `json:"id"`
	Function string `json:"function"`
}

// RunState is the per-conversation state of the planner. Fields other than
// the bookkeeping ones may be set by the application to tune later runs.
type RunState struct {
	ThreadID          string        `json:"threadId,omitempty"`
	RunID             string        `json:"runId,omitempty"`
	LastMessageID     string        `json:"lastMessageId,omitempty"`
	SubmitToolOutputs bool          `json:"submitToolOutputs"`
	SubmitToolMap     []ToolCallRef `json:"submitToolMap,omitempty"`

	Streaming              bool             `json:"streaming"`
	DisableOutput          bool             `json:"disableOutput,omitempty"`
	AssistantID            string           `json:"assistantId,omitempty"`
	Model                  string           `json:"model,omitempty"`
	Temperature            *float64         `json:"temperature,omitempty"`
	TopP                   *float64         `json:"topP,omitempty"`
	ToolChoice             string           `json:"toolChoice,omitempty"`
	ToolDefinitions        []ToolDefinition `json:"toolDefinitions,omitempty"`
	TruncationStrategy     string           `json:"truncationStrategy,omitempty"`
	TruncationLastMessages int              `json:"truncationLastMessages,omitempty"`
	ParallelToolCalls      *bool            `json:"parallelToolCalls,omitempty"`
	ImageFileIDs           []string         `json:"imageFileIds,omitempty"`
}

// ToolMap groups the pending tool call ids by function name.
func (s *RunState) ToolMap() map[string][]string {
	m := make(map[string][]string)
	for _, ref := range s.SubmitToolMap {
		m[ref.Function] = append(m[ref.Function], ref.ID)
	}
	return m
}

// LoadRunState reads the [RunState] stored in st's conversation scope.
// ok is false when none is stored.
func LoadRunState(st *ai.TurnState) (RunState, bool, error) {
	return ai.GetAs[RunState](st.Conversation, StateKey)
}

// SaveRunState stores rs in st's conversation scope.
func SaveRunState(st *ai.TurnState, rs RunState) {
	st.Conversation.Set(StateKey, rs)
}

// ToolOutputs resolves the output of each pending tool call, in call order.
// A call's output is looked up by call id, then by function name, and
// defaults to "".
func ToolOutputs(pending []ToolCallRef, actionOutputs map[string]string) []ToolOutput {
	outputs := make([]ToolOutput, 0, len(pending))
	for _, ref := range pending {
		out, ok := actionOutputs[ref.ID]
		if !ok {
			out = actionOutputs[ref.Function]
		}
		outputs = append(outputs, ToolOutput{ToolCallID: ref.ID, Output: out})
	}
	return outputs
}
