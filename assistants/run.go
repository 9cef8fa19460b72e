// Copyright (c) Microsoft. All rights reserved.

package assistants

import (
	"context"
	"fmt"

	"github.com/microsoft/teams-ai/go/ai"
)

// submitUserInput adds the turn's input to the thread with a new run and
// follows that run.
func (p *Planner) submitUserInput(ctx context.Context, tc ai.TurnContext, st *ai.TurnState, rs *RunState) (*ai.Plan, error) {
	params := p.runParams(st, rs)

	var (
		run *Run
		err error
	)
	if rs.Streaming && !rs.DisableOutput {
		params.Stream = true
		stream, serr := p.client.CreateRunStream(ctx, rs.ThreadID, params)
		if serr != nil {
			return nil, operationFailed("create run stream", serr)
		}
		run, err = p.processEventStream(ctx, tc, st, stream)
	} else {
		run, err = p.client.CreateRun(ctx, rs.ThreadID, params)
		if err != nil {
			return nil, operationFailed("create run", err)
		}
		rs.RunID = run.ID
		run, err = p.waitForRun(ctx, rs.ThreadID, run.ID, true)
	}
	if err != nil {
		return nil, err
	}
	return p.completeRun(ctx, rs, run)
}

// submitActionResults answers the pending tool calls with the turn's
// action outputs and follows the resumed run.
func (p *Planner) submitActionResults(ctx context.Context, tc ai.TurnContext, st *ai.TurnState, rs *RunState) (*ai.Plan, error) {
	outputs := ToolOutputs(rs.SubmitToolMap, st.Temp.ActionOutputs)
	p.logger.DebugContext(ctx, "submitting tool outputs", "run_id", rs.RunID, "count", len(outputs))

	var (
		run *Run
		err error
	)
	if rs.Streaming && !rs.DisableOutput {
		stream, serr := p.client.SubmitToolOutputsStream(ctx, rs.ThreadID, rs.RunID, outputs)
		if serr != nil {
			return nil, operationFailed("submit tool outputs stream", serr)
		}
		run, err = p.processEventStream(ctx, tc, st, stream)
	} else {
		run, err = p.client.SubmitToolOutputs(ctx, rs.ThreadID, rs.RunID, outputs)
		if err != nil {
			return nil, operationFailed("submit tool outputs", err)
		}
		run, err = p.waitForRun(ctx, rs.ThreadID, run.ID, true)
	}
	if err != nil {
		return nil, err
	}
	return p.completeRun(ctx, rs, run)
}

// completeRun waits out any non-terminal status the run was left in and
// converts the outcome into a plan.
func (p *Planner) completeRun(ctx context.Context, rs *RunState, run *Run) (*ai.Plan, error) {
	if run == nil {
		return nil, fmt.Errorf("%w: run ended without reporting a status", ai.ErrOperationFailed)
	}
	rs.RunID = run.ID

	for !run.Status.IsTerminal() && run.Status != StatusRequiresAction {
		next, err := p.waitForRun(ctx, rs.ThreadID, run.ID, true)
		if err != nil {
			return nil, err
		}
		run = next
	}
	return p.handleRun(ctx, rs, run)
}

// handleRun maps a run that is terminal or requires action to a plan.
func (p *Planner) handleRun(ctx context.Context, rs *RunState, run *Run) (*ai.Plan, error) {
	p.logger.DebugContext(ctx, "run finished", "run_id", run.ID, "status", run.Status)

	switch run.Status {
	case StatusRequiresAction:
		calls := run.ToolCalls()
		if len(calls) == 0 {
			rs.SubmitToolOutputs = false
			return ai.NewPlan(), nil
		}
		rs.SubmitToolOutputs = true
		return planFromToolCalls(rs, calls)
	case StatusCompleted:
		rs.SubmitToolOutputs = false
		return p.planFromMessages(ctx, rs)
	case StatusCancelled:
		rs.SubmitToolOutputs = false
		return ai.NewPlan(), nil
	case StatusExpired:
		rs.SubmitToolOutputs = false
		return ai.NewPlan(ai.NewDoCommand(ai.ActionTooManySteps, nil)), nil
	default:
		rs.SubmitToolOutputs = false
		rf := &ai.RunFailedError{Status: string(run.Status)}
		if run.LastError != nil {
			rf.Code = run.LastError.Code
			rf.Message = run.LastError.Message
		}
		return nil, rf
	}
}

// runParams builds the create-run request for the turn's input.
func (p *Planner) runParams(st *ai.TurnState, rs *RunState) *RunCreateParams {
	assistantID := rs.AssistantID
	if assistantID == "" {
		assistantID = p.assistantID
	}

	content := []MessageContentPart{{Type: "text", Text: st.Temp.Input}}
	for _, id := range rs.ImageFileIDs {
		content = append(content, MessageContentPart{Type: "image_file", ImageFile: &ImageFile{FileID: id}})
	}

	return &RunCreateParams{
		AssistantID:            assistantID,
		Model:                  rs.Model,
		AdditionalInstructions: st.Temp.AdditionalInstructions,
		AdditionalMessages:     []MessageCreateParams{{Role: string(ai.RoleUser), Content: content}},
		Tools:                  rs.ToolDefinitions,
		Temperature:            rs.Temperature,
		TopP:                   rs.TopP,
		ToolChoice:             toolChoice(rs.ToolChoice),
		TruncationStrategy:     truncationStrategy(rs),
		ParallelToolCalls:      rs.ParallelToolCalls,
	}
}

// toolChoice maps a configured tool choice to its wire form: a keyword, a
// built-in tool type, or a function name.
func toolChoice(choice string) any {
	switch choice {
	case "":
		return nil
	case "auto", "none", "required":
		return choice
	case "file_search", "code_interpreter":
		return map[string]any{"type": choice}
	default:
		return map[string]any{"type": "function", "function": map[string]any{"name": choice}}
	}
}

func truncationStrategy(rs *RunState) *TruncationStrategy {
	if rs.TruncationStrategy == "" || rs.TruncationStrategy == TruncationAuto {
		return nil
	}
	n := rs.TruncationLastMessages
	if n <= 0 {
		n = DefaultTruncationLastMessages
	}
	return &TruncationStrategy{Type: TruncationLastMessages, LastMessages: n}
}
