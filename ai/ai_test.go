// Copyright (c) Microsoft. All rights reserved.

package ai_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/teams-ai/go/ai"
)

// scriptedPlanner returns the queued plans in order and records each call.
type scriptedPlanner struct {
	plans []*ai.Plan
	calls []string
	err   error
}

func (p *scriptedPlanner) next(kind string) (*ai.Plan, error) {
	p.calls = append(p.calls, kind)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.plans) == 0 {
		return ai.NewPlan(), nil
	}
	plan := p.plans[0]
	p.plans = p.plans[1:]
	return plan, nil
}

func (p *scriptedPlanner) BeginTask(context.Context, ai.TurnContext, *ai.TurnState) (*ai.Plan, error) {
	return p.next("begin")
}

func (p *scriptedPlanner) ContinueTask(context.Context, ai.TurnContext, *ai.TurnState) (*ai.Plan, error) {
	return p.next("continue")
}

func TestNew_RequiresPlanner(t *testing.T) {
	_, err := ai.New(nil)
	assert.ErrorIs(t, err, ai.ErrConfiguration)
}

func TestAI_RunSingleSay(t *testing.T) {
	planner := &scriptedPlanner{plans: []*ai.Plan{ai.NewPlan(ai.NewSayCommand("hello"))}}
	bot, err := ai.New(planner)
	require.NoError(t, err)

	tc := newTurnContext("hi")
	completed, err := bot.Run(context.Background(), tc, ai.NewTurnState())
	require.NoError(t, err)

	assert.True(t, completed)
	assert.Equal(t, []string{"begin"}, planner.calls)
	require.Len(t, tc.sent, 1)
	assert.Equal(t, "hello", tc.sent[0].Text)
}

func TestAI_LoopsAfterToolCall(t *testing.T) {
	call := ai.NewDoCommand("lookup", map[string]any{"q": "x"})
	call.ToolCallID = "call_1"
	planner := &scriptedPlanner{plans: []*ai.Plan{
		ai.NewPlan(call),
		ai.NewPlan(ai.NewSayCommand("answer")),
	}}
	bot, err := ai.New(planner)
	require.NoError(t, err)
	require.NoError(t, bot.Actions().Register("lookup", staticHandler("result", nil)))

	st := ai.NewTurnState()
	tc := newTurnContext("hi")
	completed, err := bot.Run(context.Background(), tc, st)
	require.NoError(t, err)

	assert.True(t, completed)
	assert.Equal(t, []string{"begin", "continue"}, planner.calls)
	assert.Equal(t, "result", st.Temp.ActionOutputs["call_1"])
	require.Len(t, tc.sent, 1)
}

func TestAI_NoLoopingWhenDisabled(t *testing.T) {
	planner := &scriptedPlanner{plans: []*ai.Plan{ai.NewPlan(ai.NewDoCommand("lookup", nil))}}
	bot, err := ai.New(planner, ai.WithAllowLooping(false))
	require.NoError(t, err)
	require.NoError(t, bot.Actions().Register("lookup", staticHandler("result", nil)))

	completed, err := bot.Run(context.Background(), newTurnContext("hi"), ai.NewTurnState())
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, []string{"begin"}, planner.calls)
}

func TestAI_EmptyPlanStops(t *testing.T) {
	planner := &scriptedPlanner{plans: []*ai.Plan{ai.NewPlan()}}
	bot, err := ai.New(planner)
	require.NoError(t, err)

	completed, err := bot.Run(context.Background(), newTurnContext("hi"), ai.NewTurnState())
	require.NoError(t, err)
	assert.False(t, completed)
}

func TestAI_FlaggedInputSkipsPlanner(t *testing.T) {
	planner := &scriptedPlanner{}
	classifier := &fakeClassifier{flagged: map[string]bool{"bad words": true}}
	bot, err := ai.New(planner, ai.WithModerator(newModerator(t, classifier, ai.ModerateBoth)))
	require.NoError(t, err)

	completed, err := bot.Run(context.Background(), newTurnContext("bad words"), ai.NewTurnState())
	require.NoError(t, err)
	assert.False(t, completed)
	assert.Empty(t, planner.calls)
}

func TestAI_TooManySteps(t *testing.T) {
	do := func() *ai.DoCommand {
		c := ai.NewDoCommand("work", nil)
		c.ToolCallID = "call"
		return c
	}
	planner := &scriptedPlanner{plans: []*ai.Plan{
		ai.NewPlan(do(), do()),
		ai.NewPlan(do(), do()),
	}}
	bot, err := ai.New(planner, ai.WithMaxSteps(3))
	require.NoError(t, err)
	require.NoError(t, bot.Actions().Register("work", staticHandler("", nil)))

	_, err = bot.Run(context.Background(), newTurnContext("hi"), ai.NewTurnState())
	assert.ErrorIs(t, err, ai.ErrTooManySteps)
}

func TestAI_PlannerErrorPropagates(t *testing.T) {
	boom := &ai.RunFailedError{Status: "failed", Code: "server_error", Message: "oops"}
	bot, err := ai.New(&scriptedPlanner{err: boom})
	require.NoError(t, err)

	_, err = bot.Run(context.Background(), newTurnContext("hi"), ai.NewTurnState())
	assert.ErrorIs(t, err, ai.ErrRunFailed)
	var rf *ai.RunFailedError
	require.True(t, errors.As(err, &rf))
	assert.Equal(t, "server_error", rf.Code)
}

func TestAI_LoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	planner := &scriptedPlanner{plans: []*ai.Plan{ai.NewPlan(ai.NewSayCommand("hello"))}}
	bot, err := ai.New(planner, ai.WithLogger(logger), ai.WithActionMiddleware(ai.LoggingMiddleware(logger)))
	require.NoError(t, err)

	_, err = bot.Run(context.Background(), newTurnContext("hi"), ai.NewTurnState())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "action completed")
	assert.Contains(t, out, ai.ActionPlanReady)
	assert.Contains(t, out, ai.ActionSayCommand)
	assert.Contains(t, out, "turn_id=")
}
