// Copyright (c) Microsoft. All rights reserved.

package ai

import (
	"context"
	"log/slog"
	"time"
)

// ExecutionResult summarizes one [PlanExecutor.Execute] call.
type ExecutionResult struct {
	// Stopped is true when an action returned [StopCommand] or the step
	// budget ran out.
	Stopped bool

	// Loop is true when a DO command produced output or answered a tool
	// call, so the planner should be asked to continue.
	Loop bool

	// Steps is the number of commands executed.
	Steps int
}

// StepBudget bounds the number of commands and the wall time of a turn.
// Steps carries over between calls so a budget can span several plans.
type StepBudget struct {
	MaxSteps  int
	MaxTime   time.Duration
	StartTime time.Time
	Steps     int
}

// PlanExecutor runs a plan's commands in order against an [ActionRegistry].
type PlanExecutor struct {
	actions    *ActionRegistry
	middleware []ActionMiddleware
	logger     *slog.Logger
	now        func() time.Time
}

// ExecutorOption configures a [PlanExecutor].
type ExecutorOption func(*PlanExecutor)

// WithExecutorMiddleware wraps every dispatched action handler.
func WithExecutorMiddleware(mw ...ActionMiddleware) ExecutorOption {
	return func(e *PlanExecutor) { e.middleware = append(e.middleware, mw...) }
}

// WithExecutorLogger sets the executor's logger.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *PlanExecutor) { e.logger = logger }
}

// WithExecutorClock replaces time.Now for step budget checks.
func WithExecutorClock(now func() time.Time) ExecutorOption {
	return func(e *PlanExecutor) { e.now = now }
}

// NewPlanExecutor creates an executor dispatching through actions.
func NewPlanExecutor(actions *ActionRegistry, opts ...ExecutorOption) *PlanExecutor {
	e := &PlanExecutor{
		actions: actions,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs plan. It halts at the first action returning [StopCommand]
// and returns handler errors unchanged. Each DO command's output is
// recorded in st.Temp.ActionOutputs under [DoCommand.Key].
func (e *PlanExecutor) Execute(ctx context.Context, plan *Plan, tc TurnContext, st *TurnState, budget *StepBudget) (ExecutionResult, error) {
	var res ExecutionResult
	if plan == nil {
		return res, nil
	}
	if st.Temp == nil {
		st.Temp = NewTempState()
	}
	if st.Temp.ActionOutputs == nil {
		st.Temp.ActionOutputs = map[string]string{}
	}

	for _, cmd := range plan.Commands {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if budget != nil {
			budget.Steps++
			if e.exceeded(budget) {
				params := &TooManyStepsParameters{
					MaxSteps:  budget.MaxSteps,
					MaxTime:   budget.MaxTime,
					StartTime: budget.StartTime,
					StepCount: budget.Steps,
				}
				if _, err := e.dispatch(ctx, ActionTooManySteps, e.actions.builtin(ActionTooManySteps), tc, st, params); err != nil {
					return res, err
				}
				res.Stopped = true
				res.Loop = false
				return res, nil
			}
		}

		output, err := e.executeCommand(ctx, cmd, tc, st)
		res.Steps++
		if err != nil {
			return res, err
		}
		if output == StopCommand {
			res.Stopped = true
			res.Loop = false
			return res, nil
		}

		if do, ok := cmd.(*DoCommand); ok {
			st.Temp.ActionOutputs[do.Key()] = output
			if do.ToolCallID != "" {
				res.Loop = true
			} else if output != "" {
				res.Loop = true
				st.Temp.Input = output
				st.Temp.InputFiles = nil
			}
		}
	}
	return res, nil
}

func (e *PlanExecutor) exceeded(b *StepBudget) bool {
	if b.MaxSteps > 0 && b.Steps > b.MaxSteps {
		return true
	}
	return b.MaxTime > 0 && !b.StartTime.IsZero() && e.now().Sub(b.StartTime) > b.MaxTime
}

func (e *PlanExecutor) executeCommand(ctx context.Context, cmd PredictedCommand, tc TurnContext, st *TurnState) (string, error) {
	switch c := cmd.(type) {
	case *DoCommand:
		entry, err := e.actions.Get(c.Action)
		if err != nil {
			e.logger.WarnContext(ctx, "routing unregistered action", "action", c.Action)
			return e.dispatch(ctx, c.Action, e.actions.builtin(ActionUnknown), tc, st, c.Parameters)
		}
		data := &DoCommandActionData{Command: c, Handler: entry.Handler}
		return e.dispatch(ctx, c.Action, e.actions.builtin(ActionDoCommand), tc, st, data)
	case *SayCommand:
		return e.dispatch(ctx, ActionSayCommand, e.actions.builtin(ActionSayCommand), tc, st, c)
	default:
		e.logger.WarnContext(ctx, "skipping unsupported command", "type", cmd.Type())
		return "", nil
	}
}

func (e *PlanExecutor) dispatch(ctx context.Context, name string, h ActionHandler, tc TurnContext, st *TurnState, params any) (string, error) {
	return chainActionMiddleware(h, e.middleware...)(ctx, tc, st, params, name)
}
