// Copyright (c) Microsoft. All rights reserved.

package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Planner turns a turn's state into a [Plan].
type Planner interface {
	// BeginTask produces the first plan of a turn.
	BeginTask(ctx context.Context, tc TurnContext, st *TurnState) (*Plan, error)

	// ContinueTask produces a follow-up plan after the previous one ran.
	ContinueTask(ctx context.Context, tc TurnContext, st *TurnState) (*Plan, error)
}

// Default run loop limits.
const (
	DefaultMaxSteps = 25
	DefaultMaxTime  = 300 * time.Second
)

// AI drives a turn: moderation, planning, and plan execution in a loop.
//
// Create one with [New] and functional options:
//
//	bot, err := ai.New(planner,
//	    ai.WithModerator(moderator),
//	    ai.WithMaxSteps(10),
//	)
type AI struct {
	planner      Planner
	moderator    Moderator
	actions      *ActionRegistry
	executor     *PlanExecutor
	middleware   []ActionMiddleware
	maxSteps     int
	maxTime      time.Duration
	allowLooping bool
	feedbackLoop bool
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures an [AI] via [New].
type Option func(*AI)

// WithModerator sets the input and output moderator.
func WithModerator(m Moderator) Option {
	return func(a *AI) { a.moderator = m }
}

// WithMaxSteps bounds the number of commands executed per turn.
func WithMaxSteps(n int) Option {
	return func(a *AI) { a.maxSteps = n }
}

// WithMaxTime bounds the wall time of a turn.
func WithMaxTime(d time.Duration) Option {
	return func(a *AI) { a.maxTime = d }
}

// WithAllowLooping controls whether the planner is asked to continue after
// a DO command produced output.
func WithAllowLooping(allow bool) Option {
	return func(a *AI) { a.allowLooping = allow }
}

// WithFeedbackLoop marks messages sent by the default SAY action as
// accepting user feedback.
func WithFeedbackLoop(enabled bool) Option {
	return func(a *AI) { a.feedbackLoop = enabled }
}

// WithLogger sets the logger used by the run loop and built-in actions.
func WithLogger(logger *slog.Logger) Option {
	return func(a *AI) { a.logger = logger }
}

// WithActionMiddleware adds [ActionMiddleware] around every dispatched action.
func WithActionMiddleware(mws ...ActionMiddleware) Option {
	return func(a *AI) { a.middleware = append(a.middleware, mws...) }
}

// WithClock replaces time.Now for the turn's time budget.
func WithClock(now func() time.Time) Option {
	return func(a *AI) { a.now = now }
}

// New creates an AI around planner. It fails with [ErrConfiguration] when
// planner is nil.
func New(planner Planner, opts ...Option) (*AI, error) {
	if planner == nil {
		return nil, fmt.Errorf("%w: planner is required", ErrConfiguration)
	}
	a := &AI{
		planner:      planner,
		moderator:    DefaultModerator{},
		maxSteps:     DefaultMaxSteps,
		maxTime:      DefaultMaxTime,
		allowLooping: true,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.moderator == nil {
		a.moderator = DefaultModerator{}
	}
	a.actions = newActionRegistry(defaultActionConfig{logger: a.logger, feedbackLoop: a.feedbackLoop})
	a.executor = NewPlanExecutor(a.actions,
		WithExecutorMiddleware(a.middleware...),
		WithExecutorLogger(a.logger),
		WithExecutorClock(a.now),
	)
	return a, nil
}

// Actions returns the registry used to dispatch plan commands.
func (a *AI) Actions() *ActionRegistry { return a.actions }

// Run processes one turn. It returns false when an action stopped the turn
// and true when the final plan ran to completion.
func (a *AI) Run(ctx context.Context, tc TurnContext, st *TurnState) (bool, error) {
	if st.Temp == nil {
		st.Temp = NewTempState()
	}
	logger := a.logger.With("turn_id", uuid.NewString(), "conversation_id", tc.Turn().ConversationID)
	budget := &StepBudget{MaxSteps: a.maxSteps, MaxTime: a.maxTime, StartTime: a.now()}

	for first := true; ; first = false {
		plan, err := a.nextPlan(ctx, tc, st, first)
		if err != nil {
			logger.ErrorContext(ctx, "planning failed", "error", err)
			return false, err
		}
		logger.DebugContext(ctx, "plan ready", "commands", plan.Len(), "step", budget.Steps)

		out, err := a.dispatchBuiltin(ctx, ActionPlanReady, tc, st, plan)
		if err != nil {
			return false, err
		}
		if out == StopCommand {
			return false, nil
		}

		res, err := a.executor.Execute(ctx, plan, tc, st, budget)
		if err != nil {
			logger.ErrorContext(ctx, "plan execution failed", "error", err)
			return false, err
		}
		if res.Stopped {
			logger.DebugContext(ctx, "turn stopped", "steps", budget.Steps)
			return false, nil
		}
		if !res.Loop || !a.allowLooping {
			return true, nil
		}
		logger.DebugContext(ctx, "continuing task", "steps", budget.Steps)
	}
}

func (a *AI) nextPlan(ctx context.Context, tc TurnContext, st *TurnState, first bool) (*Plan, error) {
	if !first {
		plan, err := a.planner.ContinueTask(ctx, tc, st)
		if err != nil {
			return nil, err
		}
		return a.moderator.ReviewOutput(ctx, tc, st, plan)
	}

	plan, err := a.moderator.ReviewInput(ctx, tc, st)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		return plan, nil
	}
	if plan, err = a.planner.BeginTask(ctx, tc, st); err != nil {
		return nil, err
	}
	return a.moderator.ReviewOutput(ctx, tc, st, plan)
}

func (a *AI) dispatchBuiltin(ctx context.Context, name string, tc TurnContext, st *TurnState, params any) (string, error) {
	return a.executor.dispatch(ctx, name, a.actions.builtin(name), tc, st, params)
}
