// Copyright (c) Microsoft. All rights reserved.

package assistants

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/microsoft/teams-ai/go/ai"
)

// DefaultPollingInterval is the delay between run status checks.
const DefaultPollingInterval = time.Second

// Planner is an [ai.Planner] backed by assistant runs.
//
// Create one with [New] and functional options:
//
//	planner, err := assistants.New(client,
//	    assistants.WithAssistantID("asst_123"),
//	    assistants.WithStreaming(false),
//	)
type Planner struct {
	client         Client
	assistantID    string
	pollInterval   time.Duration
	streaming      bool
	flushThreshold int
	feedbackLoop   bool
	sleep          func(ctx context.Context, d time.Duration) error
	logger         *slog.Logger
}

var _ ai.Planner = (*Planner)(nil)

// Option configures a [Planner] via [New].
type Option func(*Planner)

// WithAssistantID sets the assistant that runs are created for.
func WithAssistantID(id string) Option {
	return func(p *Planner) { p.assistantID = id }
}

// WithPollingInterval sets the delay between run status checks.
func WithPollingInterval(d time.Duration) Option {
	return func(p *Planner) { p.pollInterval = d }
}

// WithStreaming sets whether new conversations stream run events.
func WithStreaming(enabled bool) Option {
	return func(p *Planner) { p.streaming = enabled }
}

// WithFlushThreshold sets how many streamed characters are buffered before
// the reply is sent or updated.
func WithFlushThreshold(n int) Option {
	return func(p *Planner) { p.flushThreshold = n }
}

// WithFeedbackLoop marks streamed replies as accepting user feedback.
func WithFeedbackLoop(enabled bool) Option {
	return func(p *Planner) { p.feedbackLoop = enabled }
}

// WithSleep replaces the function used to wait between polls.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Planner) { p.sleep = sleep }
}

// WithLogger sets the planner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) { p.logger = logger }
}

// New creates a [Planner]. It fails with [ai.ErrConfiguration] when client
// is nil or no assistant id is configured.
func New(client Client, opts ...Option) (*Planner, error) {
	p := &Planner{
		client:         client,
		pollInterval:   DefaultPollingInterval,
		streaming:      true,
		flushThreshold: ai.DefaultFlushThreshold,
		sleep:          sleepContext,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		return nil, fmt.Errorf("%w: assistants client is required", ai.ErrConfiguration)
	}
	if p.assistantID == "" {
		return nil, fmt.Errorf("%w: assistant id is required", ai.ErrConfiguration)
	}
	return p, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// BeginTask starts the turn's task. It behaves like [Planner.ContinueTask].
func (p *Planner) BeginTask(ctx context.Context, tc ai.TurnContext, st *ai.TurnState) (*ai.Plan, error) {
	return p.ContinueTask(ctx, tc, st)
}

// ContinueTask submits either the pending tool outputs or the turn's input,
// follows the resulting run, and converts its outcome into a plan. The
// updated [RunState] is stored in st even when the run fails.
func (p *Planner) ContinueTask(ctx context.Context, tc ai.TurnContext, st *ai.TurnState) (*ai.Plan, error) {
	rs, err := p.runState(st)
	if err != nil {
		return nil, err
	}
	defer func() { SaveRunState(st, rs) }()

	threadID, err := p.EnsureThread(ctx, &rs)
	if err != nil {
		return nil, err
	}

	if rs.SubmitToolOutputs {
		return p.submitActionResults(ctx, tc, st, &rs)
	}

	if err := p.BlockOnInProgressRuns(ctx, threadID); err != nil {
		return nil, err
	}
	return p.submitUserInput(ctx, tc, st, &rs)
}

// runState loads the conversation's state, seeding a new one from the
// planner's defaults.
func (p *Planner) runState(st *ai.TurnState) (RunState, error) {
	rs, ok, err := LoadRunState(st)
	if err != nil {
		return RunState{}, err
	}
	if !ok {
		rs = RunState{
			Streaming:              p.streaming,
			TruncationStrategy:     TruncationAuto,
			TruncationLastMessages: DefaultTruncationLastMessages,
		}
	}
	return rs, nil
}

// EnsureThread returns the conversation's thread id, creating the thread
// on first use.
func (p *Planner) EnsureThread(ctx context.Context, rs *RunState) (string, error) {
	if rs.ThreadID != "" {
		return rs.ThreadID, nil
	}
	thread, err := p.client.CreateThread(ctx)
	if err != nil {
		return "", operationFailed("create thread", err)
	}
	rs.ThreadID = thread.ID
	p.logger.DebugContext(ctx, "created thread", "thread_id", thread.ID)
	return thread.ID, nil
}

// BlockOnInProgressRuns waits until the thread's most recent run is
// terminal. Pending tool calls of that run are not handled.
func (p *Planner) BlockOnInProgressRuns(ctx context.Context, threadID string) error {
	for {
		run, err := p.client.GetLastRun(ctx, threadID)
		if err != nil {
			return operationFailed("get last run", err)
		}
		if run == nil || run.Status.IsTerminal() {
			return nil
		}
		p.logger.DebugContext(ctx, "waiting for in-progress run", "thread_id", threadID, "run_id", run.ID, "status", run.Status)
		if _, err := p.waitForRun(ctx, threadID, run.ID, false); err != nil {
			return err
		}
	}
}

// pollRun fetches the run once and reports whether polling may stop: the
// run is terminal, or it requires action and handleActions is set.
func (p *Planner) pollRun(ctx context.Context, threadID, runID string, handleActions bool) (*Run, bool, error) {
	run, err := p.client.GetRun(ctx, threadID, runID)
	if err != nil {
		return nil, false, operationFailed("get run", err)
	}
	done := run.Status.IsTerminal() || (handleActions && run.Status == StatusRequiresAction)
	return run, done, nil
}

// waitForRun sleeps and polls until [Planner.pollRun] reports done.
func (p *Planner) waitForRun(ctx context.Context, threadID, runID string, handleActions bool) (*Run, error) {
	for {
		if err := p.sleep(ctx, p.pollInterval); err != nil {
			return nil, err
		}
		run, done, err := p.pollRun(ctx, threadID, runID, handleActions)
		if err != nil {
			return nil, err
		}
		if done {
			return run, nil
		}
	}
}

// operationFailed wraps a client error. Context errors pass through.
func operationFailed(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ai.ErrOperationFailed, op, err)
}
