// Copyright (c) Microsoft. All rights reserved.

package ai

import (
	"context"
	"errors"
	"fmt"
)

// Moderator reviews a turn's input before planning and the plan before execution.
type Moderator interface {
	// ReviewInput returns a replacement plan when the input must not reach
	// the planner, or nil to proceed.
	ReviewInput(ctx context.Context, tc TurnContext, st *TurnState) (*Plan, error)

	// ReviewOutput returns the plan to execute: either plan itself or a
	// substitute that replaces it entirely.
	ReviewOutput(ctx context.Context, tc TurnContext, st *TurnState, plan *Plan) (*Plan, error)
}

// DefaultModerator approves every input and plan.
type DefaultModerator struct{}

func (DefaultModerator) ReviewInput(context.Context, TurnContext, *TurnState) (*Plan, error) {
	return nil, nil
}

func (DefaultModerator) ReviewOutput(_ context.Context, _ TurnContext, _ *TurnState, plan *Plan) (*Plan, error) {
	return plan, nil
}

// ModerationResult is the verdict of a [Classifier].
type ModerationResult struct {
	Flagged        bool               `json:"flagged"`
	Categories     map[string]bool    `json:"categories,omitempty"`
	CategoryScores map[string]float64 `json:"category_scores,omitempty"`
}

// Classifier flags harmful text. Implementations return an error wrapping
// [ErrRateLimited] when the backend answers with HTTP 429.
type Classifier interface {
	Classify(ctx context.Context, text string) (*ModerationResult, error)
}

// ModerationMode selects which side of a turn a classifier moderator reviews.
type ModerationMode int

const (
	ModerateInput ModerationMode = 1 << iota
	ModerateOutput
	ModerateBoth = ModerateInput | ModerateOutput
)

// ClassifierModerator moderates text with a [Classifier].
type ClassifierModerator struct {
	classifier Classifier
	mode       ModerationMode
}

// NewClassifierModerator creates a [ClassifierModerator] for the given mode.
// It returns an error wrapping [ErrConfiguration] when classifier is nil.
func NewClassifierModerator(classifier Classifier, mode ModerationMode) (*ClassifierModerator, error) {
	if classifier == nil {
		return nil, fmt.Errorf("%w: moderator requires a classifier", ErrConfiguration)
	}
	return &ClassifierModerator{classifier: classifier, mode: mode}, nil
}

// ReviewInput classifies the turn's input text, preferring the temp input
// over the inbound text.
func (m *ClassifierModerator) ReviewInput(ctx context.Context, tc TurnContext, st *TurnState) (*Plan, error) {
	if m.mode&ModerateInput == 0 {
		return nil, nil
	}
	input := ""
	if st != nil && st.Temp != nil {
		input = st.Temp.Input
	}
	if input == "" {
		input = tc.Turn().Text
	}
	return m.moderate(ctx, input, ActionFlaggedInput)
}

// ReviewOutput classifies each SAY command in order. The first flagged one
// replaces the whole plan.
func (m *ClassifierModerator) ReviewOutput(ctx context.Context, _ TurnContext, _ *TurnState, plan *Plan) (*Plan, error) {
	if m.mode&ModerateOutput == 0 || plan == nil {
		return plan, nil
	}
	for _, cmd := range plan.Commands {
		say, ok := cmd.(*SayCommand)
		if !ok {
			continue
		}
		replacement, err := m.moderate(ctx, say.Response.Content, ActionFlaggedOutput)
		if err != nil {
			return nil, err
		}
		if replacement != nil {
			return replacement, nil
		}
	}
	return plan, nil
}

func (m *ClassifierModerator) moderate(ctx context.Context, text, flaggedAction string) (*Plan, error) {
	result, err := m.classifier.Classify(ctx, text)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			return NewPlan(NewDoCommand(ActionHTTPError, nil)), nil
		}
		return nil, err
	}
	if result == nil || !result.Flagged {
		return nil, nil
	}
	return NewPlan(NewDoCommand(flaggedAction, map[string]any{"result": result})), nil
}
