// Copyright (c) Microsoft. All rights reserved.

package ai_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/teams-ai/go/ai"
)

type fakeClassifier struct {
	flagged map[string]bool
	err     error
	seen    []string
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (*ai.ModerationResult, error) {
	f.seen = append(f.seen, text)
	if f.err != nil {
		return nil, f.err
	}
	return &ai.ModerationResult{Flagged: f.flagged[text]}, nil
}

func newModerator(t *testing.T, c ai.Classifier, mode ai.ModerationMode) *ai.ClassifierModerator {
	t.Helper()
	m, err := ai.NewClassifierModerator(c, mode)
	require.NoError(t, err)
	return m
}

func TestNewClassifierModerator_RequiresClassifier(t *testing.T) {
	m, err := ai.NewClassifierModerator(nil, ai.ModerateBoth)
	assert.ErrorIs(t, err, ai.ErrConfiguration)
	assert.Nil(t, m)
}

func TestDefaultModerator(t *testing.T) {
	m := ai.DefaultModerator{}
	plan := ai.NewPlan(ai.NewSayCommand("hi"))

	in, err := m.ReviewInput(context.Background(), newTurnContext("x"), ai.NewTurnState())
	require.NoError(t, err)
	assert.Nil(t, in)

	out, err := m.ReviewOutput(context.Background(), newTurnContext("x"), ai.NewTurnState(), plan)
	require.NoError(t, err)
	assert.Same(t, plan, out)
}

func TestClassifierModerator_FlaggedInput(t *testing.T) {
	c := &fakeClassifier{flagged: map[string]bool{"bad": true}}
	m := newModerator(t, c, ai.ModerateInput)

	plan, err := m.ReviewInput(context.Background(), newTurnContext("bad"), ai.NewTurnState())
	require.NoError(t, err)
	require.Equal(t, 1, plan.Len())
	do, ok := plan.Commands[0].(*ai.DoCommand)
	require.True(t, ok)
	assert.Equal(t, ai.ActionFlaggedInput, do.Action)
	assert.Contains(t, do.Parameters, "result")
}

func TestClassifierModerator_InputPrefersTempInput(t *testing.T) {
	c := &fakeClassifier{}
	m := newModerator(t, c, ai.ModerateBoth)
	st := ai.NewTurnState()
	st.Temp.Input = "rewritten"

	plan, err := m.ReviewInput(context.Background(), newTurnContext("original"), st)
	require.NoError(t, err)
	assert.Nil(t, plan)
	assert.Equal(t, []string{"rewritten"}, c.seen)
}

func TestClassifierModerator_FlaggedOutputReplacesPlan(t *testing.T) {
	c := &fakeClassifier{flagged: map[string]bool{"second": true}}
	m := newModerator(t, c, ai.ModerateOutput)

	original := ai.NewPlan(
		ai.NewSayCommand("first"),
		ai.NewDoCommand("lookup", nil),
		ai.NewSayCommand("second"),
		ai.NewSayCommand("third"),
	)
	plan, err := m.ReviewOutput(context.Background(), newTurnContext(""), ai.NewTurnState(), original)
	require.NoError(t, err)

	require.Equal(t, 1, plan.Len())
	do := plan.Commands[0].(*ai.DoCommand)
	assert.Equal(t, ai.ActionFlaggedOutput, do.Action)
	assert.Equal(t, []string{"first", "second"}, c.seen)
}

func TestClassifierModerator_PassingOutputKeepsPlan(t *testing.T) {
	m := newModerator(t, &fakeClassifier{}, ai.ModerateBoth)
	original := ai.NewPlan(ai.NewSayCommand("fine"))

	plan, err := m.ReviewOutput(context.Background(), newTurnContext(""), ai.NewTurnState(), original)
	require.NoError(t, err)
	assert.Same(t, original, plan)
}

func TestClassifierModerator_ModeSkips(t *testing.T) {
	c := &fakeClassifier{flagged: map[string]bool{"bad": true}}

	in, err := newModerator(t, c, ai.ModerateOutput).ReviewInput(context.Background(), newTurnContext("bad"), ai.NewTurnState())
	require.NoError(t, err)
	assert.Nil(t, in)

	original := ai.NewPlan(ai.NewSayCommand("bad"))
	out, err := newModerator(t, c, ai.ModerateInput).ReviewOutput(context.Background(), newTurnContext(""), ai.NewTurnState(), original)
	require.NoError(t, err)
	assert.Same(t, original, out)
	assert.Empty(t, c.seen)
}

func TestClassifierModerator_RateLimited(t *testing.T) {
	c := &fakeClassifier{err: fmt.Errorf("classify: %w", &ai.ServiceError{StatusCode: 429, Err: ai.ErrRateLimited})}
	m := newModerator(t, c, ai.ModerateBoth)

	plan, err := m.ReviewInput(context.Background(), newTurnContext("hi"), ai.NewTurnState())
	require.NoError(t, err)
	require.Equal(t, 1, plan.Len())
	assert.Equal(t, ai.ActionHTTPError, plan.Commands[0].(*ai.DoCommand).Action)
}

func TestClassifierModerator_OtherErrorsPropagate(t *testing.T) {
	boom := errors.New("server exploded")
	m := newModerator(t, &fakeClassifier{err: boom}, ai.ModerateBoth)

	_, err := m.ReviewOutput(context.Background(), newTurnContext(""), ai.NewTurnState(), ai.NewPlan(ai.NewSayCommand("x")))
	assert.ErrorIs(t, err, boom)
}
