// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/teams-ai/go/ai"
)

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
assistant_id: asst_file
model: gpt-4o-mini
streaming: false
moderate: true
database: ${TEST_DB_DIR}/state.db
`), 0o600))
	t.Setenv("TEST_DB_DIR", "/tmp/teams")
	t.Setenv("ASSISTANT_ID", "asst_env")
	t.Setenv("STREAMING", "")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "asst_env", cfg.AssistantID)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.False(t, cfg.Streaming)
	assert.True(t, cfg.Moderate)
	assert.Equal(t, "/tmp/teams/state.db", cfg.Database)
	assert.Equal(t, 25, cfg.MaxSteps)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.Streaming)
	assert.Equal(t, "teams-ai.db", cfg.Database)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unclosed"), 0o600))
	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"AZURE_OPENAI_ENDPOINT": "https://example.openai.azure.com",
		"AZURE_OPENAI_KEY":      "key",
		"STREAMING":             "false",
	}
	cfg := defaultConfig()
	applyEnv(cfg, func(k string) string { return env[k] })

	assert.Equal(t, "https://example.openai.azure.com", cfg.Endpoint)
	assert.Equal(t, "key", cfg.AzureKey)
	assert.False(t, cfg.Streaming)
	assert.Equal(t, "gpt-4o", cfg.Model)
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := newClient(defaultConfig())
	assert.Error(t, err)

	cfg := defaultConfig()
	cfg.APIKey = "sk-test"
	client, err := newClient(cfg)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestConsoleTurn_StreamedUpdatesPrintDelta(t *testing.T) {
	var out bytes.Buffer
	tc := newConsoleTurn(&out, "conv-1", "user-1", "hi")
	ctx := context.Background()

	id, err := tc.SendMessage(ctx, &ai.OutgoingMessage{Text: "Hel"})
	require.NoError(t, err)
	require.NoError(t, tc.UpdateMessage(ctx, id, &ai.OutgoingMessage{Text: "Hello"}))
	require.NoError(t, tc.UpdateMessage(ctx, id, &ai.OutgoingMessage{
		Text:      "Hello [1]",
		Citations: []ai.ClientCitation{{Position: 1, Title: "manual.pdf"}},
	}))

	assert.Equal(t, "Assistant: Hello [1]\n  [1] manual.pdf", out.String())
	assert.ErrorIs(t, tc.UpdateMessage(ctx, "missing", &ai.OutgoingMessage{}), ai.ErrOperationFailed)
}

type sayPlanner struct {
	reply string
}

func (p *sayPlanner) BeginTask(_ context.Context, _ ai.TurnContext, st *ai.TurnState) (*ai.Plan, error) {
	st.Conversation.Set("turns", 1)
	return ai.NewPlan(ai.NewSayCommand(p.reply)), nil
}

func (p *sayPlanner) ContinueTask(ctx context.Context, tc ai.TurnContext, st *ai.TurnState) (*ai.Plan, error) {
	return p.BeginTask(ctx, tc, st)
}

func TestRunTurn_SavesState(t *testing.T) {
	ctx := context.Background()
	bot, err := ai.New(&sayPlanner{reply: "line one\nline two"})
	require.NoError(t, err)
	require.NoError(t, registerActions(bot.Actions()))

	var out bytes.Buffer
	store := ai.NewMemoryStorage()
	tc := newConsoleTurn(&out, "conv-1", "user-1", "hello")
	require.NoError(t, runTurn(ctx, bot, store, tc))

	assert.Equal(t, "Assistant: line one\nline two", out.String())
	st, err := ai.LoadTurnState(ctx, store, tc.Turn())
	require.NoError(t, err)
	turns, ok := st.Conversation.Get("turns")
	require.True(t, ok)
	assert.EqualValues(t, 1, turns)
}

// interruptedPlanner records progress and then fails with the context's error.
type interruptedPlanner struct{}

func (interruptedPlanner) BeginTask(ctx context.Context, _ ai.TurnContext, st *ai.TurnState) (*ai.Plan, error) {
	st.Conversation.Set("thread", "thread_1")
	return nil, ctx.Err()
}

func (p interruptedPlanner) ContinueTask(ctx context.Context, tc ai.TurnContext, st *ai.TurnState) (*ai.Plan, error) {
	return p.BeginTask(ctx, tc, st)
}

// ctxStorage fails writes made with a done context, or with writeErr.
type ctxStorage struct {
	*ai.MemoryStorage
	writeErr error
}

func (s *ctxStorage) Write(ctx context.Context, changes map[string]map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	return s.MemoryStorage.Write(ctx, changes)
}

func TestRunTurn_SavesAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bot, err := ai.New(interruptedPlanner{})
	require.NoError(t, err)
	store := &ctxStorage{MemoryStorage: ai.NewMemoryStorage()}
	tc := newConsoleTurn(&bytes.Buffer{}, "conv-1", "user-1", "hello")

	err = runTurn(ctx, bot, store, tc)
	assert.ErrorIs(t, err, context.Canceled)

	st, err := ai.LoadTurnState(context.Background(), store, tc.Turn())
	require.NoError(t, err)
	thread, ok := st.Conversation.Get("thread")
	require.True(t, ok)
	assert.Equal(t, "thread_1", thread)
}

func TestRunTurn_JoinsRunAndSaveErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	diskFull := errors.New("disk full")
	bot, err := ai.New(interruptedPlanner{})
	require.NoError(t, err)
	store := &ctxStorage{MemoryStorage: ai.NewMemoryStorage(), writeErr: diskFull}

	err = runTurn(ctx, bot, store, newConsoleTurn(&bytes.Buffer{}, "conv-1", "user-1", "hello"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, diskFull)
}

func TestGetWeather_TypedParameters(t *testing.T) {
	bot, err := ai.New(&sayPlanner{})
	require.NoError(t, err)
	require.NoError(t, registerActions(bot.Actions()))

	entry, err := bot.Actions().Get("get_weather")
	require.NoError(t, err)
	out, err := entry.Handler(context.Background(), nil, ai.NewTurnState(),
		map[string]any{"location": "Oslo", "unit": "celsius"}, "get_weather")
	require.NoError(t, err)
	assert.JSONEq(t, `{"location":"Oslo","temperature":22,"unit":"celsius","condition":"sunny"}`, out)

	defs := toolDefinitions()
	require.Len(t, defs, 2)
	assert.JSONEq(t, `{
		"type":"object",
		"properties":{
			"location":{"type":"string","description":"City name or location"},
			"unit":{"type":"string","description":"Temperature unit","enum":["celsius","fahrenheit"]}
		},
		"required":["location"]
	}`, string(defs[0].Function.Parameters))
}
