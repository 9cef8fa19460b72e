// Copyright (c) Microsoft. All rights reserved.

package ai_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/teams-ai/go/ai"
)

type lightArgs struct {
	Room    string   `json:"room" jsonschema:"description=Room name,required"`
	State   string   `json:"state" jsonschema:"enum=on|off"`
	Level   int      `json:"level,omitempty"`
	Tags    []string `json:"tags"`
	Ignored string   `json:"-"`
	hidden  string
}

func TestGenerateSchema(t *testing.T) {
	var schema map[string]any
	require.NoError(t, json.Unmarshal(ai.GenerateSchema[lightArgs](), &schema))

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []any{"room"}, schema["required"])

	props := schema["properties"].(map[string]any)
	assert.Len(t, props, 4)
	assert.Equal(t, map[string]any{"type": "string", "description": "Room name"}, props["room"])
	assert.Equal(t, []any{"on", "off"}, props["state"].(map[string]any)["enum"])
	assert.Equal(t, "integer", props["level"].(map[string]any)["type"])
	assert.Equal(t, map[string]any{"type": "array", "items": map[string]any{"type": "string"}}, props["tags"])
}

func TestGenerateSchema_Pointer(t *testing.T) {
	assert.JSONEq(t, string(ai.GenerateSchema[lightArgs]()), string(ai.GenerateSchema[*lightArgs]()))
}

func TestNewTypedAction_InvalidParameters(t *testing.T) {
	h := ai.NewTypedAction(func(context.Context, ai.TurnContext, *ai.TurnState, lightArgs) (string, error) {
		return "", nil
	})

	_, err := h(context.Background(), newTurnContext(""), ai.NewTurnState(), map[string]any{"level": "high"}, "lights")
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrInvalidParameters)

	var ae *ai.ActionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "lights", ae.Action)
}

func TestNewTypedAction_PassesStructThrough(t *testing.T) {
	var got lightArgs
	h := ai.NewTypedAction(func(_ context.Context, _ ai.TurnContext, _ *ai.TurnState, p lightArgs) (string, error) {
		got = p
		return "ok", nil
	})

	out, err := h(context.Background(), newTurnContext(""), ai.NewTurnState(), lightArgs{Room: "den"}, "lights")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "den", got.Room)
}
