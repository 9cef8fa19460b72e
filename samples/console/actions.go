// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/microsoft/teams-ai/go/ai"
	"github.com/microsoft/teams-ai/go/assistants"
)

type weatherParams struct {
	Location string `json:"location" jsonschema:"description=City name or location,required"`
	Unit     string `json:"unit"     jsonschema:"description=Temperature unit,enum=celsius|fahrenheit"`
}

// getWeather returns simulated weather.
func getWeather(_ context.Context, _ ai.TurnContext, _ *ai.TurnState, p weatherParams) (string, error) {
	unit := p.Unit
	if unit == "" {
		unit = "fahrenheit"
	}
	temp := 72
	if unit == "celsius" {
		temp = 22
	}
	b, err := json.Marshal(map[string]any{
		"location":    p.Location,
		"temperature": temp,
		"unit":        unit,
		"condition":   "sunny",
	})
	return string(b), err
}

// flaggedInput replaces the default handler with a visible reply.
func flaggedInput(ctx context.Context, tc ai.TurnContext, _ *ai.TurnState, _ any, _ string) (string, error) {
	if _, err := tc.SendMessage(ctx, &ai.OutgoingMessage{Text: "I can't help with that."}); err != nil {
		return "", err
	}
	return ai.StopCommand, nil
}

func registerActions(reg *ai.ActionRegistry) error {
	if err := reg.Register("get_weather", ai.NewTypedAction(getWeather)); err != nil {
		return err
	}
	if err := reg.Register(ai.ActionFlaggedInput, flaggedInput, ai.AllowOverrides()); err != nil {
		return fmt.Errorf("override %s: %w", ai.ActionFlaggedInput, err)
	}
	return nil
}

// toolDefinitions describes the registered actions to the assistant.
func toolDefinitions() []assistants.ToolDefinition {
	return []assistants.ToolDefinition{
		assistants.FunctionTool("get_weather", "Get the current weather for a location.", ai.GenerateSchema[weatherParams]()),
		{Type: "code_interpreter"},
	}
}
