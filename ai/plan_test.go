// Copyright (c) Microsoft. All rights reserved.

package ai_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/teams-ai/go/ai"
)

var planCmp = cmpopts.IgnoreUnexported(ai.DoCommand{}, ai.SayCommand{})

func TestPlan_JSON(t *testing.T) {
	do := ai.NewDoCommand("lights", map[string]any{"room": "kitchen"})
	do.ToolCallID = "call_1"
	plan := ai.NewPlan(do, ai.NewSayCommand("done"))

	b, err := json.Marshal(plan)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "plan",
		"commands": [
			{"type": "DO", "action": "lights", "parameters": {"room": "kitchen"}, "toolCallId": "call_1"},
			{"type": "SAY", "response": {"role": "assistant", "content": "done"}}
		]
	}`, string(b))

	var decoded ai.Plan
	require.NoError(t, json.Unmarshal(b, &decoded))
	if diff := cmp.Diff(plan.Commands, decoded.Commands, planCmp); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_UnknownCommandType(t *testing.T) {
	var p ai.Plan
	err := json.Unmarshal([]byte(`{"type":"plan","commands":[{"type":"JUMP"}]}`), &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JUMP")
}

func TestPlan_Len(t *testing.T) {
	var nilPlan *ai.Plan
	assert.Equal(t, 0, nilPlan.Len())
	assert.Equal(t, 2, ai.NewPlan(ai.NewSayCommand("a"), ai.NewSayCommand("b")).Len())
}

func TestDoCommand_Key(t *testing.T) {
	do := ai.NewDoCommand("lookup", nil)
	assert.Equal(t, "lookup", do.Key())
	assert.NotNil(t, do.Parameters)

	do.ToolCallID = "call_9"
	assert.Equal(t, "call_9", do.Key())
}

func TestPredictedCommand_TypeSwitch(t *testing.T) {
	cmds := []ai.PredictedCommand{ai.NewDoCommand("x", nil), ai.NewSayCommand("y")}
	var kinds []ai.CommandType
	for _, c := range cmds {
		switch c.(type) {
		case *ai.DoCommand, *ai.SayCommand:
			kinds = append(kinds, c.Type())
		}
	}
	assert.Equal(t, []ai.CommandType{ai.CommandTypeDo, ai.CommandTypeSay}, kinds)
}
