// Copyright (c) Microsoft. All rights reserved.

package ai

import (
	"encoding/json"
	"fmt"
)

// CommandType identifies the kind of a [PredictedCommand].
type CommandType string

const (
	CommandTypeDo  CommandType = "DO"
	CommandTypeSay CommandType = "SAY"
)

// PredictedCommand is a sealed interface representing one step of a [Plan].
// Use a type switch to inspect the underlying type.
type PredictedCommand interface {
	// Type returns the discriminator for this command.
	Type() CommandType

	// sealed prevents external implementations.
	sealed()
}

// base is embedded by every concrete command type to satisfy the sealed marker.
type base struct{}

func (base) sealed() {}

// DoCommand asks the executor to run a named action.
type DoCommand struct {
	base
	Action     string
	Parameters map[string]any

	// ToolCallID correlates the command with a model tool call, if any.
	ToolCallID string
}

func (c *DoCommand) Type() CommandType { return CommandTypeDo }

// Key returns the token used to record this command's output:
// the tool call id when present, else the action name.
func (c *DoCommand) Key() string {
	if c.ToolCallID != "" {
		return c.ToolCallID
	}
	return c.Action
}

// SayCommand asks the executor to send a message to the user.
type SayCommand struct {
	base
	Response ChatMessage
}

func (c *SayCommand) Type() CommandType { return CommandTypeSay }

// NewDoCommand creates a [DoCommand] with optional parameters.
func NewDoCommand(action string, params map[string]any) *DoCommand {
	if params == nil {
		params = map[string]any{}
	}
	return &DoCommand{Action: action, Parameters: params}
}

// NewSayCommand creates a [SayCommand] carrying an assistant message.
func NewSayCommand(text string) *SayCommand {
	return &SayCommand{Response: NewAssistantMessage(text)}
}

// Plan is the ordered list of commands produced by one planning cycle.
// A plan is replaced as a whole (e.g., by a [Moderator]) and never edited in place.
type Plan struct {
	Commands []PredictedCommand
}

// NewPlan creates a [Plan] from the given commands.
func NewPlan(cmds ...PredictedCommand) *Plan {
	return &Plan{Commands: cmds}
}

// Len returns the number of commands in the plan. A nil plan has none.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Commands)
}

type planEnvelope struct {
	Type     string            `json:"type"`
	Commands []json.RawMessage `json:"commands"`
}

type doEnvelope struct {
	Type       string         `json:"type"`
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters,omitempty"`
	ToolCallID string         `json:"toolCallId,omitempty"`
}

type sayEnvelope struct {
	Type     string      `json:"type"`
	Response ChatMessage `json:"response"`
}

// MarshalJSON encodes the plan as {"type":"plan","commands":[...]}.
func (p Plan) MarshalJSON() ([]byte, error) {
	env := planEnvelope{Type: "plan", Commands: make([]json.RawMessage, 0, len(p.Commands))}
	for _, c := range p.Commands {
		var (
			b   []byte
			err error
		)
		switch v := c.(type) {
		case *DoCommand:
			b, err = json.Marshal(doEnvelope{string(CommandTypeDo), v.Action, v.Parameters, v.ToolCallID})
		case *SayCommand:
			b, err = json.Marshal(sayEnvelope{string(CommandTypeSay), v.Response})
		default:
			err = fmt.Errorf("unsupported command type %T", c)
		}
		if err != nil {
			return nil, err
		}
		env.Commands = append(env.Commands, b)
	}
	return json.Marshal(env)
}

// commandDecoders maps a command discriminator to its decoder.
var commandDecoders = map[CommandType]func(json.RawMessage) (PredictedCommand, error){
	CommandTypeDo: func(raw json.RawMessage) (PredictedCommand, error) {
		var env doEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, err
		}
		cmd := NewDoCommand(env.Action, env.Parameters)
		cmd.ToolCallID = env.ToolCallID
		return cmd, nil
	},
	CommandTypeSay: func(raw json.RawMessage) (PredictedCommand, error) {
		var env sayEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, err
		}
		return &SayCommand{Response: env.Response}, nil
	},
}

// UnmarshalJSON decodes a plan, rejecting unknown command types.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var env planEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if env.Type != "" && env.Type != "plan" {
		return fmt.Errorf("unexpected plan type %q", env.Type)
	}
	cmds := make([]PredictedCommand, 0, len(env.Commands))
	for i, raw := range env.Commands {
		var probe struct {
			Type CommandType `json:"type"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
		decode, ok := commandDecoders[probe.Type]
		if !ok {
			return fmt.Errorf("command %d: unknown type %q", i, probe.Type)
		}
		cmd, err := decode(raw)
		if err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
		cmds = append(cmds, cmd)
	}
	p.Commands = cmds
	return nil
}
