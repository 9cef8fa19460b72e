// Copyright (c) Microsoft. All rights reserved.

package assistants

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventKind is the name of a streamed run event.
type EventKind string

const (
	EventMessageDelta      EventKind = "thread.message.delta"
	EventRunRequiresAction EventKind = "thread.run.requires_action"
	EventRunCompleted      EventKind = "thread.run.completed"
	EventRunExpired        EventKind = "thread.run.expired"
	EventRunFailed         EventKind = "thread.run.failed"
	EventRunCancelled      EventKind = "thread.run.cancelled"
)

// RunEvent is a sealed interface over the streamed events a [Planner]
// acts on. Use a type switch to inspect the underlying type.
type RunEvent interface {
	// Kind returns the event name.
	Kind() EventKind

	sealed()
}

type base struct{}

func (base) sealed() {}

// MessageDeltaEvent carries incremental message content.
type MessageDeltaEvent struct {
	base
	ID    string       `json:"id"`
	Delta MessageDelta `json:"delta"`
}

func (*MessageDeltaEvent) Kind() EventKind { return EventMessageDelta }

// MessageDelta is the changed part of a message.
type MessageDelta struct {
	Role    string             `json:"role,omitempty"`
	Content []MessageDeltaPart `json:"content,omitempty"`
}

// MessageDeltaPart is one changed content part.
type MessageDeltaPart struct {
	Index     int          `json:"index"`
	Type      string       `json:"type"`
	Text      *TextContent `json:"text,omitempty"`
	ImageFile *ImageFile   `json:"image_file,omitempty"`
}

// Text returns the concatenated text of the delta.
func (e *MessageDeltaEvent) Text() string {
	var b strings.Builder
	for _, part := range e.Delta.Content {
		if part.Text != nil {
			b.WriteString(part.Text.Value)
		}
	}
	return b.String()
}

// RunStatusEvent reports a run that reached a state the planner handles.
type RunStatusEvent struct {
	base
	kind EventKind
	Run  Run
}

func (e *RunStatusEvent) Kind() EventKind { return e.kind }

// NewRunStatusEvent creates a [RunStatusEvent] for run.
func NewRunStatusEvent(kind EventKind, run Run) *RunStatusEvent {
	return &RunStatusEvent{kind: kind, Run: run}
}

type eventDecoder func(kind EventKind, data []byte) (RunEvent, error)

func decodeMessageDelta(_ EventKind, data []byte) (RunEvent, error) {
	var e MessageDeltaEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func decodeRunStatus(kind EventKind, data []byte) (RunEvent, error) {
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return NewRunStatusEvent(kind, run), nil
}

// eventDecoders lists the event kinds a planner acts on.
var eventDecoders = map[EventKind]eventDecoder{
	EventMessageDelta:      decodeMessageDelta,
	EventRunRequiresAction: decodeRunStatus,
	EventRunCompleted:      decodeRunStatus,
	EventRunExpired:        decodeRunStatus,
	EventRunFailed:         decodeRunStatus,
	EventRunCancelled:      decodeRunStatus,
}

// DecodeRunEvent decodes the payload of a streamed event. ok is false for
// kinds the planner ignores.
func DecodeRunEvent(kind string, data []byte) (ev RunEvent, ok bool, err error) {
	decode, known := eventDecoders[EventKind(kind)]
	if !known {
		return nil, false, nil
	}
	ev, err = decode(EventKind(kind), data)
	if err != nil {
		return nil, false, fmt.Errorf("decode %s event: %w", kind, err)
	}
	return ev, true, nil
}
