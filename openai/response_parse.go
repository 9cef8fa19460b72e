// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/microsoft/teams-ai/go/ai"
	"github.com/microsoft/teams-ai/go/assistants"
)

// listPage is one page of a cursor-paginated list response.
type listPage[T any] struct {
	Object  string `json:"object"`
	Data    []T    `json:"data"`
	FirstID string `json:"first_id"`
	LastID  string `json:"last_id"`
	HasMore bool   `json:"has_more"`
}

// moderationResponse is the Moderations API response.
type moderationResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Results []moderationResult `json:"results"`
}

type moderationResult struct {
	Flagged        bool               `json:"flagged"`
	Categories     map[string]bool    `json:"categories"`
	CategoryScores map[string]float64 `json:"category_scores"`
}

// streamError is the payload of an "error" event.
type streamError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// sseEvent is one dispatched server-sent event.
type sseEvent struct {
	name string
	data []string
}

// parseEventStream reads assistant run events from r and sends the ones a
// planner acts on to ch. It returns when the stream is exhausted ([DONE]),
// the context is cancelled, or an error occurs.
func parseEventStream(ctx context.Context, r io.Reader, ch chan<- assistants.RunEvent) error {
	scanner := bufio.NewScanner(r)
	// Allow large SSE lines (run payloads can be substantial).
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var ev sseEvent
	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			done, err := dispatchEvent(ctx, ev, ch)
			if done || err != nil {
				return err
			}
			ev = sseEvent{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.name = value
		case "data":
			ev.data = append(ev.data, value)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: read SSE stream: %v", ai.ErrService, err)
	}

	_, err := dispatchEvent(ctx, ev, ch)
	return err
}

// dispatchEvent decodes ev and sends it to ch. done reports the [DONE]
// terminator.
func dispatchEvent(ctx context.Context, ev sseEvent, ch chan<- assistants.RunEvent) (done bool, err error) {
	if len(ev.data) == 0 {
		return false, nil
	}
	data := strings.Join(ev.data, "\n")
	if strings.TrimSpace(data) == "[DONE]" {
		return true, nil
	}
	if ev.name == "error" {
		return true, parseStreamError(data)
	}

	runEvent, ok, err := assistants.DecodeRunEvent(ev.name, []byte(data))
	if err != nil || !ok {
		// Skip malformed and ignored events rather than aborting.
		return false, nil
	}

	select {
	case ch <- runEvent:
		return false, nil
	case <-ctx.Done():
		return true, ctx.Err()
	}
}

func parseStreamError(data string) error {
	var se streamError
	_ = json.Unmarshal([]byte(data), &se)
	if se.Error != nil {
		se.Code, se.Message = se.Error.Code, se.Error.Message
	}
	if se.Message == "" {
		se.Message = data
	}
	return &ai.ServiceError{Message: se.Message, Code: se.Code, Err: ai.ErrService}
}
