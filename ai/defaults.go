// Copyright (c) Microsoft. All rights reserved.

package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DoCommandActionData is the payload passed to the [ActionDoCommand] action.
type DoCommandActionData struct {
	Command *DoCommand
	Handler ActionHandler
}

// TooManyStepsParameters is the payload passed to the [ActionTooManySteps]
// action when a turn's step or time budget is exhausted.
type TooManyStepsParameters struct {
	MaxSteps  int
	MaxTime   time.Duration
	StartTime time.Time
	StepCount int
}

type defaultActionConfig struct {
	logger       *slog.Logger
	feedbackLoop bool
}

func defaultActions(cfg defaultActionConfig) map[string]ActionHandler {
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	return map[string]ActionHandler{
		ActionUnknown: func(ctx context.Context, _ TurnContext, _ *TurnState, _ any, action string) (string, error) {
			logger.ErrorContext(ctx, "action predicted but no handler was registered", "action", action)
			return StopCommand, nil
		},
		ActionFlaggedInput: func(ctx context.Context, _ TurnContext, _ *TurnState, _ any, _ string) (string, error) {
			logger.ErrorContext(ctx, "user input was moderated but no handler was registered", "action", ActionFlaggedInput)
			return StopCommand, nil
		},
		ActionFlaggedOutput: func(ctx context.Context, _ TurnContext, _ *TurnState, _ any, _ string) (string, error) {
			logger.ErrorContext(ctx, "bot output was moderated but no handler was registered", "action", ActionFlaggedOutput)
			return StopCommand, nil
		},
		ActionHTTPError: func(context.Context, TurnContext, *TurnState, any, string) (string, error) {
			return "", ErrHTTPFailed
		},
		ActionPlanReady:    planReadyAction,
		ActionDoCommand:    doCommandAction,
		ActionSayCommand:   sayCommandAction(cfg.feedbackLoop),
		ActionTooManySteps: tooManyStepsAction,
		ActionFileCitation: fileCitationAction,
		ActionFilePath:     filePathAction,
		ActionImageFile:    imageFileAction,
	}
}

func invalidParams(action string, params any) error {
	return &ActionError{
		Action:  action,
		Message: fmt.Sprintf("unexpected parameters of type %T", params),
		Err:     ErrInvalidParameters,
	}
}

func planReadyAction(_ context.Context, _ TurnContext, _ *TurnState, params any, action string) (string, error) {
	plan, ok := params.(*Plan)
	if !ok {
		return "", invalidParams(action, params)
	}
	if plan.Len() == 0 {
		return StopCommand, nil
	}
	return "", nil
}

func doCommandAction(ctx context.Context, tc TurnContext, st *TurnState, params any, action string) (string, error) {
	data, ok := params.(*DoCommandActionData)
	if !ok || data.Command == nil || data.Handler == nil {
		return "", invalidParams(action, params)
	}
	return data.Handler(ctx, tc, st, data.Command.Parameters, data.Command.Action)
}

func sayCommandAction(feedbackLoop bool) ActionHandler {
	return func(ctx context.Context, tc TurnContext, st *TurnState, params any, action string) (string, error) {
		cmd, ok := params.(*SayCommand)
		if !ok {
			return "", invalidParams(action, params)
		}
		content := cmd.Response.Content
		if content == "" {
			return "", nil
		}

		msg := &OutgoingMessage{FeedbackLoopEnabled: feedbackLoop}
		if c := cmd.Response.Context; c != nil && len(c.Citations) > 0 {
			content = FormatCitationsResponse(content)
			msg.Citations = UsedCitations(content, ToClientCitations(c.Citations))
		}
		msg.Text = strings.ReplaceAll(content, "\n", LineBreakFor(tc.Turn().ChannelID))

		if id := st.Temp.LastStreamedReplyID; id != "" {
			st.Temp.LastStreamedReplyID = ""
			if err := tc.UpdateMessage(ctx, id, msg); err != nil {
				return "", err
			}
		} else if _, err := tc.SendMessage(ctx, msg); err != nil {
			return "", err
		}

		st.Temp.Output = cmd.Response.Content
		return "", nil
	}
}

func tooManyStepsAction(_ context.Context, _ TurnContext, _ *TurnState, params any, _ string) (string, error) {
	p, ok := params.(*TooManyStepsParameters)
	if ok && p.StepCount <= p.MaxSteps {
		return "", fmt.Errorf("%w: exceeded the maximum amount of time allowed", ErrTooManySteps)
	}
	return "", fmt.Errorf("%w: exceeded the maximum number of steps allowed", ErrTooManySteps)
}

func fileCitationAction(ctx context.Context, tc TurnContext, _ *TurnState, params any, action string) (string, error) {
	p, ok := params.(map[string]any)
	if !ok {
		return "", invalidParams(action, params)
	}

	lines := []string{
		"**" + stringParam(p, "text") + "**",
		"Filename: " + stringParam(p, "filename"),
		"Ranges: " + stringParam(p, "ranges"),
	}
	if quote := stringParam(p, "quote"); quote != "" {
		lines = append(lines, "Quote:", quote)
	}
	text := strings.Join(lines, LineBreakFor(tc.Turn().ChannelID))
	_, err := tc.SendMessage(ctx, &OutgoingMessage{Text: text})
	return "", err
}

func filePathAction(ctx context.Context, tc TurnContext, _ *TurnState, params any, action string) (string, error) {
	p, ok := params.(map[string]any)
	if !ok {
		return "", invalidParams(action, params)
	}

	filename := stringParam(p, "filename")
	lb := LineBreakFor(tc.Turn().ChannelID)
	msg := &OutgoingMessage{
		Text: "**" + filename + "**" + lb +
			"Start index: " + stringParam(p, "start_index") + lb +
			"End index: " + stringParam(p, "end_index"),
	}
	if content, ok := bytesParam(p, "fileContent"); ok {
		msg.Attachments = append(msg.Attachments, Attachment{
			ContentType: "application/octet-stream",
			ContentURL:  dataURL("application/octet-stream", content),
			Name:        filename,
		})
	}
	_, err := tc.SendMessage(ctx, msg)
	return "", err
}

func imageFileAction(ctx context.Context, tc TurnContext, _ *TurnState, params any, action string) (string, error) {
	p, ok := params.(map[string]any)
	if !ok {
		return "", invalidParams(action, params)
	}
	content, ok := bytesParam(p, "fileContent")
	if !ok {
		return "", nil
	}
	_, err := tc.SendMessage(ctx, &OutgoingMessage{
		Attachments: []Attachment{{
			ContentType: "image/png",
			ContentURL:  dataURL("image/png", content),
			Name:        stringParam(p, "filename"),
		}},
	})
	return "", err
}

func dataURL(contentType string, b []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(b)
}

func stringParam(p map[string]any, key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// bytesParam reads raw bytes, accepting the base64 string form produced by
// a JSON round trip.
func bytesParam(p map[string]any, key string) ([]byte, bool) {
	switch v := p[key].(type) {
	case []byte:
		return v, len(v) > 0
	case string:
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil || len(b) == 0 {
			return nil, false
		}
		return b, true
	default:
		return nil, false
	}
}
