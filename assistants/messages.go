// Copyright (c) Microsoft. All rights reserved.

package assistants

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/microsoft/teams-ai/go/ai"
)

// planFromToolCalls creates one DO command per tool call and records the
// calls in rs for output submission.
func planFromToolCalls(rs *RunState, calls []ToolCall) (*ai.Plan, error) {
	plan := ai.NewPlan()
	refs := make([]ToolCallRef, 0, len(calls))
	for _, call := range calls {
		params := map[string]any{}
		if args := strings.TrimSpace(call.Function.Arguments); args != "" {
			if err := json.Unmarshal([]byte(args), &params); err != nil {
				return nil, fmt.Errorf("%w: tool call %s arguments: %w", ai.ErrOperationFailed, call.ID, err)
			}
		}
		cmd := ai.NewDoCommand(call.Function.Name, params)
		cmd.ToolCallID = call.ID
		plan.Commands = append(plan.Commands, cmd)
		refs = append(refs, ToolCallRef{ID: call.ID, Function: call.Function.Name})
	}
	rs.SubmitToolMap = refs
	return plan, nil
}

// planFromMessages converts the assistant messages added since
// rs.LastMessageID into a plan, oldest first.
func (p *Planner) planFromMessages(ctx context.Context, rs *RunState) (*ai.Plan, error) {
	msgs, err := p.client.ListNewMessages(ctx, rs.ThreadID, rs.LastMessageID)
	if err != nil {
		return nil, operationFailed("list messages", err)
	}

	var newMsgs []Message
	for _, m := range msgs {
		if m.ID == rs.LastMessageID {
			break
		}
		if m.Role == string(ai.RoleAssistant) {
			newMsgs = append(newMsgs, m)
		}
	}
	if len(newMsgs) > 0 {
		rs.LastMessageID = newMsgs[0].ID
	}
	slices.Reverse(newMsgs)

	files := newFileCache(p.client)
	plan := ai.NewPlan()
	for _, m := range newMsgs {
		for _, content := range m.Content {
			cmds, err := commandsForContent(ctx, files, content)
			if err != nil {
				return nil, err
			}
			plan.Commands = append(plan.Commands, cmds...)
		}
	}
	return plan, nil
}

func commandsForContent(ctx context.Context, files *fileCache, content MessageContent) ([]ai.PredictedCommand, error) {
	switch {
	case content.Text != nil && content.Text.Value != "":
		return commandsForText(ctx, files, content.Text)
	case content.ImageFile != nil && content.ImageFile.FileID != "":
		id := content.ImageFile.FileID
		file, err := files.get(ctx, id)
		if err != nil {
			return nil, err
		}
		data, err := files.content(ctx, id)
		if err != nil {
			return nil, err
		}
		return []ai.PredictedCommand{ai.NewDoCommand(ai.ActionImageFile, map[string]any{
			"file_id":     id,
			"filename":    file.Filename,
			"fileContent": data,
		})}, nil
	default:
		return nil, nil
	}
}

// commandsForText returns a SAY command carrying the text and its
// citations, followed by one file_citation DO per cited file and one
// file_path DO per generated file.
func commandsForText(ctx context.Context, files *fileCache, text *TextContent) ([]ai.PredictedCommand, error) {
	msgCtx := &ai.MessageContext{}
	var (
		citedOrder []string
		cited      = map[string]*citedFile{}
		pathCmds   []ai.PredictedCommand
		seenPaths  = map[string]bool{}
	)

	for _, a := range text.Annotations {
		id := a.FileID()
		if id == "" {
			continue
		}
		file, err := files.get(ctx, id)
		if err != nil {
			return nil, err
		}
		span := fmt.Sprintf("%d-%d", a.StartIndex, a.EndIndex)

		switch a.Type {
		case AnnotationFileCitation:
			var quote string
			if a.FileCitation != nil {
				quote = a.FileCitation.Quote
			}
			msgCtx.Citations = append(msgCtx.Citations, ai.Citation{
				Content:  firstNonEmpty(quote, span),
				Title:    file.Filename,
				FilePath: file.Filename,
			})
			c, ok := cited[id]
			if !ok {
				c = &citedFile{text: a.Text, filename: file.Filename}
				cited[id] = c
				citedOrder = append(citedOrder, id)
			}
			c.ranges = append(c.ranges, span)
			if c.quote == "" {
				c.quote = quote
			}
		case AnnotationFilePath:
			msgCtx.Citations = append(msgCtx.Citations, ai.Citation{
				Content: strings.TrimSuffix(span+": "+a.Text, ": "),
				Title:   file.Filename,
				URL:     a.Text + "?file_id=" + id,
			})
			if seenPaths[id] {
				continue
			}
			seenPaths[id] = true
			data, err := files.content(ctx, id)
			if err != nil {
				return nil, err
			}
			pathCmds = append(pathCmds, ai.NewDoCommand(ai.ActionFilePath, map[string]any{
				"file_id":     id,
				"filename":    file.Filename,
				"start_index": a.StartIndex,
				"end_index":   a.EndIndex,
				"fileContent": data,
			}))
		}
	}

	say := ai.NewSayCommand(text.Value)
	if len(msgCtx.Citations) > 0 {
		say.Response.Context = msgCtx
	}
	cmds := []ai.PredictedCommand{say}
	for _, id := range citedOrder {
		c := cited[id]
		cmds = append(cmds, ai.NewDoCommand(ai.ActionFileCitation, map[string]any{
			"file_id":  id,
			"text":     c.text,
			"filename": c.filename,
			"ranges":   strings.Join(c.ranges, ", "),
			"quote":    c.quote,
		}))
	}
	return append(cmds, pathCmds...), nil
}

type citedFile struct {
	text     string
	filename string
	ranges   []string
	quote    string
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// fileCache memoizes file lookups for one plan.
type fileCache struct {
	client Client
	meta   map[string]*File
}

func newFileCache(client Client) *fileCache {
	return &fileCache{client: client, meta: map[string]*File{}}
}

func (c *fileCache) get(ctx context.Context, id string) (*File, error) {
	if f, ok := c.meta[id]; ok {
		return f, nil
	}
	f, err := c.client.GetFile(ctx, id)
	if err != nil {
		return nil, operationFailed("get file "+id, err)
	}
	c.meta[id] = f
	return f, nil
}

func (c *fileCache) content(ctx context.Context, id string) ([]byte, error) {
	data, err := c.client.GetFileContent(ctx, id)
	if err != nil {
		return nil, operationFailed("get file content "+id, err)
	}
	return data, nil
}
