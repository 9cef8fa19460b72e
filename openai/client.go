// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/microsoft/teams-ai/go/ai"
	"github.com/microsoft/teams-ai/go/assistants"
)

// messagePageSize is the page size used when listing thread messages.
const messagePageSize = 100

// Client implements [assistants.Client] and [ai.Classifier] using the
// OpenAI Assistants v2 and Moderations APIs. Use [New] to create one.
type Client struct {
	tp              transport
	moderationModel string
}

// Verify interface compliance at compile time.
var (
	_ assistants.Client = (*Client)(nil)
	_ ai.Classifier     = (*Client)(nil)
)

// New creates an OpenAI [Client] with the given API key and options.
//
//	client := openai.New(os.Getenv("OPENAI_API_KEY"),
//	    openai.WithOrganization("org-123"),
//	)
func New(apiKey string, opts ...Option) *Client {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}
	return &Client{
		tp:              newPipelineTransport(apiKey, cfg),
		moderationModel: cfg.moderationModel,
	}
}

// CreateAssistant creates an assistant.
func (c *Client) CreateAssistant(ctx context.Context, params *assistants.AssistantCreateParams) (*assistants.Assistant, error) {
	var out assistants.Assistant
	if err := c.doJSON(ctx, call{method: http.MethodPost, path: "/assistants", body: params}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateThread creates an empty thread.
func (c *Client) CreateThread(ctx context.Context) (*assistants.Thread, error) {
	var out assistants.Thread
	if err := c.doJSON(ctx, call{method: http.MethodPost, path: "/threads", body: struct{}{}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRun starts a run on threadID.
func (c *Client) CreateRun(ctx context.Context, threadID string, params *assistants.RunCreateParams) (*assistants.Run, error) {
	body := *params
	body.Stream = false
	var out assistants.Run
	if err := c.doJSON(ctx, call{method: http.MethodPost, path: runsPath(threadID), body: &body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRunStream starts a run on threadID and streams its events.
func (c *Client) CreateRunStream(ctx context.Context, threadID string, params *assistants.RunCreateParams) (*ai.ResponseStream[assistants.RunEvent], error) {
	body := *params
	body.Stream = true
	return c.stream(ctx, call{method: http.MethodPost, path: runsPath(threadID), body: &body, stream: true})
}

// GetRun fetches a run.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*assistants.Run, error) {
	var out assistants.Run
	if err := c.doJSON(ctx, call{method: http.MethodGet, path: runPath(threadID, runID)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLastRun returns the most recent run on threadID, or nil when the
// thread has none.
func (c *Client) GetLastRun(ctx context.Context, threadID string) (*assistants.Run, error) {
	var page listPage[assistants.Run]
	q := url.Values{"limit": {"1"}, "order": {"desc"}}
	if err := c.doJSON(ctx, call{method: http.MethodGet, path: runsPath(threadID), query: q}, &page); err != nil {
		return nil, err
	}
	if len(page.Data) == 0 {
		return nil, nil
	}
	return &page.Data[0], nil
}

// ListNewMessages returns the thread's messages newer than lastMessageID,
// newest first, following pagination until the list is exhausted.
func (c *Client) ListNewMessages(ctx context.Context, threadID, lastMessageID string) ([]assistants.Message, error) {
	var (
		out   []assistants.Message
		after string
	)
	for {
		q := url.Values{"order": {"desc"}, "limit": {strconv.Itoa(messagePageSize)}}
		if lastMessageID != "" {
			q.Set("before", lastMessageID)
		}
		if after != "" {
			q.Set("after", after)
		}

		var page listPage[assistants.Message]
		if err := c.doJSON(ctx, call{method: http.MethodGet, path: messagesPath(threadID), query: q}, &page); err != nil {
			return nil, err
		}
		for _, m := range page.Data {
			if m.ID == lastMessageID {
				return out, nil
			}
			out = append(out, m)
		}
		if !page.HasMore || page.LastID == "" {
			return out, nil
		}
		after = page.LastID
	}
}

// SubmitToolOutputs answers the tool calls of a run waiting on them.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []assistants.ToolOutput) (*assistants.Run, error) {
	body := submitToolOutputsRequest{ToolOutputs: outputs}
	var out assistants.Run
	if err := c.doJSON(ctx, call{method: http.MethodPost, path: runPath(threadID, runID) + "/submit_tool_outputs", body: &body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitToolOutputsStream answers the tool calls of a run and streams the
// events of the resumed run.
func (c *Client) SubmitToolOutputsStream(ctx context.Context, threadID, runID string, outputs []assistants.ToolOutput) (*ai.ResponseStream[assistants.RunEvent], error) {
	body := submitToolOutputsRequest{ToolOutputs: outputs, Stream: true}
	return c.stream(ctx, call{method: http.MethodPost, path: runPath(threadID, runID) + "/submit_tool_outputs", body: &body, stream: true})
}

// GetFile fetches file metadata.
func (c *Client) GetFile(ctx context.Context, fileID string) (*assistants.File, error) {
	var out assistants.File
	if err := c.doJSON(ctx, call{method: http.MethodGet, path: "/files/" + url.PathEscape(fileID)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFileContent downloads a file's bytes.
func (c *Client) GetFileContent(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.tp.do(ctx, call{method: http.MethodGet, path: "/files/" + url.PathEscape(fileID) + "/content"})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read file content: %v", ai.ErrService, err)
	}
	return data, nil
}

// Classify reviews text with the moderation endpoint. A throttled request
// returns an error wrapping [ai.ErrRateLimited].
func (c *Client) Classify(ctx context.Context, text string) (*ai.ModerationResult, error) {
	body := moderationRequest{Input: text, Model: c.moderationModel}
	var out moderationResponse
	if err := c.doJSON(ctx, call{method: http.MethodPost, path: "/moderations", body: &body}, &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return &ai.ModerationResult{}, nil
	}
	r := out.Results[0]
	return &ai.ModerationResult{
		Flagged:        r.Flagged,
		Categories:     r.Categories,
		CategoryScores: r.CategoryScores,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, cl call, out any) error {
	resp, err := c.tp.do(ctx, cl)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

func (c *Client) stream(ctx context.Context, cl call) (*ai.ResponseStream[assistants.RunEvent], error) {
	resp, err := c.tp.do(ctx, cl)
	if err != nil {
		return nil, err
	}

	stream := ai.NewResponseStream[assistants.RunEvent](ctx, func(ctx context.Context, ch chan<- assistants.RunEvent) error {
		defer resp.Body.Close()
		return parseEventStream(ctx, resp.Body, ch)
	})

	return stream, nil
}

func runsPath(threadID string) string {
	return "/threads/" + url.PathEscape(threadID) + "/runs"
}

func runPath(threadID, runID string) string {
	return runsPath(threadID) + "/" + url.PathEscape(runID)
}

func messagesPath(threadID string) string {
	return "/threads/" + url.PathEscape(threadID) + "/messages"
}
