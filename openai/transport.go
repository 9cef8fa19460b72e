// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"

	"github.com/microsoft/teams-ai/go/ai"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"

	moduleName    = "teams-ai/openai"
	moduleVersion = "v0.1.0"

	cognitiveServicesScope = "https://cognitiveservices.azure.com/.default"
)

// call describes one API request.
type call struct {
	method string
	path   string
	query  url.Values
	body   any
	stream bool
}

// transport is an unexported interface for HTTP communication.
// The default implementation is an azcore pipeline; tests inject a mock
// http.Client through it.
type transport interface {
	do(ctx context.Context, c call) (*http.Response, error)
}

// pipelineTransport sends requests through an azcore pipeline, which owns
// retries, authentication and telemetry headers.
type pipelineTransport struct {
	pl         runtime.Pipeline
	baseURL    string
	apiVersion string
}

func newPipelineTransport(apiKey string, cfg *clientConfig) *pipelineTransport {
	baseURL := strings.TrimSuffix(cfg.baseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	header := http.Header{}
	header.Set("OpenAI-Beta", "assistants=v2")
	if _, azureKey := cfg.headers["api-key"]; cfg.azureCredential == nil && !azureKey {
		header.Set("Authorization", "Bearer "+apiKey)
	}
	if cfg.organization != "" {
		header.Set("OpenAI-Organization", cfg.organization)
	}
	for k, v := range cfg.headers {
		header.Set(k, v)
	}

	var perRetry []policy.Policy
	if cfg.azureCredential != nil {
		perRetry = append(perRetry, runtime.NewBearerTokenPolicy(cfg.azureCredential, []string{cognitiveServicesScope}, nil))
	}

	opts := &policy.ClientOptions{Retry: cfg.retry}
	if cfg.httpClient != nil {
		opts.Transport = cfg.httpClient
	}

	return &pipelineTransport{
		pl: runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{
			PerCall:  []policy.Policy{&headerPolicy{header: header}},
			PerRetry: perRetry,
		}, opts),
		baseURL:    baseURL,
		apiVersion: cfg.apiVersion,
	}
}

func (t *pipelineTransport) do(ctx context.Context, c call) (*http.Response, error) {
	req, err := runtime.NewRequest(ctx, c.method, t.baseURL+c.path)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ai.ErrOperationFailed, err)
	}

	q := req.Raw().URL.Query()
	for k, vs := range c.query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if t.apiVersion != "" {
		q.Set("api-version", t.apiVersion)
	}
	req.Raw().URL.RawQuery = q.Encode()

	if c.body != nil {
		if err := runtime.MarshalAsJSON(req, c.body); err != nil {
			return nil, fmt.Errorf("%w: marshal request: %w", ai.ErrOperationFailed, err)
		}
	}
	if c.stream {
		req.Raw().Header.Set("Accept", "text/event-stream")
		runtime.SkipBodyDownload(req)
	}

	resp, err := t.pl.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %w", ai.ErrOperationFailed, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, parseErrorResponse(resp)
	}

	return resp, nil
}

// headerPolicy sets fixed headers on every request.
type headerPolicy struct {
	header http.Header
}

func (p *headerPolicy) Do(req *policy.Request) (*http.Response, error) {
	for k, v := range p.header {
		req.Raw().Header[k] = v
	}
	return req.Next()
}

// parseErrorResponse reads an error response body and returns a typed error.
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)

	msg := apiErr.Error.Message
	if msg == "" {
		msg = string(body)
	}

	svcErr := &ai.ServiceError{
		StatusCode: resp.StatusCode,
		Message:    msg,
		Code:       apiErr.Error.Code,
	}

	switch {
	case apiErr.Error.Code == "content_filter":
		svcErr.Err = ai.ErrContentFilter
	case resp.StatusCode == http.StatusTooManyRequests:
		svcErr.Err = ai.ErrRateLimited
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		svcErr.Err = ai.ErrAuth
	case resp.StatusCode == 400:
		svcErr.Err = ai.ErrInvalidRequest
	default:
		svcErr.Err = ai.ErrService
	}

	return svcErr
}

// decodeJSON reads resp's body into v and closes it.
func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response body: %v", ai.ErrService, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: parse response: %v", ai.ErrService, err)
	}
	return nil
}
