// Copyright (c) Microsoft. All rights reserved.

// Package openai provides an [assistants.Client] and an [ai.Classifier]
// for the OpenAI Assistants v2 and Moderations APIs.
//
// Create a client and pass it to [assistants.New]:
//
//	client := openai.New(os.Getenv("OPENAI_API_KEY"))
//
//	planner, err := assistants.New(client,
//	    assistants.WithAssistantID("asst_123"),
//	)
//
// Runs can be followed by polling or streamed as server-sent events.
//
// # Configuration
//
// Use functional options to configure the client:
//
//   - [WithBaseURL]: override the API endpoint (e.g., Azure OpenAI)
//   - [WithAPIVersion]: set the api-version query parameter for Azure OpenAI
//   - [WithAzureCredential]: authenticate with Azure AD tokens
//   - [WithOrganization]: set the OpenAI organization header
//   - [WithHTTPClient]: provide a custom http.Client
//   - [WithHeaders]: add custom headers to every request
//   - [WithRetry]: tune retries of throttled requests
//   - [WithModerationModel]: choose the moderation model
//
// Requests go through an azcore pipeline, which retries throttled and
// failed requests. Errors are [*ai.ServiceError] values whose chain
// includes [ai.ErrRateLimited], [ai.ErrAuth], [ai.ErrInvalidRequest] or
// [ai.ErrContentFilter].
//
// # Testing
//
// The client uses an unexported transport interface internally.
// For testing, provide a mock http.Client via [WithHTTPClient]
// with a custom RoundTripper, and disable retries with [WithRetry].
package openai
