// Copyright (c) Microsoft. All rights reserved.

// Package assistants implements an [ai.Planner] that drives an assistant
// run on a vendor thread and translates its outcome into a plan.
//
// Each conversation is mapped to one thread. A turn either adds the user's
// input and starts a new run, or submits the outputs of the tool calls the
// previous run asked for. The run is then followed to a terminal state by
// polling or by consuming its event stream:
//
//   - requires_action: one DO command per tool call, tagged with its call id.
//   - completed: SAY commands for new assistant text, DO commands for images,
//     file citations and generated files.
//   - cancelled: an empty plan.
//   - expired: a single too-many-steps DO command.
//   - failed: an [ai.RunFailedError].
//
// The vendor API is abstracted by [Client]; the openai package provides an
// HTTP implementation.
package assistants
