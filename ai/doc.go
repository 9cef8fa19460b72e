// Copyright (c) Microsoft. All rights reserved.

// Package ai provides the planning and plan-execution core of a Teams AI bot.
// A [Planner] turns a conversational turn into a [Plan] of typed commands, an
// optional [Moderator] reviews the input and the plan, and a [PlanExecutor]
// dispatches each command through an [ActionRegistry].
//
// # Quick Start
//
// Create a planner (e.g., from the assistants package) and build an [AI]:
//
//	planner, err := assistants.New(openai.New(apiKey),
//	    assistants.WithAssistantID("asst_123"),
//	)
//
//	moderator, err := ai.NewClassifierModerator(classifier, ai.ModerateBoth)
//
//	bot, err := ai.New(planner, ai.WithModerator(moderator))
//
//	bot.Actions().Register("get_weather", getWeather)
//
//	completed, err := bot.Run(ctx, turnContext, turnState)
//
// # Architecture
//
//   - [ActionRegistry]: name to handler table with an override policy and a set of
//     override-allowed system actions.
//   - [Plan]: an ordered list of [PredictedCommand] values ([DoCommand], [SayCommand]).
//   - [Moderator]: reviews input before planning and the plan before execution.
//   - [PlanExecutor]: runs commands in order, halting on [StopCommand].
//   - [StreamAssembler]: buffers streamed text into send-then-update message flushes.
//   - [TurnState]: conversation, user and temp scopes with change detection,
//     persisted through a [Storage].
//
// # Actions
//
// Handlers receive the command parameters and the action name. Returning
// [StopCommand] halts the rest of the plan:
//
//	registry.Register("lookup", func(ctx context.Context, tc ai.TurnContext, st *ai.TurnState, params any, action string) (string, error) {
//	    return "found it", nil
//	})
//
// Use [NewTypedAction] to decode parameters into a struct.
package ai
