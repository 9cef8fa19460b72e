// Copyright (c) Microsoft. All rights reserved.

package ai

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// StopCommand is the output an action returns to halt plan execution.
const StopCommand = "STOP"

// Names of the built-in actions. Each is registered by [NewActionRegistry]
// and may be overridden.
const (
	ActionUnknown       = "___UnknownAction___"
	ActionFlaggedInput  = "___FlaggedInput___"
	ActionFlaggedOutput = "___FlaggedOutput___"
	ActionHTTPError     = "___HttpError___"
	ActionPlanReady     = "___PlanReady___"
	ActionDoCommand     = "___DO___"
	ActionSayCommand    = "___SAY___"
	ActionTooManySteps  = "___TooManySteps___"
	ActionFileCitation  = "file_citation"
	ActionFilePath      = "file_path"
	ActionImageFile     = "image_file"
)

// ActionHandler performs a named action. params is the command's parameter
// map for DO commands, or the action-specific payload for built-in actions.
// Returning [StopCommand] halts the current plan.
type ActionHandler func(ctx context.Context, tc TurnContext, st *TurnState, params any, action string) (string, error)

// ActionMiddleware wraps an [ActionHandler] to add cross-cutting behavior.
type ActionMiddleware func(next ActionHandler) ActionHandler

// chainActionMiddleware applies middleware in order (first in list = outermost wrapper).
func chainActionMiddleware(handler ActionHandler, mws ...ActionMiddleware) ActionHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}
	return handler
}

// ActionEntry is one registered action.
type ActionEntry struct {
	Name           string
	Handler        ActionHandler
	AllowOverrides bool
}

// RegisterOption configures an [ActionEntry] at registration time.
type RegisterOption func(*ActionEntry)

// AllowOverrides lets a later registration replace the entry.
func AllowOverrides() RegisterOption {
	return func(e *ActionEntry) { e.AllowOverrides = true }
}

// ActionRegistry maps action names to handlers. Entries can be replaced
// only when the existing entry allows overrides; there is no removal.
type ActionRegistry struct {
	mu      sync.RWMutex
	entries map[string]ActionEntry
}

// NewActionRegistry creates a registry pre-populated with the built-in actions.
func NewActionRegistry() *ActionRegistry {
	return newActionRegistry(defaultActionConfig{logger: slog.Default()})
}

func newActionRegistry(cfg defaultActionConfig) *ActionRegistry {
	r := &ActionRegistry{entries: make(map[string]ActionEntry)}
	for name, h := range defaultActions(cfg) {
		r.entries[name] = ActionEntry{Name: name, Handler: h, AllowOverrides: true}
	}
	return r
}

// Register adds or replaces the handler for name. It fails with
// [ErrDuplicateAction] when an entry exists that does not allow overrides.
func (r *ActionRegistry) Register(name string, handler ActionHandler, opts ...RegisterOption) error {
	if name == "" {
		return &ActionError{Message: "name is required", Err: ErrConfiguration}
	}
	if handler == nil {
		return &ActionError{Action: name, Message: "handler is required", Err: ErrConfiguration}
	}

	entry := ActionEntry{Name: name, Handler: handler}
	for _, opt := range opts {
		opt(&entry)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[name]; ok && !existing.AllowOverrides {
		return &ActionError{
			Action:  name,
			Message: "already exists and does not allow overrides",
			Err:     ErrDuplicateAction,
		}
	}
	r.entries[name] = entry
	return nil
}

// Get returns the entry registered under name or an error wrapping
// [ErrUnknownAction].
func (r *ActionRegistry) Get(name string) (ActionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return ActionEntry{}, &ActionError{
			Action:  name,
			Message: "does not exist",
			Err:     ErrUnknownAction,
		}
	}
	return entry, nil
}

// Has reports whether name is registered.
func (r *ActionRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Names returns the registered action names in sorted order.
func (r *ActionRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries))
}

// builtin returns the handler for a built-in action name.
func (r *ActionRegistry) builtin(name string) ActionHandler {
	entry, err := r.Get(name)
	if err != nil {
		panic(fmt.Sprintf("ai: built-in action %s missing", name))
	}
	return entry.Handler
}
