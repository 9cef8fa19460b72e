// Copyright (c) Microsoft. All rights reserved.

package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
)

// StateScope is one persisted key-value scope of a [TurnState]
// (conversation or user). It remembers a hash of the value it was loaded with
// so unmodified scopes are not written back.
type StateScope struct {
	storageKey string
	values     map[string]any
	hash       string
	deleted    bool
}

// NewStateScope creates a scope over values, persisted under storageKey.
// An empty storageKey yields a scope that is never persisted.
func NewStateScope(storageKey string, values map[string]any) *StateScope {
	if values == nil {
		values = map[string]any{}
	}
	return &StateScope{
		storageKey: storageKey,
		values:     values,
		hash:       computeHash(values),
	}
}

// StorageKey returns the key the scope is persisted under.
func (s *StateScope) StorageKey() string { return s.storageKey }

// Get returns the raw value stored under key.
func (s *StateScope) Get(key string) (any, bool) {
	s.restore()
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether key is present.
func (s *StateScope) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Set stores value under key.
func (s *StateScope) Set(key string, value any) {
	s.restore()
	s.values[key] = value
}

// Remove deletes key from the scope.
func (s *StateScope) Remove(key string) {
	s.restore()
	delete(s.values, key)
}

// Values returns a shallow copy of the scope's contents.
func (s *StateScope) Values() map[string]any {
	s.restore()
	return maps.Clone(s.values)
}

// Delete clears the scope. The next save removes it from storage; the next
// access starts from an empty scope.
func (s *StateScope) Delete() {
	s.deleted = true
}

// IsDeleted reports whether [StateScope.Delete] was called since the last access.
func (s *StateScope) IsDeleted() bool { return s.deleted }

// HasChanged reports whether the contents differ from what was loaded.
func (s *StateScope) HasChanged() bool {
	return computeHash(s.values) != s.hash
}

func (s *StateScope) restore() {
	if s.deleted {
		s.values = map[string]any{}
		s.deleted = false
	}
}

func (s *StateScope) markSaved() {
	s.hash = computeHash(s.values)
}

// computeHash returns a digest of the canonical JSON form of v. Structs are
// normalized through their generic form so a value hashes the same before
// and after a storage round trip. Values that cannot be encoded hash to the
// empty string, which always reads as changed.
func computeHash(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return ""
	}
	if b, err = json.Marshal(generic); err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// GetAs returns the value under key converted to T. Values loaded from
// storage arrive in their generic JSON form and are re-decoded into T.
func GetAs[T any](s *StateScope, key string) (T, bool, error) {
	var zero T
	raw, ok := s.Get(key)
	if !ok || raw == nil {
		return zero, false, nil
	}
	if v, ok := raw.(T); ok {
		return v, true, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return zero, false, fmt.Errorf("%w: encode state %q: %w", ErrOperationFailed, key, err)
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return zero, false, fmt.Errorf("%w: decode state %q: %w", ErrOperationFailed, key, err)
	}
	return out, true, nil
}

// InputFile is a file uploaded by the user alongside the turn's text.
type InputFile struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	URL         string `json:"url,omitempty"`
	Content     []byte `json:"content,omitempty"`
}

// TempState holds values that live only for the duration of one turn.
type TempState struct {
	// Input is the text passed to the planner.
	Input string

	// Output is the last text sent to the user.
	Output string

	// AdditionalInstructions are appended to the run's instructions.
	AdditionalInstructions string

	// ActionOutputs records each executed DO command's output keyed by
	// tool call id, else by action name.
	ActionOutputs map[string]string

	// InputFiles are files attached to the inbound turn.
	InputFiles []InputFile

	// LastStreamedReplyID is the id of the message that received streamed text.
	LastStreamedReplyID string

	// Extra holds application-defined values not covered by the fields above.
	Extra map[string]any
}

// NewTempState creates an empty [TempState].
func NewTempState() *TempState {
	return &TempState{
		ActionOutputs: map[string]string{},
		Extra:         map[string]any{},
	}
}

// TurnState is the state visible to planners and actions during a turn.
type TurnState struct {
	Conversation *StateScope
	User         *StateScope
	Temp         *TempState
}

// NewTurnState creates a transient [TurnState] with empty, unpersisted scopes.
func NewTurnState() *TurnState {
	return &TurnState{
		Conversation: NewStateScope("", nil),
		User:         NewStateScope("", nil),
		Temp:         NewTempState(),
	}
}

// ConversationKey returns the storage key of the conversation scope for turn.
func ConversationKey(turn Turn) string {
	return fmt.Sprintf("%s/%s/conversations/%s", turn.ChannelID, turn.BotID, turn.ConversationID)
}

// UserKey returns the storage key of the user scope for turn.
func UserKey(turn Turn) string {
	return fmt.Sprintf("%s/%s/users/%s", turn.ChannelID, turn.BotID, turn.UserID)
}

// LoadTurnState reads the conversation and user scopes for turn from storage
// and seeds the temp scope with the turn's text.
func LoadTurnState(ctx context.Context, storage Storage, turn Turn) (*TurnState, error) {
	if turn.ConversationID == "" {
		return nil, fmt.Errorf("%w: turn has no conversation id", ErrConfiguration)
	}
	convKey := ConversationKey(turn)
	keys := []string{convKey}
	userKey := ""
	if turn.UserID != "" {
		userKey = UserKey(turn)
		keys = append(keys, userKey)
	}

	items, err := storage.Read(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("read turn state: %w", err)
	}

	st := &TurnState{
		Conversation: NewStateScope(convKey, items[convKey]),
		Temp:         NewTempState(),
	}
	if userKey != "" {
		st.User = NewStateScope(userKey, items[userKey])
	} else {
		st.User = NewStateScope("", nil)
	}
	st.Temp.Input = turn.Text
	return st, nil
}

// Save writes changed scopes to storage and removes deleted ones.
// Scopes without a storage key are skipped.
func (s *TurnState) Save(ctx context.Context, storage Storage) error {
	changes := map[string]map[string]any{}
	var deletions []string
	scopes := []*StateScope{s.Conversation, s.User}

	for _, scope := range scopes {
		if scope == nil || scope.storageKey == "" {
			continue
		}
		switch {
		case scope.IsDeleted():
			deletions = append(deletions, scope.storageKey)
		case scope.HasChanged():
			changes[scope.storageKey] = scope.values
		}
	}

	if len(changes) > 0 {
		if err := storage.Write(ctx, changes); err != nil {
			return fmt.Errorf("write turn state: %w", err)
		}
	}
	if len(deletions) > 0 {
		if err := storage.Delete(ctx, deletions); err != nil {
			return fmt.Errorf("delete turn state: %w", err)
		}
	}

	for _, scope := range scopes {
		if scope != nil {
			scope.restore()
			scope.markSaved()
		}
	}
	return nil
}
