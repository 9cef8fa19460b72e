// Copyright (c) Microsoft. All rights reserved.

package assistants_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/teams-ai/go/assistants"
)

func TestDecodeRunEvent_MessageDelta(t *testing.T) {
	data := []byte(`{"id":"msg_1","object":"thread.message.delta","delta":{"content":[
		{"index":0,"type":"text","text":{"value":"Hel"}},
		{"index":1,"type":"text","text":{"value":"lo"}}]}}`)

	ev, ok, err := assistants.DecodeRunEvent("thread.message.delta", data)
	require.NoError(t, err)
	require.True(t, ok)

	delta, isDelta := ev.(*assistants.MessageDeltaEvent)
	require.True(t, isDelta)
	assert.Equal(t, assistants.EventMessageDelta, delta.Kind())
	assert.Equal(t, "msg_1", delta.ID)
	assert.Equal(t, "Hello", delta.Text())
}

func TestDecodeRunEvent_RunStatus(t *testing.T) {
	tests := []struct {
		kind   assistants.EventKind
		status assistants.RunStatus
	}{
		{assistants.EventRunCompleted, assistants.StatusCompleted},
		{assistants.EventRunRequiresAction, assistants.StatusRequiresAction},
		{assistants.EventRunExpired, assistants.StatusExpired},
		{assistants.EventRunFailed, assistants.StatusFailed},
		{assistants.EventRunCancelled, assistants.StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			data := []byte(`{"id":"run_1","thread_id":"thread_1","status":"` + string(tt.status) + `"}`)
			ev, ok, err := assistants.DecodeRunEvent(string(tt.kind), data)
			require.NoError(t, err)
			require.True(t, ok)

			rs, isStatus := ev.(*assistants.RunStatusEvent)
			require.True(t, isStatus)
			assert.Equal(t, tt.kind, rs.Kind())
			assert.Equal(t, "run_1", rs.Run.ID)
			assert.Equal(t, tt.status, rs.Run.Status)
		})
	}
}

func TestDecodeRunEvent_IgnoredKinds(t *testing.T) {
	for _, kind := range []string{"thread.run.created", "thread.message.completed", "done", ""} {
		ev, ok, err := assistants.DecodeRunEvent(kind, []byte(`{}`))
		require.NoError(t, err, kind)
		assert.False(t, ok, kind)
		assert.Nil(t, ev, kind)
	}
}

func TestDecodeRunEvent_Malformed(t *testing.T) {
	_, ok, err := assistants.DecodeRunEvent("thread.run.completed", []byte(`{"id":`))
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRunStatus_IsTerminal(t *testing.T) {
	terminal := map[assistants.RunStatus]bool{
		assistants.StatusQueued:         false,
		assistants.StatusInProgress:     false,
		assistants.StatusRequiresAction: false,
		assistants.StatusCancelling:     false,
		assistants.StatusCancelled:      true,
		assistants.StatusFailed:         true,
		assistants.StatusCompleted:      true,
		assistants.StatusIncomplete:     true,
		assistants.StatusExpired:        true,
	}
	for status, want := range terminal {
		assert.Equal(t, want, status.IsTerminal(), status)
	}
}
