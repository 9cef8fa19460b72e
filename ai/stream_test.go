// Copyright (c) Microsoft. All rights reserved.

package ai_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/teams-ai/go/ai"
)

func TestResponseStream_Collect(t *testing.T) {
	stream := ai.NewResponseStream(context.Background(), func(ctx context.Context, ch chan<- int) error {
		for i := 1; i <= 3; i++ {
			ch <- i
		}
		return nil
	})
	defer stream.Close()

	items, err := stream.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, items)
}

func TestResponseStream_ProducerError(t *testing.T) {
	boom := errors.New("boom")
	stream := ai.NewResponseStream(context.Background(), func(ctx context.Context, ch chan<- string) error {
		ch <- "partial"
		return boom
	})
	defer stream.Close()

	items, err := stream.Collect(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"partial"}, items)
}

func TestResponseStream_CloseStopsProducer(t *testing.T) {
	stream := ai.NewResponseStream(context.Background(), func(ctx context.Context, ch chan<- int) error {
		for {
			select {
			case ch <- 42:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	v, ok, err := stream.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, v)

	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())
}

func TestResponseStream_CloseReportsProducerError(t *testing.T) {
	boom := errors.New("boom")
	stream := ai.NewResponseStream(context.Background(), func(ctx context.Context, ch chan<- int) error {
		select {
		case ch <- 1:
		case <-ctx.Done():
		}
		return boom
	})

	v, ok, err := stream.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	assert.ErrorIs(t, stream.Close(), boom)
	assert.ErrorIs(t, stream.Close(), boom)
}

func TestResponseStream_ParentCancelIsReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stream := ai.NewResponseStream(ctx, func(ctx context.Context, ch chan<- int) error {
		<-ctx.Done()
		return ctx.Err()
	})
	cancel()

	_, ok, err := stream.Next(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, stream.Close(), context.Canceled)
}

func TestSliceStream(t *testing.T) {
	stream := ai.SliceStream(context.Background(), []string{"a", "b"})
	defer stream.Close()

	items, err := stream.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, items)
}

func TestLineBreakFor(t *testing.T) {
	assert.Equal(t, "<br>", ai.LineBreakFor("msteams"))
	assert.Equal(t, "\n", ai.LineBreakFor("webchat"))
}

func TestStreamAssembler_FlushesSendThenUpdate(t *testing.T) {
	tc := newTurnContext("")
	a := ai.NewStreamAssembler(75, "\n")
	ctx := context.Background()

	flushes := 0
	for _, chunk := range []string{strings.Repeat("a", 40), strings.Repeat("b", 40), strings.Repeat("c", 40)} {
		a.Append(chunk)
		if a.ShouldFlush() {
			require.NoError(t, a.Flush(ctx, tc.SendMessage, tc.UpdateMessage))
			flushes++
		}
	}
	assert.Equal(t, 1, flushes, "only the second chunk crosses the threshold")

	require.NoError(t, a.Finish(ctx, tc.SendMessage, tc.UpdateMessage))

	require.Len(t, tc.sent, 1)
	assert.Len(t, tc.sent[0].Text, 80)
	require.Len(t, tc.updates, 1)
	assert.Equal(t, "msg-1", tc.updates[0].id)
	assert.Len(t, tc.updates[0].msg.Text, 120)
	assert.Equal(t, "msg-1", a.ActivityID())
}

func TestStreamAssembler_FinishWithoutPendingIsNoop(t *testing.T) {
	tc := newTurnContext("")
	a := ai.NewStreamAssembler(10, "\n")

	require.NoError(t, a.Finish(context.Background(), tc.SendMessage, tc.UpdateMessage))
	assert.Empty(t, tc.sent)
	assert.Empty(t, a.ActivityID())
}

func TestStreamAssembler_TranslatesLineBreaks(t *testing.T) {
	tc := newTurnContext("")
	a := ai.NewStreamAssembler(0, "<br>", ai.WithStreamFeedbackLoop(true))

	a.Append("one\ntwo")
	assert.False(t, a.ShouldFlush())
	require.NoError(t, a.Finish(context.Background(), tc.SendMessage, tc.UpdateMessage))

	require.Len(t, tc.sent, 1)
	assert.Equal(t, "one<br>two", tc.sent[0].Text)
	assert.True(t, tc.sent[0].FeedbackLoopEnabled)
	assert.Equal(t, "one\ntwo", a.Text())
}

func TestStreamAssembler_SendErrorKeepsPending(t *testing.T) {
	tc := newTurnContext("")
	tc.sendErr = errors.New("offline")
	a := ai.NewStreamAssembler(1, "\n")

	a.Append("x")
	require.Error(t, a.Flush(context.Background(), tc.SendMessage, tc.UpdateMessage))
	assert.True(t, a.ShouldFlush())
}
