// Copyright (c) Microsoft. All rights reserved.

package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"
)

// ResponseStream is a pull iterator over values sent by a producer
// goroutine. The producer's error is reported by [ResponseStream.Next] once
// the values run out, and by [ResponseStream.Close].
type ResponseStream[T any] struct {
	values <-chan T
	done   <-chan error
	cancel context.CancelFunc

	closeOnce sync.Once
	closed    bool
	err       error
}

// NewResponseStream starts producer in a goroutine. The producer must stop
// sending once its context is done. Callers must Close the stream.
func NewResponseStream[T any](ctx context.Context, producer func(ctx context.Context, ch chan<- T) error) *ResponseStream[T] {
	ctx, cancel := context.WithCancel(ctx)
	values := make(chan T, 1)
	done := make(chan error, 1)

	go func() {
		err := producer(ctx, values)
		// done is filled before values closes, so a reader that sees the
		// end of values can always receive the result.
		done <- err
		close(done)
		close(values)
	}()

	return &ResponseStream[T]{values: values, done: done, cancel: cancel}
}

// Next returns the next value. ok is false once the producer has returned;
// err is then the producer's error, if any.
func (s *ResponseStream[T]) Next(ctx context.Context) (val T, ok bool, err error) {
	select {
	case <-ctx.Done():
		return val, false, ctx.Err()
	case v, open := <-s.values:
		if open {
			return v, true, nil
		}
		s.record(<-s.done)
		return val, false, s.err
	}
}

// Collect reads values until the stream ends and returns them along with
// the producer's error.
func (s *ResponseStream[T]) Collect(ctx context.Context) ([]T, error) {
	var items []T
	for {
		val, ok, err := s.Next(ctx)
		if !ok || err != nil {
			return items, err
		}
		items = append(items, val)
	}
}

// Close stops the producer, waits for it to return and reports its error.
// Cancellation caused by Close itself is not an error. Close may be called
// more than once.
func (s *ResponseStream[T]) Close() error {
	s.closeOnce.Do(func() {
		s.closed = true
		s.cancel()
		for range s.values {
		}
		s.record(<-s.done)
	})
	return s.err
}

func (s *ResponseStream[T]) record(err error) {
	if err == nil || s.err != nil {
		return
	}
	if s.closed && errors.Is(err, context.Canceled) {
		return
	}
	s.err = err
}

// SliceStream returns a stream that yields items in order.
func SliceStream[T any](ctx context.Context, items []T) *ResponseStream[T] {
	return NewResponseStream(ctx, func(ctx context.Context, ch chan<- T) error {
		for _, item := range items {
			select {
			case ch <- item:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
}

// LineBreakFor returns the line-break representation used by channelID.
func LineBreakFor(channelID string) string {
	if channelID == "msteams" {
		return "<br>"
	}
	return "\n"
}

// DefaultFlushThreshold is the number of characters buffered before a
// streamed message is sent or updated.
const DefaultFlushThreshold = 100

// SendFunc sends a new message and returns its id.
type SendFunc func(ctx context.Context, msg *OutgoingMessage) (string, error)

// UpdateFunc replaces the content of the message with the given id.
type UpdateFunc func(ctx context.Context, id string, msg *OutgoingMessage) error

// StreamAssembler buffers incremental text and publishes it as one message
// that is sent on the first flush and updated on each later flush.
type StreamAssembler struct {
	threshold    int
	lineBreak    string
	feedbackLoop bool

	buf        strings.Builder
	activityID string
	pending    int
}

// AssemblerOption configures a [StreamAssembler].
type AssemblerOption func(*StreamAssembler)

// WithStreamFeedbackLoop marks streamed messages as accepting user feedback.
func WithStreamFeedbackLoop(enabled bool) AssemblerOption {
	return func(a *StreamAssembler) { a.feedbackLoop = enabled }
}

// NewStreamAssembler creates an assembler that flushes once threshold
// characters are pending. A non-positive threshold uses [DefaultFlushThreshold].
func NewStreamAssembler(threshold int, lineBreak string, opts ...AssemblerOption) *StreamAssembler {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	if lineBreak == "" {
		lineBreak = "\n"
	}
	a := &StreamAssembler{threshold: threshold, lineBreak: lineBreak}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Append adds a text delta to the buffer.
func (a *StreamAssembler) Append(delta string) {
	a.buf.WriteString(delta)
	a.pending += utf8.RuneCountInString(delta)
}

// ShouldFlush reports whether the pending characters reached the threshold.
func (a *StreamAssembler) ShouldFlush() bool {
	return a.pending > 0 && a.pending >= a.threshold
}

// Flush publishes the full buffered text: the first flush sends a new
// message, later flushes update it.
func (a *StreamAssembler) Flush(ctx context.Context, send SendFunc, update UpdateFunc) error {
	msg := &OutgoingMessage{
		Text:                strings.ReplaceAll(a.buf.String(), "\n", a.lineBreak),
		FeedbackLoopEnabled: a.feedbackLoop,
	}
	if a.activityID == "" {
		id, err := send(ctx, msg)
		if err != nil {
			return err
		}
		a.activityID = id
	} else if err := update(ctx, a.activityID, msg); err != nil {
		return err
	}
	a.pending = 0
	return nil
}

// Finish flushes any characters appended since the last flush.
func (a *StreamAssembler) Finish(ctx context.Context, send SendFunc, update UpdateFunc) error {
	if a.pending == 0 {
		return nil
	}
	return a.Flush(ctx, send, update)
}

// ActivityID returns the id of the streamed message, or "" before the first flush.
func (a *StreamAssembler) ActivityID() string { return a.activityID }

// Text returns the raw accumulated text.
func (a *StreamAssembler) Text() string { return a.buf.String() }
