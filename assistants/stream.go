// Copyright (c) Microsoft. All rights reserved.

package assistants

import (
	"context"

	"github.com/microsoft/teams-ai/go/ai"
)

// processEventStream relays streamed text to the user and returns the last
// run reported by the stream. The id of the streamed reply is left in
// st.Temp.LastStreamedReplyID.
func (p *Planner) processEventStream(ctx context.Context, tc ai.TurnContext, st *ai.TurnState, stream *ai.ResponseStream[RunEvent]) (*Run, error) {
	defer stream.Close()

	asm := ai.NewStreamAssembler(p.flushThreshold, ai.LineBreakFor(tc.Turn().ChannelID),
		ai.WithStreamFeedbackLoop(p.feedbackLoop))

	var run *Run
	for {
		ev, ok, err := stream.Next(ctx)
		if err != nil {
			return nil, operationFailed("read run stream", err)
		}
		if !ok {
			break
		}

		switch e := ev.(type) {
		case *MessageDeltaEvent:
			text := e.Text()
			if text == "" {
				continue
			}
			asm.Append(text)
			if asm.ShouldFlush() {
				if err := asm.Flush(ctx, tc.SendMessage, tc.UpdateMessage); err != nil {
					return nil, err
				}
			}
		case *RunStatusEvent:
			r := e.Run
			run = &r
		}
	}

	if err := asm.Finish(ctx, tc.SendMessage, tc.UpdateMessage); err != nil {
		return nil, err
	}
	st.Temp.LastStreamedReplyID = asm.ActivityID()
	return run, nil
}
