// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/microsoft/teams-ai/go/ai"
)

const consoleChannel = "console"

// consoleTurn is an [ai.TurnContext] that prints replies to a writer.
// Updates of a streamed reply print only the text added since the last
// write.
type consoleTurn struct {
	turn    ai.Turn
	out     io.Writer
	printed map[string]string
}

var _ ai.TurnContext = (*consoleTurn)(nil)

func newConsoleTurn(out io.Writer, conversationID, userID, text string) *consoleTurn {
	return &consoleTurn{
		turn: ai.Turn{
			Text:           text,
			ChannelID:      consoleChannel,
			ConversationID: conversationID,
			UserID:         userID,
			BotID:          "console-bot",
		},
		out:     out,
		printed: map[string]string{},
	}
}

func (c *consoleTurn) Turn() ai.Turn { return c.turn }

func (c *consoleTurn) SendMessage(_ context.Context, msg *ai.OutgoingMessage) (string, error) {
	id := uuid.NewString()
	fmt.Fprintf(c.out, "Assistant: %s", msg.Text)
	c.printed[id] = msg.Text
	c.printExtras(msg)
	return id, nil
}

func (c *consoleTurn) UpdateMessage(_ context.Context, id string, msg *ai.OutgoingMessage) error {
	prev, ok := c.printed[id]
	if !ok {
		return fmt.Errorf("%w: unknown message %s", ai.ErrOperationFailed, id)
	}
	if rest, found := strings.CutPrefix(msg.Text, prev); found {
		fmt.Fprint(c.out, rest)
	} else {
		fmt.Fprintf(c.out, "\nAssistant: %s", msg.Text)
	}
	c.printed[id] = msg.Text
	c.printExtras(msg)
	return nil
}

func (c *consoleTurn) printExtras(msg *ai.OutgoingMessage) {
	for _, cit := range msg.Citations {
		fmt.Fprintf(c.out, "\n  [%d] %s", cit.Position, cit.Title)
	}
	for _, att := range msg.Attachments {
		fmt.Fprintf(c.out, "\n  (attachment %s, %s)", att.Name, att.ContentType)
	}
}
