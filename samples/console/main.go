// Copyright (c) Microsoft. All rights reserved.

// Command console chats with an OpenAI assistant from the terminal, using
// the assistants planner, the AI run loop and SQLite conversation state.
//
// Usage with OpenAI:
//
//	export OPENAI_API_KEY=sk-...
//	go run . create-assistant          # prints an assistant id
//	export ASSISTANT_ID=asst_...
//	go run . run
//
// Usage with Azure OpenAI:
//
//	export AZURE_OPENAI_ENDPOINT=https://<resource>.openai.azure.com
//	export AZURE_OPENAI_KEY=<your-key>   # optional, DefaultAzureCredential otherwise
//	go run . run
//
// Settings can also be placed in a YAML file passed with --config.
// Set DEBUG=1 for debug logging.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/microsoft/teams-ai/go/ai"
	"github.com/microsoft/teams-ai/go/assistants"
	"github.com/microsoft/teams-ai/go/storage/sqlite"
)

func main() {
	// Load .env file if present (ignored if missing).
	_ = godotenv.Load()

	// Enable debug logging if requested
	if os.Getenv("DEBUG") != "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "console",
		Short:        "Chat with an OpenAI assistant from the terminal",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "config.yaml", "path to a YAML config file")
	root.AddCommand(newRunCmd(), newCreateAssistantCmd())
	return root
}

func configFromFlags(cmd *cobra.Command) (*Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return loadConfig(path)
}

func newRunCmd() *cobra.Command {
	var conversation string
	var fresh bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start an interactive conversation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			if fresh {
				conversation = uuid.NewString()
			}
			return runConsole(cmd.Context(), cfg, conversation, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&conversation, "conversation", "console", "conversation id used to persist state")
	cmd.Flags().BoolVar(&fresh, "new", false, "start a new conversation")
	return cmd
}

func newCreateAssistantCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create-assistant",
		Short: "Create an assistant with the sample's tools",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			asst, err := client.CreateAssistant(cmd.Context(), &assistants.AssistantCreateParams{
				Model:        cfg.Model,
				Name:         name,
				Instructions: cfg.Instructions,
				Tools:        toolDefinitions(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), asst.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Teams AI console sample", "assistant name")
	return cmd
}

func runConsole(ctx context.Context, cfg *Config, conversationID string, in io.Reader, out io.Writer) error {
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	planner, err := assistants.New(client,
		assistants.WithAssistantID(cfg.AssistantID),
		assistants.WithStreaming(cfg.Streaming),
	)
	if err != nil {
		return err
	}

	opts := []ai.Option{
		ai.WithMaxSteps(cfg.MaxSteps),
		ai.WithActionMiddleware(ai.LoggingMiddleware(slog.Default())),
	}
	if cfg.Moderate {
		moderator, err := ai.NewClassifierModerator(client, ai.ModerateBoth)
		if err != nil {
			return err
		}
		opts = append(opts, ai.WithModerator(moderator))
	}
	bot, err := ai.New(planner, opts...)
	if err != nil {
		return err
	}
	if err := registerActions(bot.Actions()); err != nil {
		return err
	}

	store, err := sqlite.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Fprintf(out, "Conversation %s (type 'quit' to exit)\n\n", conversationID)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			return nil
		}

		if err := runTurn(ctx, bot, store, newConsoleTurn(out, conversationID, "console-user", input)); err != nil {
			slog.ErrorContext(ctx, "turn failed", "error", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		fmt.Fprint(out, "\n\n")
	}
}

// runTurn loads the turn's state, runs the AI loop and saves the state.
// The state is saved even when the run fails or ctx is cancelled, so a
// thread created before an interrupt is not lost.
func runTurn(ctx context.Context, bot *ai.AI, store ai.Storage, tc *consoleTurn) error {
	st, err := ai.LoadTurnState(ctx, store, tc.Turn())
	if err != nil {
		return err
	}
	_, runErr := bot.Run(ctx, tc, st)
	saveErr := st.Save(context.WithoutCancel(ctx), store)
	return errors.Join(runErr, saveErr)
}
