package cli

import (
	"dial-chat/internal/chat"

	"github.com/spf13/cobra"
)

type chatOptions struct {
	clientOptions
	System string
}

func newChatCmd() *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: "Start an interactive chat session. Type 'history' to print the conversation " +
			"and 'exit' to quit. Ctrl-C cancels the reply in progress.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}
	bindClientFlags(cmd, &opts.clientOptions)
	cmd.Flags().StringVar(&opts.System, "system", "", "system prompt (asked interactively if empty)")
	return cmd
}

func runChat(cmd *cobra.Command, opts *chatOptions) error {
	s, err := newSession(cmd, &opts.clientOptions)
	if err != nil {
		return err
	}
	console, err := chat.NewConsole(chat.Options{
		Client:              s.client,
		In:                  cmd.InOrStdin(),
		Out:                 cmd.OutOrStdout(),
		Stream:              s.stream,
		SystemPrompt:        opts.System,
		DefaultSystemPrompt: s.cfg.Chat.SystemPrompt,
		TurnContext:         s.turnContext,
		Logger:              s.logger,
	})
	if err != nil {
		return err
	}
	s.logger.Debug("chat session started", "stream", s.stream)
	return console.Run(cmd.Context())
}
