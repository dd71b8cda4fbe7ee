package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"dial-chat/internal/chat"

	"github.com/spf13/cobra"
)

type askOptions struct {
	clientOptions
	InputFile string
	System    string
}

func newAskCmd() *cobra.Command {
	opts := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask [text...]",
		Short: "Send a single question and print the reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, opts, args)
		},
	}
	bindClientFlags(cmd, &opts.clientOptions)
	cmd.Flags().StringVarP(&opts.InputFile, "file", "F", "", "question file, use -F- for stdin")
	cmd.Flags().StringVar(&opts.System, "system", "", "system prompt (default: built-in prompt)")
	return cmd
}

func runAsk(cmd *cobra.Command, opts *askOptions, args []string) error {
	input, err := readInput(args, opts.InputFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input is required")
	}

	s, err := newSession(cmd, &opts.clientOptions)
	if err != nil {
		return err
	}
	system := firstNonEmpty(opts.System, s.cfg.Chat.SystemPrompt, chat.DefaultSystemPrompt())
	_, err = s.complete(cmd.Context(), cmd.OutOrStdout(), buildMessages(system, input))
	return err
}

func readInput(args []string, inputFile string, stdin io.Reader) (string, error) {
	if inputFile != "" && len(args) > 0 {
		return "", fmt.Errorf("input args and -F are mutually exclusive")
	}
	if inputFile == "" {
		if len(args) == 0 {
			return "", fmt.Errorf("missing input: provide args or -F")
		}
		return strings.Join(args, " "), nil
	}
	if inputFile == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return trimTrailingNewline(string(data)), nil
	}
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return trimTrailingNewline(string(data)), nil
}

func trimTrailingNewline(value string) string {
	return strings.TrimRight(value, "\r\n")
}
