package cli

import (
	"dial-chat/internal/llm"

	"github.com/spf13/cobra"
)

func newPingCmd() *cobra.Command {
	opts := &clientOptions{}
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Test connectivity with config or flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			_, err = s.complete(cmd.Context(), cmd.OutOrStdout(), []llm.Message{
				llm.NewMessage(llm.RoleUser, "ping"),
			})
			return err
		},
	}
	bindClientFlags(cmd, opts)
	return cmd
}
