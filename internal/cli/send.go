package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/chatline/internal/chat"
)

func newSendCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send <user-id> <text>",
		Short: "Send a message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to := chat.UserID(strings.TrimSpace(args[0]))
			text := strings.Join(args[1:], " ")
			if err := chat.ValidateUserID(to); err != nil {
				return Exitf(ExitCodeUsage, "invalid user id %q", args[0])
			}
			if strings.TrimSpace(text) == "" {
				return Exitf(ExitCodeUsage, "message text is empty")
			}

			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			closeLog, err := initLogging(cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx := runContext(cmd)
			sess, err := openSession(ctx, cfg)
			if err != nil {
				return err
			}
			msg, err := sess.client.Send(ctx, to, text)
			if err != nil {
				return Exitf(ExitCodeFailure, "send: %v", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s\n", msg.ID, msg.ReceiverID)
			return err
		},
	}
}
