package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tOgg1/chatline/internal/chat"
	"github.com/tOgg1/chatline/internal/contacts"
	"github.com/tOgg1/chatline/internal/presence"
)

type contactsOptions struct {
	search       string
	onlineOnly   bool
	jsonOutput   bool
	presenceWait time.Duration
}

type contactRecord struct {
	ID       chat.UserID `json:"_id"`
	FullName string      `json:"fullName"`
	Email    string      `json:"email"`
	Online   bool        `json:"online"`
	Selected bool        `json:"selected,omitempty"`
}

type contactsResult struct {
	Filter      contacts.FilterState `json:"filter"`
	OnlineCount int                  `json:"onlineCount"`
	Contacts    []contactRecord      `json:"contacts"`
	Notice      string               `json:"notice,omitempty"`
}

func newContactsCmd(root *rootOptions) *cobra.Command {
	opts := &contactsOptions{}
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Print the contact list once",
		Long: "Print the contacts the sidebar would show: people you have talked to, " +
			"or everyone matching --search.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContacts(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.search, "search", "s", "", "match name or email (searches the whole directory)")
	cmd.Flags().BoolVar(&opts.onlineOnly, "online-only", false, "only list users who are online")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print JSON")
	cmd.Flags().DurationVar(&opts.presenceWait, "presence-wait", 2*time.Second, "how long to wait for the online list (0 skips presence)")
	return cmd
}

func runContacts(cmd *cobra.Command, root *rootOptions, opts *contactsOptions) error {
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

	var online contacts.IDSet
	if opts.presenceWait > 0 && sess.feed != nil {
		online = waitForPresence(ctx, sess, opts.presenceWait)
	}

	if err := sess.directory.Refresh(ctx); err != nil {
		return Exitf(ExitCodeFailure, "%v", err)
	}
	in := contacts.Inputs{
		Users:    sess.directory.Users(),
		LocalID:  sess.self.ID,
		Presence: online,
	}
	msgs, err := sess.client.Messages(ctx, sess.self.ID)
	if err != nil {
		in.Notice = "could not load messages: " + err.Error()
	}
	in.Messages = msgs

	state := contacts.DefaultFilterState()
	state = contacts.Reduce(state, contacts.SetSearch{Query: opts.search})
	state = contacts.Reduce(state, contacts.SetOnlineOnly{Enabled: opts.onlineOnly})

	return writeContacts(cmd.OutOrStdout(), contacts.Derive(state, in), opts.jsonOutput)
}

// waitForPresence streams the feed for up to wait and returns the first
// online set it sees.
func waitForPresence(ctx context.Context, sess *session, wait time.Duration) contacts.IDSet {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	changed := make(chan struct{}, 1)
	unsubscribe := sess.tracker.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sess.feed.Run(ctx)
	}()

	var snapshot contacts.IDSet
	select {
	case <-changed:
		snapshot = sess.tracker.Snapshot()
	case <-ctx.Done():
		if sess.feed.Status() != presence.StatusConnected {
			componentLogger("cli").Warn().Err(sess.feed.Err()).Msg("presence unavailable")
		}
	}
	cancel()
	<-done
	return snapshot
}

func writeContacts(out io.Writer, view contacts.View, jsonOutput bool) error {
	if jsonOutput {
		result := contactsResult{
			Filter:      view.Filter,
			OnlineCount: view.OnlineCount,
			Contacts:    make([]contactRecord, 0, len(view.Rows)),
			Notice:      view.Notice,
		}
		for _, row := range view.Rows {
			result.Contacts = append(result.Contacts, contactRecord{
				ID:       row.User.ID,
				FullName: row.User.FullName,
				Email:    row.User.Email,
				Online:   row.Online,
				Selected: row.Selected,
			})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if view.Notice != "" {
		fmt.Fprintf(out, "warning: %s\n", view.Notice)
	}
	if view.Empty() {
		_, err := fmt.Fprintln(out, "No users to show")
		return err
	}
	t := newTable("NAME", "EMAIL", "STATUS", "ID")
	for _, row := range view.Rows {
		t.addRow(row.User.DisplayName(), row.User.Email, formatPresence(row.Online), row.User.ID.String())
	}
	if err := t.render(out); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\n%d online\n", view.OnlineCount)
	return err
}
