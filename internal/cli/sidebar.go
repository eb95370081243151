package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tOgg1/chatline/internal/contacts"
	"github.com/tOgg1/chatline/internal/directory"
	"github.com/tOgg1/chatline/internal/selection"
	"github.com/tOgg1/chatline/internal/tui"
)

func newSidebarCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sidebar",
		Short: "Open the contact sidebar",
		Long:  "Open the interactive contact sidebar. This is the default command.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSidebar(cmd, opts)
		},
	}
}

func runSidebar(cmd *cobra.Command, opts *rootOptions) error {
	if !hasTTY() {
		return Exitf(ExitCodeUsage, "the sidebar needs an interactive terminal; try `chatline contacts`")
	}
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	// Records must never reach the screen the sidebar draws on.
	closeLog, err := initLogging(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(runContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	sess.startPresence(ctx)

	if cfg.Server.RefreshInterval > 0 {
		poller := directory.NewPoller(sess.directory, cfg.Server.RefreshInterval)
		if err := poller.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = poller.Stop() }()
	}

	sel, err := selection.New(selection.WithStatePath(cfg.State.Path))
	if err != nil {
		// A corrupt state file only loses the previous selection.
		componentLogger("cli").Warn().Err(err).Msg("selection state ignored")
	}

	engine, err := contacts.NewEngine(contacts.EngineConfig{
		Directory: sess.directory,
		Presence:  sess.tracker,
		Messages:  sess.client,
		Selection: sel,
		Logger:    componentLogger("contacts"),
	})
	if err != nil {
		return err
	}

	tuiCfg := tui.Config{
		Engine:       engine,
		Identity:     sess.directory,
		Theme:        cfg.TUI.Theme,
		SidebarWidth: cfg.TUI.SidebarWidth,
	}
	if sess.feed != nil {
		tuiCfg.Connection = sess.feed
	}
	return tui.Run(ctx, tuiCfg)
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// runContext is cmd's context, falling back to Background for direct calls.
func runContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
