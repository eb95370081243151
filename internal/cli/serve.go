package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tOgg1/chatline/internal/db"
	"github.com/tOgg1/chatline/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var listen, dbPath string
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local development backend",
		Long: "Run a development backend with the REST routes and presence socket chatline uses. " +
			"The bearer token is the user id; `serve` prints the seeded ids on startup.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.DevServer.Listen = listen
			}
			if cmd.Flags().Changed("db") {
				cfg.DevServer.DBPath = dbPath
			}
			if cmd.Flags().Changed("seed") {
				cfg.DevServer.Seed = seed
			}
			closeLog, err := initLogging(cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(runContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := db.Open(ctx, db.Config{Path: cfg.DevServer.DBPath})
			if err != nil {
				return Exitf(ExitCodeFailure, "%v", err)
			}
			defer store.Close()

			if cfg.DevServer.Seed {
				users, err := db.Seed(ctx, store)
				if err != nil {
					return Exitf(ExitCodeFailure, "seed: %v", err)
				}
				out := cmd.OutOrStdout()
				if len(users) > 0 {
					t := newTable("NAME", "EMAIL", "TOKEN")
					for _, u := range users {
						t.addRow(u.FullName, u.Email, u.ID.String())
					}
					if err := t.render(out); err != nil {
						return err
					}
					fmt.Fprintln(out)
				}
			}

			srv, err := server.New(server.Config{
				Listen: cfg.DevServer.Listen,
				DB:     store,
				Logger: componentLogger("server"),
			})
			if err != nil {
				return err
			}
			if err := srv.Run(ctx); err != nil {
				return Exitf(ExitCodeFailure, "%v", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from devserver.listen)")
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite database path (default from devserver.db_path)")
	cmd.Flags().BoolVar(&seed, "seed", true, "insert demo users into an empty database")
	return cmd
}
