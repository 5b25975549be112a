package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/vpnhouse/console/internal/devserver"
	"github.com/vpnhouse/console/internal/log"
)

func newDevserverCmd() *cobra.Command {
	var addr, dbPath, password, logLevel string
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local appliance simulator",
		Long: "Run an in-process appliance with the same admin API surface,\n" +
			"backed by sqlite. Intended for local development and demos.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.New(logLevel)
			store, err := devserver.OpenStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			srv, err := devserver.New(store, logger, devserver.Options{
				AdminPassword: password,
			})
			if err != nil {
				return err
			}
			logger.Info("devserver listening", "addr", addr, "db", dbPath)
			if password != "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "pre-configured, sign in with the --password value")
			} else {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "unconfigured, run: vhadmin setup --server http://"+addr)
			}
			return http.ListenAndServe(addr, srv.Handler())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8082", "listen address")
	cmd.Flags().StringVar(&dbPath, "db", ":memory:", "sqlite database path")
	cmd.Flags().StringVar(&password, "password", "", "pre-configure with this admin password")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")
	return cmd
}
