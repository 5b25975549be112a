package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vpnhouse/console/internal/config"
	"github.com/vpnhouse/console/internal/domain"
	"github.com/vpnhouse/console/internal/ui/app"
)

func setupPayload(password string) domain.InitialSetup {
	return domain.InitialSetup{AdminPassword: password, SendStats: true}
}

// Execute runs the vhadmin command tree.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	serverURL  string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "vhadmin",
		Short:         "VPN appliance admin console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().StringVar(&flags.serverURL, "server", "", "appliance base URL (overrides config)")

	root.AddCommand(newConsoleCmd(flags))
	root.AddCommand(newLoginCmd(flags))
	root.AddCommand(newLogoutCmd(flags))
	root.AddCommand(newSetupCmd(flags))
	root.AddCommand(newPeersCmd(flags))
	root.AddCommand(newKeysCmd(flags))
	root.AddCommand(newStatusCmd(flags))
	root.AddCommand(newSettingsCmd(flags))
	root.AddCommand(newDevserverCmd())
	return root
}

func loadApp(flags *rootFlags) (*App, error) {
	cfg, err := config.Load(flags.configPath, flags.configPath != "")
	if err != nil {
		return nil, err
	}
	if flags.serverURL != "" {
		cfg.ServerURL = flags.serverURL
	}
	return NewApp(cfg, nil)
}

// loadSignedIn additionally requires a live session.
func loadSignedIn(flags *rootFlags) (*App, error) {
	a, err := loadApp(flags)
	if err != nil {
		return nil, err
	}
	if !a.Session.CheckToken() {
		return nil, errors.New("not signed in, run: vhadmin login")
	}
	return a, nil
}

func readPassword(prompt string) (string, error) {
	_, _ = fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// lastError surfaces the newest queued notification as a command error, so
// scripted invocations see the same message the console toasts.
func lastError(a *App, fallback string) error {
	notices := a.Notices.Snapshot()
	if len(notices) > 0 {
		return errors.New(notices[len(notices)-1].Message)
	}
	return errors.New(fallback)
}

func newConsoleCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Run the interactive console",
		RunE: func(_ *cobra.Command, _ []string) error {
			// The TUI owns the terminal; keep log lines out of it.
			a, err := loadAppQuiet(flags)
			if err != nil {
				return err
			}
			a.Session.CheckToken()
			return app.Run(app.Deps{
				Session:  a.Session,
				Setup:    a.Setup,
				Peers:    a.Peers,
				Trusted:  a.Trusted,
				Status:   a.Status,
				Settings: a.Settings,
				Notices:  a.Notices,
				Dialogs:  a.Dialogs,
			})
		},
	}
}

func loadAppQuiet(flags *rootFlags) (*App, error) {
	cfg, err := config.Load(flags.configPath, flags.configPath != "")
	if err != nil {
		return nil, err
	}
	if flags.serverURL != "" {
		cfg.ServerURL = flags.serverURL
	}
	f, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return nil, err
	}
	return NewApp(cfg, f)
}

func newLoginCmd(flags *rootFlags) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(flags)
			if err != nil {
				return err
			}
			if password == "" {
				if password, err = readPassword("Password: "); err != nil {
					return err
				}
			}
			if err := a.Session.Login(cmd.Context(), password); err != nil {
				return lastError(a, "login failed")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "signed in")
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "admin password (prompted if omitted)")
	return cmd
}

func newLogoutCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the stored access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(flags)
			if err != nil {
				return err
			}
			a.Session.Logout()
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newSetupCmd(flags *rootFlags) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Perform the first-run appliance setup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(flags)
			if err != nil {
				return err
			}
			if err := a.Setup.Check(cmd.Context()); err != nil {
				return err
			}
			if a.Setup.Snapshot().Configured {
				return errors.New("appliance is already configured")
			}
			if password == "" {
				first, err := readPassword("Admin password: ")
				if err != nil {
					return err
				}
				again, err := readPassword("Repeat password: ")
				if err != nil {
					return err
				}
				if first != again {
					return errors.New("passwords do not match")
				}
				password = first
			}
			if err := a.Setup.Apply(cmd.Context(), setupPayload(password)); err != nil {
				return lastError(a, "setup failed")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "appliance configured")
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "admin password (prompted if omitted)")
	return cmd
}
