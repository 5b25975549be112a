package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vpnhouse/console/internal/domain"
	"github.com/vpnhouse/console/internal/validate"
	"github.com/vpnhouse/console/internal/wgkeys"
)

func newPeersCmd(flags *rootFlags) *cobra.Command {
	peersCmd := &cobra.Command{Use: "peers", Short: "Manage wireguard peers"}
	peersCmd.AddCommand(newPeersListCmd(flags))
	peersCmd.AddCommand(newPeersAddCmd(flags))
	peersCmd.AddCommand(newPeersDeleteCmd(flags))
	return peersCmd
}

func newPeersListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered peers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadSignedIn(flags)
			if err != nil {
				return err
			}
			if err := a.Peers.Load(cmd.Context()); err != nil {
				return lastError(a, "list failed")
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tLABEL\tIPV4\tEXPIRES")
			for _, e := range a.Peers.Snapshot().Peers {
				expires := "-"
				if e.Peer.Expires != nil {
					expires = e.Peer.Expires.Format("2006-01-02 15:04")
				}
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.Peer.ID, e.Peer.Label, e.Peer.IPv4, expires)
			}
			return w.Flush()
		},
	}
}

func newPeersAddCmd(flags *rootFlags) *cobra.Command {
	var label, ipv4, expireDate, expireTime, outPath string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new peer and save its tunnel config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadSignedIn(flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.Peers.Begin(ctx); err != nil {
				return lastError(a, "could not start a draft")
			}
			draft := *a.Peers.Snapshot().Draft
			draft.Label = label
			if ipv4 != "" {
				draft.IPv4 = ipv4
			}
			draft.Expires = validate.CombineExpiry(expireDate, expireTime, time.Local)
			if errs := validateDraft(draft, expireDate, expireTime); errs != nil {
				return errs
			}
			privateKey := draft.PrivateKey
			if err := a.Peers.Save(ctx, draft); err != nil {
				return lastError(a, "save failed")
			}
			info, err := a.Client.WireguardInfo(ctx)
			if err != nil {
				return lastError(a, "could not fetch wireguard info")
			}
			cfg := wgkeys.RenderConfig(privateKey, draft.IPv4, info)
			if outPath == "" {
				outPath = wgkeys.ConfigFileName
			}
			if err := os.WriteFile(outPath, []byte(cfg), 0o600); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "peer %s added, config written to %s\n", draft.IPv4, outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "peer label")
	cmd.Flags().StringVar(&ipv4, "ipv4", "", "peer address (allocated if omitted)")
	cmd.Flags().StringVar(&expireDate, "expire-date", "", "expiry date YYYY-MM-DD")
	cmd.Flags().StringVar(&expireTime, "expire-time", "", "expiry time HH:MM")
	cmd.Flags().StringVar(&outPath, "out", "", "config output path (default "+wgkeys.ConfigFileName+")")
	return cmd
}

func validateDraft(draft domain.Peer, expireDate, expireTime string) error {
	errs := domain.FieldErrors{}
	if msg := validate.Submit(validate.FieldLabel, draft.Label); msg != "" {
		errs["label"] = msg
	}
	if msg := validate.Submit(validate.FieldIPv4, draft.IPv4); msg != "" {
		errs["ipv4"] = msg
	}
	if msg := validate.Expiry(expireDate, expireTime, time.Now()); msg != "" {
		errs["expires"] = msg
	}
	if len(errs) == 0 {
		return nil
	}
	for field, msg := range errs {
		return fmt.Errorf("%s: %s", field, msg)
	}
	return nil
}

func newPeersDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid peer id %q", args[0])
			}
			a, err := loadSignedIn(flags)
			if err != nil {
				return err
			}
			if err := a.Peers.Load(cmd.Context()); err != nil {
				return lastError(a, "list failed")
			}
			if err := a.Peers.Delete(cmd.Context(), id); err != nil {
				return lastError(a, "delete failed")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "peer deleted")
			return nil
		},
	}
}
