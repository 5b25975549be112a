package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vpnhouse/console/internal/domain"
)

func newStatusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service status and traffic totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadSignedIn(flags)
			if err != nil {
				return err
			}
			if err := a.Status.Fetch(cmd.Context()); err != nil {
				return lastError(a, "status failed")
			}
			snap := a.Status.Snapshot()
			out := cmd.OutOrStdout()
			if snap.Status.RestartRequired {
				_, _ = fmt.Fprintln(out, "service: restart required")
			} else {
				_, _ = fmt.Fprintln(out, "service: running")
			}
			stats := snap.Status.StatsGlobal
			_, _ = fmt.Fprintf(out, "peers:   %d active of %d\n", stats.PeersActive, stats.PeersTotal)
			_, _ = fmt.Fprintf(out, "traffic: up %s, down %s\n",
				humanize.Bytes(uint64(stats.TrafficUp)), humanize.Bytes(uint64(stats.TrafficDown)))
			_, _ = fmt.Fprintf(out, "speed:   up %s/s, down %s/s\n",
				humanize.Bytes(uint64(stats.SpeedUp)), humanize.Bytes(uint64(stats.SpeedDown)))
			return nil
		},
	}
}

func newSettingsCmd(flags *rootFlags) *cobra.Command {
	var port int
	var subnet, dns string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change appliance settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadSignedIn(flags)
			if err != nil {
				return err
			}
			if err := a.Settings.Load(cmd.Context()); err != nil {
				return lastError(a, "settings fetch failed")
			}
			current := a.Settings.Snapshot()

			if port != 0 || subnet != "" || dns != "" {
				changed := *current
				if port != 0 {
					changed.WireguardListenPort = port
				}
				if subnet != "" {
					changed.WireguardSubnet = subnet
				}
				if dns != "" {
					changed.DNS = splitCSV(dns)
				}
				if err := a.Settings.Apply(cmd.Context(), changed); err != nil {
					return lastError(a, "settings update failed")
				}
				current = a.Settings.Snapshot()
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "settings updated")
			}
			printSettings(cmd, *current)
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "wireguard listen port")
	cmd.Flags().StringVar(&subnet, "subnet", "", "wireguard subnet (CIDR)")
	cmd.Flags().StringVar(&dns, "dns", "", "comma-separated DNS servers")
	return cmd
}

func printSettings(cmd *cobra.Command, s domain.Settings) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "listen port:  "+strconv.Itoa(s.WireguardListenPort))
	_, _ = fmt.Fprintln(out, "subnet:       "+s.WireguardSubnet)
	_, _ = fmt.Fprintln(out, "server ipv4:  "+s.WireguardServerIPv4)
	_, _ = fmt.Fprintln(out, "public key:   "+s.WireguardPublicKey)
	_, _ = fmt.Fprintln(out, "dns:          "+strings.Join(s.DNS, ", "))
	_, _ = fmt.Fprintln(out, "keepalive:    "+strconv.Itoa(s.WireguardKeepalive)+"s")
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
