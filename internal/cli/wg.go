package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotkeep/dotkeep/pkg/style"
	"github.com/dotkeep/dotkeep/pkg/wireguard"
)

func newWgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wg",
		Short: "Manage the WireGuard tunnel",
		Long: `Wg wraps wg-quick and 'wg show' for the configured interface
(wireguard.interface in the config file, wg0 by default).`,
	}

	cmd.AddCommand(newWgStatusCmd())
	cmd.AddCommand(newWgUpCmd())
	cmd.AddCommand(newWgDownCmd())
	cmd.AddCommand(newWgCheckCmd())

	return cmd
}

func newWgStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show tunnel state and peer activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			helper, _, err := newWireGuardHelper()
			if err != nil {
				return err
			}

			status, err := helper.Show(cmd.Context())
			if err != nil {
				return err
			}

			if !status.Up {
				fmt.Printf("%s %s is down\n", style.ErrorIndicator, status.Interface)
				return nil
			}

			fmt.Printf("%s %s is up\n", style.SuccessIndicator, status.Interface)
			for _, peer := range status.Peers {
				fmt.Printf("  peer %s\n", peer.PublicKey)
				if peer.Endpoint != "" {
					fmt.Printf("    endpoint:  %s\n", peer.Endpoint)
				}
				if !peer.LatestHandshake.IsZero() {
					fmt.Printf("    handshake: %s ago\n",
						time.Since(peer.LatestHandshake).Round(time.Second))
				}
				fmt.Printf("    transfer:  %s received, %s sent\n",
					wireguard.FormatTransfer(peer.RxBytes),
					wireguard.FormatTransfer(peer.TxBytes))
			}
			return nil
		},
	}
}

func newWgUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Bring the tunnel up via wg-quick",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			helper, cfg, err := newWireGuardHelper()
			if err != nil {
				return err
			}
			if err := helper.Up(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("%s is up\n", cfg.Interface)
			return nil
		},
	}
}

func newWgDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Take the tunnel down via wg-quick",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			helper, cfg, err := newWireGuardHelper()
			if err != nil {
				return err
			}
			if err := helper.Down(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("%s is down\n", cfg.Interface)
			return nil
		},
	}
}

func newWgCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify tunnel health, exiting non-zero when degraded",
		Long: `Check verifies the interface is up and the last peer handshake is
recent. When wireguard.check_url is configured it also probes that URL
through the tunnel. Intended for cron and shell prompts: a healthy tunnel
exits 0, anything else exits 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			helper, cfg, err := newWireGuardHelper()
			if err != nil {
				return err
			}

			result, err := helper.Check(cmd.Context(), cfg.MaxAge(), cfg.CheckURL)
			if err != nil {
				return err
			}

			fmt.Printf("%s tunnel healthy (handshake %s ago)\n",
				style.SuccessIndicator, result.HandshakeAge.Round(time.Second))
			return nil
		},
	}
}
