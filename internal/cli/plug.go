package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotkeep/dotkeep/pkg/plug"
)

func newPlugCmd() *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "plug",
		Short: "Switch a Tasmota smart plug",
		Long: `Plug talks to a Tasmota-flashed smart plug over its HTTP command
interface. The plug's address comes from plug.host in the config file or
the --host flag.`,
	}

	cmd.PersistentFlags().StringVar(&host, "host", "", "Plug address (overrides plug.host)")

	newClient := func() (*plug.Client, error) {
		cfg, _, err := setup()
		if err != nil {
			return nil, err
		}
		addr := cfg.Plug.Host
		if host != "" {
			addr = host
		}
		return plug.New(addr, cfg.Plug.RequestTimeout()), nil
	}

	actions := []struct {
		use   string
		short string
		run   func(c *plug.Client, cmd *cobra.Command) (plug.PowerState, error)
	}{
		{"on", "Turn the plug on", func(c *plug.Client, cmd *cobra.Command) (plug.PowerState, error) {
			return c.On(cmd.Context())
		}},
		{"off", "Turn the plug off", func(c *plug.Client, cmd *cobra.Command) (plug.PowerState, error) {
			return c.Off(cmd.Context())
		}},
		{"toggle", "Toggle the plug", func(c *plug.Client, cmd *cobra.Command) (plug.PowerState, error) {
			return c.Toggle(cmd.Context())
		}},
		{"status", "Show the plug's power state", func(c *plug.Client, cmd *cobra.Command) (plug.PowerState, error) {
			return c.Status(cmd.Context())
		}},
	}

	for _, action := range actions {
		run := action.run
		cmd.AddCommand(&cobra.Command{
			Use:   action.use,
			Short: action.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := newClient()
				if err != nil {
					return err
				}
				state, err := run(client, cmd)
				if err != nil {
					return err
				}
				fmt.Printf("Power is %s\n", strings.ToLower(string(state)))
				return nil
			},
		})
	}

	return cmd
}
