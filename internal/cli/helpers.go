package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dotkeep/dotkeep/pkg/config"
	"github.com/dotkeep/dotkeep/pkg/dotfiles"
	"github.com/dotkeep/dotkeep/pkg/paths"
	"github.com/dotkeep/dotkeep/pkg/runner"
	"github.com/dotkeep/dotkeep/pkg/secrets"
	"github.com/dotkeep/dotkeep/pkg/wireguard"
)

// setup resolves paths and configuration for a command invocation.
// The configured dotfiles root applies unless DOTKEEP_ROOT overrides it.
func setup() (config.Config, paths.Paths, error) {
	p, err := paths.New("")
	if err != nil {
		return config.Config{}, nil, err
	}

	cfg, err := config.Load(p.ConfigFilePath())
	if err != nil {
		return cfg, nil, err
	}

	if cfg.Dotfiles.Root != "" && os.Getenv(paths.EnvStorageRoot) == "" {
		p, err = paths.New(cfg.Dotfiles.Root)
		if err != nil {
			return cfg, nil, err
		}
	}

	if p.UsedFallback() {
		fmt.Fprintf(os.Stderr, "Warning: not in a git repository and %s not set, using %s\n\n",
			paths.EnvStorageRoot, p.StorageRoot())
	}

	return cfg, p, nil
}

// newDotfilesManager builds the manager most commands operate on
func newDotfilesManager() (*dotfiles.Manager, error) {
	_, p, err := setup()
	if err != nil {
		return nil, err
	}
	return dotfiles.NewManager(p), nil
}

// newSecretsClient builds the Bitwarden wrapper from the configuration
func newSecretsClient() (*secrets.Client, error) {
	cfg, p, err := setup()
	if err != nil {
		return nil, err
	}
	return secrets.New(p, runner.New(), cfg.Secrets.Binary, cfg.Secrets.KeyItem), nil
}

// newWireGuardHelper builds the wg helper from the configuration
func newWireGuardHelper() (*wireguard.Helper, config.WireGuardConfig, error) {
	cfg, _, err := setup()
	if err != nil {
		return nil, config.WireGuardConfig{}, err
	}
	return wireguard.New(cfg.WireGuard.Interface, runner.New(), nil), cfg.WireGuard, nil
}

// dryRunFlag reads the persistent --dry-run flag
func dryRunFlag(cmd *cobra.Command) bool {
	dryRun, _ := cmd.Root().PersistentFlags().GetBool("dry-run")
	return dryRun
}

// promptSecret reads a value from the terminal without echoing it.
// Falls back to a plain line read when stdin is not a terminal.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		value, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return string(value), nil
	}

	return readSecretLine(os.Stdin)
}

// readSecretLine reads one full line so piped values keep their interior
// whitespace. The trailing line break is stripped.
func readSecretLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
