// Package config loads dotkeep's user configuration from
// <config dir>/config.toml. Every field has a sensible default so a missing
// file is not an error.
package config

import (
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/dotkeep/dotkeep/pkg/errors"
	"github.com/dotkeep/dotkeep/pkg/logging"
)

var log = logging.GetLogger("config")

// Config is the root configuration structure
type Config struct {
	Dotfiles  DotfilesConfig  `toml:"dotfiles"`
	Secrets   SecretsConfig   `toml:"secrets"`
	WireGuard WireGuardConfig `toml:"wireguard"`
	Plug      PlugConfig      `toml:"plug"`
	Shots     ShotsConfig     `toml:"shots"`
}

// DotfilesConfig configures the dotfiles manager
type DotfilesConfig struct {
	// Root overrides the storage root resolution (DOTKEEP_ROOT still wins)
	Root string `toml:"root"`
}

// SecretsConfig configures the Bitwarden CLI wrapper
type SecretsConfig struct {
	// Binary is the bw executable name or path
	Binary string `toml:"binary"`

	// KeyItem is the vault item holding the file-encryption passphrase
	KeyItem string `toml:"key_item"`
}

// WireGuardConfig configures the wg helper
type WireGuardConfig struct {
	// Interface is the wg-quick interface name
	Interface string `toml:"interface"`

	// CheckURL is fetched by 'wg check' to verify connectivity (optional)
	CheckURL string `toml:"check_url"`

	// HandshakeMaxAge is how stale the last handshake may be before
	// 'wg check' fails, e.g. "3m"
	HandshakeMaxAge duration `toml:"handshake_max_age"`
}

// PlugConfig configures the smart plug trigger
type PlugConfig struct {
	// Host is the plug's address, e.g. "192.168.1.50"
	Host string `toml:"host"`

	// Timeout bounds each HTTP request, e.g. "5s"
	Timeout duration `toml:"timeout"`
}

// ShotsConfig configures the screenshot renamer
type ShotsConfig struct {
	// Dir is the directory scanned by 'shots tidy' and 'shots organize'
	// when no argument is given
	Dir string `toml:"dir"`

	// Model is the ollama vision model used by 'shots organize' and
	// 'shots tag --auto'
	Model string `toml:"model"`
}

// duration wraps time.Duration for TOML string values like "5s"
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

func (d duration) Duration() time.Duration {
	return time.Duration(d)
}

// Timeout returns the configured plug timeout
func (c PlugConfig) RequestTimeout() time.Duration {
	return c.Timeout.Duration()
}

// MaxAge returns the configured handshake threshold
func (c WireGuardConfig) MaxAge() time.Duration {
	return c.HandshakeMaxAge.Duration()
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Secrets: SecretsConfig{
			Binary:  "bw",
			KeyItem: "dotkeep-file-key",
		},
		WireGuard: WireGuardConfig{
			Interface:       "wg0",
			HandshakeMaxAge: duration(3 * time.Minute),
		},
		Plug: PlugConfig{
			Timeout: duration(5 * time.Second),
		},
		Shots: ShotsConfig{
			Dir:   "~/Desktop",
			Model: "llava",
		},
	}
}

// Load reads the configuration file at path, overlaying it on the defaults.
// A missing file returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("path", path).Msg("no config file, using defaults")
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, errors.ErrConfigLoad, "cannot read config %s", path)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), errors.Wrapf(err, errors.ErrConfigParse, "cannot parse config %s", path)
	}

	log.Debug().Str("path", path).Msg("loaded config file")
	return cfg, nil
}
