// Package secrets wraps the Bitwarden CLI (bw) for vault access and ties
// it to the BWENC1 file encryption in pkg/crypt.
//
// The session key obtained at login/unlock is cached in a 0600 file under
// the XDG state dir and handed to every bw invocation via BW_SESSION.
package secrets

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dotkeep/dotkeep/pkg/crypt"
	"github.com/dotkeep/dotkeep/pkg/errors"
	"github.com/dotkeep/dotkeep/pkg/logging"
	"github.com/dotkeep/dotkeep/pkg/paths"
	"github.com/dotkeep/dotkeep/pkg/runner"
)

// Client wraps the Bitwarden CLI
type Client struct {
	bin     string
	keyItem string
	paths   paths.Paths
	runner  runner.Runner
	logger  zerolog.Logger
}

// New creates a Client. bin is the bw executable, keyItem the vault item
// holding the file-encryption passphrase.
func New(p paths.Paths, r runner.Runner, bin, keyItem string) *Client {
	if bin == "" {
		bin = "bw"
	}
	return &Client{
		bin:     bin,
		keyItem: keyItem,
		paths:   p,
		runner:  r,
		logger:  logging.GetLogger("secrets"),
	}
}

// item is the subset of bw's item JSON we care about
type item struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Notes string `json:"notes"`
	Type  int    `json:"type"`
}

// secureNoteType is bw's item type for secure notes
const secureNoteType = 2

// session returns the cached session key, or an ErrVaultLocked error
func (c *Client) session() (string, error) {
	data, err := os.ReadFile(c.paths.SessionPath())
	if err != nil {
		return "", errors.New(errors.ErrVaultLocked,
			"vault is locked (run 'dotkeep secret unlock' first)")
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", errors.New(errors.ErrVaultLocked,
			"vault is locked (run 'dotkeep secret unlock' first)")
	}
	return key, nil
}

// saveSession caches the session key with owner-only permissions
func (c *Client) saveSession(key string) error {
	path := c.paths.SessionPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "cannot create state directory")
	}
	if err := os.WriteFile(path, []byte(key+"\n"), 0600); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write session file")
	}
	return nil
}

// run invokes bw with the cached session in the environment
func (c *Client) run(ctx context.Context, args ...string) (runner.Result, error) {
	key, err := c.session()
	if err != nil {
		return runner.Result{}, err
	}

	full := append([]string{"--session", key, "--nointeraction"}, args...)
	res, err := c.runner.Run(ctx, c.bin, full...)
	if err != nil {
		return res, errors.Wrapf(err, errors.ErrVaultCommand, "bw %s failed", args[0])
	}
	return res, nil
}

// Login runs 'bw login' interactively and caches the raw session key
func (c *Client) Login(ctx context.Context) error {
	res, err := c.runner.Run(ctx, c.bin, "login", "--raw")
	if err != nil {
		return errors.Wrap(err, errors.ErrVaultCommand, "bw login failed")
	}
	return c.saveSession(strings.TrimSpace(res.Stdout))
}

// Unlock runs 'bw unlock' and caches the raw session key
func (c *Client) Unlock(ctx context.Context) error {
	res, err := c.runner.Run(ctx, c.bin, "unlock", "--raw")
	if err != nil {
		return errors.Wrap(err, errors.ErrVaultCommand, "bw unlock failed")
	}
	return c.saveSession(strings.TrimSpace(res.Stdout))
}

// Store creates a secure note named name holding value
func (c *Client) Store(ctx context.Context, name, value string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"type":       secureNoteType,
		"name":       name,
		"notes":      value,
		"secureNote": map[string]int{"type": 0},
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot encode item")
	}

	encoded := base64.StdEncoding.EncodeToString(payload)
	if _, err := c.run(ctx, "create", "item", encoded); err != nil {
		return err
	}

	c.logger.Info().Str("item", name).Msg("stored secret")
	return nil
}

// Get returns the value of the secure note named name
func (c *Client) Get(ctx context.Context, name string) (string, error) {
	it, err := c.find(ctx, name)
	if err != nil {
		return "", err
	}
	return it.Notes, nil
}

// List returns the names of all items in the vault
func (c *Client) List(ctx context.Context) ([]string, error) {
	res, err := c.run(ctx, "list", "items")
	if err != nil {
		return nil, err
	}

	var items []item
	if err := json.Unmarshal([]byte(res.Stdout), &items); err != nil {
		return nil, errors.Wrap(err, errors.ErrVaultCommand, "cannot parse bw output")
	}

	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	return names, nil
}

// Delete removes the item named name from the vault
func (c *Client) Delete(ctx context.Context, name string) error {
	it, err := c.find(ctx, name)
	if err != nil {
		return err
	}

	if _, err := c.run(ctx, "delete", "item", it.ID); err != nil {
		return err
	}

	c.logger.Info().Str("item", name).Msg("deleted secret")
	return nil
}

// find locates a single item by exact name
func (c *Client) find(ctx context.Context, name string) (item, error) {
	res, err := c.run(ctx, "list", "items", "--search", name)
	if err != nil {
		return item{}, err
	}

	var items []item
	if err := json.Unmarshal([]byte(res.Stdout), &items); err != nil {
		return item{}, errors.Wrap(err, errors.ErrVaultCommand, "cannot parse bw output")
	}

	// --search is fuzzy, require an exact name match
	for _, it := range items {
		if it.Name == name {
			return it, nil
		}
	}
	return item{}, errors.Newf(errors.ErrItemNotFound, "no item named %q", name)
}

// fileKey fetches the file-encryption passphrase from the vault
func (c *Client) fileKey(ctx context.Context) ([]byte, error) {
	value, err := c.Get(ctx, c.keyItem)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(value) == "" {
		return nil, errors.Newf(errors.ErrItemNotFound,
			"item %q holds no passphrase", c.keyItem)
	}
	return []byte(strings.TrimSpace(value)), nil
}

// EncryptFile seals path with the vault passphrase, writing path + ".enc"
// unless out is given. Returns the output path.
func (c *Client) EncryptFile(ctx context.Context, path, out string) (string, error) {
	key, err := c.fileKey(ctx)
	if err != nil {
		return "", err
	}

	plaintext, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileNotFound, "cannot read %s", path)
	}

	sealed, err := crypt.Encrypt(plaintext, key)
	if err != nil {
		return "", err
	}

	if out == "" {
		out = path + ".enc"
	}
	if err := os.WriteFile(out, sealed, 0600); err != nil {
		return "", errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", out)
	}

	c.logger.Info().Str("in", path).Str("out", out).Msg("encrypted file")
	return out, nil
}

// DecryptFile opens path with the vault passphrase. The output path
// defaults to path with a trailing ".enc" stripped. Returns the output path.
func (c *Client) DecryptFile(ctx context.Context, path, out string) (string, error) {
	key, err := c.fileKey(ctx)
	if err != nil {
		return "", err
	}

	sealed, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileNotFound, "cannot read %s", path)
	}

	plaintext, err := crypt.Decrypt(sealed, key)
	if err != nil {
		return "", err
	}

	if out == "" {
		out = strings.TrimSuffix(path, ".enc")
		if out == path {
			return "", errors.Newf(errors.ErrInvalidInput,
				"%s has no .enc suffix, pass an output path", path)
		}
	}
	if err := os.WriteFile(out, plaintext, 0600); err != nil {
		return "", errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", out)
	}

	c.logger.Info().Str("in", path).Str("out", out).Msg("decrypted file")
	return out, nil
}
