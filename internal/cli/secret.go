package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets through the Bitwarden CLI",
		Long: `Secret wraps the bw command line client: vault session handling,
storing and fetching secure notes, and encrypting files with a vault-held
key. The unlocked session key is cached so only the first command after a
vault lock prompts for the master password.`,
	}

	cmd.AddCommand(newSecretLoginCmd())
	cmd.AddCommand(newSecretUnlockCmd())
	cmd.AddCommand(newSecretStoreCmd())
	cmd.AddCommand(newSecretGetCmd())
	cmd.AddCommand(newSecretListCmd())
	cmd.AddCommand(newSecretDeleteCmd())
	cmd.AddCommand(newSecretEncryptCmd())
	cmd.AddCommand(newSecretDecryptCmd())

	return cmd
}

func newSecretLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to the vault and cache the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSecretsClient()
			if err != nil {
				return err
			}
			if err := client.Login(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Logged in, session cached.")
			return nil
		},
	}
}

func newSecretUnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Unlock the vault and cache the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSecretsClient()
			if err != nil {
				return err
			}
			if err := client.Unlock(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Vault unlocked, session cached.")
			return nil
		},
	}
}

func newSecretStoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "store <name> [value]",
		Short: "Store a secret as a secure note",
		Long: `Store saves a named secure note in the vault. When the value is not
given on the command line it is read from the terminal without echo.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSecretsClient()
			if err != nil {
				return err
			}

			value := ""
			if len(args) == 2 {
				value = args[1]
			} else {
				value, err = promptSecret("Value: ")
				if err != nil {
					return err
				}
			}

			if err := client.Store(cmd.Context(), args[0], value); err != nil {
				return err
			}
			fmt.Printf("Stored '%s'.\n", args[0])
			return nil
		},
	}
}

func newSecretGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Print a secret's value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSecretsClient()
			if err != nil {
				return err
			}

			value, err := client.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		},
	}
}

func newSecretListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List secret names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSecretsClient()
			if err != nil {
				return err
			}

			names, err := client.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("No secrets stored.")
				return nil
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newSecretDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSecretsClient()
			if err != nil {
				return err
			}
			if err := client.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted '%s'.\n", args[0])
			return nil
		},
	}
}

func newSecretEncryptCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "encrypt <file>",
		Short: "Encrypt a file with the vault-held key",
		Long: `Encrypt derives an AES-256-CBC key from the passphrase stored in the
vault's key item and writes <file>.enc (or the --out path). The output is
compatible with 'openssl enc -aes-256-cbc -pbkdf2'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSecretsClient()
			if err != nil {
				return err
			}

			written, err := client.EncryptFile(cmd.Context(), args[0], out)
			if err != nil {
				return err
			}
			fmt.Printf("Encrypted %s -> %s\n", args[0], written)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default: <file>.enc)")
	return cmd
}

func newSecretDecryptCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "decrypt <file>",
		Short: "Decrypt a file encrypted with 'secret encrypt'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSecretsClient()
			if err != nil {
				return err
			}

			written, err := client.DecryptFile(cmd.Context(), args[0], out)
			if err != nil {
				return err
			}
			fmt.Printf("Decrypted %s -> %s\n", args[0], written)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default: input without .enc)")
	return cmd
}
