package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dotkeep/dotkeep/pkg/archive"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Zip files, optionally wrapped as an email attachment",
	}

	cmd.AddCommand(newArchiveCreateCmd())
	cmd.AddCommand(newArchiveMailCmd())

	return cmd
}

func newArchiveCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <out.zip> <paths...>",
		Short: "Zip files and directories",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := archive.Create(args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %s: %d file(s), %d bytes uncompressed\n",
				summary.Path, summary.Files, summary.Bytes)
			return nil
		},
	}
}

func newArchiveMailCmd() *cobra.Command {
	var opts archive.MailOptions

	cmd := &cobra.Command{
		Use:   "mail <out.eml> <paths...>",
		Short: "Zip files into a ready-to-send email message",
		Long: `Mail zips the given paths and writes an RFC 2822 message with the zip
as a base64 attachment, ready to import into a mail client or pipe to
sendmail.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := archive.Mail(args[0], args[1:], opts)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %s: %d file(s) attached\n", summary.Path, summary.Files)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "From address")
	cmd.Flags().StringVar(&opts.To, "to", "", "To address")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "Subject (default: attachment name)")
	return cmd
}
