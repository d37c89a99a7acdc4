package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pilacorp/go-didjwt-sdk/credential"
)

func (c *cli) certCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cert",
		Short: "Issue and verify certificates",
	}
	cmd.AddCommand(c.certIssueCmd(), c.certVerifyCmd())
	return cmd
}

func (c *cli) certIssueCmd() *cobra.Command {
	var issuer, key, subjectDID, subjectFile, expires string

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a certificate about a subject DID",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(subjectFile)
			if err != nil {
				return fmt.Errorf("failed to read subject file: %w", err)
			}
			var subject credential.Subject
			if err := decodeJSON(raw, &subject); err != nil {
				return fmt.Errorf("invalid subject file: %w", err)
			}

			expiration, err := time.Parse(time.RFC3339, expires)
			if err != nil {
				return fmt.Errorf("invalid --expires: %w", err)
			}

			token, err := c.mgr.CreateCertificate(subjectDID, subject, expiration, issuer, key)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&issuer, "issuer", "", "issuer DID")
	cmd.Flags().StringVar(&key, "key", "", "issuer private key (hex)")
	cmd.Flags().StringVar(&subjectDID, "subject", "", "subject DID")
	cmd.Flags().StringVar(&subjectFile, "subject-file", "", "JSON file with the credentialSubject categories")
	cmd.Flags().StringVar(&expires, "expires", "", "expiration date (RFC 3339)")
	for _, f := range []string{"issuer", "key", "subject", "subject-file", "expires"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func (c *cli) certVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cert, err := c.mgr.VerifyCertificate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"issuer":            cert.Issuer,
				"subject":           cert.Payload["sub"],
				"issuanceDate":      cert.IssuanceDate,
				"expirationDate":    cert.ExpirationDate,
				"credentialSubject": cert.Subject,
			})
		},
	}
}
