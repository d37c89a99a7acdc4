package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) jwtCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jwt",
		Short: "Issue, decode and verify JWTs",
	}
	cmd.AddCommand(c.jwtIssueCmd(), c.jwtDecodeCmd(), c.jwtVerifyCmd())
	return cmd
}

func (c *cli) jwtIssueCmd() *cobra.Command {
	var issuer, key, claimsJSON string

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign claims as an issuer DID",
		RunE: func(cmd *cobra.Command, args []string) error {
			claims := map[string]any{}
			if claimsJSON != "" {
				if err := decodeJSON([]byte(claimsJSON), &claims); err != nil {
					return fmt.Errorf("invalid --claims: %w", err)
				}
			}

			token, err := c.mgr.CreateJWT(issuer, key, claims)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&issuer, "issuer", "", "issuer DID")
	cmd.Flags().StringVar(&key, "key", "", "issuer private key (hex)")
	cmd.Flags().StringVar(&claimsJSON, "claims", "", "claims as a JSON object")
	_ = cmd.MarkFlagRequired("issuer")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func (c *cli) jwtDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token>",
		Short: "Decode a token without verifying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dec, err := c.mgr.DecodeJWT(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"header":    dec.Data.Header,
				"payload":   dec.Payload,
				"signature": hex.EncodeToString(dec.Signature),
			})
		},
	}
}

func (c *cli) jwtVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a token against its issuer's DID document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := c.mgr.VerifyJWT(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"issuer":    v.Issuer,
				"signerKey": v.SignerKey.ID,
				"payload":   v.Payload,
			})
		},
	}
}
