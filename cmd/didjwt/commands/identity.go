package commands

import (
	"github.com/spf13/cobra"
)

func (c *cli) identityCmd() *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Create a new DID and private key",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.mgr.CreateIdentity(tag)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), id)
		},
	}
	cmd.Flags().StringVar(&tag, "network", "", "network tag (empty for the default network)")
	return cmd
}
