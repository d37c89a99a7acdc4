package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *cli) networksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List configured networks",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TAG\tNAME\tKIND\tCHAIN ID\tREGISTRY")
			for _, n := range c.mgr.Networks() {
				tag := n.Tag
				if tag == "" {
					tag = "-"
				}
				registry := n.Registry
				if registry == "" {
					registry = n.Endpoint
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", tag, n.Name, n.Kind, n.ChainID, registry)
			}
			return w.Flush()
		},
	}
}
