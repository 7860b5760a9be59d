package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"grammar-api-app/internal/modules/correction/domain"
)

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported language tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tNAME")
			for _, l := range domain.SupportedLanguages {
				fmt.Fprintf(tw, "%s\t%s\n", l.Code, l.Name)
			}
			return tw.Flush()
		},
	}
}
