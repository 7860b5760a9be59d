package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"grammar-api-app/internal/modules/correction/usecase"
)

// errUnhealthy 終端のルールテーブルまで異常
var errUnhealthy = errors.New("correction pipeline is unhealthy")

func newHealthCmd(global *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe every configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := global.newContainer(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = container.Close()
			}()

			report := container.HealthUseCase().Check(cmd.Context())

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "BACKEND\tSTATUS\tLATENCY\tERROR")
				for _, b := range report.Backends {
					fmt.Fprintf(tw, "%s\t%s\t%dms\t%s\n", b.Name, b.Status, b.LatencyMs, b.Error)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\noverall: %s\n", report.Status)
			}

			if report.Status == usecase.StatusUnhealthy {
				return errUnhealthy
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
