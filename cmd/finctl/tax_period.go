package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taxledger/internal/taxperiod"
)

func taxPeriodCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tax-period",
		Short: "Print the tax period a policy assigns to a date",
		Example: `  finctl tax-period --type preset --preset quarterly --date 2026-10-14
  finctl tax-period --type custom --custom-day 31 --date 2026-02-28`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policyType, _ := cmd.Flags().GetString("type")
			preset, _ := cmd.Flags().GetString("preset")
			day, _ := cmd.Flags().GetInt("custom-day")
			rawDate, _ := cmd.Flags().GetString("date")

			ref := taxperiod.Today(a.cfg.Location)
			if rawDate != "" {
				parsed, err := taxperiod.ParseDate(rawDate)
				if err != nil {
					return err
				}
				ref = parsed
			}
			policy := taxperiod.Policy{
				Type:      taxperiod.PolicyType(policyType),
				Preset:    taxperiod.Preset(preset),
				CustomDay: day,
			}
			period, err := taxperiod.Resolve(policy, ref)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "date_from: %s\n", taxperiod.FormatDate(period.Start))
			fmt.Fprintf(out, "date_to: %s\n", taxperiod.FormatDate(period.End))
			fmt.Fprintf(out, "next_period_start: %s\n", taxperiod.FormatDate(period.NextStart()))
			return nil
		},
	}
	cmd.Flags().String("type", "", "policy type (preset, custom)")
	cmd.Flags().String("preset", "", "preset length (monthly, quarterly, yearly)")
	cmd.Flags().Int("custom-day", 0, "anchor day of month for custom periods")
	cmd.Flags().String("date", "", "reference date, YYYY-MM-DD (default today)")
	return cmd
}
