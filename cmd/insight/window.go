package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/shopping-insight/internal/window"
)

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Print the date window derived from an end date and a period",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagWindowEnd == "" {
			return errors.New("--end-date is required")
		}
		end, err := window.ParseDate(flagWindowEnd)
		if err != nil {
			return err
		}
		p, err := window.ParsePeriod(flagWindowPeriod)
		if err != nil {
			return err
		}
		w, err := window.Derive(end, p)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), w.String())
		return nil
	},
}

var (
	flagWindowEnd    string
	flagWindowPeriod string
)

func init() {
	windowCmd.Flags().StringVar(&flagWindowEnd, "end-date", "", "End date (YYYY-MM-DD)")
	windowCmd.Flags().StringVar(&flagWindowPeriod, "date-type", string(window.PeriodWeek), "Window period: date, week or month")
}
