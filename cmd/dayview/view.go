package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	appLog "dayview/internal/log"
	"dayview/internal/termview"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Open the interactive terminal day view",
	RunE:  runView,
}

func init() {
	viewCmd.Flags().StringVar(&dateArg, "date", "", "Day to show (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	// stderr belongs to the terminal UI; keep log lines out of it.
	var logOut io.Writer = io.Discard
	if debug {
		f, err := os.OpenFile("dayview-debug.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	appLog.SetOutput(logOut)
	defer appLog.SetOutput(os.Stderr)

	a, err := loadApp()
	if err != nil {
		return err
	}
	day, err := parseDay(dateArg, a.loc)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	return termview.Run(ctx, a.agenda, termview.Options{
		Layout:     a.cfg.Layout.Timeline(),
		TimeFormat: a.cfg.TimeFormat,
		Location:   a.loc,
		Day:        day,
	})
}
