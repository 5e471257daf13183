package main

import (
	"github.com/spf13/cobra"

	appLog "dayview/internal/log"
	"dayview/internal/web"
)

var captureOut string

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Render the day page in headless Chromium and save it as PNG",
	RunE:  runCapture,
}

func init() {
	captureCmd.Flags().StringVar(&dateArg, "date", "", "Day to capture (YYYY-MM-DD, default today)")
	captureCmd.Flags().StringVarP(&captureOut, "out", "o", "", "Output PNG path (default preview_path from config)")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	day, err := parseDay(dateArg, a.loc)
	if err != nil {
		return err
	}
	out := captureOut
	if out == "" {
		out = a.cfg.PreviewPath
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := a.agenda.Ensure(ctx, day); err != nil {
		appLog.Warn("some feeds failed; capturing what loaded", "err", err)
	}

	srv := web.NewServer(a.cfg, a.agenda)
	return capturePreview(ctx, srv, a.cfg, day, out)
}
