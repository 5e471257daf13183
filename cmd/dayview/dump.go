package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"dayview/internal/agenda"
	appLog "dayview/internal/log"
	"dayview/internal/timeline"
)

var dumpJSON bool

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the computed event frames for a day",
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&dateArg, "date", "", "Day to lay out (YYYY-MM-DD, default today)")
	dumpCmd.Flags().BoolVar(&dumpJSON, "json", false, "Print JSON instead of a table")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
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

	if err := a.agenda.Ensure(ctx, day); err != nil {
		appLog.Warn("some feeds failed; dumping what loaded", "err", err)
	}

	attrs := timeline.ComputeLayout(a.agenda.Day(day), day, a.cfg.Layout.Timeline())
	if dumpJSON {
		return writeFramesJSON(cmd.OutOrStdout(), attrs, a.cfg.Layout.EventGap)
	}
	return writeFramesTable(cmd.OutOrStdout(), attrs, a.agenda, day, a.cfg.TimeFormat)
}

type dumpFrame struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	Start time.Time     `json:"start"`
	End   time.Time     `json:"end"`
	Frame timeline.Rect `json:"frame"`
	Inset timeline.Rect `json:"inset"`
}

func writeFramesJSON(w io.Writer, attrs []*timeline.Attributes, gap float64) error {
	frames := make([]dumpFrame, 0, len(attrs))
	for _, a := range attrs {
		frames = append(frames, dumpFrame{
			ID:    a.Descriptor.ID,
			Title: a.Descriptor.Title,
			Start: a.Descriptor.Interval.Start,
			End:   a.Descriptor.Interval.End,
			Frame: a.Frame,
			Inset: a.Frame.Inset(gap),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(frames)
}

func writeFramesTable(w io.Writer, attrs []*timeline.Attributes, ag *agenda.Agenda, day time.Time, format string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tEND\tX\tY\tWIDTH\tHEIGHT\tTITLE")
	for _, a := range attrs {
		iv := a.Descriptor.Interval
		f := a.Frame
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.1f\t%.1f\t%.1f\t%s\n",
			iv.Start.Format(format), iv.End.Format(format),
			f.X, f.Y, f.Width, f.Height, a.Descriptor.Title)
	}
	for _, occ := range ag.AllDay(day) {
		fmt.Fprintf(tw, "all-day\t\t\t\t\t\t%s\n", occ.Summary)
	}
	return tw.Flush()
}
