package ics

import (
	"context"
	"time"

	appLog "dayview/internal/log"
)

// Loader runs the whole ingestion pipeline: fetch, parse, expand.
type Loader struct {
	Fetcher  *Fetcher
	Sources  []Source
	Location *time.Location
}

// Load returns the occurrences of every source within [start, end]. Sources
// that fail to fetch or parse are skipped; their errors are returned joined
// alongside whatever the remaining sources produced.
func (l *Loader) Load(ctx context.Context, start, end time.Time) (ExpandResult, error) {
	results, fetchErr := l.Fetcher.FetchAll(ctx, l.Sources)

	parsed := make([]ParsedEvent, 0)
	for _, res := range results {
		events, err := ParseICS(res.Source, res.Body)
		if err != nil {
			continue
		}
		parsed = append(parsed, events...)
	}

	result, err := ExpandOccurrences(parsed, ExpandConfig{
		DisplayLocation: l.Location,
		RangeStart:      start,
		RangeEnd:        end,
	})
	if err != nil {
		return result, err
	}

	appLog.Info("ics load completed",
		"sources", len(l.Sources),
		"fetched", len(results),
		"occurrences", len(result.Occurrences),
		"range_start", start.Format(time.RFC3339),
		"range_end", end.Format(time.RFC3339),
	)
	return result, fetchErr
}
