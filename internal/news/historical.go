package news

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"cryptopulse/internal/domain"
)

// csvTimestampLayouts are the two timestamp formats a historical CSV export
// may use. Rows are tried against each in turn.
var csvTimestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// HistoricalSource replays a CSV of news stories at full speed, one row at
// a time, without pacing to wall-clock.
type HistoricalSource struct {
	reader *csv.Reader
	header map[string]int
}

// NewHistoricalSource wraps a CSV reader whose header row must include
// title, source, url and published_at columns.
func NewHistoricalSource(r io.Reader) (*HistoricalSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	headerRow, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("news: failed to read CSV header: %w", err)
	}

	header := make(map[string]int, len(headerRow))
	for i, col := range headerRow {
		header[col] = i
	}
	for _, required := range []string{"title", "source", "url", "published_at"} {
		if _, ok := header[required]; !ok {
			return nil, fmt.Errorf("news: CSV missing required column %q", required)
		}
	}

	return &HistoricalSource{reader: cr, header: header}, nil
}

// Next returns the next story, io.EOF when the file is exhausted, or a
// parse error for a malformed row.
func (h *HistoricalSource) Next() (domain.NewsStory, error) {
	row, err := h.reader.Read()
	if err != nil {
		return domain.NewsStory{}, err
	}

	title := row[h.header["title"]]
	source := row[h.header["source"]]
	url := row[h.header["url"]]
	rawTimestamp := row[h.header["published_at"]]

	publishedAt, err := parseCSVTimestamp(rawTimestamp)
	if err != nil {
		return domain.NewsStory{}, fmt.Errorf("news: unparseable published_at %q: %w", rawTimestamp, err)
	}

	story := domain.NewStory(domain.OutletCryptoPanic, title, source, url, publishedAt.Format(time.RFC3339))
	story.Timestamp = publishedAt.UnixMilli()
	return story, nil
}

// ReplayAll drains the remainder of the CSV, calling emit for every row in
// file order at full speed, stopping at the first error.
func (h *HistoricalSource) ReplayAll(emit func(domain.NewsStory) error) error {
	for {
		story, err := h.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := emit(story); err != nil {
			return err
		}
	}
}

func parseCSVTimestamp(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range csvTimestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}
