package domain

import "time"

// NewsOutlet identifies the provider a NewsStory was obtained from.
type NewsOutlet string

const (
	OutletCryptoPanic NewsOutlet = "CRYPTOPANIC"
)

// NewsStory is a single news item obtained from an outlet.
type NewsStory struct {
	Outlet      NewsOutlet `json:"outlet"`
	Title       string     `json:"title"`
	Source      string     `json:"source"`
	URL         string     `json:"url"`
	PublishedAt string     `json:"published_at"` // ISO 8601
	Timestamp   int64      `json:"timestamp"`    // ms, defaults to now
}

// NewStory builds a NewsStory, defaulting Timestamp to the current time in
// milliseconds the way the original domain.NewsStory's pydantic
// default_factory does.
func NewStory(outlet NewsOutlet, title, source, url, publishedAt string) NewsStory {
	return NewsStory{
		Outlet:      outlet,
		Title:       title,
		Source:      source,
		URL:         url,
		PublishedAt: publishedAt,
		Timestamp:   time.Now().UnixMilli(),
	}
}
