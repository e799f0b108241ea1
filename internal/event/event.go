// Package event parses the raw text blocks returned by record retrieval
// into structured events.
//
// Blocks are key-value lines separated by ": ", e.g.:
//
//	Event: Jazz Night at Green Hours
//	Date: 2025-05-01
//	Location: Calea Victoriei 120
//	Cost: 50 RON
//	Description: Live quartet, doors at 19:00.
//	Source: https://example.com/events/jazz-night
//
// The parser is intentionally permissive: unknown lines are skipped and
// missing fields fall back to display-safe defaults. Upstream scraper noise
// degrades to defaults rather than failing the turn.
package event

import "strings"

// Event is a single structured event extracted from a retrieved block.
type Event struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	Cost        string `json:"cost"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Field defaults applied when a key is absent from the source block.
const (
	defaultTitle    = "Unknown"
	defaultDate     = "TBD"
	defaultLocation = "Check Link"
	defaultCost     = "Free"
	defaultURL      = "#"
)

// Parse converts a raw text block into an [Event]. Each line is split on the
// first ": " occurrence; the remainder of the line is kept intact, so values
// containing further colons (URLs in particular) are not truncated. Lines
// without the separator and unrecognised keys are ignored.
func Parse(block string) Event {
	ev := Event{
		Title:    defaultTitle,
		Date:     defaultDate,
		Location: defaultLocation,
		Cost:     defaultCost,
		URL:      defaultURL,
	}

	for _, line := range strings.Split(block, "\n") {
		key, value, found := strings.Cut(line, ": ")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "Event":
			ev.Title = value
		case "Date":
			ev.Date = value
		case "Location":
			ev.Location = value
		case "Cost":
			ev.Cost = value
		case "Description":
			ev.Description = value
		case "Source":
			ev.URL = value
		}
	}
	return ev
}
