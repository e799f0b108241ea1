package event

import "testing"

func TestParse_FullBlock(t *testing.T) {
	block := "Event: Jazz Night\n" +
		"Date: 2025-05-01\n" +
		"Location: Green Hours\n" +
		"Cost: 50 RON\n" +
		"Description: Live quartet, doors at 19:00.\n" +
		"Source: http://x.com/e?id=5"

	ev := Parse(block)

	if ev.Title != "Jazz Night" {
		t.Errorf("Title = %q, want Jazz Night", ev.Title)
	}
	if ev.Date != "2025-05-01" {
		t.Errorf("Date = %q, want 2025-05-01", ev.Date)
	}
	if ev.Location != "Green Hours" {
		t.Errorf("Location = %q, want Green Hours", ev.Location)
	}
	if ev.Cost != "50 RON" {
		t.Errorf("Cost = %q, want 50 RON", ev.Cost)
	}
	if ev.Description != "Live quartet, doors at 19:00." {
		t.Errorf("Description = %q", ev.Description)
	}
	if ev.URL != "http://x.com/e?id=5" {
		t.Errorf("URL = %q, want http://x.com/e?id=5 (colons in values must not truncate)", ev.URL)
	}
}

func TestParse_MissingKeysUseDefaults(t *testing.T) {
	ev := Parse("some free-form text without any recognised structure")

	want := Event{
		Title:       "Unknown",
		Date:        "TBD",
		Location:    "Check Link",
		Cost:        "Free",
		Description: "",
		URL:         "#",
	}
	if ev != want {
		t.Errorf("Parse = %+v, want %+v", ev, want)
	}
}

func TestParse_PartialBlock(t *testing.T) {
	ev := Parse("Event: Open Mic\nVenue without separator\nCost: Free entry")

	if ev.Title != "Open Mic" {
		t.Errorf("Title = %q, want Open Mic", ev.Title)
	}
	if ev.Cost != "Free entry" {
		t.Errorf("Cost = %q, want Free entry", ev.Cost)
	}
	if ev.Date != "TBD" {
		t.Errorf("Date = %q, want default TBD", ev.Date)
	}
	if ev.URL != "#" {
		t.Errorf("URL = %q, want default #", ev.URL)
	}
}

func TestParse_UnknownKeysIgnored(t *testing.T) {
	ev := Parse("Organizer: Someone\nEvent: Picnic")
	if ev.Title != "Picnic" {
		t.Errorf("Title = %q, want Picnic", ev.Title)
	}
}

func TestParse_EmptyBlock(t *testing.T) {
	ev := Parse("")
	if ev.Title != "Unknown" || ev.URL != "#" {
		t.Errorf("empty block should yield defaults, got %+v", ev)
	}
}
