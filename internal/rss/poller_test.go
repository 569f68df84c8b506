package rss

import (
	"testing"

	"github.com/mmcdole/gofeed"
)

func TestDiffEntriesUnchangedFeedYieldsNothing(t *testing.T) {
	items := []*gofeed.Item{
		{Title: "ep 1", Link: "https://example.com/ep1"},
		{Title: "ep 2", Link: "https://example.com/ep2"},
	}
	known := map[string]bool{
		"https://example.com/ep1": true,
		"https://example.com/ep2": true,
	}

	if fresh := diffEntries(items, "https://example.com/feed.xml", known); len(fresh) != 0 {
		t.Fatalf("every link already recorded, nothing should surface, got %d: %+v", len(fresh), fresh)
	}
}

func TestDiffEntriesKeepsOnlyNewLinks(t *testing.T) {
	items := []*gofeed.Item{
		{Title: "ep 1", Link: "https://example.com/ep1"},
		{Title: "ep 2", Link: "https://example.com/ep2"},
		{Title: "ep 3", Link: "/ep3"},
	}
	known := map[string]bool{"https://example.com/ep1": true}

	fresh := diffEntries(items, "https://example.com/feed.xml", known)
	if len(fresh) != 2 {
		t.Fatalf("expected 2 new entries, got %d", len(fresh))
	}
	if fresh[0].Link != "https://example.com/ep2" {
		t.Errorf("unexpected first entry: %q", fresh[0].Link)
	}
	// Relative links diff by their resolved form.
	if fresh[1].Link != "https://example.com/ep3" {
		t.Errorf("unexpected second entry: %q", fresh[1].Link)
	}
	if !known["https://example.com/ep2"] || !known["https://example.com/ep3"] {
		t.Error("new links should be recorded as taken")
	}
}

func TestDiffEntriesSkipsRepeatsAndMissingLinks(t *testing.T) {
	items := []*gofeed.Item{
		{Title: "ep 1", Link: "https://example.com/ep1"},
		{Title: "ep 1 again", Link: "https://example.com/ep1"},
		{Title: "no link at all"},
	}

	fresh := diffEntries(items, "https://example.com/feed.xml", map[string]bool{})
	if len(fresh) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(fresh))
	}
	if fresh[0].Title != "ep 1" {
		t.Errorf("first occurrence should win, got %q", fresh[0].Title)
	}
}
