package rss

import (
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

func TestNormalizeItemBasics(t *testing.T) {
	published := time.Date(2023, 10, 2, 15, 4, 5, 0, time.UTC)
	item := &gofeed.Item{
		Title:           "  [Sub] Example Show - 05  ",
		Link:            "https://example.com/releases/ep05",
		Description:     "Episode five is out.",
		Categories:      []string{"anime", " release ", ""},
		PublishedParsed: &published,
	}

	entry := NormalizeItem(item, "https://example.com/feed.xml")
	if entry.Title != "[Sub] Example Show - 05" {
		t.Errorf("title not trimmed: %q", entry.Title)
	}
	if entry.Link != "https://example.com/releases/ep05" {
		t.Errorf("unexpected link: %q", entry.Link)
	}
	if entry.Summary != "Episode five is out." {
		t.Errorf("summary should fall back to description, got %q", entry.Summary)
	}
	if len(entry.Tags) != 2 || entry.Tags[0] != "anime" || entry.Tags[1] != "release" {
		t.Errorf("tags should be trimmed non-empty terms, got %v", entry.Tags)
	}
	if entry.Published == nil || *entry.Published != float64(published.Unix()) {
		t.Errorf("published timestamp mismatch: %v", entry.Published)
	}
}

func TestNormalizeItemThumbnailFromEnclosure(t *testing.T) {
	item := &gofeed.Item{
		Title: "ep 1",
		Link:  "https://example.com/ep1",
		Enclosures: []*gofeed.Enclosure{
			{URL: "https://example.com/ep1.torrent", Type: "application/x-bittorrent"},
			{URL: "https://cdn.example.com/ep1.jpg", Type: "image/jpeg"},
		},
	}
	entry := NormalizeItem(item, "https://example.com/feed.xml")
	if entry.Thumbnail != "https://cdn.example.com/ep1.jpg" {
		t.Errorf("expected image enclosure as thumbnail, got %q", entry.Thumbnail)
	}
}

func TestNormalizeItemThumbnailFromSummaryHTML(t *testing.T) {
	item := &gofeed.Item{
		Title:       "ep 2",
		Link:        "https://example.com/ep2",
		Description: `<p>out now</p><img src="/media/covers/ep2.png" alt=""><img src="/other.png">`,
	}
	entry := NormalizeItem(item, "https://example.com/feed.xml")
	if entry.Thumbnail != "https://example.com/media/covers/ep2.png" {
		t.Errorf("expected first img resolved against the feed host, got %q", entry.Thumbnail)
	}
}

func TestNormalizeItemNoThumbnail(t *testing.T) {
	item := &gofeed.Item{
		Title:       "ep 3",
		Link:        "https://example.com/ep3",
		Description: "plain text, no markup",
	}
	if entry := NormalizeItem(item, "https://example.com/feed.xml"); entry.Thumbnail != "" {
		t.Errorf("expected empty thumbnail, got %q", entry.Thumbnail)
	}
}

func TestResolveURL(t *testing.T) {
	cases := []struct {
		raw, base, want string
	}{
		{"https://example.com/a", "https://example.com/feed.xml", "https://example.com/a"},
		{"/relative/path.jpg", "https://example.com/feed.xml", "https://example.com/relative/path.jpg"},
		{"//cdn.example.com/img.png", "https://example.com/feed.xml", "https://cdn.example.com/img.png"},
		{"", "https://example.com/feed.xml", ""},
		{"no-host-or-scheme", "", "no-host-or-scheme"},
	}
	for _, tc := range cases {
		if got := resolveURL(tc.raw, tc.base); got != tc.want {
			t.Errorf("resolveURL(%q, %q) = %q, want %q", tc.raw, tc.base, got, tc.want)
		}
	}
}

func TestHasMediaExtension(t *testing.T) {
	if !hasMediaExtension("https://example.com/poster.JPG?size=large") {
		t.Error("extension match should be case-insensitive and ignore the query")
	}
	if hasMediaExtension("https://example.com/release.torrent") {
		t.Error("non-media extension should not match")
	}
}
