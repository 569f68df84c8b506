package rss

import (
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"github.com/naoTimesdev/showtimes-sub000/internal/models"
)

var mediaExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}

// NormalizeItem flattens a parsed feed item into the stored entry
// shape: tags become plain terms, the thumbnail is picked from
// enclosures first and the summary HTML second, and every URL is
// resolved against the feed link with http as the default scheme.
func NormalizeItem(item *gofeed.Item, feedURL string) models.RSSEntry {
	entry := models.RSSEntry{
		Title:       strings.TrimSpace(item.Title),
		Link:        resolveURL(item.Link, feedURL),
		Description: strings.TrimSpace(item.Description),
	}
	if item.Content != "" {
		entry.Summary = strings.TrimSpace(item.Content)
	} else {
		entry.Summary = entry.Description
	}

	for _, cat := range item.Categories {
		if term := strings.TrimSpace(cat); term != "" {
			entry.Tags = append(entry.Tags, term)
		}
	}

	if item.PublishedParsed != nil {
		ts := float64(item.PublishedParsed.Unix())
		entry.Published = &ts
	} else if item.UpdatedParsed != nil {
		ts := float64(item.UpdatedParsed.Unix())
		entry.Published = &ts
	}

	entry.Thumbnail = pickThumbnail(item, entry.Summary, feedURL)
	return entry
}

// pickThumbnail prefers an enclosure or media link with an image
// extension, then falls back to the first <img> inside the summary.
func pickThumbnail(item *gofeed.Item, summary, feedURL string) string {
	if item.Image != nil && item.Image.URL != "" {
		return resolveURL(item.Image.URL, feedURL)
	}
	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") || hasMediaExtension(enc.URL) {
			return resolveURL(enc.URL, feedURL)
		}
	}
	if hasMediaExtension(item.Link) {
		return resolveURL(item.Link, feedURL)
	}
	if src := firstImageSrc(summary); src != "" {
		return resolveURL(src, feedURL)
	}
	return ""
}

func hasMediaExtension(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	lower := strings.ToLower(parsed.Path)
	for _, ext := range mediaExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// firstImageSrc scans an HTML fragment for the first <img> src. A parse
// failure just means no thumbnail.
func firstImageSrc(fragment string) string {
	if fragment == "" || !strings.Contains(fragment, "<") {
		return ""
	}
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "img" {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key == "src" && attr.Val != "" {
					return attr.Val
				}
			}
		}
	}
}

// resolveURL absolutizes raw against base. Scheme-less results default
// to http since many older feeds predate https.
func resolveURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if !parsed.IsAbs() {
		if baseURL, err := url.Parse(base); err == nil && baseURL.Host != "" {
			parsed = baseURL.ResolveReference(parsed)
		}
	}
	if parsed.Scheme == "" {
		if parsed.Host == "" {
			return raw
		}
		parsed.Scheme = "http"
	}
	return parsed.String()
}
