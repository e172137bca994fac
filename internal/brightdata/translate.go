package brightdata

import (
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/profile-scraper/internal/scraper"
)

// translateRecords renames the provider's payload into the canonical result
// shape. A record that cannot produce a usable post is skipped; one malformed
// row never aborts the whole result.
func translateRecords(records []map[string]any, job *scraper.Job) *scraper.ScrapeResult {
	items := make([]scraper.Post, 0, len(records))
	for _, record := range records {
		if post, ok := translatePost(record, job.Platform); ok {
			items = append(items, post)
		}
	}

	return &scraper.ScrapeResult{
		ScrapedAt:    time.Now().UTC(),
		URL:          job.URL,
		Platform:     job.Platform,
		UserID:       job.UserID,
		TotalItems:   len(items),
		Limits:       job.Limits,
		Elapsed:      time.Since(job.CreatedAt),
		SelectorUsed: "brightdata-api",
		Items:        items,
	}
}

// translatePost maps one provider record onto a Post. Field names differ per
// dataset, so each platform gets its own rename table with a generic
// fallback.
func translatePost(record map[string]any, platformName string) (scraper.Post, bool) {
	var post scraper.Post

	switch platformName {
	case "twitter":
		post = scraper.Post{
			Text:       firstString(record, "description"),
			Link:       stringPtr(record, "url"),
			Likes:      intField(record, "likes"),
			Comments:   intField(record, "replies"),
			Reposts:    intField(record, "reposts"),
			DatePosted: timeField(record, "date_posted"),
			Views:      intField(record, "views"),
		}
	case "linkedin":
		post = scraper.Post{
			Text:       firstString(record, "text", "description"),
			Link:       stringPtr(record, "url", "post_url"),
			Likes:      intField(record, "num_likes", "likes"),
			Comments:   intField(record, "num_comments", "comments"),
			Reposts:    intField(record, "num_shares", "reposts"),
			DatePosted: timeField(record, "date", "date_posted"),
		}
	default:
		post = scraper.Post{
			Text:     firstString(record, "text", "description"),
			Link:     stringPtr(record, "url", "link"),
			Likes:    intField(record, "likes"),
			Comments: intField(record, "comments"),
			Reposts:  intField(record, "reposts", "shares"),
		}
	}

	// A record with neither text nor a permalink carries nothing usable.
	if post.Text == "" && post.Link == nil {
		return scraper.Post{}, false
	}
	return post, true
}

func stringField(record map[string]any, key string) (string, bool) {
	if v, ok := record[key].(string); ok && v != "" {
		return v, true
	}
	return "", false
}

func firstString(record map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := stringField(record, key); ok {
			return v
		}
	}
	return ""
}

func stringPtr(record map[string]any, keys ...string) *string {
	for _, key := range keys {
		if v, ok := stringField(record, key); ok {
			return &v
		}
	}
	return nil
}

// intField coerces the provider's loosely typed counts (JSON numbers or
// numeric-looking strings) to an int. Anything else is nil.
func intField(record map[string]any, keys ...string) *int {
	for _, key := range keys {
		switch v := record[key].(type) {
		case float64:
			n := int(v)
			return &n
		case int:
			n := v
			return &n
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return &n
			}
		}
	}
	return nil
}

// timeField parses the provider's date strings. RFC 3339 first, then the
// date-only form some datasets use. Unparseable dates are dropped, not
// fatal.
func timeField(record map[string]any, keys ...string) *time.Time {
	for _, key := range keys {
		v, ok := stringField(record, key)
		if !ok {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000Z", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return &t
			}
		}
	}
	return nil
}
