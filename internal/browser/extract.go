package browser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/profile-scraper/internal/platform"
	"github.com/jonathan/profile-scraper/internal/scraper"
)

// resolveSelector tries the platform's candidate selectors in order against
// the rendered page and returns the first one that matches at least one
// element. Zero matches across all candidates is reported as failure, not
// retried.
func resolveSelector(doc *goquery.Document, def platform.Definition) (string, error) {
	for _, selector := range def.Selectors {
		if doc.Find(selector).Length() > 0 {
			return selector, nil
		}
	}
	return "", &scraper.SelectorNotFoundError{Platform: def.Name, Selectors: def.Selectors}
}

// extractPosts pulls structured posts out of a rendered HTML snapshot using
// the resolved selector. Engagement counts come from the short standalone
// numeric lines the platforms render under each post; the last three are
// likes, comments, reposts in that order. Anything that does not parse stays
// nil.
func extractPosts(doc *goquery.Document, selector string, def platform.Definition) []scraper.Post {
	var posts []scraper.Post

	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}

		post := scraper.Post{Text: text}

		if href, ok := sel.Find(def.LinkSelector).First().Attr("href"); ok && href != "" {
			post.Link = &href
		}

		counts := trailingCounts(text)
		if len(counts) >= 3 {
			post.Likes = counts[len(counts)-3]
			post.Comments = counts[len(counts)-2]
			post.Reposts = counts[len(counts)-1]
		}

		posts = append(posts, post)
	})

	return posts
}

// trailingCounts returns the parsed values of the standalone count lines in
// a post's visible text, in document order.
func trailingCounts(text string) []*int {
	var counts []*int
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > 8 {
			continue
		}
		if n := parseCount(line); n != nil {
			counts = append(counts, n)
		}
	}
	return counts
}

// dedupeKey identifies a post across scroll iterations. Sites re-render
// earlier posts as the feed grows, so the permalink (or failing that the
// normalized text) keys the accumulated set.
func dedupeKey(post scraper.Post) string {
	if post.Link != nil && *post.Link != "" {
		return "link:" + *post.Link
	}
	return "text:" + normalizeText(post.Text)
}

func normalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
