// Package platform holds the closed set of supported social platforms and
// maps a target URL onto the platform definition that drives extraction.
package platform

import (
	"net/url"
	"strings"

	"github.com/jonathan/profile-scraper/internal/scraper"
)

// EngineKind selects which collection mechanism a platform uses.
type EngineKind string

const (
	// EngineBrowser drives a real browser session against a saved profile.
	EngineBrowser EngineKind = "browser"
	// EngineVendor delegates collection to the remote data provider.
	EngineVendor EngineKind = "vendor"
)

// Definition describes everything the engines need to know about one
// platform: how to recognize it, which selectors reveal its posts, and which
// provider dataset serves it.
type Definition struct {
	Name   string
	Engine EngineKind

	// Selectors are tried in order against the loaded page; the first one
	// matching at least one element is used for the rest of the job.
	Selectors []string

	// LinkSelector finds the permalink anchor inside one post element.
	LinkSelector string

	// DatasetID is the provider-side dataset for vendor-engine platforms.
	DatasetID string
}

// The candidate selector lists mirror the markup each site currently ships.
// They are ordered most-specific first; the generic entries only exist so a
// markup change degrades to noisier extraction instead of total failure.
var definitions = []Definition{
	{
		Name:   "threads",
		Engine: EngineBrowser,
		Selectors: []string{
			`article`,
			`[role="article"]`,
			`div[data-pressable-container="true"]`,
			`div[class*="post"]`,
			`div[class*="thread"]`,
		},
		LinkSelector: `a`,
	},
	{
		Name:   "twitter",
		Engine: EngineVendor,
		Selectors: []string{
			`article[data-testid="tweet"]`,
			`article[role="article"]`,
			`div[data-testid="tweet"]`,
			`article`,
			`div[data-testid="cellInnerDiv"]`,
		},
		LinkSelector: `a[href*="/status/"]`,
		DatasetID:    "gd_lwxkxvnf1cynvib9co",
	},
	{
		Name:   "linkedin",
		Engine: EngineVendor,
		Selectors: []string{
			`div.feed-shared-update-v2`,
			`article`,
		},
		LinkSelector: `a`,
		DatasetID:    "gd_l7q7dkf244hwzk73o",
	},
}

// Detect identifies the platform for a target URL by host. Unknown hosts are
// an *scraper.UnsupportedPlatformError; no engine is ever invoked for them.
func Detect(urlStr string) (Definition, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return Definition{}, &scraper.UnsupportedPlatformError{URL: urlStr}
	}

	host := strings.ToLower(parsed.Host)

	switch {
	case strings.Contains(host, "threads.com") || strings.Contains(host, "threads.net"):
		return ByName("threads")
	case strings.Contains(host, "twitter.com") || host == "x.com" || strings.HasSuffix(host, ".x.com"):
		return ByName("twitter")
	case strings.Contains(host, "linkedin.com"):
		return ByName("linkedin")
	}

	return Definition{}, &scraper.UnsupportedPlatformError{URL: urlStr}
}

// ByName looks a definition up by platform name.
func ByName(name string) (Definition, error) {
	for _, def := range definitions {
		if def.Name == name {
			return def, nil
		}
	}
	return Definition{}, &scraper.UnsupportedPlatformError{URL: name}
}

// Names lists the supported platform names.
func Names() []string {
	names := make([]string, 0, len(definitions))
	for _, def := range definitions {
		names = append(names, def.Name)
	}
	return names
}
