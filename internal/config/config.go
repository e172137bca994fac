// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/profile-scraper/internal/browser"
)

// Config is the CLI configuration loadable from a JSON file. All fields are
// optional; missing values use defaults or come from CLI flags. Durations
// are milliseconds.
type Config struct {
	// Paths
	ProfilesDir string `json:"profiles_dir,omitempty"` // Base directory for browser profiles

	// Browser engine tuning
	Headless              bool `json:"headless,omitempty"`                // Run scrape sessions headless
	SettleWaitMS          int  `json:"settle_wait_ms,omitempty"`          // Wait after navigation before first extraction
	ScrollDelayMS         int  `json:"scroll_delay_ms,omitempty"`         // Pause between scrolls
	StagnationLimit       int  `json:"stagnation_limit,omitempty"`        // Consecutive no-growth scrolls before stopping
	MaxScrolls            int  `json:"max_scrolls,omitempty"`             // Hard cap on scroll iterations
	NavigationTimeoutMS   int  `json:"navigation_timeout_ms,omitempty"`   // Bound on the initial page load
	MaxConcurrentBrowsers int  `json:"max_concurrent_browsers,omitempty"` // Simultaneous browser sessions

	// Vendor engine
	BrightDataAPIKey string `json:"brightdata_api_key,omitempty"` // Falls back to BRIGHTDATA_API_KEY env var
	PollIntervalMS   int    `json:"poll_interval_ms,omitempty"`   // Minimum spacing between provider polls per job

	// Behavior
	Verbose bool `json:"verbose,omitempty"` // Print detailed progress information
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	bc := browser.DefaultConfig()
	return Config{
		ProfilesDir:           "./browser_profiles",
		Headless:              bc.Headless,
		SettleWaitMS:          int(bc.SettleWait / time.Millisecond),
		ScrollDelayMS:         int(bc.ScrollDelay / time.Millisecond),
		StagnationLimit:       bc.StagnationLimit,
		MaxScrolls:            bc.MaxScrolls,
		NavigationTimeoutMS:   int(bc.NavigationTimeout / time.Millisecond),
		MaxConcurrentBrowsers: bc.MaxConcurrent,
		PollIntervalMS:        3000,
	}
}

// LoadConfig loads configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.SettleWaitMS < 0 {
		return fmt.Errorf("config error: 'settle_wait_ms' must be non-negative")
	}
	if c.ScrollDelayMS < 0 {
		return fmt.Errorf("config error: 'scroll_delay_ms' must be non-negative")
	}
	if c.StagnationLimit < 0 {
		return fmt.Errorf("config error: 'stagnation_limit' must be non-negative")
	}
	if c.MaxScrolls < 0 {
		return fmt.Errorf("config error: 'max_scrolls' must be non-negative")
	}
	if c.MaxConcurrentBrowsers < 0 {
		return fmt.Errorf("config error: 'max_concurrent_browsers' must be non-negative")
	}
	if c.PollIntervalMS < 0 {
		return fmt.Errorf("config error: 'poll_interval_ms' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with unset fields filled from
// defaults. Bool fields are not merged; CLI flags always win for those.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.ProfilesDir == "" {
		result.ProfilesDir = defaults.ProfilesDir
	}
	if result.BrightDataAPIKey == "" {
		result.BrightDataAPIKey = defaults.BrightDataAPIKey
	}
	if result.SettleWaitMS == 0 {
		result.SettleWaitMS = defaults.SettleWaitMS
	}
	if result.ScrollDelayMS == 0 {
		result.ScrollDelayMS = defaults.ScrollDelayMS
	}
	if result.StagnationLimit == 0 {
		result.StagnationLimit = defaults.StagnationLimit
	}
	if result.MaxScrolls == 0 {
		result.MaxScrolls = defaults.MaxScrolls
	}
	if result.NavigationTimeoutMS == 0 {
		result.NavigationTimeoutMS = defaults.NavigationTimeoutMS
	}
	if result.MaxConcurrentBrowsers == 0 {
		result.MaxConcurrentBrowsers = defaults.MaxConcurrentBrowsers
	}
	if result.PollIntervalMS == 0 {
		result.PollIntervalMS = defaults.PollIntervalMS
	}

	return result
}

// BrowserConfig converts the flat CLI config into the browser engine's
// tuning struct.
func (c *Config) BrowserConfig() browser.Config {
	return browser.Config{
		Headless:          c.Headless,
		SettleWait:        time.Duration(c.SettleWaitMS) * time.Millisecond,
		ScrollDelay:       time.Duration(c.ScrollDelayMS) * time.Millisecond,
		StagnationLimit:   c.StagnationLimit,
		MaxScrolls:        c.MaxScrolls,
		NavigationTimeout: time.Duration(c.NavigationTimeoutMS) * time.Millisecond,
		MaxConcurrent:     c.MaxConcurrentBrowsers,
	}
}

// PollInterval returns the per-job provider poll spacing.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
