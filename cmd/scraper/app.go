package main

import (
	"fmt"
	"os"

	"github.com/jonathan/profile-scraper/internal/brightdata"
	"github.com/jonathan/profile-scraper/internal/browser"
	"github.com/jonathan/profile-scraper/internal/config"
	"github.com/jonathan/profile-scraper/internal/observability"
	"github.com/jonathan/profile-scraper/internal/platform"
	"github.com/jonathan/profile-scraper/internal/profile"
	"github.com/jonathan/profile-scraper/internal/registry"
	"github.com/jonathan/profile-scraper/internal/scraper"
)

// app bundles the wired-up core for command handlers.
type app struct {
	cfg          config.Config
	profiles     *profile.Store
	orchestrator *registry.Orchestrator
	printer      *observability.Printer
}

// loadConfig resolves the effective configuration: config file (if given)
// merged over defaults, with env fallbacks applied.
func loadConfig() (config.Config, error) {
	cfg := config.Defaults()

	if rootConfigPath != "" {
		fileCfg, err := config.LoadConfig(rootConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = fileCfg.MergeWithDefaults(cfg)
	}

	if cfg.BrightDataAPIKey == "" {
		cfg.BrightDataAPIKey = os.Getenv("BRIGHTDATA_API_KEY")
	}
	if rootVerbose {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newApp constructs the profile store, both engine variants, and the
// orchestrator. The vendor engine is only wired when an API key is
// available; vendor platforms are rejected as unsupported without one.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	profiles, err := profile.NewStore(cfg.ProfilesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile store: %w", err)
	}

	engines := map[platform.EngineKind]scraper.Engine{
		platform.EngineBrowser: browser.NewEngine(profiles, cfg.BrowserConfig()),
	}
	if cfg.BrightDataAPIKey != "" {
		engines[platform.EngineVendor] = brightdata.NewEngine(brightdata.NewClient(cfg.BrightDataAPIKey))
	}

	orch := registry.NewOrchestrator(registry.NewRegistry(), engines)
	orch.SetPollInterval(cfg.PollInterval())

	return &app{
		cfg:          cfg,
		profiles:     profiles,
		orchestrator: orch,
		printer:      observability.NewPrinter(os.Stdout),
	}, nil
}
