// Package config loads and validates the storewatch configuration file:
// global settings plus the list of monitored stores with their selector
// sets and schedules.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"storewatch/schedule"
)

// PriceSelector ties one currency to the selector that locates its price
// within an item container. Selectors are tried in declaration order.
type PriceSelector struct {
	Currency string `yaml:"currency"`
	Selector string `yaml:"selector"`
}

// Options describes how to walk and extract one store's listing.
type Options struct {
	BaseURL               string          `yaml:"base_url"`
	SiteMainURL           string          `yaml:"site_main_url"`
	ItemContainerSelector string          `yaml:"item_container_selector"`
	ItemNameSelector      string          `yaml:"item_name_selector"`
	ItemPriceSelectors    []PriceSelector `yaml:"item_price_selectors"`
	ItemLinkSelector      string          `yaml:"item_link_selector"`
	ItemImageSelector     string          `yaml:"item_image_selector"`
	SoldOutSelector       string          `yaml:"sold_out_selector"`
	NextPageSelector      string          `yaml:"next_page_selector"`
	NextPageSelectorText  string          `yaml:"next_page_selector_text"`
	NextPageAttribute     string          `yaml:"next_page_attribute"`
	DelayBetweenRequests  int             `yaml:"delay_between_requests"` // seconds
	Encoding              string          `yaml:"encoding"`

	// FeedURL switches the store to feed mode: the catalog is read from an
	// RSS/Atom product feed instead of scraped listing pages. Selector
	// fields are ignored for feed stores.
	FeedURL string `yaml:"feed_url"`
}

// Delay returns the configured inter-request delay as a duration.
func (o Options) Delay() time.Duration {
	return time.Duration(o.DelayBetweenRequests) * time.Second
}

// StoreConfig is one monitored store. Immutable after load; shared by
// reference across components.
type StoreConfig struct {
	Name       string            `yaml:"name"`
	NameFormat string            `yaml:"name_format"`
	Options    Options           `yaml:"options"`
	Schedule   schedule.Schedule `yaml:"schedule"`
}

// IsFeed reports whether the store is read from a feed rather than scraped.
func (s *StoreConfig) IsFeed() bool {
	return s.Options.FeedURL != ""
}

// Settings holds process-wide knobs with working defaults.
type Settings struct {
	DatabasePath   string `yaml:"database_path"`
	UserAgentsPath string `yaml:"user_agents_path"`
	AgentIndexPath string `yaml:"agent_index_path"`
	MaxPages       int    `yaml:"max_pages"`
	FetchAttempts  int    `yaml:"fetch_attempts"`
	BackoffSeconds int    `yaml:"backoff_seconds"`
	MaxConcurrent  int    `yaml:"max_concurrent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DefaultSettings returns the settings used when the config file leaves
// them unset.
func DefaultSettings() Settings {
	return Settings{
		DatabasePath:   "storewatch.db",
		UserAgentsPath: "user_agents.txt",
		AgentIndexPath: "user_agent_index.txt",
		MaxPages:       50,
		FetchAttempts:  3,
		BackoffSeconds: 5,
		MaxConcurrent:  3,
		TimeoutSeconds: 30,
	}
}

// Timeout returns the per-fetch timeout as a duration.
func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Backoff returns the initial retry delay as a duration.
func (s Settings) Backoff() time.Duration {
	return time.Duration(s.BackoffSeconds) * time.Second
}

// Config is the full parsed configuration file.
type Config struct {
	Settings Settings       `yaml:"settings"`
	Stores   []*StoreConfig `yaml:"stores"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse validates raw YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{Settings: DefaultSettings()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	s := &c.Settings
	def := DefaultSettings()
	if s.MaxPages <= 0 {
		s.MaxPages = def.MaxPages
	}
	if s.FetchAttempts <= 0 {
		s.FetchAttempts = def.FetchAttempts
	}
	if s.BackoffSeconds <= 0 {
		s.BackoffSeconds = def.BackoffSeconds
	}
	if s.MaxConcurrent <= 0 {
		s.MaxConcurrent = def.MaxConcurrent
	}
	if s.TimeoutSeconds <= 0 {
		s.TimeoutSeconds = def.TimeoutSeconds
	}
	if s.DatabasePath == "" {
		s.DatabasePath = def.DatabasePath
	}
	if s.UserAgentsPath == "" {
		s.UserAgentsPath = def.UserAgentsPath
	}
	if s.AgentIndexPath == "" {
		s.AgentIndexPath = def.AgentIndexPath
	}

	seen := make(map[string]bool, len(c.Stores))
	for _, store := range c.Stores {
		if store.Name == "" {
			return fmt.Errorf("store with empty name in config")
		}
		if seen[store.Name] {
			return fmt.Errorf("duplicate store name %q", store.Name)
		}
		seen[store.Name] = true

		if store.NameFormat == "" {
			store.NameFormat = store.Name
		}
		if err := validateStore(store); err != nil {
			return fmt.Errorf("store %q: %w", store.Name, err)
		}
	}
	return nil
}

func validateStore(store *StoreConfig) error {
	if store.IsFeed() {
		return nil
	}
	opts := store.Options
	switch {
	case opts.BaseURL == "":
		return fmt.Errorf("missing required field base_url")
	case opts.SiteMainURL == "":
		return fmt.Errorf("missing required field site_main_url")
	case opts.ItemContainerSelector == "":
		return fmt.Errorf("missing required field item_container_selector")
	case opts.ItemNameSelector == "":
		return fmt.Errorf("missing required field item_name_selector")
	case opts.ItemLinkSelector == "":
		return fmt.Errorf("missing required field item_link_selector")
	}
	return nil
}
