package config

import "strings"

// Config represents the persistent conseil configuration stored as
// config.toml in the .conseil/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Backend BackendConfig `toml:"backend"`
	Chat    ChatConfig    `toml:"chat"`
	Board   BoardConfig   `toml:"board"`
	History HistoryConfig `toml:"history"`
	Mockd   MockdConfig   `toml:"mockd"`
}

// BackendConfig holds settings for connecting to the assistant backend.
type BackendConfig struct {
	// URL is the backend base URL (scheme + host + port).
	URL string `toml:"url,omitempty"`

	// Locale is sent with every stream request. The product is
	// French-first, so fr-FR is the default.
	Locale string `toml:"locale,omitempty"`
}

// ChatConfig holds chat stream settings.
type ChatConfig struct {
	Model string `toml:"model,omitempty"`
}

// BoardConfig holds board deliberation settings.
type BoardConfig struct {
	// Advisors is the default set of advisor roles consulted when a
	// deliberation does not name its own.
	Advisors []string `toml:"advisors,omitempty"`
}

// HistoryConfig holds transcript history settings.
type HistoryConfig struct {
	// SQLitePath overrides the default history database location
	// (<dotdir>/history.db).
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// MockdConfig holds settings for the local development stream server.
type MockdConfig struct {
	Listen   string `toml:"listen,omitempty"`
	Scenario string `toml:"scenario,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"backend.url": {
		get: func(c *Config) string { return c.Backend.URL },
		set: func(c *Config, v string) error { c.Backend.URL = v; return nil },
	},
	"backend.locale": {
		get: func(c *Config) string { return c.Backend.Locale },
		set: func(c *Config, v string) error { c.Backend.Locale = v; return nil },
	},
	"chat.model": {
		get: func(c *Config) string { return c.Chat.Model },
		set: func(c *Config, v string) error { c.Chat.Model = v; return nil },
	},
	"board.advisors": {
		get: func(c *Config) string { return strings.Join(c.Board.Advisors, ",") },
		set: func(c *Config, v string) error {
			c.Board.Advisors = splitAdvisors(v)
			return nil
		},
	},
	"history.sqlite_path": {
		get: func(c *Config) string { return c.History.SQLitePath },
		set: func(c *Config, v string) error { c.History.SQLitePath = v; return nil },
	},
	"mockd.listen": {
		get: func(c *Config) string { return c.Mockd.Listen },
		set: func(c *Config, v string) error { c.Mockd.Listen = v; return nil },
	},
	"mockd.scenario": {
		get: func(c *Config) string { return c.Mockd.Scenario },
		set: func(c *Config, v string) error { c.Mockd.Scenario = v; return nil },
	},
}

// splitAdvisors parses a comma-separated advisor role list, dropping empty
// entries and surrounding whitespace.
func splitAdvisors(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
