package config

const (
	defaultBackendURL = "http://localhost:8787"
	defaultLocale     = "fr-FR"

	defaultChatModel = "conseil-standard"

	defaultMockdListen = ":8787"
)

// defaultAdvisors is the default board composition.
var defaultAdvisors = []string{"analyst", "optimist", "skeptic"}

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Backend: BackendConfig{
			URL:    defaultBackendURL,
			Locale: defaultLocale,
		},
		Chat: ChatConfig{
			Model: defaultChatModel,
		},
		Board: BoardConfig{
			Advisors: append([]string(nil), defaultAdvisors...),
		},
		Mockd: MockdConfig{
			Listen: defaultMockdListen,
		},
	}
}
