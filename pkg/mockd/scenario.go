package mockd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/conseilapp/conseil/pkg/stream"
)

// ScenarioEvent is one scripted frame. Either the typed fields are set and
// the frame is rendered as a protocol event, or Raw is set and the line is
// written to the wire verbatim — which is how scenarios inject malformed
// frames and comments to exercise client tolerance.
type ScenarioEvent struct {
	Type    string `toml:"type"`
	Content string `toml:"content"`
	Role    string `toml:"role"`
	Name    string `toml:"name"`
	Emoji   string `toml:"emoji"`
	Message string `toml:"message"`

	Usage *stream.Usage `toml:"usage"`

	// Raw, when non-empty, is emitted as-is instead of a data: frame.
	Raw string `toml:"raw"`

	// DelayMS is the pause before this frame is written.
	DelayMS int `toml:"delay_ms"`
}

// Event builds the protocol event for a typed scenario entry.
func (e ScenarioEvent) Event() *stream.Event {
	return &stream.Event{
		Type:    stream.Kind(e.Type),
		Content: e.Content,
		Role:    e.Role,
		Name:    e.Name,
		Emoji:   e.Emoji,
		Message: e.Message,
		Usage:   e.Usage,
	}
}

// Scenario scripts what the server streams on each endpoint.
type Scenario struct {
	Chat  ScenarioScript `toml:"chat"`
	Board ScenarioScript `toml:"board"`
}

// ScenarioScript is the event list for one endpoint.
type ScenarioScript struct {
	Events []ScenarioEvent `toml:"events"`
}

// LoadScenario reads a scenario TOML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}

	sc := &Scenario{}
	if err := toml.Unmarshal(data, sc); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}

	return sc, nil
}

// DefaultScenario scripts a small believable exchange used when no scenario
// file is configured: a chat reply in two deltas with a usage summary, and a
// two-advisor deliberation with a synthesis.
func DefaultScenario() *Scenario {
	return &Scenario{
		Chat: ScenarioScript{Events: []ScenarioEvent{
			{Type: string(stream.KindStatus), Content: "réflexion en cours", DelayMS: 50},
			{Type: string(stream.KindTextDelta), Content: "Bonjour ! ", DelayMS: 30},
			{Type: string(stream.KindTextDelta), Content: "Comment puis-je vous aider aujourd'hui ?", DelayMS: 30},
			{Type: string(stream.KindUsageSummary), Usage: &stream.Usage{PromptTokens: 12, CompletionTokens: 9, TotalTokens: 21}},
			{Type: string(stream.KindDone)},
		}},
		Board: ScenarioScript{Events: []ScenarioEvent{
			{Type: string(stream.KindAdvisorStart), Role: "analyst", Name: "Analyste", Emoji: "🧮", DelayMS: 50},
			{Type: string(stream.KindAdvisorChunk), Role: "analyst", Content: "Les données disponibles penchent pour un oui.", DelayMS: 30},
			{Type: string(stream.KindAdvisorDone), Role: "analyst"},
			{Type: string(stream.KindAdvisorStart), Role: "skeptic", Name: "Sceptique", Emoji: "🤨", DelayMS: 30},
			{Type: string(stream.KindAdvisorChunk), Role: "skeptic", Content: "Trois hypothèses restent fragiles.", DelayMS: 30},
			{Type: string(stream.KindAdvisorDone), Role: "skeptic"},
			{Type: string(stream.KindSynthesisChunk), Content: "Avancez, mais validez les hypothèses d'abord.", DelayMS: 30},
			{Type: string(stream.KindDone)},
		}},
	}
}
