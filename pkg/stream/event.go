// Package stream decodes the conseil backend's event-stream wire protocol
// into typed events and exposes a long-lived HTTP response body as a lazy,
// pull-based sequence with cooperative cancellation.
//
// The same decoder serves every streaming feature of the product (live chat
// replies, board deliberation); consumers differ only in how they fold the
// decoded events.
package stream

import (
	"encoding/json"
	"fmt"
)

// Kind identifies one variant of the closed set of protocol events. The
// string values are the wire `type` discriminators emitted by the backend.
type Kind string

const (
	// KindTextDelta carries an incremental piece of the assistant's reply.
	KindTextDelta Kind = "text-delta"

	// KindStatus carries a transient progress note ("réflexion", "recherche").
	KindStatus Kind = "status"

	// KindToolResult carries the outcome of a server-side tool invocation.
	KindToolResult Kind = "tool-result"

	// KindUsageSummary carries token and cost counters, typically once per
	// stream near the end.
	KindUsageSummary Kind = "usage-summary"

	// KindEntitiesDetected carries entities the backend extracted from the
	// conversation (dates, contacts, places).
	KindEntitiesDetected Kind = "entities-detected"

	// Board deliberation protocol: one advisor speaks at a time, then a
	// synthesis is streamed.
	KindAdvisorStart   Kind = "advisor-start"
	KindAdvisorChunk   Kind = "advisor-chunk"
	KindAdvisorDone    Kind = "advisor-done"
	KindSynthesisChunk Kind = "synthesis-chunk"

	// KindDone marks successful completion of the stream.
	KindDone Kind = "done"

	// KindError is the server deliberately reporting failure as payload.
	// It is ordinary terminal data, not a transport error.
	KindError Kind = "error"
)

// kinds is the closed set of recognized event kinds.
var kinds = map[Kind]struct{}{
	KindTextDelta:        {},
	KindStatus:           {},
	KindToolResult:       {},
	KindUsageSummary:     {},
	KindEntitiesDetected: {},
	KindAdvisorStart:     {},
	KindAdvisorChunk:     {},
	KindAdvisorDone:      {},
	KindSynthesisChunk:   {},
	KindDone:             {},
	KindError:            {},
}

// Known returns true if k is part of the protocol's closed event set.
func (k Kind) Known() bool {
	_, ok := kinds[k]
	return ok
}

// Terminal returns true for the two kinds that end the stream once yielded.
func (k Kind) Terminal() bool {
	return k == KindDone || k == KindError
}

// Usage contains token counts and cost for one completed generation.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	TotalTokens      int     `json:"total_tokens,omitempty"`
	Cost             float64 `json:"cost,omitempty"`
}

// Entity is one extraction result carried by an entities-detected event.
type Entity struct {
	// Label classifies the entity ("date", "contact", "place").
	Label string `json:"label"`

	// Text is the surface form as it appeared in the conversation.
	Text string `json:"text"`

	// Value is the normalized form, when the backend provides one
	// (e.g. an ISO date for a spoken "mardi prochain").
	Value string `json:"value,omitempty"`
}

// ToolResult is the structured payload of a tool-result event.
type ToolResult struct {
	Name    string `json:"name"`
	Output  string `json:"output,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

// Event is one decoded protocol event. Type is always set; every other
// field is populated only for the kinds it belongs to.
type Event struct {
	Type Kind `json:"type"`

	// Content carries incremental text for text-delta, status,
	// advisor-chunk and synthesis-chunk events.
	Content string `json:"content,omitempty"`

	// Advisor attribution for the board deliberation protocol.
	Role  string `json:"role,omitempty"`
	Name  string `json:"name,omitempty"`
	Emoji string `json:"emoji,omitempty"`

	Usage    *Usage      `json:"usage,omitempty"`
	Entities []Entity    `json:"entities,omitempty"`
	Tool     *ToolResult `json:"tool,omitempty"`

	// Message is the human-readable detail on error events.
	Message string `json:"message,omitempty"`
}

// ParseEvent decodes one event envelope (a single JSON object on one line)
// into an Event. It rejects payloads that are not JSON objects, carry no
// type discriminator, or name a kind outside the protocol's closed set.
func ParseEvent(payload []byte) (*Event, error) {
	ev := &Event{}
	if err := json.Unmarshal(payload, ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	if ev.Type == "" {
		return nil, ErrMissingEventType
	}
	if !ev.Type.Known() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, ev.Type)
	}

	return ev, nil
}
