// Package board demultiplexes a board deliberation stream into independent
// per-advisor accumulators plus a synthesis accumulator. Advisors are keyed
// by role; panels appear in the order the backend first mentioned them.
package board

import (
	"strings"

	"github.com/conseilapp/conseil/pkg/stream"
)

// Panel is one advisor's running contribution.
type Panel struct {
	Role  string
	Name  string
	Emoji string

	// Done is set once the advisor's advisor-done event arrives.
	Done bool

	text strings.Builder
}

// Text returns the advisor's contribution accumulated so far.
func (p *Panel) Text() string {
	return p.text.String()
}

// Transcript accumulates a whole deliberation: every advisor panel and the
// final synthesis.
type Transcript struct {
	panels map[string]*Panel
	order  []string

	synthesis strings.Builder

	// Usage is the deliberation-wide token/cost summary, if sent.
	Usage *stream.Usage

	// ErrMessage is set when the stream ended with an error event.
	ErrMessage string
}

// NewTranscript returns an empty Transcript.
func NewTranscript() *Transcript {
	return &Transcript{panels: make(map[string]*Panel)}
}

// Apply folds one event into the transcript. Chat-only kinds (text-delta)
// are ignored; board streams do not carry them.
func (t *Transcript) Apply(ev *stream.Event) {
	switch ev.Type {
	case stream.KindAdvisorStart:
		p := t.panel(ev.Role)
		if ev.Name != "" {
			p.Name = ev.Name
		}
		if ev.Emoji != "" {
			p.Emoji = ev.Emoji
		}
	case stream.KindAdvisorChunk:
		t.panel(ev.Role).text.WriteString(ev.Content)
	case stream.KindAdvisorDone:
		t.panel(ev.Role).Done = true
	case stream.KindSynthesisChunk:
		t.synthesis.WriteString(ev.Content)
	case stream.KindUsageSummary:
		t.Usage = ev.Usage
	case stream.KindError:
		if ev.Message != "" {
			t.ErrMessage = ev.Message
		} else {
			t.ErrMessage = ev.Content
		}
	}
}

// panel returns the accumulator for a role, creating it on first mention.
// Events with an empty role are attributed to a synthetic "" panel rather
// than dropped, so a misbehaving backend stays visible.
func (t *Transcript) panel(role string) *Panel {
	p, ok := t.panels[role]
	if !ok {
		p = &Panel{Role: role}
		t.panels[role] = p
		t.order = append(t.order, role)
	}
	return p
}

// Panel returns the accumulator for a role, or nil if the role never
// appeared on the stream.
func (t *Transcript) Panel(role string) *Panel {
	return t.panels[role]
}

// Panels returns every advisor panel in first-mention order.
func (t *Transcript) Panels() []*Panel {
	out := make([]*Panel, 0, len(t.order))
	for _, role := range t.order {
		out = append(out, t.panels[role])
	}
	return out
}

// Synthesis returns the synthesis text accumulated so far.
func (t *Transcript) Synthesis() string {
	return t.synthesis.String()
}

// Failed reports whether the backend ended the stream with an error event.
func (t *Transcript) Failed() bool {
	return t.ErrMessage != ""
}

// Collect drives the stream to completion. onEvent, when non-nil, is
// invoked after each event has been folded in; live UIs use it to rerender.
func Collect(s *stream.Stream, onEvent func(t *Transcript, ev *stream.Event)) (*Transcript, error) {
	transcript := NewTranscript()

	for {
		ev, err := s.Next()
		if err != nil {
			return transcript, err
		}
		if ev == nil {
			return transcript, nil
		}

		transcript.Apply(ev)
		if onEvent != nil {
			onEvent(transcript, ev)
		}
	}
}
