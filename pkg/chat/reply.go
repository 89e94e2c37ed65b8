// Package chat folds a decoded chat stream into a growing assistant reply.
// The side-channel events (usage, entities, tool results) are captured as
// they arrive so the UI layer can surface them next to the text.
package chat

import (
	"strings"

	"github.com/conseilapp/conseil/pkg/stream"
)

// Reply accumulates one assistant reply from a chat stream.
type Reply struct {
	text strings.Builder

	// Status is the most recent transient progress note.
	Status string

	// Usage is the final token/cost summary, when the backend sent one.
	Usage *stream.Usage

	// Entities collects every extraction result seen on the stream.
	Entities []stream.Entity

	// Tools collects tool outcomes in arrival order.
	Tools []stream.ToolResult

	// ErrMessage is set when the stream ended with a protocol-level
	// error event.
	ErrMessage string
}

// Apply folds one event into the reply. Events that belong to the board
// protocol are ignored; chat streams do not carry them.
func (r *Reply) Apply(ev *stream.Event) {
	switch ev.Type {
	case stream.KindTextDelta:
		r.text.WriteString(ev.Content)
	case stream.KindStatus:
		r.Status = ev.Content
	case stream.KindUsageSummary:
		r.Usage = ev.Usage
	case stream.KindEntitiesDetected:
		r.Entities = append(r.Entities, ev.Entities...)
	case stream.KindToolResult:
		if ev.Tool != nil {
			r.Tools = append(r.Tools, *ev.Tool)
		}
	case stream.KindError:
		r.ErrMessage = errMessage(ev)
	}
}

// Text returns the reply accumulated so far.
func (r *Reply) Text() string {
	return r.text.String()
}

// Failed reports whether the backend ended the stream with an error event.
func (r *Reply) Failed() bool {
	return r.ErrMessage != ""
}

// Collect drives the stream to completion, invoking onDelta for each piece
// of incremental text as it arrives. onDelta may be nil. The returned
// Reply is complete whenever err is nil; on a transport error the partial
// reply is returned alongside it.
func Collect(s *stream.Stream, onDelta func(delta string)) (*Reply, error) {
	reply := &Reply{}

	for {
		ev, err := s.Next()
		if err != nil {
			return reply, err
		}
		if ev == nil {
			return reply, nil
		}

		reply.Apply(ev)
		if ev.Type == stream.KindTextDelta && onDelta != nil {
			onDelta(ev.Content)
		}
	}
}

// errMessage picks the detail string off an error event.
func errMessage(ev *stream.Event) string {
	if ev.Message != "" {
		return ev.Message
	}
	if ev.Content != "" {
		return ev.Content
	}
	return "le serveur a signalé une erreur"
}
