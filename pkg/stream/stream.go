package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/conseilapp/conseil/pkg/sse"
)

const (
	// dataPrefix marks an event-bearing line on the wire.
	dataPrefix = "data:"

	// doneSentinel is the literal terminator token. It ends the stream
	// without producing an event.
	doneSentinel = "[DONE]"

	// readBufferSize is the size of the single transport read buffer.
	readBufferSize = 16 * 1024
)

// Stream is one live decoding session over an open response body: one
// transport read loop, one line splitter, one cancellation signal. It is
// finite and non-restartable; open a new Stream to retry.
//
// A Stream is driven by a single goroutine calling Next. There is no
// internal parallelism: a slow consumer simply delays the next transport
// read, which is the backpressure mechanism.
type Stream struct {
	ctx      context.Context
	body     io.ReadCloser
	splitter *sse.Splitter
	logger   *slog.Logger

	buf   []byte
	lines []string
	eof   bool
	done  bool

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Stream created with New.
type Option func(*Stream)

// WithLogger sets the logger used for per-frame drop diagnostics.
// Undecodable frames are skipped by design; the logger makes the skips
// observable without aborting the stream.
func WithLogger(l *slog.Logger) Option {
	return func(s *Stream) {
		s.logger = l
	}
}

// New wraps an already-established response body in a decoding session.
// The caller must have verified the response status; New never issues the
// request itself (see pkg/backend for that). ctx carries the cancellation
// signal: when it fires, the in-flight read aborts, the body is released
// and the sequence ends cleanly without a further event.
//
// The Stream takes ownership of body and releases it exactly once, on
// every exit path. Callers that abandon iteration early must call Close.
func New(ctx context.Context, body io.ReadCloser, opts ...Option) *Stream {
	if ctx == nil {
		ctx = context.Background()
	}

	s := &Stream{
		ctx:      ctx,
		body:     body,
		splitter: sse.NewSplitter(),
		logger:   slog.New(slog.DiscardHandler),
		buf:      make([]byte, readBufferSize),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Next advances the sequence and returns the next decoded event. It
// returns (nil, nil) once the sequence is exhausted: terminator sentinel
// seen, terminal event already yielded, clean end of body, or
// cancellation. A non-nil error means the transport failed mid-stream; the
// body has already been released.
//
// Events are yielded in the exact order their frames appeared on the wire.
func (s *Stream) Next() (*Event, error) {
	if s.done {
		return nil, nil
	}

	for {
		// Cancellation wins over anything already split and queued: once
		// the signal fires, no further event may be yielded, even when a
		// single transport read delivered several frames.
		if err := s.ctx.Err(); err != nil {
			s.finish()
			return nil, nil
		}

		// Drain decoded lines before touching the transport again.
		for len(s.lines) > 0 {
			line := s.lines[0]
			s.lines = s.lines[1:]

			ev, terminated := s.decode(line)
			if terminated {
				s.finish()
				return nil, nil
			}
			if ev == nil {
				continue
			}
			if ev.Type.Terminal() {
				// No further reads after a terminal event.
				s.finish()
			}
			return ev, nil
		}

		if s.eof {
			// Body ended without an explicit terminator: implicit
			// completion. An unterminated residual line is dropped,
			// never decoded.
			s.finish()
			return nil, nil
		}

		// The single suspension point.
		n, err := s.body.Read(s.buf)
		if n > 0 {
			s.lines = append(s.lines, s.splitter.Push(s.buf[:n])...)
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				s.eof = true
			case s.canceled(err):
				s.finish()
				return nil, nil
			default:
				s.finish()
				return nil, fmt.Errorf("reading event stream: %w", err)
			}
		}
	}
}

// Close releases the transport body. It is idempotent and safe to call
// after Next has already finished the stream.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

// decode classifies one frame. It returns the decoded event (nil for
// ignorable or undecodable frames) and whether the frame was the stream
// terminator sentinel.
func (s *Stream) decode(line string) (ev *Event, terminated bool) {
	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		// Blank lines, keep-alive comments, unknown fields: framing
		// noise, not events.
		return nil, false
	}

	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, false
	}
	if payload == doneSentinel {
		return nil, true
	}

	ev, err := ParseEvent([]byte(payload))
	if err != nil {
		// One bad frame must not take down a healthy stream.
		s.logger.Debug("dropping undecodable frame",
			"err", err,
			"line", line,
		)
		return nil, false
	}

	return ev, false
}

// finish marks the sequence exhausted and releases the body.
func (s *Stream) finish() {
	s.done = true
	_ = s.Close()
}

// canceled reports whether a transport read error was caused by the
// stream's own cancellation signal.
func (s *Stream) canceled(err error) bool {
	return s.ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
