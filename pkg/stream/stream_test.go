package stream_test

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/conseilapp/conseil/pkg/stream"
)

// scriptedBody serves a fixed sequence of chunks, one per Read call, then
// behaves according to tail: io.EOF, a transport error, or blocking until
// the context is canceled. It counts reads and closes.
type scriptedBody struct {
	chunks  [][]byte
	tailErr error
	ctx     context.Context

	reads  atomic.Int32
	closes atomic.Int32
	closed chan struct{}
}

func newScriptedBody(chunks ...string) *scriptedBody {
	b := &scriptedBody{tailErr: io.EOF, closed: make(chan struct{})}
	for _, c := range chunks {
		b.chunks = append(b.chunks, []byte(c))
	}
	return b
}

func (b *scriptedBody) Read(p []byte) (int, error) {
	b.reads.Add(1)

	if len(b.chunks) > 0 {
		n := copy(p, b.chunks[0])
		b.chunks = b.chunks[1:]
		return n, nil
	}

	if b.ctx != nil {
		// Simulate an http body read aborted by request cancellation.
		select {
		case <-b.ctx.Done():
			return 0, b.ctx.Err()
		case <-b.closed:
			return 0, io.ErrClosedPipe
		}
	}

	return 0, b.tailErr
}

func (b *scriptedBody) Close() error {
	if b.closes.Add(1) == 1 {
		close(b.closed)
	}
	return nil
}

// drain pulls events until exhaustion or error.
func drain(s *stream.Stream) ([]*stream.Event, error) {
	var events []*stream.Event
	for {
		ev, err := s.Next()
		if err != nil {
			return events, err
		}
		if ev == nil {
			return events, nil
		}
		events = append(events, ev)
	}
}

var _ = Describe("Stream", func() {
	Describe("Next", func() {
		It("yields events in wire order", func() {
			body := newScriptedBody(
				"data: {\"type\":\"status\",\"content\":\"réflexion\"}\n",
				"data: {\"type\":\"text-delta\",\"content\":\"Bon\"}\n"+
					"data: {\"type\":\"text-delta\",\"content\":\"jour\"}\n",
			)
			s := stream.New(context.Background(), body)

			events, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(3))
			Expect(events[0].Type).To(Equal(stream.KindStatus))
			Expect(events[1].Content).To(Equal("Bon"))
			Expect(events[2].Content).To(Equal("jour"))
			Expect(body.closes.Load()).To(Equal(int32(1)))
		})

		It("reassembles an event split across reads", func() {
			body := newScriptedBody(
				"data: {\"type\":\"text-del",
				"ta\",\"content\":\"a\"}\n",
			)
			s := stream.New(context.Background(), body)

			events, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Content).To(Equal("a"))
		})

		It("ends on the [DONE] sentinel without yielding it", func() {
			body := newScriptedBody(
				"data: {\"type\":\"text-delta\",\"content\":\"a\"}\n",
				"data: [DONE]\n",
			)
			s := stream.New(context.Background(), body)

			events, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Type).To(Equal(stream.KindTextDelta))
			Expect(events[0].Content).To(Equal("a"))
			Expect(body.closes.Load()).To(Equal(int32(1)))
		})

		It("short-circuits after a terminal event", func() {
			body := newScriptedBody(
				"data: {\"type\":\"done\",\"content\":\"\"}\n",
				"data: {\"type\":\"text-delta\",\"content\":\"never\"}\n",
			)
			s := stream.New(context.Background(), body)

			ev, err := s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Type).To(Equal(stream.KindDone))

			readsAtTerminal := body.reads.Load()

			ev, err = s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())

			// The frame after the terminal event is never read.
			Expect(body.reads.Load()).To(Equal(readsAtTerminal))
			Expect(body.closes.Load()).To(Equal(int32(1)))
		})

		It("skips malformed frames without erroring", func() {
			body := newScriptedBody(
				"data: not-json\n",
				"data: {\"type\":\"status\",\"content\":\"ok\"}\n",
			)
			s := stream.New(context.Background(), body)

			events, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Type).To(Equal(stream.KindStatus))
			Expect(events[0].Content).To(Equal("ok"))
		})

		It("skips frames with unknown event kinds", func() {
			body := newScriptedBody(
				"data: {\"type\":\"telemetry\",\"content\":\"x\"}\n",
				"data: {\"type\":\"text-delta\",\"content\":\"a\"}\n",
			)
			s := stream.New(context.Background(), body)

			events, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Content).To(Equal("a"))
		})

		It("ignores comments, blank lines and non-event fields", func() {
			body := newScriptedBody(
				": keep-alive\n\nretry: 3000\ndata: {\"type\":\"text-delta\",\"content\":\"a\"}\n\n",
			)
			s := stream.New(context.Background(), body)

			events, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
		})

		It("ignores empty envelopes", func() {
			body := newScriptedBody(
				"data: \ndata:\ndata: {\"type\":\"text-delta\",\"content\":\"a\"}\n",
			)
			s := stream.New(context.Background(), body)

			events, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
		})

		It("treats clean EOF without a terminal event as completion", func() {
			body := newScriptedBody(
				"data: {\"type\":\"text-delta\",\"content\":\"a\"}\n",
			)
			s := stream.New(context.Background(), body)

			events, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
		})

		It("drops an unterminated trailing frame at EOF", func() {
			body := newScriptedBody(
				"data: {\"type\":\"text-delta\",\"content\":\"a\"}\ndata: {\"type\":\"text-de",
			)
			s := stream.New(context.Background(), body)

			events, err := drain(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Content).To(Equal("a"))
		})

		It("surfaces a mid-stream transport failure and still releases the body", func() {
			body := newScriptedBody(
				"data: {\"type\":\"text-delta\",\"content\":\"a\"}\n",
			)
			body.tailErr = errors.New("connection reset")

			s := stream.New(context.Background(), body)

			ev, err := s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Content).To(Equal("a"))

			_, err = s.Next()
			Expect(err).To(MatchError(ContainSubstring("connection reset")))
			Expect(body.closes.Load()).To(Equal(int32(1)))
		})

		It("is non-restartable after exhaustion", func() {
			body := newScriptedBody("data: [DONE]\n")
			s := stream.New(context.Background(), body)

			ev, err := s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())

			for range 3 {
				ev, err = s.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			}
			Expect(body.closes.Load()).To(Equal(int32(1)))
		})
	})

	Describe("cancellation", func() {
		It("ends the sequence cleanly and releases the body exactly once", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			body := newScriptedBody(
				"data: {\"type\":\"text-delta\",\"content\":\"a\"}\n",
			)
			body.ctx = ctx

			s := stream.New(ctx, body)

			ev, err := s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Content).To(Equal("a"))

			// Fire the signal while Next is blocked in the transport read.
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()

			// The in-flight read aborts; no further event, no error.
			ev, err = s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
			Expect(body.closes.Load()).To(Equal(int32(1)))
		})

		It("does not read again once the signal has fired between reads", func() {
			ctx, cancel := context.WithCancel(context.Background())

			body := newScriptedBody(
				"data: {\"type\":\"text-delta\",\"content\":\"a\"}\n",
				"data: {\"type\":\"text-delta\",\"content\":\"b\"}\n",
			)
			s := stream.New(ctx, body)

			ev, err := s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Content).To(Equal("a"))

			cancel()
			reads := body.reads.Load()

			ev, err = s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
			Expect(body.reads.Load()).To(Equal(reads))
		})

		It("discards frames already queued from an earlier read", func() {
			ctx, cancel := context.WithCancel(context.Background())

			// One transport read delivers two complete frames; the second
			// sits decoded in the queue while the first is consumed.
			body := newScriptedBody(
				"data: {\"type\":\"text-delta\",\"content\":\"a\"}\n" +
					"data: {\"type\":\"text-delta\",\"content\":\"b\"}\n",
			)
			s := stream.New(ctx, body)

			ev, err := s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Content).To(Equal("a"))

			cancel()

			// The queued second frame must not surface after the signal.
			ev, err = s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
			Expect(body.closes.Load()).To(Equal(int32(1)))
		})
	})

	Describe("Close", func() {
		It("is idempotent when the consumer breaks out early", func() {
			body := newScriptedBody(
				"data: {\"type\":\"text-delta\",\"content\":\"a\"}\n",
				"data: {\"type\":\"text-delta\",\"content\":\"b\"}\n",
			)
			s := stream.New(context.Background(), body)

			ev, err := s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).NotTo(BeNil())

			Expect(s.Close()).To(Succeed())
			Expect(s.Close()).To(Succeed())
			Expect(body.closes.Load()).To(Equal(int32(1)))
		})
	})
})
