package backend_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/conseilapp/conseil/pkg/backend"
	"github.com/conseilapp/conseil/pkg/stream"
)

// sseHandler writes the given frames as an event stream, flushing after
// each one.
func sseHandler(frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, f := range frames {
			fmt.Fprint(w, f)
			flusher.Flush()
		}
	}
}

var _ = Describe("Client", func() {
	Describe("StreamChat", func() {
		It("decodes a complete reply stream", func() {
			srv := httptest.NewServer(sseHandler(
				"data: {\"type\":\"text-delta\",\"content\":\"Bonjour \"}\n",
				"data: {\"type\":\"text-delta\",\"content\":\"Claire\"}\n",
				"data: {\"type\":\"usage-summary\",\"usage\":{\"total_tokens\":8}}\n",
				"data: [DONE]\n",
			))
			defer srv.Close()

			client := backend.New(srv.URL)
			s, err := client.StreamChat(context.Background(), &backend.ChatRequest{
				Messages: []backend.Message{{Role: "user", Content: "Bonjour"}},
			})
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			var got []*stream.Event
			for {
				ev, err := s.Next()
				Expect(err).NotTo(HaveOccurred())
				if ev == nil {
					break
				}
				got = append(got, ev)
			}

			Expect(got).To(HaveLen(3))
			Expect(got[0].Content).To(Equal("Bonjour "))
			Expect(got[1].Content).To(Equal("Claire"))
			Expect(got[2].Usage.TotalTokens).To(Equal(8))
		})

		It("sends auth and stream headers", func() {
			var gotAuth, gotAccept, gotRequestID string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				gotAccept = r.Header.Get("Accept")
				gotRequestID = r.Header.Get("X-Request-ID")
				fmt.Fprint(w, "data: [DONE]\n")
			}))
			defer srv.Close()

			client := backend.New(srv.URL, backend.WithToken("tok-123"))
			s, err := client.StreamChat(context.Background(), &backend.ChatRequest{})
			Expect(err).NotTo(HaveOccurred())
			s.Close()

			Expect(gotAuth).To(Equal("Bearer tok-123"))
			Expect(gotAccept).To(Equal("text/event-stream"))
			Expect(gotRequestID).NotTo(BeEmpty())
		})

		It("omits the Authorization header without a token", func() {
			var gotAuth string
			var hasAuth bool
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				_, hasAuth = r.Header["Authorization"]
				fmt.Fprint(w, "data: [DONE]\n")
			}))
			defer srv.Close()

			client := backend.New(srv.URL)
			s, err := client.StreamChat(context.Background(), &backend.ChatRequest{})
			Expect(err).NotTo(HaveOccurred())
			s.Close()

			Expect(hasAuth).To(BeFalse())
			Expect(gotAuth).To(BeEmpty())
		})

		It("returns a StatusError when the backend rejects the request", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"error":"jeton invalide"}`, http.StatusUnauthorized)
			}))
			defer srv.Close()

			client := backend.New(srv.URL, backend.WithToken("expired"))
			_, err := client.StreamChat(context.Background(), &backend.ChatRequest{})

			var statusErr *backend.StatusError
			Expect(err).To(HaveOccurred())
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.Code).To(Equal(http.StatusUnauthorized))
			Expect(statusErr.Body).To(ContainSubstring("jeton invalide"))
		})

		It("returns an error when the backend is unreachable", func() {
			client := backend.New("http://127.0.0.1:1")
			_, err := client.StreamChat(context.Background(), &backend.ChatRequest{})
			Expect(err).To(HaveOccurred())
		})

		It("ends the stream cleanly when the caller cancels", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				flusher := w.(http.Flusher)
				fmt.Fprint(w, "data: {\"type\":\"text-delta\",\"content\":\"a\"}\n")
				flusher.Flush()
				// Keep the connection open until the client goes away.
				<-r.Context().Done()
			}))
			defer srv.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			client := backend.New(srv.URL)
			s, err := client.StreamChat(ctx, &backend.ChatRequest{})
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			ev, err := s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Content).To(Equal("a"))

			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()

			ev, err = s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
		})
	})

	Describe("StreamBoard", func() {
		It("posts to the board endpoint and decodes advisor events", func() {
			var gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				sseHandler(
					"data: {\"type\":\"advisor-start\",\"role\":\"analyst\"}\n",
					"data: {\"type\":\"advisor-chunk\",\"role\":\"analyst\",\"content\":\"Oui\"}\n",
					"data: {\"type\":\"done\"}\n",
				)(w, r)
			}))
			defer srv.Close()

			client := backend.New(srv.URL)
			s, err := client.StreamBoard(context.Background(), &backend.BoardRequest{
				Question: "Faut-il accepter l'offre ?",
			})
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			ev, err := s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Type).To(Equal(stream.KindAdvisorStart))
			Expect(gotPath).To(Equal("/v1/board/stream"))
		})
	})
})
