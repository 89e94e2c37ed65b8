package stream_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/conseilapp/conseil/pkg/stream"
)

var _ = Describe("Kind", func() {
	It("marks exactly done and error as terminal", func() {
		Expect(stream.KindDone.Terminal()).To(BeTrue())
		Expect(stream.KindError.Terminal()).To(BeTrue())

		for _, k := range []stream.Kind{
			stream.KindTextDelta,
			stream.KindStatus,
			stream.KindToolResult,
			stream.KindUsageSummary,
			stream.KindEntitiesDetected,
			stream.KindAdvisorStart,
			stream.KindAdvisorChunk,
			stream.KindAdvisorDone,
			stream.KindSynthesisChunk,
		} {
			Expect(k.Terminal()).To(BeFalse(), "kind %q", k)
		}
	})

	It("recognizes only the closed set", func() {
		Expect(stream.KindTextDelta.Known()).To(BeTrue())
		Expect(stream.Kind("telemetry").Known()).To(BeFalse())
		Expect(stream.Kind("").Known()).To(BeFalse())
	})
})

var _ = Describe("ParseEvent", func() {
	It("decodes a text delta", func() {
		ev, err := stream.ParseEvent([]byte(`{"type":"text-delta","content":"Bonjour"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Type).To(Equal(stream.KindTextDelta))
		Expect(ev.Content).To(Equal("Bonjour"))
	})

	It("decodes usage counters", func() {
		ev, err := stream.ParseEvent([]byte(
			`{"type":"usage-summary","usage":{"prompt_tokens":12,"completion_tokens":34,"total_tokens":46,"cost":0.002}}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Usage).NotTo(BeNil())
		Expect(ev.Usage.PromptTokens).To(Equal(12))
		Expect(ev.Usage.CompletionTokens).To(Equal(34))
		Expect(ev.Usage.TotalTokens).To(Equal(46))
		Expect(ev.Usage.Cost).To(BeNumerically("~", 0.002, 1e-9))
	})

	It("decodes detected entities", func() {
		ev, err := stream.ParseEvent([]byte(
			`{"type":"entities-detected","entities":[{"label":"date","text":"mardi prochain","value":"2026-09-01"}]}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Entities).To(HaveLen(1))
		Expect(ev.Entities[0].Label).To(Equal("date"))
		Expect(ev.Entities[0].Value).To(Equal("2026-09-01"))
	})

	It("decodes advisor attribution", func() {
		ev, err := stream.ParseEvent([]byte(
			`{"type":"advisor-start","role":"analyst","name":"L'Analyste","emoji":"🧮"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Role).To(Equal("analyst"))
		Expect(ev.Name).To(Equal("L'Analyste"))
		Expect(ev.Emoji).To(Equal("🧮"))
	})

	It("decodes a tool result", func() {
		ev, err := stream.ParseEvent([]byte(
			`{"type":"tool-result","tool":{"name":"calendar_lookup","output":"3 rendez-vous"}}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Tool).NotTo(BeNil())
		Expect(ev.Tool.Name).To(Equal("calendar_lookup"))
		Expect(ev.Tool.IsError).To(BeFalse())
	})

	It("rejects non-JSON payloads", func() {
		_, err := stream.ParseEvent([]byte("not-json"))
		Expect(err).To(MatchError(stream.ErrMalformedEvent))
	})

	It("rejects payloads with no type", func() {
		_, err := stream.ParseEvent([]byte(`{"content":"x"}`))
		Expect(err).To(MatchError(stream.ErrMissingEventType))
	})

	It("rejects kinds outside the closed set", func() {
		_, err := stream.ParseEvent([]byte(`{"type":"mystery"}`))
		Expect(err).To(MatchError(stream.ErrUnknownEventType))
	})
})
