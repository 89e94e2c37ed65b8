package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/conseilapp/conseil/pkg/cliui"
)

var _ = Describe("Step", func() {
	It("prints a success mark when fn succeeds", func() {
		var buf bytes.Buffer
		err := cliui.Step(&buf, "connexion au backend", func() error {
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("connexion au backend"))
		Expect(buf.String()).To(ContainSubstring("✓"))
	})

	It("prints a fail mark and returns the error when fn fails", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")
		err := cliui.Step(&buf, "ouverture", func() error {
			return boom
		})
		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring("✗"))
	})
})

var _ = Describe("Mark", func() {
	It("maps nil to ✓ and errors to ✗", func() {
		Expect(cliui.Mark(nil)).To(ContainSubstring("✓"))
		Expect(cliui.Mark(errors.New("x"))).To(ContainSubstring("✗"))
	})
})

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds under a second", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("uses seconds with one decimal otherwise", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("AdvisorHeader", func() {
	It("prefers the display name over the role", func() {
		header := cliui.AdvisorHeader("analyst", "Analyste", "🧮")
		Expect(header).To(ContainSubstring("Analyste"))
		Expect(header).To(ContainSubstring("🧮"))
		Expect(header).NotTo(ContainSubstring("analyst"))
	})

	It("falls back to the role when no name was announced", func() {
		Expect(cliui.AdvisorHeader("skeptic", "", "")).To(ContainSubstring("skeptic"))
	})
})

var _ = Describe("RenderMarkdown", func() {
	It("renders markdown to terminal text", func() {
		out, err := cliui.RenderMarkdown("# Titre\n\nDu texte.")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Titre"))
		Expect(out).To(ContainSubstring("Du texte."))
	})
})
