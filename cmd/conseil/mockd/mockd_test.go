package mockdcmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	mockdcmder "github.com/conseilapp/conseil/cmd/conseil/mockd"
)

var _ = Describe("NewMockdCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := mockdcmder.NewMockdCmd()
		Expect(cmd.Use).To(Equal("mockd"))
	})

	It("exposes the listen and scenario flags", func() {
		cmd := mockdcmder.NewMockdCmd()
		Expect(cmd.Flags().Lookup("listen")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("scenario")).NotTo(BeNil())
	})

	It("rejects positional arguments", func() {
		cmd := mockdcmder.NewMockdCmd()
		cmd.SetArgs([]string{"extra"})
		Expect(cmd.Execute()).To(HaveOccurred())
	})
})
