package emit

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tacopt/tac"
)

var _ = Describe("Scope", func() {
	var s *Scope

	BeforeEach(func() {
		s = NewScope([]string{"g"})
	})

	It("should resolve the innermost binding first", func() {
		s.EnterScope()
		outer := s.Bind("x")
		s.EnterScope()
		inner := s.Bind("x")

		Expect(inner).NotTo(Equal(outer))
		Expect(s.Lookup("x")).To(Equal(tac.Operand(inner)))

		s.ExitScope()
		Expect(s.Lookup("x")).To(Equal(tac.Operand(outer)))
	})

	It("should fall back to globals", func() {
		s.EnterScope()
		Expect(s.Lookup("g")).To(Equal(tac.Operand(tac.Global("g"))))

		s.Bind("g")
		Expect(s.Lookup("g")).To(BeAssignableToTypeOf(tac.Temp(0)))
	})

	It("should panic on unbound names", func() {
		s.EnterScope()
		Expect(func() { s.Lookup("nope") }).To(PanicWith(BeAssignableToTypeOf(&Error{})))
	})

	It("should panic when binding outside any scope", func() {
		Expect(func() { s.Bind("x") }).To(Panic())
	})

	It("should issue monotone temporaries and labels", func() {
		Expect(s.FreshTemp()).To(Equal(tac.Temp(0)))
		Expect(s.FreshTemp()).To(Equal(tac.Temp(1)))
		Expect(s.FreshLabel()).To(Equal(tac.Label(0)))
		Expect(s.FreshLabel()).To(Equal(tac.Label(1)))
		Expect(s.Temps()).To(Equal([]tac.Temp{0, 1}))
		Expect(s.Labels()).To(Equal([]tac.Label{0, 1}))
	})

	It("should resolve loop targets to the innermost loop", func() {
		s.EnterLoop(1, 2)
		s.EnterLoop(3, 4)
		Expect(s.Continue()).To(Equal(tac.Label(3)))
		Expect(s.Break()).To(Equal(tac.Label(4)))

		s.ExitLoop()
		Expect(s.Break()).To(Equal(tac.Label(2)))

		s.ExitLoop()
		Expect(func() { s.Break() }).To(Panic())
		Expect(func() { s.Continue() }).To(Panic())
	})
})
