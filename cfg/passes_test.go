package cfg

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tacopt/tac"
)

func mustBuild(lines ...string) *Graph {
	g, err := Build(procOf(lines...))
	Expect(err).NotTo(HaveOccurred())
	return g
}

func blockText(g *Graph, l tac.Label) []string {
	b, ok := g.Block(l)
	Expect(ok).To(BeTrue(), "block %s", l)
	return text(b.Instrs)
}

var _ = Describe("Condition implication", func() {
	probe := []int64{-2, -1, 0, 1, 2}

	It("should match the runtime semantics of every pair", func() {
		for _, a := range tac.CondJumps {
			for _, b := range tac.CondJumps {
				implies, excludes := true, true
				for _, v := range probe {
					if a.Holds(v) && !b.Holds(v) {
						implies = false
					}
					if a.Holds(v) && b.Holds(v) {
						excludes = false
					}
				}
				Expect(Implies(a, b)).To(Equal(implies), "%s implies %s", a, b)
				Expect(Excludes(a, b)).To(Equal(excludes), "%s excludes %s", a, b)
			}
		}
	})

	It("should agree with negation", func() {
		all := negative | zero | positive
		for _, op := range tac.CondJumps {
			Expect(Excludes(op, op.Negate())).To(BeTrue())
			Expect(takenOn(op) | takenOn(op.Negate())).To(Equal(all))
			Expect(Implies(op, op)).To(BeTrue())
		}
	})

	It("should decide the chained comparisons", func() {
		Expect(Implies(tac.OpJl, tac.OpJle)).To(BeTrue())
		Expect(Implies(tac.OpJle, tac.OpJl)).To(BeFalse())
		Expect(Implies(tac.OpJz, tac.OpJnl)).To(BeTrue())
		Expect(Implies(tac.OpJnle, tac.OpJnz)).To(BeTrue())
		Expect(Excludes(tac.OpJl, tac.OpJnl)).To(BeTrue())
		Expect(Excludes(tac.OpJle, tac.OpJnl)).To(BeFalse())
	})

	It("should panic on other opcodes", func() {
		Expect(func() { Implies(tac.OpJmp, tac.OpJz) }).To(Panic())
	})
})

var _ = Describe("UCE", func() {
	It("should remove unreachable blocks once", func() {
		g := mustBuild(
			"jmp %.L1",
			"label %.L0",
			"%0 = const 1",
			"print %0",
			"jmp %.L1",
			"label %.L1",
			"ret",
		)
		Expect(g.Len()).To(Equal(3))

		Expect(UCE{}.Run(g)).To(BeTrue())
		Expect(labelsOf(g)).To(Equal([]string{"%.Lentry", "%.L1"}))
		Expect(g.At(1).Removed()).To(BeTrue())

		l1, _ := g.Block(1)
		Expect(l1.Preds).To(Equal([]BlockID{0}))

		Expect(UCE{}.Run(g)).To(BeFalse())
		Expect(g.Len()).To(Equal(2))
	})

	It("should keep a self-looping entry", func() {
		g := mustBuild(
			"label %.L0",
			"%0 = const 1",
			"print %0",
			"jmp %.L0",
			"label %.L1",
			"ret",
		)

		Expect(Optimize(g, DefaultOptions())).To(Succeed())
		Expect(text(g.Serialize())).To(Equal([]string{
			"label %.L0",
			"%0 = const 1",
			"print %0",
			"jmp %.L0",
		}))
	})
})

var _ = Describe("Thread", func() {
	It("should bypass trampolines and drop redundant conditional jumps", func() {
		g := mustBuild(
			"%0 = const 1",
			"jz %0, %.L0",
			"jmp %.L1",
			"label %.L0",
			"jmp %.L1",
			"label %.L1",
			"ret",
		)

		Expect(Thread{}.Run(g)).To(BeTrue())
		Expect(text(g.Entry().Instrs)).To(Equal([]string{
			"label %.Lentry",
			"%0 = const 1",
			"jmp %.L1",
		}))

		l0, _ := g.Block(0)
		Expect(l0.Preds).To(BeEmpty())
		Expect(Thread{}.Run(g)).To(BeFalse())
	})

	It("should not thread through the entry", func() {
		g := mustBuild("jmp %.L0", "label %.L0", "ret")
		Expect(Thread{}.Run(g)).To(BeFalse())
		Expect(g.Len()).To(Equal(2))
	})

	It("should stop on a cycle of trampolines", func() {
		g := mustBuild(
			"%0 = const 1",
			"jz %0, %.L0",
			"ret",
			"label %.L0",
			"jmp %.L1",
			"label %.L1",
			"jmp %.L0",
		)

		Thread{}.Run(g)
		Expect(g.Check()).To(Succeed())
	})
})

var _ = Describe("Coalesce", func() {
	It("should merge straight-line chains into the entry", func() {
		g := mustBuild(
			"%0 = const 1",
			"jmp %.L0",
			"label %.L0",
			"print %0",
			"jmp %.L1",
			"label %.L1",
			"ret",
		)

		Expect(Coalesce{}.Run(g)).To(BeTrue())
		Expect(g.Len()).To(Equal(1))
		Expect(text(g.Entry().Instrs)).To(Equal([]string{
			"label %.Lentry",
			"%0 = const 1",
			"print %0",
			"ret",
		}))
	})

	It("should not merge a block with two predecessors", func() {
		g := mustBuild(
			"%0 = const 1",
			"jz %0, %.L1",
			"label %.L0",
			"print %0",
			"label %.L1",
			"ret",
		)

		Expect(Coalesce{}.Run(g)).To(BeFalse())
		Expect(labelsOf(g)).To(Equal([]string{"%.Lentry", "%.L0", "%.L1"}))
		Expect(blockText(g, 1)).To(Equal([]string{"label %.L1", "ret"}))
	})
})

var _ = Describe("CondJump", func() {
	It("should turn an implied jump into a jmp", func() {
		g := mustBuild(
			"%2 = sub %0, %1",
			"jl %2, %.L0",
			"jmp %.L1",
			"label %.L0",
			"jle %2, %.L2",
			"jmp %.L1",
			"label %.L2",
			"%3 = const 1",
			"print %3",
			"jmp %.L1",
			"label %.L1",
			"ret",
		)

		Expect(CondJump{}.Run(g)).To(BeTrue())
		Expect(blockText(g, 0)).To(Equal([]string{"label %.L0", "jmp %.L2"}))
	})

	It("should delete an excluded jump", func() {
		g := mustBuild(
			"%0 = const 1",
			"jl %0, %.L0",
			"jmp %.L1",
			"label %.L0",
			"jnl %0, %.L1",
			"print %0",
			"jmp %.L1",
			"label %.L1",
			"ret",
		)

		Expect(CondJump{}.Run(g)).To(BeTrue())
		Expect(blockText(g, 0)).To(Equal([]string{"label %.L0", "jmp %.L3"}))
	})

	It("should use the negated condition on the fall-through edge", func() {
		g := mustBuild(
			"%0 = const 1",
			"jz %0, %.L0",
			"label %.L1",
			"jnz %0, %.L2",
			"ret",
			"label %.L0",
			"ret",
			"label %.L2",
			"%1 = const 2",
			"ret",
		)

		Expect(CondJump{}.Run(g)).To(BeTrue())
		Expect(blockText(g, 1)).To(Equal([]string{"label %.L1", "jmp %.L2"}))
	})

	It("should stop at a write of the tested temporary", func() {
		g := mustBuild(
			"%0 = const 1",
			"jl %0, %.L0",
			"jmp %.L1",
			"label %.L0",
			"%0 = const 5",
			"jle %0, %.L1",
			"jmp %.L1",
			"label %.L1",
			"ret",
		)

		Expect(CondJump{}.Run(g)).To(BeFalse())
	})
})

var _ = Describe("Optimize", func() {
	It("should assemble the pipeline from the options", func() {
		names := func(passes []Pass) []string {
			var out []string
			for _, p := range passes {
				out = append(out, p.Name())
			}
			return out
		}

		Expect(names(DefaultOptions().Pipeline())).To(Equal(
			[]string{"condjump", "uce", "thread", "coalesce", "uce"}))
		Expect(names(Options{}.Pipeline())).To(Equal([]string{"uce", "uce"}))
	})

	It("should only remove dead blocks when the optional passes are off", func() {
		g := mustBuild("%0 = const 1", "jmp %.L0", "%1 = const 2", "label %.L0", "ret")
		Expect(g.Len()).To(Equal(3))

		Expect(Optimize(g, Options{})).To(Succeed())
		Expect(labelsOf(g)).To(Equal([]string{"%.Lentry", "%.L0"}))
	})

	It("should stop after the round limit", func() {
		g := mustBuild("%0 = const 1", "jmp %.L0", "label %.L0", "ret")
		opts := DefaultOptions()
		opts.MaxRounds = 1

		Expect(Optimize(g, opts)).To(Succeed())
		Expect(g.Check()).To(Succeed())
	})
})

var _ = Describe("Dump", func() {
	It("should list every live block", func() {
		g := mustBuild("jmp %.L0", "label %.L0", "ret")

		var buf bytes.Buffer
		g.Dump(&buf)

		Expect(buf.String()).To(ContainSubstring("CFG @f (2 blocks)"))
		Expect(buf.String()).To(ContainSubstring("%.Lentry"))
		Expect(buf.String()).To(ContainSubstring("jmp %.L0"))
	})
})
