package api

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tacopt/ast"
	"github.com/sarchlab/tacopt/config"
	"github.com/sarchlab/tacopt/tac"
)

func countdown() *ast.Program {
	return &ast.Program{Procs: []*ast.Proc{{
		Name: "main",
		Body: ast.Block(
			&ast.VarDecl{Name: "x", Ty: ast.Int, Init: ast.Num(3)},
			&ast.WhileStmt{
				Cond: ast.Binary(ast.Gt, ast.IntVar("x"), ast.Num(0)),
				Body: ast.Block(
					&ast.PrintStmt{X: ast.IntVar("x")},
					&ast.AssignStmt{Name: "x", Value: ast.Binary(ast.Sub, ast.IntVar("x"), ast.Num(1))},
				),
			},
		),
	}}}
}

func bodyText(p *tac.Program) []string {
	var out []string
	for _, inst := range p.Procs[0].Body {
		out = append(out, inst.String())
	}
	return out
}

var _ = Describe("Driver", func() {
	var (
		mockCtrl    *gomock.Controller
		mockBackend *MockBackend
		builder     DriverBuilder
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mockBackend = NewMockBackend(mockCtrl)
		builder = NewDriverBuilder().WithBackend(mockBackend)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should hand the optimized program to the backend", func() {
		var generated *tac.Program
		mockBackend.EXPECT().
			Generate(gomock.Any()).
			DoAndReturn(func(p *tac.Program) error {
				generated = p
				return nil
			})

		driver := builder.Build("Driver")
		emitted, err := driver.Emit(countdown())
		Expect(err).NotTo(HaveOccurred())

		out, err := driver.Compile(countdown())
		Expect(err).NotTo(HaveOccurred())
		Expect(generated).To(BeIdenticalTo(out))
		Expect(len(out.Procs[0].Body)).To(BeNumerically("<=", len(emitted.Procs[0].Body)))
		Expect(out.Procs[0].Labels).To(Equal(tac.LabelsOf(out.Procs[0].Body)))
	})

	It("should stop after TAC emission", func() {
		driver := builder.
			WithConfig(config.Default().WithStopAfterTAC(true)).
			Build("Driver")

		out, err := driver.Compile(countdown())
		Expect(err).NotTo(HaveOccurred())

		emitted, err := driver.Emit(countdown())
		Expect(err).NotTo(HaveOccurred())
		Expect(bodyText(out)).To(Equal(bodyText(emitted)))
	})

	It("should stop after CFG optimization", func() {
		driver := builder.
			WithConfig(config.Default().WithStopAfterCFG(true)).
			Build("Driver")

		out, err := driver.Compile(countdown())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Procs[0].Body[0].Op).To(Equal(tac.OpLabel))
	})

	It("should skip the CFG stage", func() {
		var generated *tac.Program
		mockBackend.EXPECT().
			Generate(gomock.Any()).
			DoAndReturn(func(p *tac.Program) error {
				generated = p
				return nil
			})

		driver := builder.WithConfig(config.Default().WithNoCFG(true)).Build("Driver")
		emitted, err := driver.Emit(countdown())
		Expect(err).NotTo(HaveOccurred())

		_, err = driver.CompileTAC(emitted)
		Expect(err).NotTo(HaveOccurred())
		Expect(bodyText(generated)).To(Equal(bodyText(emitted)))
		Expect(generated).NotTo(BeIdenticalTo(emitted))
	})

	It("should report backend failures", func() {
		mockBackend.EXPECT().
			Generate(gomock.Any()).
			Return(errors.New("disk full"))

		_, err := builder.Build("Driver").Compile(countdown())
		Expect(err).To(MatchError(ContainSubstring("disk full")))
	})

	It("should verify the optimized program", func() {
		mockBackend.EXPECT().Generate(gomock.Any()).Return(nil)

		var report bytes.Buffer
		driver := builder.
			WithConfig(config.Default().WithVerify(true)).
			WithReportWriter(&report).
			Build("Driver")

		_, err := driver.Compile(countdown())
		Expect(err).NotTo(HaveOccurred())
		Expect(report.String()).To(ContainSubstring("equivalent"))
	})

	It("should accept a looping program that agrees up to the step limit", func() {
		forever := &ast.Program{Procs: []*ast.Proc{{
			Name: "main",
			Body: ast.Block(&ast.WhileStmt{
				Cond: ast.Lit(true),
				Body: ast.Block(&ast.PrintStmt{X: ast.Num(1)}),
			}),
		}}}

		var report bytes.Buffer
		driver := builder.
			WithConfig(config.Default().
				WithVerify(true).
				WithStopAfterCFG(true).
				WithMaxSimSteps(1000)).
			WithReportWriter(&report).
			Build("Driver")

		_, err := driver.Compile(forever)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.String()).To(ContainSubstring("up to the step limit"))
	})

	It("should save the report and dump the optimized graphs", func() {
		path := filepath.Join(GinkgoT().TempDir(), "report.txt")

		var dump bytes.Buffer
		driver := builder.
			WithConfig(config.Default().WithVerify(true).WithStopAfterCFG(true)).
			WithReportFile(path).
			WithCFGDumpWriter(&dump).
			Build("Driver")

		_, err := driver.Compile(countdown())
		Expect(err).NotTo(HaveOccurred())
		Expect(dump.String()).To(ContainSubstring("CFG @main"))

		saved, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(saved)).To(ContainSubstring("Optimized program is equivalent"))
	})

	It("should drop temporaries of removed code", func() {
		prog := &tac.Program{Procs: []*tac.Proc{{
			Name: "main",
			Body: tac.MustParseBody(
				"%0 = const 1",
				"print %0",
				"ret",
				"%1 = const 2",
				"print %1",
				"ret",
			),
			Temps: []tac.Temp{0, 1},
		}}}

		out, err := builder.
			WithConfig(config.Default().WithStopAfterCFG(true)).
			Build("Driver").
			CompileTAC(prog)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Procs[0].Temps).To(Equal([]tac.Temp{0}))
		Expect(prog.Procs[0].Temps).To(Equal([]tac.Temp{0, 1}))
	})

	It("should reject malformed TAC without calling the backend", func() {
		body := tac.MustParseBody("jmp %.L3", "ret")
		prog := &tac.Program{Procs: []*tac.Proc{{Name: "main", Body: body}}}

		_, err := builder.Build("Driver").CompileTAC(prog)
		Expect(err).To(MatchError(ContainSubstring("lint errors")))
	})

	It("should leave the input program untouched", func() {
		mockBackend.EXPECT().Generate(gomock.Any()).Return(nil)

		driver := builder.Build("Driver")
		emitted, err := driver.Emit(countdown())
		Expect(err).NotTo(HaveOccurred())
		before := bodyText(emitted)

		_, err = driver.CompileTAC(emitted)
		Expect(err).NotTo(HaveOccurred())
		Expect(bodyText(emitted)).To(Equal(before))
	})
})

var _ = Describe("FileBackend", func() {
	It("should write loadable TAC", func() {
		path := filepath.Join(GinkgoT().TempDir(), "out.tac.json")

		driver := NewDriverBuilder().
			WithBackend(FileBackend{Path: path}).
			Build("Driver")
		out, err := driver.Compile(countdown())
		Expect(err).NotTo(HaveOccurred())

		loaded, err := tac.LoadProgramFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(bodyText(loaded)).To(Equal(bodyText(out)))
	})
})

var _ = Describe("Samples", func() {
	It("should compile and verify the countdown sample", func() {
		prog, err := ast.LoadProgramFileFromYAML("../samples/countdown.yaml")
		Expect(err).NotTo(HaveOccurred())

		var report bytes.Buffer
		driver := NewDriverBuilder().
			WithConfig(config.Default().WithVerify(true).WithStopAfterCFG(true)).
			WithReportWriter(&report).
			Build("Driver")

		out, err := driver.Compile(prog)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.String()).To(ContainSubstring("equivalent"))

		for _, inst := range out.Procs[0].Body {
			Expect(inst.String()).NotTo(ContainSubstring("99"))
		}
	})
})
