package main

import (
	"fmt"
	"os"
	"strings"

	"aero/src/codegen"
	"aero/src/diag"
	"aero/src/frontend"
	"aero/src/ir"
	"aero/src/sema"
	"aero/src/util"
)

// run drives the five pipeline stages in order, stopping at the first stage that reports an
// Error-severity diagnostic (spec §7's propagation policy: warnings never block later stages).
// Behaviour is otherwise governed by opt, mirroring the teacher's main.go run(opt util.Options)
// error, minus the concurrent optimisation/assembler stages this pipeline has no equivalent of.
func run(opt util.Options) error {
	src, err := util.ReadSource(opt)
	if err != nil {
		return fmt.Errorf("could not read source code: %w", err)
	}

	file := opt.Src
	if file == "" {
		file = "<stdin>"
	}

	if opt.TokenStream {
		out, err := frontend.TokenStream(file, src)
		if err != nil {
			fmt.Print(out)
			return fmt.Errorf("lexical error: %w", err)
		}
		return util.WriteOutput(opt, out)
	}

	// Stage 1+2: lexing and parsing into a syntax tree.
	root, diags, err := frontend.Parse(file, src)
	renderDiagnostics(src, diags)
	if err != nil {
		return err
	}

	if opt.Verbose {
		fmt.Println("Syntax tree:")
		root.Print(0)
	}

	// Stage 3: semantic analysis.
	diags, err = sema.Analyze(root)
	renderDiagnostics(src, diags)
	if err != nil {
		return err
	}

	if opt.CheckOnly {
		return nil
	}

	// Stage 4: IR generation.
	mod := ir.Lower(root)
	if opt.Verbose {
		fmt.Println("\nIR module:")
		fmt.Println(mod.String())
	}

	// Stage 5: LLVM textual IR code generation.
	text, err := codegen.GenLLVM(mod)
	if err != nil {
		return fmt.Errorf("code generation error: %w", err)
	}
	return util.WriteOutput(opt, text)
}

// renderDiagnostics prints every diagnostic in diags to stderr with a source-line-and-caret
// span, the rendering spec §7 calls "the driver's responsibility" (the Diagnostic type itself
// only carries a plain one-line String()).
func renderDiagnostics(src string, diags []diag.Diagnostic) {
	lines := strings.Split(src, "\n")
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d.String())
		if d.Primary.Line >= 1 && d.Primary.Line <= len(lines) {
			line := lines[d.Primary.Line-1]
			fmt.Fprintln(os.Stderr, line)
			col := d.Primary.Col
			if col < 1 {
				col = 1
			}
			fmt.Fprintln(os.Stderr, strings.Repeat(" ", col-1)+"^")
		}
		for _, n := range d.Notes {
			fmt.Fprintf(os.Stderr, "  note: %s: %s\n", n.Loc, n.Msg)
		}
	}
}

func main() {
	opt, err := util.ParseArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "command line argument error: %s\n", err)
		os.Exit(1)
	}

	if err := run(opt); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

