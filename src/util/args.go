package util

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options holds the driver's command line configuration (spec §6's driver contract), adapted
// from the teacher's multi-target, multi-threaded Options (src/util/args.go) down to the single
// source file, single synchronous pass this pipeline's MVP surface needs: no thread count, no
// target architecture/vendor/CPU/OS selection (spec §1's Non-goals: platform-specific codegen
// targets a fixed generic x86_64 Linux layout), no separate `-ll` flag (the Code Generator is
// this pipeline's only backend).
type Options struct {
	Src         string // Path to the Aero source file; empty means read from stdin.
	Out         string // Path to the output file for the emitted IR text; empty means stdout.
	Verbose     bool   // Set true if the compiler should print the syntax tree and IR dumps.
	TokenStream bool   // Set true if the compiler should print the token stream and exit.
	CheckOnly   bool   // Set true to run the lexer/parser/semantic stages and skip code generation.
}

// ---------------------
// ----- Constants -----
// ---------------------

const appVersion = "aero compiler 1.0"

// ---------------------
// ----- functions -----
// ---------------------

// ParseArgs parses command line arguments into an Options value.
func ParseArgs() (Options, error) {
	opt := Options{}
	if len(os.Args) < 2 {
		return opt, nil
	}
	args := os.Args[1:]
	for i1 := 0; i1 < len(args); i1++ {
		switch args[i1] {
		case "-h", "--h", "-help", "--help":
			printHelp()
			os.Exit(0)
		case "-o":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			if strings.HasPrefix(args[i1+1], "-") {
				return opt, fmt.Errorf("expected path to output file, got new flag %s", args[i1+1])
			}
			opt.Out = args[i1+1]
			i1++
		case "-c", "-check":
			opt.CheckOnly = true
		case "-ts":
			opt.TokenStream = true
		case "-v", "--v", "-version", "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		case "-vb":
			opt.Verbose = true
		default:
			if strings.HasPrefix(args[i1], "-") {
				return opt, fmt.Errorf("unexpected flag: %s", args[i1])
			}
			opt.Src = args[i1]
		}
	}
	return opt, nil
}

// printHelp prints a helpful usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits the application.")
	_, _ = fmt.Fprintln(w, "--h, --help")
	_, _ = fmt.Fprintln(w, "-o\tPath and name of the output file. Defaults to stdout.")
	_, _ = fmt.Fprintln(w, "-c, -check\tRun lexing, parsing and semantic analysis only; report diagnostics and exit.")
	_, _ = fmt.Fprintln(w, "-ts\tOutput the tokens of the source code and exit.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints application version and exits the application.")
	_, _ = fmt.Fprintln(w, "--v, --version")
	_, _ = fmt.Fprintln(w, "-vb\tVerbose mode: print the syntax tree and lowered IR to stdout.")
	_ = w.Flush()
}
