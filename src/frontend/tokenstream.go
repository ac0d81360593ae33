package frontend

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// TokenStream lexes src under the given logical file name and renders its token stream as a
// tab-aligned table, exercised by the driver's `-ts` debug flag (spec §6). Grounded on the
// teacher's frontend.TokenStream (src/frontend/tree.go), minus its util.Writer/channel handoff:
// spec §5 mandates a synchronous driver, so this function simply returns the rendered string for
// main to print once, rather than feeding a background listener goroutine.
func TokenStream(file, src string) (string, error) {
	l := newLexer(file, src)
	go l.run()

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 10, 2, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Value\tType\tPosition\n")
	for {
		t := l.nextItem()
		switch t.typ {
		case itemEOF:
			if err := tw.Flush(); err != nil {
				return sb.String(), err
			}
			return sb.String(), nil
		case itemError:
			_ = tw.Flush()
			return sb.String(), fmt.Errorf("%s:%d:%d: lexical error: %s", file, t.line, t.col, t.val)
		default:
			_, _ = fmt.Fprintf(tw, "%q\t%s\t%d:%d\n", t.val, tokenName(t.typ), t.line, t.col)
		}
	}
}
