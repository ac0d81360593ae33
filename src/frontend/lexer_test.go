package frontend

import "testing"

// lexAll drains lexer l's item channel into a slice, stopping at (and including) the first EOF
// or error item, mirroring how parser.Parse pulls tokens one at a time through nextItem.
func lexAll(l *lexer) []item {
	go l.run()
	var items []item
	for {
		it := l.nextItem()
		items = append(items, it)
		if it.typ == itemEOF || it.typ == itemError {
			return items
		}
	}
}

// TestLexerKeywordsAndPunctuation checks that every reserved keyword, the new `as` cast
// operator, and the multi-character operators lex to their expected itemType, the same
// length-indexed keyword table this repo's teacher used for VSL's (much smaller) reserved word
// set (src/frontend/token.go's rw table).
func TestLexerKeywordsAndPunctuation(t *testing.T) {
	src := "fn let mut if else while for in loop break continue return true false as == != <= >= && || -> .. ..="
	want := []itemType{
		FN, LET, MUT, IF, ELSE, WHILE, FOR, IN, LOOP, BREAK, CONTINUE, RETURN, TRUE, FALSE, AS,
		EQ, NEQ, LE, GE, ANDAND, OROR, ARROW, RANGE, RANGEINCL,
	}

	items := lexAll(newLexer("test.aero", src))
	if len(items) != len(want)+1 { // +1 for the trailing EOF.
		t.Fatalf("got %d tokens, want %d (plus EOF): %v", len(items), len(want), items)
	}
	for i, w := range want {
		if items[i].typ != w {
			t.Errorf("token %d: got %s, want %s", i, tokenName(items[i].typ), tokenName(w))
		}
	}
	if items[len(want)].typ != itemEOF {
		t.Errorf("last token: got %s, want EOF", tokenName(items[len(want)].typ))
	}
}

// TestLexerIdentifierNotKeywordPrefix checks that an identifier merely sharing a keyword's
// prefix is not mis-lexed as that keyword (e.g. "format" must not lex as "for" + "mat").
func TestLexerIdentifierNotKeywordPrefix(t *testing.T) {
	items := lexAll(newLexer("test.aero", "format"))
	if len(items) != 2 || items[0].typ != IDENTIFIER || items[0].val != "format" {
		t.Fatalf("got %v, want a single IDENTIFIER %q", items, "format")
	}
}

// TestLexerMacroBangAtoms checks that print!/println! lex as single macro-call tokens, and that
// a bare "print" without the trailing "!" lexes as an ordinary identifier.
func TestLexerMacroBangAtoms(t *testing.T) {
	items := lexAll(newLexer("test.aero", "print! println! print"))
	want := []itemType{PRINT_MACRO, PRINTLN_MACRO, IDENTIFIER, itemEOF}
	if len(items) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(items), len(want), items)
	}
	for i, w := range want {
		if items[i].typ != w {
			t.Errorf("token %d: got %s, want %s", i, tokenName(items[i].typ), tokenName(w))
		}
	}
}

// TestLexerNumericSuffixes checks that a numeric literal's optional type suffix is scanned as
// part of the same INTEGER/FLOAT token, left for the parser to split and interpret.
func TestLexerNumericSuffixes(t *testing.T) {
	tests := []struct {
		src  string
		typ  itemType
		want string
	}{
		{"42", INTEGER, "42"},
		{"42i32", INTEGER, "42i32"},
		{"7u8", INTEGER, "7u8"},
		{"3.14", FLOAT, "3.14"},
		{"3.14f32", FLOAT, "3.14f32"},
		{"0usize", INTEGER, "0usize"},
	}
	for _, tc := range tests {
		items := lexAll(newLexer("test.aero", tc.src))
		if len(items) != 2 || items[0].typ != tc.typ || items[0].val != tc.want {
			t.Errorf("%q: got %v, want single %s %q", tc.src, items, tokenName(tc.typ), tc.want)
		}
	}
}

// TestLexerRangeVsFloat checks that "0..5" lexes as INTEGER, RANGE, INTEGER rather than
// mis-scanning the ".." as the start of a float's fractional part (lexNumber's bare-trailing-dot
// backtrack).
func TestLexerRangeVsFloat(t *testing.T) {
	items := lexAll(newLexer("test.aero", "0..5"))
	want := []itemType{INTEGER, RANGE, INTEGER, itemEOF}
	if len(items) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(items), len(want), items)
	}
	for i, w := range want {
		if items[i].typ != w {
			t.Errorf("token %d: got %s, want %s", i, tokenName(items[i].typ), tokenName(w))
		}
	}
}

// TestLexerStringEscapes checks that recognised escape sequences are cooked into the emitted
// STRING token's value.
func TestLexerStringEscapes(t *testing.T) {
	items := lexAll(newLexer("test.aero", `"a\nb\tc\\d\"e"`))
	if len(items) != 2 || items[0].typ != STRING {
		t.Fatalf("got %v, want a single STRING token", items)
	}
	want := "a\nb\tc\\d\"e"
	if items[0].val != want {
		t.Errorf("got %q, want %q", items[0].val, want)
	}
}

// TestLexerUnterminatedString checks that an unclosed string literal produces an error item
// instead of hanging or panicking.
func TestLexerUnterminatedString(t *testing.T) {
	items := lexAll(newLexer("test.aero", `"unterminated`))
	if len(items) != 1 || items[0].typ != itemError {
		t.Fatalf("got %v, want a single error item", items)
	}
}

// TestLexerLineComment checks that a line comment is skipped entirely, including up to EOF with
// no trailing newline.
func TestLexerLineComment(t *testing.T) {
	items := lexAll(newLexer("test.aero", "let x; // trailing comment, no newline"))
	want := []itemType{LET, IDENTIFIER, itemType(';'), itemEOF}
	if len(items) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(items), len(want), items)
	}
	for i, w := range want {
		if items[i].typ != w {
			t.Errorf("token %d: got %s, want %s", i, tokenName(items[i].typ), tokenName(w))
		}
	}
}

// TestLexerBlockComment checks that a block comment is skipped and that line numbers advance
// correctly across an embedded newline, mirroring skipBlockComment's line tracking.
func TestLexerBlockComment(t *testing.T) {
	items := lexAll(newLexer("test.aero", "let /* multi\nline */ x;"))
	if len(items) != 4 {
		t.Fatalf("got %d tokens, want 4: %v", len(items), items)
	}
	if items[1].typ != IDENTIFIER || items[1].val != "x" {
		t.Fatalf("got %v, want identifier %q after block comment", items[1], "x")
	}
	if items[1].line != 2 {
		t.Errorf("identifier after block comment: got line %d, want 2", items[1].line)
	}
}

// TestLexerSourceLocations checks that emitted tokens carry 1-indexed line/column positions,
// the invariant main.go's diagnostic caret rendering depends on.
func TestLexerSourceLocations(t *testing.T) {
	items := lexAll(newLexer("test.aero", "let\nx"))
	if items[0].line != 1 || items[0].col != 1 {
		t.Errorf("first token: got line %d col %d, want 1 1", items[0].line, items[0].col)
	}
	if items[1].line != 2 || items[1].col != 1 {
		t.Errorf("second token: got line %d col %d, want 2 1", items[1].line, items[1].col)
	}
}
