package token

import "testing"

func TestAtxHeadingLevel(t *testing.T) {
	cases := []struct {
		in        string
		wantLevel int
		wantText  string
	}{
		{"# Title", 1, "Title"},
		{"### Sub ###", 3, "Sub"},
		{"#NoSpace", 0, ""},
		{"####### too many", 0, ""},
		{"   ## indented", 2, "indented"},
		{"    ## too indented", 0, ""},
	}
	for _, c := range cases {
		level, text := atxHeadingLevel(c.in)
		if level != c.wantLevel || text != c.wantText {
			t.Errorf("atxHeadingLevel(%q) = %d,%q want %d,%q", c.in, level, text, c.wantLevel, c.wantText)
		}
	}
}

func TestIsSetextUnderline(t *testing.T) {
	cases := []struct {
		in        string
		wantLevel int
		wantOK    bool
	}{
		{"===", 1, true},
		{"---", 2, true},
		{"== =", 0, false},
		{"", 0, false},
		{"-", 2, true},
	}
	for _, c := range cases {
		level, ok := isSetextUnderline(c.in)
		if level != c.wantLevel || ok != c.wantOK {
			t.Errorf("isSetextUnderline(%q) = %d,%v want %d,%v", c.in, level, ok, c.wantLevel, c.wantOK)
		}
	}
}

func TestIsThematicBreak(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"---", true},
		{"***", true},
		{"___", true},
		{"- - -", true},
		{"--", false},
		{"- - text", false},
		{"***a", false},
	}
	for _, c := range cases {
		if got := isThematicBreak(c.in); got != c.want {
			t.Errorf("isThematicBreak(%q) = %v want %v", c.in, got, c.want)
		}
	}
}

func TestParseFence(t *testing.T) {
	fi, ok := parseFence("```go")
	if !ok || fi.marker != '`' || fi.length != 3 || fi.language != "go" {
		t.Fatalf("unexpected fence: %+v ok=%v", fi, ok)
	}

	fi, ok = parseFence("~~~~")
	if !ok || fi.marker != '~' || fi.length != 4 {
		t.Fatalf("unexpected tilde fence: %+v ok=%v", fi, ok)
	}

	fi, ok = parseFence("$$")
	if !ok || fi.marker != '$' || fi.length != 2 || !fi.display {
		t.Fatalf("unexpected math fence: %+v ok=%v", fi, ok)
	}

	if _, ok := parseFence("$"); ok {
		t.Fatalf("single '$' should not open a math fence")
	}

	if _, ok := parseFence("``"); ok {
		t.Fatalf("two backticks should not open a code fence")
	}

	if _, ok := parseFence("```has`tick"); ok {
		t.Fatalf("backtick fence info string must not contain a backtick")
	}
}

func TestSameLineFenceClose(t *testing.T) {
	content, closed := sameLineFenceClose("x = 1 $$", '$', 2)
	if !closed || content != "x = 1" {
		t.Fatalf("got content=%q closed=%v", content, closed)
	}
	content, closed = sameLineFenceClose("", '$', 2)
	if closed || content != "" {
		t.Fatalf("opener with no trailing content must not close, got content=%q closed=%v", content, closed)
	}
	content, closed = sameLineFenceClose("still open", '$', 2)
	if closed {
		t.Fatalf("trailing text with no closing run must not close, got content=%q", content)
	}
}

func TestParseBracketMathOpen(t *testing.T) {
	content, closed, ok := parseBracketMathOpen(`\[ x + 1 \]`)
	if !ok || !closed || content != "x + 1" {
		t.Fatalf("got content=%q closed=%v ok=%v", content, closed, ok)
	}
	content, closed, ok = parseBracketMathOpen(`\[`)
	if !ok || closed || content != "" {
		t.Fatalf("bare opener must stay open, got content=%q closed=%v ok=%v", content, closed, ok)
	}
	if _, _, ok := parseBracketMathOpen("not math"); ok {
		t.Error("line without a bracket-math opener must not match")
	}
}

func TestIsClosingFence(t *testing.T) {
	if !isClosingFence("```", '`', 3) {
		t.Error("expected matching fence to close")
	}
	if !isClosingFence("````", '`', 3) {
		t.Error("expected a longer run of the same char to close")
	}
	if isClosingFence("``", '`', 3) {
		t.Error("shorter run must not close")
	}
	if isClosingFence("``` go", '`', 3) {
		t.Error("trailing content must not close")
	}
}

func TestIsTableDelimiterRow(t *testing.T) {
	aligns, ok := isTableDelimiterRow("| --- | :--- | ---: | :---: |")
	if !ok {
		t.Fatal("expected a valid delimiter row")
	}
	want := []TableAlignment{AlignNone, AlignLeft, AlignRight, AlignCenter}
	if len(aligns) != len(want) {
		t.Fatalf("got %v want %v", aligns, want)
	}
	for i := range want {
		if aligns[i] != want[i] {
			t.Errorf("col %d: got %v want %v", i, aligns[i], want[i])
		}
	}

	if _, ok := isTableDelimiterRow("| a | b |"); ok {
		t.Error("plain cells must not parse as a delimiter row")
	}
	if _, ok := isTableDelimiterRow(""); ok {
		t.Error("blank line must not parse as a delimiter row")
	}
}

func TestSplitTableRow(t *testing.T) {
	got := splitTableRow(`| a | b\|c | d |`)
	want := []string{"a", `b\|c`, "d"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestUnorderedMarker(t *testing.T) {
	w, task, content, ok := unorderedMarker("- plain item")
	if !ok || task != nil || content != "plain item" || w != 2 {
		t.Fatalf("unexpected: w=%d task=%v content=%q ok=%v", w, task, content, ok)
	}

	w, task, content, ok = unorderedMarker("* [x] done")
	if !ok || task == nil || !task.Checked || content != "done" || w != 2 {
		t.Fatalf("unexpected task item: w=%d task=%v content=%q ok=%v", w, task, content, ok)
	}

	w, task, content, ok = unorderedMarker("+ [ ] todo")
	if !ok || task == nil || task.Checked || content != "todo" {
		t.Fatalf("unexpected unchecked task item: w=%d task=%v content=%q ok=%v", w, task, content, ok)
	}

	if _, _, _, ok := unorderedMarker("-no space"); ok {
		t.Error("marker without following space must not match")
	}
	if _, _, _, ok := unorderedMarker("not a list"); ok {
		t.Error("non-marker line must not match")
	}
}

func TestOrderedMarker(t *testing.T) {
	w, idx, content, ok := orderedMarker("1. first")
	if !ok || idx != 1 || content != "first" || w != 3 {
		t.Fatalf("unexpected: w=%d idx=%d content=%q ok=%v", w, idx, content, ok)
	}

	w, idx, content, ok = orderedMarker("42) answer")
	if !ok || idx != 42 || content != "answer" || w != 4 {
		t.Fatalf("unexpected: w=%d idx=%d content=%q ok=%v", w, idx, content, ok)
	}

	if _, _, _, ok := orderedMarker("1.no space"); ok {
		t.Error("marker without following space must not match")
	}
	if _, _, _, ok := orderedMarker("1 no dot"); ok {
		t.Error("digits without '.' or ')' must not match")
	}
}

func TestFootnoteDefinitionMarker(t *testing.T) {
	id, body, ok := footnoteDefinitionMarker("[^note]: the body text")
	if !ok || id != "note" || body != "the body text" {
		t.Fatalf("got id=%q body=%q ok=%v", id, body, ok)
	}
	if _, _, ok := footnoteDefinitionMarker("[note]: not a footnote"); ok {
		t.Error("missing caret must not match")
	}
	if _, _, ok := footnoteDefinitionMarker("[^]: empty id"); ok {
		t.Error("empty id must not match")
	}
}

func TestOpaqueFenceMarker(t *testing.T) {
	name, ok := opaqueFenceMarker(":::warning")
	if !ok || name != "warning" {
		t.Fatalf("got name=%q ok=%v", name, ok)
	}
	if !isOpaqueFenceClose(":::") {
		t.Error("bare ':::' must close an opaque block")
	}
	if isOpaqueFenceClose("::: warning") {
		t.Error("a line carrying a name must not close")
	}
}

func TestStripBlockquoteMarker(t *testing.T) {
	rest, ok := stripBlockquoteMarker("> quoted")
	if !ok || rest != "quoted" {
		t.Fatalf("got rest=%q ok=%v", rest, ok)
	}
	rest, ok = stripBlockquoteMarker(">no space after marker")
	if !ok || rest != "no space after marker" {
		t.Fatalf("got rest=%q ok=%v", rest, ok)
	}
	if _, ok := stripBlockquoteMarker("plain text"); ok {
		t.Error("line without marker must not match")
	}
}

func TestLeadingSpaceWidth(t *testing.T) {
	w, n := leadingSpaceWidth("   x")
	if w != 3 || n != 3 {
		t.Fatalf("got w=%d n=%d", w, n)
	}
	w, n = leadingSpaceWidth("\tx")
	if w != 4 || n != 1 {
		t.Fatalf("tab expansion: got w=%d n=%d", w, n)
	}
}
