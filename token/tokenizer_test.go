package token

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// feedAll drives a Tokenizer chunk by chunk and returns every event
// produced, including those from a final Finish call.
func feedAll(tok *Tokenizer, chunks ...string) []BlockEvent {
	var events []BlockEvent
	for _, c := range chunks {
		events = append(events, tok.Feed(c).Events...)
	}
	events = append(events, tok.Finish().Events...)
	return events
}

func textRuns(events []BlockEvent) []InlineRun {
	var runs []InlineRun
	for _, e := range events {
		if e.Kind == EventAppendInline {
			runs = append(runs, e.Runs...)
		}
	}
	return runs
}

func TestParagraphSingleChunk(t *testing.T) {
	tok := New()
	events := feedAll(tok, "hello world\n\n")

	if len(events) < 2 {
		t.Fatalf("expected at least start+end events, got %d: %+v", len(events), events)
	}
	if events[0].Kind != EventBlockStart || events[0].BlockKind.Tag != KindParagraph {
		t.Fatalf("expected paragraph start, got %+v", events[0])
	}
	got := textRuns(events)
	want := []InlineRun{{Text: "hello world"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
}

func TestBoldSplitAcrossChunks(t *testing.T) {
	tok := New()
	events := feedAll(tok, "**bo", "ld** and more\n\n")

	got := textRuns(events)
	want := []InlineRun{
		{Text: "bold", Style: Bold},
		{Text: " and more"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
}

func TestBoldNeverClosedDegradesOnFinish(t *testing.T) {
	tok := New()
	events := feedAll(tok, "**never closes")

	got := textRuns(events)
	want := []InlineRun{{Text: "**"}, {Text: "never closes"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
}

func TestATXHeading(t *testing.T) {
	tok := New()
	events := feedAll(tok, "## Section Title\n\n")

	if events[0].Kind != EventBlockStart || events[0].BlockKind.Tag != KindHeading || events[0].BlockKind.HeadingLevel != 2 {
		t.Fatalf("expected level-2 heading start, got %+v", events[0])
	}
	got := textRuns(events)
	want := []InlineRun{{Text: "Section Title"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
}

func TestSetextHeadingViaLookahead(t *testing.T) {
	tok := New()
	events := feedAll(tok, "Title Line\n===\n\n")

	if events[0].Kind != EventBlockStart || events[0].BlockKind.Tag != KindHeading || events[0].BlockKind.HeadingLevel != 1 {
		t.Fatalf("expected level-1 setext heading start, got %+v", events[0])
	}
}

func TestFencedCodeBlock(t *testing.T) {
	tok := New()
	events := feedAll(tok, "```go\n", "fmt.Println(1)\n", "```\n\n")

	if events[0].BlockKind.Tag != KindFencedCode || events[0].BlockKind.FencedLanguage != "go" {
		t.Fatalf("expected fenced code start with language go, got %+v", events[0])
	}
	var chunks []string
	for _, e := range events {
		if e.Kind == EventAppendFencedCode {
			chunks = append(chunks, e.TextChunk)
		}
	}
	want := []string{"fmt.Println(1)\n"}
	if diff := cmp.Diff(want, chunks); diff != "" {
		t.Errorf("code chunks mismatch (-want +got):\n%s", diff)
	}
}

func TestDisplayMathSameLineClose(t *testing.T) {
	tok := New()
	events := feedAll(tok, "$$ x = 1 $$\n\n")

	if len(events) != 3 {
		t.Fatalf("expected start+appendMath+end, got %d: %+v", len(events), events)
	}
	if events[0].Kind != EventBlockStart || events[0].BlockKind.Tag != KindMath {
		t.Fatalf("expected a math block start, got %+v", events[0])
	}
	var chunk string
	for _, e := range events {
		if e.Kind == EventAppendMath {
			chunk = e.TextChunk
		}
	}
	if chunk != "x = 1" {
		t.Fatalf("expected same-line math content, got %q", chunk)
	}
	if events[2].Kind != EventBlockEnd {
		t.Fatalf("expected the math block to close on the same line, got %+v", events[2])
	}
}

func TestBracketMathSameLineClose(t *testing.T) {
	tok := New()
	events := feedAll(tok, `\[ x + 1 \]`+"\n\n")

	var chunk string
	for _, e := range events {
		if e.Kind == EventAppendMath {
			chunk = e.TextChunk
		}
	}
	if chunk != "x + 1" {
		t.Fatalf("expected same-line math content, got %q", chunk)
	}
	if events[len(events)-1].Kind == EventBlockStart {
		t.Fatalf("expected the math block to close, got %+v", events)
	}
}

func TestDisplayMathStaysOpenAcrossLines(t *testing.T) {
	tok := New()
	events := feedAll(tok, "$$\n", "x = 1\n", "$$\n\n")

	var chunks []string
	for _, e := range events {
		if e.Kind == EventAppendMath {
			chunks = append(chunks, e.TextChunk)
		}
	}
	if len(chunks) != 1 || chunks[0] != "x = 1\n" {
		t.Fatalf("expected one multi-line math chunk, got %+v", chunks)
	}
}

func TestHorizontalRule(t *testing.T) {
	tok := New()
	events := feedAll(tok, "---\n\n")
	if events[0].BlockKind.Tag != KindHorizontalRule {
		t.Fatalf("expected horizontal rule, got %+v", events[0])
	}
}

func TestUnorderedListItem(t *testing.T) {
	tok := New()
	events := feedAll(tok, "- first item\n\n")
	if events[0].BlockKind.Tag != KindListItem || events[0].BlockKind.ListOrdered {
		t.Fatalf("expected unordered list item, got %+v", events[0])
	}
	got := textRuns(events)
	want := []InlineRun{{Text: "first item"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
}

func TestTaskListItem(t *testing.T) {
	tok := New()
	events := feedAll(tok, "- [x] done thing\n\n")
	k := events[0].BlockKind
	if k.Tag != KindListItem || k.ListTask == nil || !k.ListTask.Checked {
		t.Fatalf("expected checked task item, got %+v", k)
	}
}

func TestBlockquote(t *testing.T) {
	tok := New()
	events := feedAll(tok, "> quoted text\n\n")
	if events[0].BlockKind.Tag != KindBlockquote {
		t.Fatalf("expected blockquote container, got %+v", events[0])
	}
	if events[1].BlockKind.Tag != KindParagraph {
		t.Fatalf("expected nested paragraph, got %+v", events[1])
	}
}

func TestGFMTable(t *testing.T) {
	tok := New()
	events := feedAll(tok, "| a | b |\n", "|---|---|\n", "| 1 | 2 |\n\n")

	var start, confirmed, row *BlockEvent
	for i := range events {
		switch events[i].Kind {
		case EventBlockStart:
			if events[i].BlockKind.Tag == KindTable {
				start = &events[i]
			}
		case EventTableHeaderConfirmed:
			confirmed = &events[i]
		case EventTableAppendRow:
			row = &events[i]
		}
	}
	if start == nil {
		t.Fatal("expected a table block start")
	}
	if confirmed == nil || len(confirmed.Alignments) != 2 {
		t.Fatalf("expected header confirmation with 2 alignments, got %+v", confirmed)
	}
	if row == nil || len(row.Row) != 2 {
		t.Fatalf("expected a 2-cell data row, got %+v", row)
	}
}

func TestTableCandidateDegradesToUnknownBlock(t *testing.T) {
	tok := New()
	events := feedAll(tok, "a | b\n", "just more text\n\n")

	for _, e := range events {
		if e.Kind == EventBlockStart && e.BlockKind.Tag == KindTable {
			t.Fatalf("did not expect a table to open: %+v", events)
		}
	}
	if len(events) != 3 {
		t.Fatalf("expected blockStart+appendInline+blockEnd, got %d: %+v", len(events), events)
	}
	if events[0].Kind != EventBlockStart || events[0].BlockKind.Tag != KindUnknown {
		t.Fatalf("expected an unknown block start, got %+v", events[0])
	}
	want := []InlineRun{{Text: "a | b\njust more text\n"}}
	if diff := cmp.Diff(want, textRuns(events)); diff != "" {
		t.Errorf("literal runs mismatch (-want +got):\n%s", diff)
	}
	if events[2].Kind != EventBlockEnd {
		t.Fatalf("expected the unknown block to close immediately, got %+v", events[2])
	}
}

func TestLinkAndImage(t *testing.T) {
	tok := New()
	events := feedAll(tok, "see [docs](https://example.com) and ![alt](img.png \"t\")\n\n")

	got := textRuns(events)
	want := []InlineRun{
		{Text: "see "},
		{Text: "docs", Style: Link, LinkURL: "https://example.com"},
		{Text: " and "},
		{Text: "alt", Style: Image, Image: &ImagePayload{Source: "img.png", Title: "t"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
}

func TestCodeSpanAndEscape(t *testing.T) {
	tok := New()
	events := feedAll(tok, "use `fmt.Println` and \\* not bold\n\n")

	got := textRuns(events)
	want := []InlineRun{
		{Text: "use "},
		{Text: "fmt.Println", Style: Code},
		{Text: " and "},
		{Text: "*"},
		{Text: " not bold"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
}

func TestHardLineBreak(t *testing.T) {
	tok := New()
	events := feedAll(tok, "line one  \n", "line two\n\n")

	got := textRuns(events)
	want := []InlineRun{
		{Text: "line one"},
		{Text: "\n"},
		{Text: " line two"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
}

func TestBlockIDsAreMonotonicAndNeverReused(t *testing.T) {
	tok := New()
	events := feedAll(tok, "# one\n\npara\n\n# two\n\n")

	var ids []BlockID
	for _, e := range events {
		if e.Kind == EventBlockStart {
			ids = append(ids, e.ID)
		}
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("block ids not strictly increasing: %v", ids)
		}
	}
}

func TestLookBehindBudgetTrimsOversizedFencedCodeLine(t *testing.T) {
	tok := New(WithMaxLookBehind(16))
	r0 := tok.Feed("```\n")
	if len(r0.Events) == 0 || r0.Events[0].BlockKind.Tag != KindFencedCode {
		t.Fatalf("expected a fenced code block to open, got %+v", r0.Events)
	}

	long := strings.Repeat("x", 64)
	r1 := tok.Feed(long)
	var flushed string
	for _, e := range r1.Events {
		if e.Kind == EventBlockStart {
			t.Fatalf("forced flush of an oversized line must not open a new block: %+v", r1.Events)
		}
		if e.Kind == EventAppendFencedCode {
			flushed += e.TextChunk
		}
	}
	if flushed == "" {
		t.Fatalf("expected the over-budget line to flush before its terminating newline, got %+v", r1.Events)
	}

	for _, e := range tok.Finish().Events {
		if e.Kind == EventAppendFencedCode {
			flushed += e.TextChunk
		}
	}
	if flushed != long {
		t.Fatalf("expected the full line text preserved across the forced flush, got %q want %q", flushed, long)
	}
}

func TestDeterministicAcrossChunkBoundaries(t *testing.T) {
	full := "# Title\n\nSome **bold** text with `code`.\n\n- item one\n- item two\n\n"

	a := feedAll(New(), full)

	var chunked []BlockEvent
	tok := New()
	for i := 0; i < len(full); i++ {
		chunked = append(chunked, tok.Feed(full[i:i+1]).Events...)
	}
	chunked = append(chunked, tok.Finish().Events...)

	if diff := cmp.Diff(a, chunked); diff != "" {
		t.Errorf("event streams differ by chunk boundary (-wholeInput +byteAtATime):\n%s", diff)
	}
}
