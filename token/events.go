// Package token implements a streaming Markdown tokenizer: a block state
// machine (BSM) that recognises CommonMark + GFM block structures across
// chunk boundaries, and an inline parser that resolves emphasis, links,
// code spans and the rest of the inline grammar only once a construct's
// delimiters are unambiguously closed. It never returns an error — every
// doubtful construct degrades to literal text or an unknown block, per the
// component's "total function" contract.
package token

// BlockID identifies a block for the life of a tokenizer. IDs are assigned
// by a monotonic counter on blockStart and are never reused.
type BlockID uint64

// Style is a bit set of inline style flags. Flags compose, e.g.
// Bold|Link for a bolded link label.
type Style uint16

// Inline style flags.
const (
	Bold Style = 1 << iota
	Italic
	Code
	Link
	Strikethrough
	Image
	Math
	Keyboard
	Superscript
	Subscript
)

// Has reports whether all bits of other are set in s.
func (s Style) Has(other Style) bool {
	return s&other == other
}

// ImagePayload carries the source and optional title of an image run.
type ImagePayload struct {
	Source string
	Title  string
}

// MathPayload carries the TeX source and display/inline mode of a math run.
type MathPayload struct {
	TeX     string
	Display bool
}

// InlineRun is a contiguous span of text sharing one style set and, when
// applicable, one link URL, image payload or math payload.
//
// Invariants: Style.Has(Link) iff LinkURL != "", Style.Has(Image) iff
// Image != nil (and then Text holds the alt text), Style.Has(Math) iff
// Math != nil.
type InlineRun struct {
	Text    string
	Style   Style
	LinkURL string
	Image   *ImagePayload
	Math    *MathPayload
}

// coalescible reports whether two runs share style, link, image and math
// identity and so may be merged into one run without changing meaning.
func (r InlineRun) coalescible(o InlineRun) bool {
	if r.Style != o.Style || r.LinkURL != o.LinkURL {
		return false
	}
	if (r.Image == nil) != (o.Image == nil) {
		return false
	}
	if r.Image != nil && *r.Image != *o.Image {
		return false
	}
	if (r.Math == nil) != (o.Math == nil) {
		return false
	}
	if r.Math != nil && *r.Math != *o.Math {
		return false
	}
	return true
}

// InlineCell is one table cell's worth of inline-parsed content. A cell may
// resolve to more than one run (e.g. "**a** b" is two runs).
type InlineCell = []InlineRun

// TableAlignment is the column alignment declared by a GFM table's
// separator row.
type TableAlignment int

// Table alignment values.
const (
	AlignNone TableAlignment = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// Kind identifies the shape of a BlockKind value.
type Kind int

// Block kinds.
const (
	KindParagraph Kind = iota
	KindHeading
	KindListItem
	KindBlockquote
	KindFencedCode
	KindMath
	KindTable
	KindHorizontalRule
	KindFootnoteDefinition
	KindUnknown
)

// String returns a short lowercase label, used in tests and debug output.
func (k Kind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindHeading:
		return "heading"
	case KindListItem:
		return "listItem"
	case KindBlockquote:
		return "blockquote"
	case KindFencedCode:
		return "fencedCode"
	case KindMath:
		return "math"
	case KindTable:
		return "table"
	case KindHorizontalRule:
		return "horizontalRule"
	case KindFootnoteDefinition:
		return "footnoteDefinition"
	case KindUnknown:
		return "unknown"
	default:
		return "kind(?)"
	}
}

// TaskState holds the checkbox state of a task list item.
type TaskState struct {
	Checked bool
}

// BlockKind is a tagged variant over every block shape the tokenizer can
// open. Only the fields relevant to Tag are meaningful; this mirrors the
// event struct below rather than a closed sum-type interface, since block
// kinds are dense, frequently matched and never extended by callers.
type BlockKind struct {
	Tag Kind

	// KindHeading
	HeadingLevel int

	// KindListItem
	ListOrdered bool
	ListIndex   int // meaningful iff ListOrdered
	ListTask    *TaskState

	// KindFencedCode
	FencedLanguage string // "" means none

	// KindMath
	MathDisplay bool

	// KindFootnoteDefinition
	FootnoteID    string
	FootnoteIndex int
}

// OpenBlockState is a snapshot of one entry in the tokenizer's open-block
// stack, reported in every ChunkResult. The assembler does not read it; it
// derives nesting from the blockStart/blockEnd events themselves.
type OpenBlockState struct {
	ID       BlockID
	Kind     BlockKind
	ParentID BlockID
	HasParent bool
	Depth    int
}

// EventKind identifies the shape of a BlockEvent.
type EventKind int

// Block event kinds, in the order the spec enumerates them.
const (
	EventBlockStart EventKind = iota
	EventAppendInline
	EventAppendFencedCode
	EventAppendMath
	EventTableHeaderCandidate
	EventTableHeaderConfirmed
	EventTableAppendRow
	EventBlockEnd
)

// BlockEvent is one delta emitted by the tokenizer. It is a closed sum type:
// the Kind field selects which of the remaining fields are meaningful, the
// same dense-struct shape the teacher uses for its own event stream
// (internal/render/chat.RenderEvent).
type BlockEvent struct {
	Kind EventKind
	ID   BlockID

	// EventBlockStart
	BlockKind BlockKind

	// EventAppendInline
	Runs []InlineRun

	// EventAppendFencedCode, EventAppendMath
	TextChunk string

	// EventTableHeaderCandidate
	HeaderCells []InlineCell

	// EventTableHeaderConfirmed
	Alignments []TableAlignment

	// EventTableAppendRow
	Row []InlineCell
}

func startEvent(id BlockID, kind BlockKind) BlockEvent {
	return BlockEvent{Kind: EventBlockStart, ID: id, BlockKind: kind}
}

func appendInlineEvent(id BlockID, runs []InlineRun) BlockEvent {
	return BlockEvent{Kind: EventAppendInline, ID: id, Runs: runs}
}

func appendFencedCodeEvent(id BlockID, chunk string) BlockEvent {
	return BlockEvent{Kind: EventAppendFencedCode, ID: id, TextChunk: chunk}
}

func appendMathEvent(id BlockID, chunk string) BlockEvent {
	return BlockEvent{Kind: EventAppendMath, ID: id, TextChunk: chunk}
}

func tableHeaderCandidateEvent(id BlockID, cells []InlineCell) BlockEvent {
	return BlockEvent{Kind: EventTableHeaderCandidate, ID: id, HeaderCells: cells}
}

func tableHeaderConfirmedEvent(id BlockID, aligns []TableAlignment) BlockEvent {
	return BlockEvent{Kind: EventTableHeaderConfirmed, ID: id, Alignments: aligns}
}

func tableAppendRowEvent(id BlockID, row []InlineCell) BlockEvent {
	return BlockEvent{Kind: EventTableAppendRow, ID: id, Row: row}
}

func blockEndEvent(id BlockID) BlockEvent {
	return BlockEvent{Kind: EventBlockEnd, ID: id}
}

// ChunkResult is the output of one Feed or Finish call: the ordered events
// produced while processing that input, plus the full open-block stack
// after processing it (outermost first).
type ChunkResult struct {
	Events     []BlockEvent
	OpenBlocks []OpenBlockState
}
