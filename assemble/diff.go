package assemble

import "github.com/inkstream/mdstream/token"

// ChangeKind identifies the shape of a Change.
type ChangeKind int

// Change kinds, mirroring spec §4.4's Change union. There is deliberately no
// "table header candidate" kind: the tokenizer always emits a confirmed
// header in the same batch as its candidate (see token's one-line lookahead
// design), so the candidate is applied to the snapshot silently and only the
// confirmation reaches the diff — a reader that wants the header cells reads
// them off the snapshot via Block(id) once it observes ChangeTableHeaderConfirmed.
const (
	ChangeBlockStarted ChangeKind = iota
	ChangeRunsAppended
	ChangeCodeAppended
	ChangeMathAppended
	ChangeTableHeaderConfirmed
	ChangeTableRowAppended
	ChangeBlockEnded
	ChangeBlocksDiscarded
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeBlockStarted:
		return "blockStarted"
	case ChangeRunsAppended:
		return "runsAppended"
	case ChangeCodeAppended:
		return "codeAppended"
	case ChangeMathAppended:
		return "mathAppended"
	case ChangeTableHeaderConfirmed:
		return "tableHeaderConfirmed"
	case ChangeTableRowAppended:
		return "tableRowAppended"
	case ChangeBlockEnded:
		return "blockEnded"
	case ChangeBlocksDiscarded:
		return "blocksDiscarded"
	default:
		return "changeKind(?)"
	}
}

// Range is a half-open [Start, End) interval over the lifetime ordering of
// root-level blocks, used to report an evicted prefix. Positions are
// absolute (never reused across the assembler's lifetime), not indices into
// the current block list.
type Range struct {
	Start int
	End   int
}

// Change is one delta produced by applying a ChunkResult. Kind selects which
// of the remaining fields are meaningful, the same dense tagged-union shape
// token.BlockEvent uses.
type Change struct {
	Kind ChangeKind
	ID   token.BlockID

	// ChangeBlockStarted
	BlockKind token.BlockKind
	Position  int
	ParentID  token.BlockID
	HasParent bool

	// ChangeRunsAppended
	Runs []token.InlineRun

	// ChangeCodeAppended, ChangeMathAppended
	Chunk string

	// ChangeTableRowAppended
	Row []token.InlineCell

	// ChangeBlocksDiscarded
	Discarded Range
}

// AssemblerDiff is the result of one Apply call: every Change produced and
// the resulting document version. DocumentVersion only advances when at
// least one Change was produced.
type AssemblerDiff struct {
	DocumentVersion uint64
	Changes         []Change
}
