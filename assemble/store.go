// Package assemble implements the block assembler: a stateful store that
// applies a token.Tokenizer's events onto an ordered list of block
// snapshots, coalesces adjacent equivalent inline runs at the seam,
// retires closed blocks beyond a retention window, and emits a minimal
// change-set for a renderer to consume.
package assemble

import (
	"sync"

	"github.com/inkstream/mdstream/token"
)

// TableData is the table-shaped portion of a BlockSnapshot, mirroring
// spec §4.4's `table: { headerCells?, alignments?, rows }`.
type TableData struct {
	HeaderCells []token.InlineCell
	Alignments  []token.TableAlignment
	Rows        [][]token.InlineCell
}

// BlockSnapshot is the assembler's durable record of one block. Only the
// fields relevant to Kind.Tag carry meaningful content (paragraphs and
// headings use InlineRuns, fenced code uses CodeText, and so on) — the same
// dense-struct-over-sum-type shape token.BlockKind and token.BlockEvent use.
type BlockSnapshot struct {
	ID         token.BlockID
	Kind       token.BlockKind
	InlineRuns []token.InlineRun
	CodeText   string
	MathText   string
	Table      *TableData
	IsClosed   bool
	ParentID   token.BlockID
	HasParent  bool
	Depth      int
	ChildIDs   []token.BlockID
}

// Assembler is single-writer, multiple-reader (spec §4.4 concurrency
// contract): Apply must be called by one goroutine at a time; Block and
// Blocks may be called concurrently with each other and with Apply, and
// always return an immutable copy.
type Assembler struct {
	mu sync.RWMutex

	cfg             config
	documentVersion uint64

	byID      map[token.BlockID]*BlockSnapshot
	order     []token.BlockID // every live block, arrival order
	rootOrder []token.BlockID // live root-level blocks only, arrival order

	// openStack mirrors the tokenizer's own open-block stack, rebuilt purely
	// from the blockStart/blockEnd events applied so far. A fresh
	// ChunkResult's OpenBlocks only reflects what's still open once the
	// whole chunk has been processed, which misses any block that both
	// started and ended within that same chunk — so parent/depth is derived
	// from this mirror, event by event, rather than from OpenBlocks.
	openStack []token.BlockID

	retention          *retentionTracker
	discardedRootCount int
}

// New constructs an Assembler with the given options applied in order.
func New(opts ...Option) *Assembler {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Assembler{
		cfg:       cfg,
		byID:      make(map[token.BlockID]*BlockSnapshot),
		retention: newRetentionTracker(cfg.retentionBlocks, cfg.retentionBytes),
	}
}

// Apply applies every event in cr, in order, and returns the resulting diff.
// If cr carries no events, or every event turns out to be a no-op against
// unknown ids, no Change is produced and DocumentVersion does not advance.
func (a *Assembler) Apply(cr token.ChunkResult) AssemblerDiff {
	a.mu.Lock()
	defer a.mu.Unlock()

	var changes []Change
	for _, ev := range cr.Events {
		switch ev.Kind {
		case token.EventBlockStart:
			changes = append(changes, a.applyBlockStart(ev))
		case token.EventAppendInline:
			if c, ok := a.applyAppendInline(ev); ok {
				changes = append(changes, c)
			}
		case token.EventAppendFencedCode:
			if c, ok := a.applyAppendCode(ev); ok {
				changes = append(changes, c)
			}
		case token.EventAppendMath:
			if c, ok := a.applyAppendMath(ev); ok {
				changes = append(changes, c)
			}
		case token.EventTableHeaderCandidate:
			a.applyTableHeaderCandidate(ev)
		case token.EventTableHeaderConfirmed:
			if c, ok := a.applyTableHeaderConfirmed(ev); ok {
				changes = append(changes, c)
			}
		case token.EventTableAppendRow:
			if c, ok := a.applyTableAppendRow(ev); ok {
				changes = append(changes, c)
			}
		case token.EventBlockEnd:
			if c, ok := a.applyBlockEnd(ev); ok {
				changes = append(changes, c)
			}
		}
	}

	if evicted := a.retention.evict(); len(evicted) > 0 {
		start := a.discardedRootCount
		for _, rid := range evicted {
			a.removeSubtree(rid)
		}
		a.rootOrder = a.rootOrder[len(evicted):]
		a.discardedRootCount += len(evicted)
		changes = append(changes, Change{Kind: ChangeBlocksDiscarded, Discarded: Range{Start: start, End: a.discardedRootCount}})
	}

	if len(changes) > 0 {
		a.documentVersion++
	}
	return AssemblerDiff{DocumentVersion: a.documentVersion, Changes: changes}
}

func (a *Assembler) applyBlockStart(ev token.BlockEvent) Change {
	debugAssert(a.byID[ev.ID] == nil, "block %d started twice", ev.ID)

	var parentID token.BlockID
	var hasParent bool
	var depth int
	if n := len(a.openStack); n > 0 {
		parentID = a.openStack[n-1]
		hasParent = true
		if parent, ok := a.byID[parentID]; ok {
			depth = parent.Depth + 1
		}
	}

	snap := &BlockSnapshot{ID: ev.ID, Kind: ev.BlockKind, ParentID: parentID, HasParent: hasParent, Depth: depth}
	if ev.BlockKind.Tag == token.KindTable {
		snap.Table = &TableData{}
	}
	a.byID[ev.ID] = snap
	a.order = append(a.order, ev.ID)
	a.openStack = append(a.openStack, ev.ID)

	var position int
	if hasParent {
		if parent, ok := a.byID[parentID]; ok {
			position = len(parent.ChildIDs)
			parent.ChildIDs = append(parent.ChildIDs, ev.ID)
		}
	} else {
		position = len(a.rootOrder)
		a.rootOrder = append(a.rootOrder, ev.ID)
	}

	return Change{Kind: ChangeBlockStarted, ID: ev.ID, BlockKind: ev.BlockKind, Position: position, ParentID: parentID, HasParent: hasParent}
}

func (a *Assembler) applyAppendInline(ev token.BlockEvent) (Change, bool) {
	snap, ok := a.byID[ev.ID]
	if !ok {
		debugAssert(false, "append inline to unknown block %d", ev.ID)
		return Change{}, false
	}
	snap.InlineRuns = appendRunsCoalesced(snap.InlineRuns, ev.Runs)
	return Change{Kind: ChangeRunsAppended, ID: ev.ID, Runs: ev.Runs}, true
}

// appendRunsCoalesced appends new onto existing, merging only at the seam
// (spec §4.4: "bounded work — only the last existing run is considered").
func appendRunsCoalesced(existing, new []token.InlineRun) []token.InlineRun {
	if len(new) == 0 {
		return existing
	}
	if n := len(existing); n > 0 && coalescible(existing[n-1], new[0]) {
		existing[n-1].Text += new[0].Text
		return append(existing, new[1:]...)
	}
	return append(existing, new...)
}

// coalescible mirrors token.InlineRun's own unexported coalescible method
// (style, link, image and math identity) against the exported fields, since
// that method isn't part of token's public surface.
func coalescible(a, b token.InlineRun) bool {
	if a.Style != b.Style || a.LinkURL != b.LinkURL {
		return false
	}
	if (a.Image == nil) != (b.Image == nil) {
		return false
	}
	if a.Image != nil && *a.Image != *b.Image {
		return false
	}
	if (a.Math == nil) != (b.Math == nil) {
		return false
	}
	if a.Math != nil && *a.Math != *b.Math {
		return false
	}
	return true
}

func (a *Assembler) applyAppendCode(ev token.BlockEvent) (Change, bool) {
	snap, ok := a.byID[ev.ID]
	if !ok {
		debugAssert(false, "append code to unknown block %d", ev.ID)
		return Change{}, false
	}
	snap.CodeText += ev.TextChunk
	return Change{Kind: ChangeCodeAppended, ID: ev.ID, Chunk: ev.TextChunk}, true
}

func (a *Assembler) applyAppendMath(ev token.BlockEvent) (Change, bool) {
	snap, ok := a.byID[ev.ID]
	if !ok {
		debugAssert(false, "append math to unknown block %d", ev.ID)
		return Change{}, false
	}
	snap.MathText += ev.TextChunk
	return Change{Kind: ChangeMathAppended, ID: ev.ID, Chunk: ev.TextChunk}, true
}

func (a *Assembler) applyTableHeaderCandidate(ev token.BlockEvent) {
	snap, ok := a.byID[ev.ID]
	if !ok {
		debugAssert(false, "table header candidate for unknown block %d", ev.ID)
		return
	}
	if snap.Table == nil {
		snap.Table = &TableData{}
	}
	snap.Table.HeaderCells = ev.HeaderCells
}

func (a *Assembler) applyTableHeaderConfirmed(ev token.BlockEvent) (Change, bool) {
	snap, ok := a.byID[ev.ID]
	if !ok {
		debugAssert(false, "table header confirmed for unknown block %d", ev.ID)
		return Change{}, false
	}
	if snap.Table == nil {
		snap.Table = &TableData{}
	}
	snap.Table.Alignments = ev.Alignments
	return Change{Kind: ChangeTableHeaderConfirmed, ID: ev.ID}, true
}

func (a *Assembler) applyTableAppendRow(ev token.BlockEvent) (Change, bool) {
	snap, ok := a.byID[ev.ID]
	if !ok {
		debugAssert(false, "table row appended for unknown block %d", ev.ID)
		return Change{}, false
	}
	if snap.Table == nil {
		snap.Table = &TableData{}
	}
	snap.Table.Rows = append(snap.Table.Rows, ev.Row)
	return Change{Kind: ChangeTableRowAppended, ID: ev.ID, Row: ev.Row}, true
}

func (a *Assembler) applyBlockEnd(ev token.BlockEvent) (Change, bool) {
	snap, ok := a.byID[ev.ID]
	if !ok {
		debugAssert(false, "block end for unknown block %d", ev.ID)
		return Change{}, false
	}
	snap.IsClosed = true
	if n := len(a.openStack); n > 0 && a.openStack[n-1] == ev.ID {
		a.openStack = a.openStack[:n-1]
	} else {
		debugAssert(false, "block end %d does not match the mirrored open stack top", ev.ID)
	}
	if !snap.HasParent {
		a.retention.onBlockClosed(ev.ID, a.approxSize(snap))
	}
	return Change{Kind: ChangeBlockEnded, ID: ev.ID}, true
}

// approxSize sums the textual payload of snap and its whole subtree, used
// only to weigh retention's byte cap — not an exact serialized size.
func (a *Assembler) approxSize(snap *BlockSnapshot) int {
	n := len(snap.CodeText) + len(snap.MathText)
	for _, r := range snap.InlineRuns {
		n += len(r.Text)
	}
	if snap.Table != nil {
		for _, cell := range snap.Table.HeaderCells {
			for _, r := range cell {
				n += len(r.Text)
			}
		}
		for _, row := range snap.Table.Rows {
			for _, cell := range row {
				for _, r := range cell {
					n += len(r.Text)
				}
			}
		}
	}
	for _, cid := range snap.ChildIDs {
		if child, ok := a.byID[cid]; ok {
			n += a.approxSize(child)
		}
	}
	return n
}

// removeSubtree deletes id and every descendant from the live store. It
// does not touch rootOrder; the caller trims that separately since eviction
// always removes a contiguous prefix.
func (a *Assembler) removeSubtree(id token.BlockID) {
	snap, ok := a.byID[id]
	if !ok {
		return
	}
	for _, cid := range snap.ChildIDs {
		a.removeSubtree(cid)
	}
	delete(a.byID, id)
	a.order = removeID(a.order, id)
}

func removeID(ids []token.BlockID, target token.BlockID) []token.BlockID {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Block returns an immutable copy of the snapshot for id, or false if id is
// unknown or was evicted by retention.
func (a *Assembler) Block(id token.BlockID) (BlockSnapshot, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	snap, ok := a.byID[id]
	if !ok {
		return BlockSnapshot{}, false
	}
	return cloneSnapshot(snap), true
}

// Blocks returns an immutable copy of every live block snapshot, in arrival
// order, for a caller that wants a single consistent view of the document.
func (a *Assembler) Blocks() []BlockSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]BlockSnapshot, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, cloneSnapshot(a.byID[id]))
	}
	return out
}

// DocumentVersion returns the version of the most recently applied diff.
func (a *Assembler) DocumentVersion() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.documentVersion
}

func cloneSnapshot(s *BlockSnapshot) BlockSnapshot {
	out := *s
	out.InlineRuns = append([]token.InlineRun(nil), s.InlineRuns...)
	out.ChildIDs = append([]token.BlockID(nil), s.ChildIDs...)
	if s.Table != nil {
		t := *s.Table
		t.HeaderCells = append([]token.InlineCell(nil), s.Table.HeaderCells...)
		t.Alignments = append([]token.TableAlignment(nil), s.Table.Alignments...)
		t.Rows = append([][]token.InlineCell(nil), s.Table.Rows...)
		out.Table = &t
	}
	return out
}
