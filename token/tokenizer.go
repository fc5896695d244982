package token

import "strings"

// containerType distinguishes the two block kinds that can hold nested
// children: blockquote (marker-only, never carries its own text) and list
// item (marker-prefixed, and — unlike CommonMark's implicit wrapping
// paragraph — carries its own inline content directly, see DESIGN.md).
type containerType int

const (
	containerNone containerType = iota
	containerBlockquote
	containerList
)

// openBlock is one entry on the tokenizer's open-block stack.
type openBlock struct {
	id       BlockID
	kind     BlockKind
	parentID BlockID
	hasParent bool
	depth    int

	containerType containerType
	contentIndent int // containerList: column where continuation content must start

	inline        *inlineParser // nil for containers with no direct text (blockquote) and raw blocks
	repl          *replacer
	startedInline bool // whether a soft-break space should precede the next append

	fence       fenceInfo
	mathBracket bool // math block opened via "\[" ... "\]" rather than a "$$" fence
}

// Tokenizer is a streaming block state machine: feed it Markdown text in
// arbitrary chunks and it emits BlockEvent values describing newly resolved
// block and inline structure. It never returns an error; malformed or
// ambiguous input degrades to literal text or an KindUnknown block.
//
// A Tokenizer is not safe for concurrent use; Feed and Finish must be
// called from a single goroutine (spec's single-writer contract).
type Tokenizer struct {
	cfg    config
	nextID BlockID

	lineBuf string
	stack   []*openBlock

	// pendingFirstLine holds a line that matched no explicit block opener,
	// withheld for exactly one further line so the tokenizer can tell a
	// plain paragraph line apart from a GFM table header or a setext
	// heading's first line — both of which are distinguished only by what
	// follows.
	pendingFirstLine *string

	footnoteCounter int
}

// New constructs a Tokenizer. Options are applied in order.
func New(opts ...Option) *Tokenizer {
	c := defaultConfig()
	for _, o := range opts {
		o(&c)
	}
	return &Tokenizer{cfg: c}
}

func (t *Tokenizer) allocID() BlockID {
	t.nextID++
	return t.nextID
}

// Feed processes as many complete lines as chunk completes and returns the
// events those lines produced, plus a snapshot of the still-open block
// stack. Any trailing partial line is retained for the next call, unless it
// grows past the look-behind budget (see trimOversizedLineBuf).
func (t *Tokenizer) Feed(chunk string) ChunkResult {
	var events []BlockEvent
	data := t.lineBuf + chunk
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			line := strings.TrimSuffix(data[start:i], "\r")
			events = append(events, t.processLine(line)...)
			start = i + 1
		}
	}
	t.lineBuf = data[start:]
	events = append(events, t.trimOversizedLineBuf()...)
	return ChunkResult{Events: events, OpenBlocks: t.openBlockStates()}
}

// trimOversizedLineBuf enforces spec §4.3's look-behind budget: "when the
// current line exceeds the budget, the buffer is trimmed from the front by
// the amount that has already been emitted." Once the still-unterminated
// line grows past maxLookBehind plus half again as slack, its content so far
// is appended early to whatever leaf is already open for it and dropped from
// lineBuf, so a single pathologically long line (a giant fenced-code line, a
// giant paragraph line) can't grow the buffer without bound.
//
// A fragment is left buffered when no leaf is open (the stack is empty or its
// top is a blockquote) or when the setext/table lookahead still holds a
// pending line, since classify's one-line lookahead needs to see a whole
// subsequent line, not more of the same one — this residual case is bounded
// only by how long such a line can get before a newline arrives. When a leaf
// is open, the fragment is appended to it as-is, even if it is the first
// fragment of a new line; that line is not classified first.
func (t *Tokenizer) trimOversizedLineBuf() []BlockEvent {
	budget := t.cfg.maxLookBehind + t.cfg.maxLookBehind/2
	if budget <= 0 || len(t.lineBuf) <= budget {
		return nil
	}
	if t.pendingFirstLine != nil {
		return nil
	}
	leaf := t.currentLeaf()
	if leaf == nil {
		return nil
	}

	chunk := t.lineBuf
	t.lineBuf = ""
	switch leaf.kind.Tag {
	case KindFencedCode:
		return []BlockEvent{appendFencedCodeEvent(leaf.id, stripFenceIndent(chunk, leaf.fence.indent))}
	case KindMath:
		return []BlockEvent{appendMathEvent(leaf.id, chunk)}
	case KindUnknown:
		return []BlockEvent{appendFencedCodeEvent(leaf.id, chunk)}
	case KindParagraph, KindListItem, KindFootnoteDefinition, KindHeading:
		leaf.startedInline = true
		return t.appendInlineRaw(leaf, chunk)
	default:
		t.lineBuf = chunk
		return nil
	}
}

// Finish flushes any buffered partial line and closes every still-open
// block, degrading unresolved inline state to literal text.
func (t *Tokenizer) Finish() ChunkResult {
	var events []BlockEvent
	if t.lineBuf != "" {
		events = append(events, t.processLine(t.lineBuf)...)
		t.lineBuf = ""
	}
	events = append(events, t.flushPendingFirstLine()...)
	events = append(events, t.closeAll()...)
	return ChunkResult{Events: events, OpenBlocks: nil}
}

func (t *Tokenizer) openBlockStates() []OpenBlockState {
	if len(t.stack) == 0 {
		return nil
	}
	out := make([]OpenBlockState, len(t.stack))
	for i, b := range t.stack {
		out[i] = OpenBlockState{ID: b.id, Kind: b.kind, ParentID: b.parentID, HasParent: b.hasParent, Depth: b.depth}
	}
	return out
}

// processLine is the per-line entry point: reconcile the line against
// currently open containers, then classify what remains.
func (t *Tokenizer) processLine(line string) []BlockEvent {
	remainder, events, lazy := t.reconcileContainers(line)
	if lazy {
		return append(events, t.appendToLeafParagraph(remainder)...)
	}
	return append(events, t.classify(remainder)...)
}

// reconcileContainers strips one prefix per currently open container from
// line, stopping at the first container the line no longer satisfies. If
// every open container matches, remainder holds whatever text is left for
// classify. Otherwise it either recognises a lazy paragraph continuation
// (trailing blockquotes only) or closes the unmatched containers.
func (t *Tokenizer) reconcileContainers(line string) (remainder string, events []BlockEvent, lazy bool) {
	remainder = line
	blank := isBlankLine(line)
	matched := 0
	containers := 0
	for _, c := range t.stack {
		if c.containerType == containerNone {
			break
		}
		containers++
	}

	for _, c := range t.stack {
		if c.containerType == containerNone {
			break
		}
		switch c.containerType {
		case containerBlockquote:
			if blank {
				goto mismatch
			}
			if r, ok := stripBlockquoteMarker(remainder); ok {
				remainder = r
				matched++
				continue
			}
			goto mismatch
		case containerList:
			if blank {
				matched++
				continue
			}
			w, byteLen := leadingSpaceWidth(remainder)
			if w < c.contentIndent {
				goto mismatch
			}
			remainder = remainder[byteLen:]
			matched++
		}
	}
mismatch:

	if matched == containers {
		return remainder, nil, false
	}

	unmatchedAreBlockquotesOnly := true
	for _, c := range t.stack[matched:containers] {
		if c.containerType != containerBlockquote {
			unmatchedAreBlockquotesOnly = false
			break
		}
	}
	leaf := t.currentLeaf()
	paragraphOpen := (leaf != nil && leaf.kind.Tag == KindParagraph) || t.pendingFirstLine != nil
	if unmatchedAreBlockquotesOnly && !blank && paragraphOpen && !looksLikeNewBlock(remainder) {
		ev := t.flushPendingFirstLine()
		return remainder, ev, true
	}

	// A still-pending first line belongs to whatever container context is
	// about to close, so materialize it there before popping.
	ev := t.flushPendingFirstLine()
	for i := len(t.stack) - 1; i >= matched; i-- {
		ev = append(ev, t.popTop()...)
	}
	return remainder, ev, false
}

// currentLeaf returns the innermost stack entry if it carries its own
// inline content (paragraph, heading-in-progress, list item, footnote
// definition, fenced code/math, table, opaque) — nil if the stack is empty
// or its top is a pure container (blockquote).
func (t *Tokenizer) currentLeaf() *openBlock {
	if len(t.stack) == 0 {
		return nil
	}
	b := t.stack[len(t.stack)-1]
	if b.inline == nil && b.kind.Tag != KindFencedCode && b.kind.Tag != KindMath && b.kind.Tag != KindTable && b.kind.Tag != KindUnknown {
		return nil
	}
	return b
}

// classify resolves remainder against the block grammar: new nested
// blockquotes, the pending-first-line lookahead, continuation of the
// currently open leaf, and finally a fresh block opener in priority order.
func (t *Tokenizer) classify(remainder string) []BlockEvent {
	if t.pendingFirstLine != nil {
		return t.resolvePendingFirstLine(remainder)
	}

	var events []BlockEvent
	for {
		if rest, ok := stripBlockquoteMarker(remainder); ok {
			events = append(events, t.openContainer(containerBlockquote)...)
			remainder = rest
			continue
		}
		break
	}

	if leaf := t.currentLeaf(); leaf != nil {
		if cont, ok := t.continueLeaf(leaf, remainder); ok {
			return append(events, cont...)
		}
		events = append(events, t.popTop()...)
	}

	if isBlankLine(remainder) {
		return events
	}

	if mw, task, content, ok := unorderedMarker(remainder); ok {
		events = append(events, t.openListItem(false, 0, task, mw)...)
		return append(events, t.startLeafContent(content)...)
	}
	if mw, idx, content, ok := orderedMarker(remainder); ok {
		events = append(events, t.openListItem(true, idx, nil, mw)...)
		return append(events, t.startLeafContent(content)...)
	}
	if level, content := atxHeadingLevel(remainder); level > 0 {
		events = append(events, t.openLeaf(BlockKind{Tag: KindHeading, HeadingLevel: level})...)
		events = append(events, t.startLeafContent(content)...)
		events = append(events, t.popTop()...)
		return events
	}
	if isThematicBreak(remainder) {
		events = append(events, t.openLeaf(BlockKind{Tag: KindHorizontalRule})...)
		events = append(events, t.popTop()...)
		return events
	}
	if fi, ok := parseFence(remainder); ok {
		if fi.marker == '$' {
			content, closed := sameLineFenceClose(fi.language, fi.marker, fi.length)
			return append(events, t.openMath(fi, false, content, closed)...)
		}
		return append(events, t.openFencedCode(fi)...)
	}
	if content, closed, ok := parseBracketMathOpen(remainder); ok {
		return append(events, t.openMath(fenceInfo{}, true, content, closed)...)
	}
	if id, body, ok := footnoteDefinitionMarker(remainder); ok {
		t.footnoteCounter++
		events = append(events, t.openLeaf(BlockKind{Tag: KindFootnoteDefinition, FootnoteID: id, FootnoteIndex: t.footnoteCounter})...)
		return append(events, t.startLeafContent(body)...)
	}
	if name, ok := opaqueFenceMarker(remainder); ok {
		return append(events, t.openOpaque(name)...)
	}

	first := remainder
	t.pendingFirstLine = &first
	return events
}

// resolvePendingFirstLine decides, now that one more line is available,
// whether the withheld line was a table header, a setext heading, or an
// ordinary paragraph start (in which case remainder is reclassified against
// the freshly opened paragraph).
func (t *Tokenizer) resolvePendingFirstLine(remainder string) []BlockEvent {
	first := *t.pendingFirstLine
	t.pendingFirstLine = nil

	if aligns, ok := isTableDelimiterRow(remainder); ok && isTableRowLine(first) {
		cells := splitTableRow(first)
		if len(cells) == len(aligns) {
			return t.openTable(cells, aligns)
		}
	}
	if lvl, ok := isSetextUnderline(remainder); ok && !isBlankLine(first) && !looksLikeNewBlock(first) {
		events := t.openLeaf(BlockKind{Tag: KindHeading, HeadingLevel: lvl})
		events = append(events, t.startLeafContent(first)...)
		events = append(events, t.popTop()...)
		return events
	}
	if isTableRowLine(first) {
		return t.degradeTableCandidate(first, remainder)
	}

	events := t.openLeaf(BlockKind{Tag: KindParagraph})
	events = append(events, t.startLeafContent(first)...)
	events = append(events, t.classify(remainder)...)
	return events
}

// degradeTableCandidate turns a table-header candidate that failed
// confirmation into an unknown block carrying both buffered lines as one
// literal run (spec §4.3's table-degradation rule), appended via a single
// blockAppendInline rather than re-parsed through the inline grammar —
// distinct from the opaque ":::"-fence unknown block's ongoing raw
// passthrough, which reuses the fenced-code append shape since it can span
// many lines (see DESIGN.md).
func (t *Tokenizer) degradeTableCandidate(first, second string) []BlockEvent {
	b := &openBlock{kind: BlockKind{Tag: KindUnknown}}
	startEv := t.push(b)
	literal := first + "\n" + second + "\n"
	events := []BlockEvent{startEv, appendInlineEvent(b.id, []InlineRun{{Text: literal}})}
	events = append(events, t.popTop()...)
	return events
}

func (t *Tokenizer) flushPendingFirstLine() []BlockEvent {
	if t.pendingFirstLine == nil {
		return nil
	}
	first := *t.pendingFirstLine
	t.pendingFirstLine = nil
	if isBlankLine(first) {
		return nil
	}
	events := t.openLeaf(BlockKind{Tag: KindParagraph})
	return append(events, t.startLeafContent(first)...)
}

// continueLeaf decides whether remainder extends the currently open leaf.
// ok is false when the leaf must close before remainder is reclassified.
func (t *Tokenizer) continueLeaf(leaf *openBlock, remainder string) ([]BlockEvent, bool) {
	switch leaf.kind.Tag {
	case KindFencedCode:
		if isClosingFence(remainder, leaf.fence.marker, leaf.fence.length) {
			return t.popTop(), true
		}
		return []BlockEvent{appendFencedCodeEvent(leaf.id, stripFenceIndent(remainder, leaf.fence.indent)+"\n")}, true

	case KindMath:
		closed := false
		if leaf.mathBracket {
			closed = strings.TrimSpace(remainder) == `\]`
		} else {
			closed = isClosingFence(remainder, leaf.fence.marker, leaf.fence.length)
		}
		if closed {
			return t.popTop(), true
		}
		return []BlockEvent{appendMathEvent(leaf.id, remainder+"\n")}, true

	case KindTable:
		if isBlankLine(remainder) || !isTableRowLine(remainder) {
			return nil, false
		}
		cells := splitTableRow(remainder)
		row := make([]InlineCell, len(cells))
		for i, c := range cells {
			row[i] = t.parseStandaloneInline(c)
		}
		return []BlockEvent{tableAppendRowEvent(leaf.id, row)}, true

	case KindHorizontalRule, KindHeading:
		return nil, false

	case KindUnknown:
		if isOpaqueFenceClose(remainder) {
			return t.popTop(), true
		}
		return []BlockEvent{appendFencedCodeEvent(leaf.id, remainder+"\n")}, true

	default: // KindParagraph, KindListItem, KindFootnoteDefinition
		if isBlankLine(remainder) {
			return nil, false
		}
		if leaf.kind.Tag == KindParagraph {
			if _, ok := isSetextUnderline(remainder); ok && leaf.startedInline {
				// A setext underline can only convert a paragraph that
				// hasn't been closed yet, which here means it's still the
				// one open leaf and has taken exactly one line so far.
				// Events were already emitted with Tag=KindParagraph, so
				// rather than retroactively retag an emitted BlockStart we
				// treat the underline as ending the paragraph normally —
				// see SPEC_FULL.md's lookahead-based setext resolution,
				// which only converts paragraphs still in pendingFirstLine.
				return nil, false
			}
			if looksLikeNewBlock(remainder) {
				return nil, false
			}
		}
		return t.appendInlineLine(leaf, remainder), true
	}
}

func (t *Tokenizer) appendToLeafParagraph(remainder string) []BlockEvent {
	leaf := t.currentLeaf()
	if leaf == nil {
		return nil
	}
	return t.appendInlineLine(leaf, remainder)
}

func (t *Tokenizer) startLeafContent(content string) []BlockEvent {
	leaf := t.currentLeaf()
	if leaf == nil {
		return nil
	}
	return t.appendInlineLine(leaf, content)
}

// appendInlineLine feeds one line's worth of content through the block's
// replacer and inline parser, handling the soft/hard line break rules: a
// space joins lines within a block, and a hard break (trailing double space
// or backslash) becomes an explicit "\n" run.
func (t *Tokenizer) appendInlineLine(leaf *openBlock, line string) []BlockEvent {
	hardBreak := strings.HasSuffix(line, "  ") || strings.HasSuffix(line, "\\")
	content := strings.TrimRight(line, " \t")
	if strings.HasSuffix(content, "\\") {
		content = content[:len(content)-1]
	}

	prefix := ""
	if leaf.startedInline {
		prefix = " "
	}
	leaf.startedInline = true

	var events []BlockEvent
	replaced := leaf.repl.append(prefix + content)
	if runs := leaf.inline.append(replaced); len(runs) > 0 {
		events = append(events, appendInlineEvent(leaf.id, runs))
	}
	if hardBreak {
		events = append(events, appendInlineEvent(leaf.id, leaf.inline.append("\n")))
	}
	return events
}

// appendInlineRaw feeds a line fragment straight through the block's
// replacer and inline parser with no soft-break prefix and no trailing-space
// trimming, unlike appendInlineLine. It's used only when trimOversizedLineBuf
// forces an early flush mid-line, where the fragment boundary is an
// arbitrary byte offset rather than an actual end of line.
func (t *Tokenizer) appendInlineRaw(leaf *openBlock, text string) []BlockEvent {
	var events []BlockEvent
	replaced := leaf.repl.append(text)
	if runs := leaf.inline.append(replaced); len(runs) > 0 {
		events = append(events, appendInlineEvent(leaf.id, runs))
	}
	return events
}

// parseStandaloneInline fully resolves a bounded string (a table cell)
// through a scratch replacer and inline parser, since cells never span
// lines.
func (t *Tokenizer) parseStandaloneInline(s string) InlineCell {
	r := newReplacer(t.cfg)
	p := newInlineParser(t.cfg)
	runs := p.append(r.append(s))
	runs = append(runs, p.finish()...)
	if tail := r.finish(); tail != "" {
		runs = append(runs, p.append(tail)...)
		runs = append(runs, p.finish()...)
	}
	return runs
}

func stripFenceIndent(line string, indent int) string {
	i, n := 0, 0
	for i < len(line) && n < indent && line[i] == ' ' {
		i++
		n++
	}
	return line[i:]
}

// looksLikeNewBlock reports whether s matches any explicit block opener,
// used to decide lazy continuation and setext-vs-paragraph ambiguity
// without mutating tokenizer state.
func looksLikeNewBlock(s string) bool {
	if isBlankLine(s) {
		return true
	}
	if _, ok := stripBlockquoteMarker(s); ok {
		return true
	}
	if lvl, _ := atxHeadingLevel(s); lvl > 0 {
		return true
	}
	if isThematicBreak(s) {
		return true
	}
	if _, ok := parseFence(s); ok {
		return true
	}
	if _, _, ok := parseBracketMathOpen(s); ok {
		return true
	}
	if _, _, _, ok := unorderedMarker(s); ok {
		return true
	}
	if _, _, _, ok := orderedMarker(s); ok {
		return true
	}
	if _, _, ok := footnoteDefinitionMarker(s); ok {
		return true
	}
	if _, ok := opaqueFenceMarker(s); ok {
		return true
	}
	return false
}

// --- stack push/pop helpers ----------------------------------------------

func (t *Tokenizer) push(b *openBlock) BlockEvent {
	if len(t.stack) > 0 {
		top := t.stack[len(t.stack)-1]
		b.parentID = top.id
		b.hasParent = true
		b.depth = top.depth + 1
	}
	b.id = t.allocID()
	t.stack = append(t.stack, b)
	return startEvent(b.id, b.kind)
}

func (t *Tokenizer) popTop() []BlockEvent {
	debugAssert(len(t.stack) > 0, "popTop called with an empty block stack")
	n := len(t.stack) - 1
	b := t.stack[n]
	t.stack = t.stack[:n]

	var events []BlockEvent
	if b.repl != nil && b.inline != nil {
		if tail := b.repl.finish(); tail != "" {
			if more := b.inline.append(tail); len(more) > 0 {
				events = append(events, appendInlineEvent(b.id, more))
			}
		}
	}
	if b.inline != nil {
		if final := b.inline.finish(); len(final) > 0 {
			events = append(events, appendInlineEvent(b.id, final))
		}
	}
	events = append(events, blockEndEvent(b.id))
	return events
}

func (t *Tokenizer) closeAll() []BlockEvent {
	var events []BlockEvent
	for len(t.stack) > 0 {
		events = append(events, t.popTop()...)
	}
	return events
}

func (t *Tokenizer) openContainer(ct containerType) []BlockEvent {
	b := &openBlock{containerType: ct, kind: BlockKind{Tag: KindBlockquote}}
	return []BlockEvent{t.push(b)}
}

func (t *Tokenizer) openListItem(ordered bool, idx int, task *TaskState, markerWidth int) []BlockEvent {
	b := &openBlock{
		containerType: containerList,
		contentIndent: markerWidth,
		kind:          BlockKind{Tag: KindListItem, ListOrdered: ordered, ListIndex: idx, ListTask: task},
		inline:        newInlineParser(t.cfg),
		repl:          newReplacer(t.cfg),
	}
	return []BlockEvent{t.push(b)}
}

func (t *Tokenizer) openLeaf(kind BlockKind) []BlockEvent {
	b := &openBlock{kind: kind, inline: newInlineParser(t.cfg), repl: newReplacer(t.cfg)}
	return []BlockEvent{t.push(b)}
}

func (t *Tokenizer) openFencedCode(fi fenceInfo) []BlockEvent {
	b := &openBlock{kind: BlockKind{Tag: KindFencedCode, FencedLanguage: fi.language}, fence: fi}
	return []BlockEvent{t.push(b)}
}

// openMath opens a display-math block. When the opener's closing delimiter
// was already found on the same line, content is appended and the block is
// closed immediately in the same batch of events (spec §4.3's display-math
// same-line-close allowance).
func (t *Tokenizer) openMath(fi fenceInfo, bracket bool, content string, closed bool) []BlockEvent {
	b := &openBlock{kind: BlockKind{Tag: KindMath, MathDisplay: true}, fence: fi, mathBracket: bracket}
	events := []BlockEvent{t.push(b)}
	if content != "" {
		events = append(events, appendMathEvent(b.id, content))
	}
	if closed {
		events = append(events, t.popTop()...)
	}
	return events
}

func (t *Tokenizer) openOpaque(name string) []BlockEvent {
	b := &openBlock{kind: BlockKind{Tag: KindUnknown, FencedLanguage: name}}
	return []BlockEvent{t.push(b)}
}

func (t *Tokenizer) openTable(headerCellsRaw []string, aligns []TableAlignment) []BlockEvent {
	b := &openBlock{kind: BlockKind{Tag: KindTable}}
	startEv := t.push(b)
	cells := make([]InlineCell, len(headerCellsRaw))
	for i, c := range headerCellsRaw {
		cells[i] = t.parseStandaloneInline(c)
	}
	return []BlockEvent{startEv, tableHeaderCandidateEvent(b.id, cells), tableHeaderConfirmedEvent(b.id, aligns)}
}
