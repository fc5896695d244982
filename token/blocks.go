package token

import "strings"

// This file holds the line-level detectors the block state machine
// (tokenizer.go) consults to classify a line, grounded in the teacher's
// internal/ui/streaming/streaming.go detectBlock switch but adapted to the
// block set spec §4.3 names instead of the teacher's render-oriented set.

func isBlankLine(s string) bool {
	return strings.TrimSpace(s) == ""
}

func countLeadingSpaces(s string) int {
	n := 0
	for n < len(s) && (s[n] == ' ' || s[n] == '\t') {
		if s[n] == '\t' {
			n += 4 - (n % 4)
		} else {
			n++
		}
	}
	return n
}

// leadingSpaceWidth returns the visual column width of leading whitespace,
// expanding tabs to the next multiple of 4 (the tab-stop decision recorded
// in DESIGN.md).
func leadingSpaceWidth(s string) (width, byteLen int) {
	col := 0
	i := 0
	for i < len(s) {
		switch s[i] {
		case ' ':
			col++
		case '\t':
			col += 4 - (col % 4)
		default:
			return col, i
		}
		i++
	}
	return col, i
}

// stripBlockquoteMarker removes one leading "> " or ">" marker, reporting
// whether one was present and the remainder.
func stripBlockquoteMarker(s string) (rest string, ok bool) {
	w, byteLen := leadingSpaceWidth(s)
	if w >= 4 {
		return s, false
	}
	trimmed := s[byteLen:]
	if len(trimmed) == 0 || trimmed[0] != '>' {
		return s, false
	}
	trimmed = trimmed[1:]
	if len(trimmed) > 0 && trimmed[0] == ' ' {
		trimmed = trimmed[1:]
	}
	return trimmed, true
}

// atxHeadingLevel reports the level (1-6) of an ATX heading line, or 0.
func atxHeadingLevel(s string) (level int, content string) {
	w, byteLen := leadingSpaceWidth(s)
	if w >= 4 {
		return 0, ""
	}
	t := s[byteLen:]
	n := 0
	for n < len(t) && n < 6 && t[n] == '#' {
		n++
	}
	if n == 0 || n > 6 {
		return 0, ""
	}
	rest := t[n:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return 0, ""
	}
	rest = strings.TrimLeft(rest, " \t")
	rest = strings.TrimRight(rest, " \t")
	// Strip an optional closing sequence of '#' characters.
	trimmedClose := strings.TrimRight(rest, "#")
	if trimmedClose != rest {
		if trimmedClose == "" || strings.HasSuffix(trimmedClose, " ") || strings.HasSuffix(trimmedClose, "\t") {
			rest = strings.TrimRight(trimmedClose, " \t")
		}
	}
	return n, rest
}

// isSetextUnderline reports whether s is a valid setext underline
// ("===..." for level 1, "---..." for level 2).
func isSetextUnderline(s string) (level int, ok bool) {
	w, byteLen := leadingSpaceWidth(s)
	if w >= 4 {
		return 0, false
	}
	t := strings.TrimRight(s[byteLen:], " \t")
	if t == "" {
		return 0, false
	}
	c := t[0]
	if c != '=' && c != '-' {
		return 0, false
	}
	for i := 0; i < len(t); i++ {
		if t[i] != c {
			return 0, false
		}
	}
	if c == '=' {
		return 1, true
	}
	return 2, true
}

// isThematicBreak reports whether s is a horizontal rule line: 3+ of the
// same character among '*', '-', '_', optionally space separated.
func isThematicBreak(s string) bool {
	w, byteLen := leadingSpaceWidth(s)
	if w >= 4 {
		return false
	}
	t := s[byteLen:]
	var marker byte
	count := 0
	for i := 0; i < len(t); i++ {
		c := t[i]
		if c == ' ' || c == '\t' {
			continue
		}
		if c != '*' && c != '-' && c != '_' {
			return false
		}
		if marker == 0 {
			marker = c
		} else if c != marker {
			return false
		}
		count++
	}
	return count >= 3
}

// fenceInfo describes a parsed fence opener line.
type fenceInfo struct {
	marker   byte // '`', '~' or '$'
	length   int
	indent   int
	language string
	display  bool // for '$' math fences using '$$'
}

// parseFence recognises a fenced code or math block opener.
func parseFence(s string) (fenceInfo, bool) {
	w, byteLen := leadingSpaceWidth(s)
	if w >= 4 {
		return fenceInfo{}, false
	}
	t := s[byteLen:]
	if t == "" {
		return fenceInfo{}, false
	}
	c := t[0]
	if c != '`' && c != '~' && c != '$' {
		return fenceInfo{}, false
	}
	n := 0
	for n < len(t) && t[n] == c {
		n++
	}
	minLen := 3
	if c == '$' {
		minLen = 2
	}
	if n < minLen {
		return fenceInfo{}, false
	}
	rest := strings.TrimSpace(t[n:])
	if c == '`' && strings.ContainsRune(rest, '`') {
		return fenceInfo{}, false // info string can't contain backticks for backtick fences
	}
	return fenceInfo{marker: c, length: n, indent: w, language: rest, display: c == '$' && n >= 2}, true
}

// sameLineFenceClose checks an opener's same-line trailing text (fenceInfo's
// language/rest field for a '$' fence) for a closing run of length markers at
// the end, per spec §4.3's display-math row ("optionally with content on the
// same line; may close on same line"). If found, content is whatever sat
// between the opener and the closer; closed reports whether a close was seen
// at all (content is the unclosed trailing text otherwise).
func sameLineFenceClose(trailing string, marker byte, length int) (content string, closed bool) {
	t := strings.TrimRight(trailing, " \t")
	n := 0
	for n < len(t) && t[len(t)-1-n] == marker {
		n++
	}
	if n < length {
		return trailing, false
	}
	return strings.TrimSpace(t[:len(t)-n]), true
}

// parseBracketMathOpen recognises a "\[" display-math opener, with optional
// content and a closing "\]" on the same line (the same same-line-close
// allowance spec §4.3 gives "$$").
func parseBracketMathOpen(s string) (content string, closed bool, ok bool) {
	w, byteLen := leadingSpaceWidth(s)
	if w >= 4 {
		return "", false, false
	}
	t := s[byteLen:]
	if !strings.HasPrefix(t, `\[`) {
		return "", false, false
	}
	rest := strings.TrimRight(t[2:], " \t")
	if strings.HasSuffix(rest, `\]`) {
		return strings.TrimSpace(rest[:len(rest)-2]), true, true
	}
	return strings.TrimSpace(rest), false, true
}

// isClosingFence reports whether s closes a fence opened with marker/length.
func isClosingFence(s string, marker byte, length int) bool {
	w, byteLen := leadingSpaceWidth(s)
	if w >= 4 {
		return false
	}
	t := strings.TrimRight(s[byteLen:], " \t")
	n := 0
	for n < len(t) && t[n] == marker {
		n++
	}
	return n >= length && n == len(t)
}

// isTableDelimiterRow reports whether s is a GFM separator row
// ("| --- | :--: |") and, if so, the declared alignments.
func isTableDelimiterRow(s string) ([]TableAlignment, bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil, false
	}
	t = strings.Trim(t, "|")
	cells := strings.Split(t, "|")
	if len(cells) == 0 {
		return nil, false
	}
	aligns := make([]TableAlignment, 0, len(cells))
	for _, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			return nil, false
		}
		left := strings.HasPrefix(cell, ":")
		right := strings.HasSuffix(cell, ":")
		core := strings.Trim(cell, ":")
		if core == "" || strings.Trim(core, "-") != "" {
			return nil, false
		}
		switch {
		case left && right:
			aligns = append(aligns, AlignCenter)
		case left:
			aligns = append(aligns, AlignLeft)
		case right:
			aligns = append(aligns, AlignRight)
		default:
			aligns = append(aligns, AlignNone)
		}
	}
	return aligns, true
}

// isTableRowLine is a lightweight heuristic: a line plausibly part of a
// pipe table contains an unescaped '|'.
func isTableRowLine(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == '|' {
			return true
		}
	}
	return false
}

// splitTableRow splits a pipe-table row into raw cell strings.
func splitTableRow(s string) []string {
	t := strings.TrimSpace(s)
	t = strings.TrimPrefix(t, "|")
	t = strings.TrimSuffix(t, "|")
	var cells []string
	var cur strings.Builder
	for i := 0; i < len(t); i++ {
		c := t[i]
		if c == '\\' && i+1 < len(t) {
			cur.WriteByte(c)
			cur.WriteByte(t[i+1])
			i++
			continue
		}
		if c == '|' {
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	cells = append(cells, strings.TrimSpace(cur.String()))
	return cells
}

// unorderedMarker reports whether s opens an unordered (or task) list item.
func unorderedMarker(s string) (markerWidth int, task *TaskState, content string, ok bool) {
	w, byteLen := leadingSpaceWidth(s)
	if w >= 4 {
		return 0, nil, "", false
	}
	t := s[byteLen:]
	if len(t) == 0 {
		return 0, nil, "", false
	}
	c := t[0]
	if c != '-' && c != '*' && c != '+' {
		return 0, nil, "", false
	}
	if len(t) == 1 {
		return 0, nil, "", false
	}
	if t[1] != ' ' && t[1] != '\t' {
		return 0, nil, "", false
	}
	rest := strings.TrimLeft(t[2:], " \t")
	consumed := len(t) - len(rest)
	if checked, body, isTask := taskPrefix(rest); isTask {
		return byteLen + consumed, &TaskState{Checked: checked}, body, true
	}
	return byteLen + consumed, nil, rest, true
}

func taskPrefix(s string) (checked bool, rest string, ok bool) {
	if len(s) < 3 || s[0] != '[' || s[2] != ']' {
		return false, "", false
	}
	switch s[1] {
	case ' ':
		checked = false
	case 'x', 'X':
		checked = true
	default:
		return false, "", false
	}
	rest = s[3:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return false, "", false
	}
	return checked, strings.TrimLeft(rest, " \t"), true
}

// orderedMarker reports whether s opens an ordered list item.
func orderedMarker(s string) (markerWidth int, index int, content string, ok bool) {
	w, byteLen := leadingSpaceWidth(s)
	if w >= 4 {
		return 0, 0, "", false
	}
	t := s[byteLen:]
	n := 0
	for n < len(t) && n < 9 && t[n] >= '0' && t[n] <= '9' {
		n++
	}
	if n == 0 || n >= len(t) {
		return 0, 0, "", false
	}
	if t[n] != '.' && t[n] != ')' {
		return 0, 0, "", false
	}
	after := t[n+1:]
	if after != "" && after[0] != ' ' && after[0] != '\t' {
		return 0, 0, "", false
	}
	rest := strings.TrimLeft(after, " \t")
	consumed := n + 1 + (len(after) - len(rest))
	idx := 0
	for _, c := range t[:n] {
		idx = idx*10 + int(c-'0')
	}
	return byteLen + consumed, idx, rest, true
}

// footnoteDefinitionMarker reports whether s opens "[^id]: body".
func footnoteDefinitionMarker(s string) (id, body string, ok bool) {
	w, byteLen := leadingSpaceWidth(s)
	if w >= 4 {
		return "", "", false
	}
	t := s[byteLen:]
	if !strings.HasPrefix(t, "[^") {
		return "", "", false
	}
	close := strings.Index(t, "]:")
	if close < 0 {
		return "", "", false
	}
	id = t[2:close]
	if id == "" {
		return "", "", false
	}
	body = strings.TrimLeft(t[close+2:], " \t")
	return id, body, true
}

// opaqueFenceMarker reports whether s opens a "::: name" fallback block.
func opaqueFenceMarker(s string) (name string, ok bool) {
	w, byteLen := leadingSpaceWidth(s)
	if w >= 4 {
		return "", false
	}
	t := s[byteLen:]
	if !strings.HasPrefix(t, ":::") {
		return "", false
	}
	return strings.TrimSpace(t[3:]), true
}

func isOpaqueFenceClose(s string) bool {
	w, byteLen := leadingSpaceWidth(s)
	if w >= 4 {
		return false
	}
	return strings.TrimSpace(s[byteLen:]) == ":::"
}
