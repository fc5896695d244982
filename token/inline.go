package token

import (
	"strings"
	"unicode/utf8"
)

// inlineParser resolves inline constructs over a growing text window
// belonging to one open inline-capable block (spec §4.1). append returns
// only fully resolved runs; any suffix containing an unresolved opening
// delimiter is retained internally and either completed by a later append
// or flushed as literal text by finish.
//
// The parser never errors: every malformed construct degrades to literal
// text, and every recognizer shares one contract — tryX(text, i, final)
// returns either a resolved run set and the next scan position, or
// needsMore (only when !final) asking the caller to wait for more input.
type inlineParser struct {
	cfg     config
	pending string
}

func newInlineParser(c config) *inlineParser {
	return &inlineParser{cfg: c}
}

// append feeds text into the parser and returns every run that could be
// unambiguously resolved.
func (p *inlineParser) append(s string) []InlineRun {
	text := p.pending + s
	runs, pending := p.scan(text, false)
	p.pending = pending
	return runs
}

// finish flushes any remaining buffered text, forcing unresolved openers to
// degrade to literal text.
func (p *inlineParser) finish() []InlineRun {
	if p.pending == "" {
		return nil
	}
	text := p.pending
	p.pending = ""
	runs, _ := p.scan(text, true)
	return runs
}

// scan is the shared recognizer loop used by both append (final=false) and
// finish (final=true, guaranteed to return an empty remainder).
func (p *inlineParser) scan(text string, final bool) (runs []InlineRun, pending string) {
	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			runs = append(runs, InlineRun{Text: literal.String()})
			literal.Reset()
		}
	}

	i := 0
	n := len(text)
	for i < n {
		rs, newI, matched, needsMore := p.tryConstructs(text, i, final)
		if needsMore {
			flush()
			return runs, text[i:]
		}
		if matched {
			flush()
			runs = append(runs, rs...)
			i = newI
			continue
		}
		_, w := utf8.DecodeRuneInString(text[i:])
		if w == 0 {
			w = 1
		}
		literal.WriteString(text[i : i+w])
		i += w
	}
	flush()
	return runs, ""
}

// tryConstructs dispatches to the recognizer matching spec §4.1's priority
// order, gated by the trigger byte at i so unrelated bytes never pay for a
// recognizer's scan.
func (p *inlineParser) tryConstructs(text string, i int, final bool) (runs []InlineRun, newI int, matched, needsMore bool) {
	c := text[i]
	switch c {
	case '\\':
		if i+1 < len(text) && text[i+1] == '(' {
			return p.tryMathParen(text, i, final)
		}
		return tryEscape(text, i, final)
	case '`':
		return tryCodeSpan(text, i, final)
	case '!':
		if i+1 < len(text) && text[i+1] == '[' {
			return p.tryImage(text, i, final)
		}
	case '[':
		return p.tryLink(text, i, final)
	case '<':
		return p.tryAngle(text, i, final)
	case '*', '_':
		return p.tryEmphasis(text, i, final)
	case '~':
		if i+1 < len(text) && text[i+1] == '~' {
			return p.tryStrike(text, i, final)
		}
	case '$':
		return p.tryDollarMath(text, i, final)
	case 'h', 'w':
		if hasBareURLPrefix(text, i) {
			return p.tryBareAutolink(text, i, final)
		}
	}
	return nil, i, false, false
}

// --- escapes -----------------------------------------------------------

func isASCIIPunct(c byte) bool {
	switch c {
	case '!', '"', '#', '$', '%', '&', '\'', '(', ')', '*', '+', ',', '-', '.', '/',
		':', ';', '<', '=', '>', '?', '@', '[', '\\', ']', '^', '_', '`', '{', '|', '}', '~':
		return true
	}
	return false
}

func tryEscape(text string, i int, final bool) (runs []InlineRun, newI int, matched, needsMore bool) {
	if i+1 >= len(text) {
		if final {
			return []InlineRun{{Text: "\\"}}, i + 1, true, false
		}
		return nil, i, false, true
	}
	c := text[i+1]
	if isASCIIPunct(c) {
		return []InlineRun{{Text: string(c)}}, i + 2, true, false
	}
	return nil, i, false, false
}

// --- code spans ----------------------------------------------------------

func tryCodeSpan(text string, i int, final bool) (runs []InlineRun, newI int, matched, needsMore bool) {
	j := i
	for j < len(text) && text[j] == '`' {
		j++
	}
	tickLen := j - i

	closeIdx := findBacktickRun(text, j, tickLen)
	if closeIdx == -1 {
		if final {
			return []InlineRun{{Text: text[i:j]}}, j, true, false
		}
		return nil, i, false, true
	}

	content := stripCodeSpanPadding(text[j:closeIdx])
	return []InlineRun{{Text: content, Style: Code}}, closeIdx + tickLen, true, false
}

// findBacktickRun returns the offset of the next run of exactly length
// backticks at or after from, or -1 if none exists in text.
func findBacktickRun(text string, from, length int) int {
	k := from
	for k < len(text) {
		if text[k] != '`' {
			k++
			continue
		}
		start := k
		for k < len(text) && text[k] == '`' {
			k++
		}
		if k-start == length {
			return start
		}
	}
	return -1
}

func stripCodeSpanPadding(s string) string {
	if len(s) >= 2 && s[0] == ' ' && s[len(s)-1] == ' ' && strings.TrimSpace(s) != "" {
		return s[1 : len(s)-1]
	}
	return s
}

// --- links & images --------------------------------------------------------

// scanBracketLabel scans a `[...]` label starting at text[open] == '[',
// honouring backslash escapes. Returns ok=false if the buffer ends before
// the label closes.
func scanBracketLabel(text string, open int) (label string, end int, ok bool) {
	depth := 0
	i := open
	for i < len(text) {
		c := text[i]
		switch {
		case c == '\\' && i+1 < len(text):
			i += 2
			continue
		case c == '[':
			depth++
		case c == ']':
			depth--
			i++
			if depth == 0 {
				return text[open+1 : i-1], i, true
			}
			if depth < 0 {
				return "", 0, false
			}
			continue
		}
		i++
	}
	return "", 0, false
}

// scanParenURL scans a `(url "title")` group starting at text[open] == '(',
// balancing nested parens in the URL. Returns ok=false if unterminated.
func scanParenURL(text string, open int) (url, title string, end int, ok bool) {
	i := open + 1
	depth := 1
	start := i
	for i < len(text) && depth > 0 {
		switch text[i] {
		case '\\':
			if i+1 < len(text) {
				i += 2
				continue
			}
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
		i++
	}
	if depth != 0 {
		return "", "", 0, false
	}
	url, title = splitURLTitle(text[start : end-1])
	return url, title, end, true
}

// splitURLTitle separates a parenthesized link body into its URL and an
// optional double-quoted title following whitespace.
func splitURLTitle(inner string) (url, title string) {
	trimmed := strings.TrimRight(inner, " \t")
	if len(trimmed) >= 2 && trimmed[len(trimmed)-1] == '"' {
		for i := len(trimmed) - 2; i >= 0; i-- {
			if trimmed[i] == '"' && i > 0 && (trimmed[i-1] == ' ' || trimmed[i-1] == '\t') {
				return strings.TrimSpace(trimmed[:i]), trimmed[i+1 : len(trimmed)-1]
			}
		}
	}
	return strings.TrimSpace(inner), ""
}

func (p *inlineParser) tryLink(text string, i int, final bool) (runs []InlineRun, newI int, matched, needsMore bool) {
	label, labelEnd, ok := scanBracketLabel(text, i)
	if !ok {
		if final {
			return []InlineRun{{Text: "["}}, i + 1, true, false
		}
		return nil, i, false, true
	}
	// [^id] footnote reference: a link-style run carrying a "footnote:id"
	// sentinel LinkURL (spec §9 Design Notes), distinct from the bracket-label
	// link path below since it never takes a "(url)" suffix.
	if id, ok := footnoteRefID(label); ok {
		return []InlineRun{{Text: text[i:labelEnd], Style: Link, LinkURL: "footnote:" + id}}, labelEnd, true, false
	}
	if labelEnd >= len(text) {
		if final {
			return []InlineRun{{Text: "["}}, i + 1, true, false
		}
		return nil, i, false, true
	}
	if text[labelEnd] != '(' {
		return []InlineRun{{Text: "["}}, i + 1, true, false
	}
	url, _, parenEnd, ok := scanParenURL(text, labelEnd)
	if !ok {
		if final {
			return []InlineRun{{Text: "["}}, i + 1, true, false
		}
		return nil, i, false, true
	}

	child := newInlineParser(p.cfg)
	labelRuns := append(child.append(label), child.finish()...)
	for idx := range labelRuns {
		labelRuns[idx].Style |= Link
		labelRuns[idx].LinkURL = url
	}
	if len(labelRuns) == 0 {
		labelRuns = []InlineRun{{Style: Link, LinkURL: url}}
	}
	return labelRuns, parenEnd, true, false
}

// footnoteRefID reports whether label (a [...] bracket's inner text) is a
// non-empty "^id" footnote reference, returning id.
func footnoteRefID(label string) (id string, ok bool) {
	if len(label) < 2 || label[0] != '^' {
		return "", false
	}
	return label[1:], true
}

func (p *inlineParser) tryImage(text string, i int, final bool) (runs []InlineRun, newI int, matched, needsMore bool) {
	altStart := i + 1 // position of the '['
	alt, labelEnd, ok := scanBracketLabel(text, altStart)
	if !ok {
		if final {
			return []InlineRun{{Text: "!["}}, i + 2, true, false
		}
		return nil, i, false, true
	}
	if labelEnd >= len(text) {
		if final {
			return []InlineRun{{Text: "!["}}, i + 2, true, false
		}
		return nil, i, false, true
	}
	if text[labelEnd] != '(' {
		return []InlineRun{{Text: "!["}}, i + 2, true, false
	}
	url, title, parenEnd, ok := scanParenURL(text, labelEnd)
	if !ok {
		if final {
			return []InlineRun{{Text: "!["}}, i + 2, true, false
		}
		return nil, i, false, true
	}
	run := InlineRun{
		Text:  alt,
		Style: Image,
		Image: &ImagePayload{Source: url, Title: title},
	}
	return []InlineRun{run}, parenEnd, true, false
}

// --- autolinks & safe HTML ---------------------------------------------

var pairedSafeTags = map[string]Style{
	"kbd": Keyboard,
	"sup": Superscript,
	"sub": Subscript,
}

func (p *inlineParser) tryAngle(text string, i int, final bool) (runs []InlineRun, newI int, matched, needsMore bool) {
	closeIdx := strings.IndexByte(text[i:], '>')
	if closeIdx < 0 {
		if final {
			return nil, i, false, false
		}
		return nil, i, false, true
	}
	closeIdx += i
	tag := text[i : closeIdx+1]
	lower := strings.ToLower(tag)

	if p.cfg.safeInlineTags["br"] && (lower == "<br>" || lower == "<br/>" || lower == "<br />") {
		return []InlineRun{{Text: "\n"}}, closeIdx + 1, true, false
	}

	inner := strings.ToLower(text[i+1 : closeIdx])
	for name, style := range pairedSafeTags {
		if inner != name || !p.cfg.safeInlineTags[name] {
			continue
		}
		closeTag := "</" + name + ">"
		bodyStart := closeIdx + 1
		closeTagIdx := strings.Index(strings.ToLower(text[bodyStart:]), closeTag)
		if closeTagIdx < 0 {
			if final {
				return []InlineRun{{Text: tag}}, bodyStart, true, false
			}
			return nil, i, false, true
		}
		closeTagIdx += bodyStart
		body := text[bodyStart:closeTagIdx]
		child := newInlineParser(p.cfg)
		bodyRuns := append(child.append(body), child.finish()...)
		for idx := range bodyRuns {
			bodyRuns[idx].Style |= style
		}
		if len(bodyRuns) == 0 {
			bodyRuns = []InlineRun{{Style: style}}
		}
		return bodyRuns, closeTagIdx + len(closeTag), true, false
	}

	if isAutolinkScheme(inner) {
		return []InlineRun{{Text: text[i+1 : closeIdx], Style: Link, LinkURL: text[i+1 : closeIdx]}}, closeIdx + 1, true, false
	}

	return nil, i, false, false
}

// isAutolinkScheme reports whether lowered inner content of <...> looks like
// "scheme:nonwhitespace" with no embedded whitespace.
func isAutolinkScheme(inner string) bool {
	colon := strings.IndexByte(inner, ':')
	if colon <= 0 {
		return false
	}
	for _, c := range inner[:colon] {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '+' || c == '.' || c == '-') {
			return false
		}
	}
	if colon+1 >= len(inner) {
		return false
	}
	return !strings.ContainsAny(inner, " \t\n")
}

var bareURLPrefixes = []string{"http://", "https://", "www."}

func hasBareURLPrefix(text string, i int) bool {
	for _, pre := range bareURLPrefixes {
		if strings.HasPrefix(text[i:], pre) {
			return true
		}
	}
	return false
}

// tryBareAutolink recognises a bare http(s):// or www. URL, terminated by
// whitespace or trailing punctuation not balanced by an opener inside it.
func (p *inlineParser) tryBareAutolink(text string, i int, final bool) (runs []InlineRun, newI int, matched, needsMore bool) {
	j := i
	for j < len(text) && !isURLTerminator(text[j]) {
		j++
	}
	if j == len(text) && !final {
		return nil, i, false, true
	}
	end := trimTrailingURLPunct(text[i:j])
	end = i + end
	if end == i {
		return nil, i, false, false
	}
	raw := text[i:end]
	url := raw
	if strings.HasPrefix(raw, "www.") {
		url = "https://" + raw
	}
	return []InlineRun{{Text: raw, Style: Link, LinkURL: url}}, end, true, false
}

func isURLTerminator(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '<' || c == '>'
}

// trimTrailingURLPunct returns the length of s with trailing punctuation in
// .,;:!?) stripped, unless an unbalanced opening paren inside s justifies
// keeping a trailing ')'.
func trimTrailingURLPunct(s string) int {
	n := len(s)
	for n > 0 && strings.IndexByte(".,;:!?)", s[n-1]) >= 0 {
		if s[n-1] == ')' {
			open := strings.Count(s[:n-1], "(")
			closeCount := strings.Count(s[:n-1], ")")
			if open > closeCount {
				break
			}
		}
		n--
	}
	return n
}

// --- emphasis & strikethrough --------------------------------------------

func (p *inlineParser) tryEmphasis(text string, i int, final bool) (runs []InlineRun, newI int, matched, needsMore bool) {
	marker := text[i]
	j := i
	for j < len(text) && text[j] == marker {
		j++
	}
	runLen := j - i
	width := runLen
	if width > 2 {
		width = 2
	}
	delim := text[i : i+width]
	style := Italic
	if width == 2 {
		style = Bold
	}

	if marker == '_' && i > 0 && isWordByte(text[i-1]) {
		return nil, i, false, false
	}
	if j == len(text) && !final {
		// The delimiter run reaches the end of the buffer: more input may
		// lengthen it or supply the byte that decides flanking.
		return nil, i, false, true
	}
	if !isLeftFlanking(text, i, width) {
		return nil, i, false, false
	}

	closeStart, found, needMore := findDelimiterClose(text, i+width, delim, marker == '_')
	if !found {
		if needMore && !final {
			return nil, i, false, true
		}
		return []InlineRun{{Text: delim}}, i + width, true, false
	}

	content := text[i+width : closeStart]
	child := newInlineParser(p.cfg)
	inner := append(child.append(content), child.finish()...)
	for idx := range inner {
		inner[idx].Style |= style
	}
	if len(inner) == 0 {
		inner = []InlineRun{{Style: style}}
	}
	return inner, closeStart + width, true, false
}

func (p *inlineParser) tryStrike(text string, i int, final bool) (runs []InlineRun, newI int, matched, needsMore bool) {
	closeStart, found, needMore := findDelimiterClose(text, i+2, "~~", false)
	if !found {
		if needMore && !final {
			return nil, i, false, true
		}
		return []InlineRun{{Text: "~~"}}, i + 2, true, false
	}
	content := text[i+2 : closeStart]
	child := newInlineParser(p.cfg)
	inner := append(child.append(content), child.finish()...)
	for idx := range inner {
		inner[idx].Style |= Strikethrough
	}
	if len(inner) == 0 {
		inner = []InlineRun{{Style: Strikethrough}}
	}
	return inner, closeStart + 2, true, false
}

// findDelimiterClose scans forward from start for the next occurrence of
// delim that is right-flanking (not preceded by whitespace, and for
// underscore delimiters not followed by a word byte).
func findDelimiterClose(text string, start int, delim string, underscoreWordCheck bool) (closeStart int, found bool, needMore bool) {
	k := start
	for {
		idx := strings.Index(text[k:], delim)
		if idx < 0 {
			return 0, false, true
		}
		pos := k + idx
		precededByNonSpace := pos > start-1 && pos > 0 && !isSpaceByte(text[pos-1])
		if pos == 0 {
			precededByNonSpace = false
		}
		followOK := true
		if underscoreWordCheck {
			after := pos + len(delim)
			if after < len(text) && isWordByte(text[after]) {
				followOK = false
			}
		}
		if precededByNonSpace && followOK {
			return pos, true, false
		}
		k = pos + len(delim)
		if k >= len(text) {
			return 0, false, true
		}
	}
}

func isLeftFlanking(text string, i, width int) bool {
	after := i + width
	if after >= len(text) {
		return false
	}
	return !isSpaceByte(text[after])
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c >= 0x80
}

// --- inline math ---------------------------------------------------------

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (p *inlineParser) tryDollarMath(text string, i int, final bool) (runs []InlineRun, newI int, matched, needsMore bool) {
	if i > 0 && isDigit(text[i-1]) {
		return nil, i, false, false
	}
	k := i + 1
	close := -1
	for k < len(text) {
		if text[k] == '\\' && k+1 < len(text) {
			k += 2
			continue
		}
		if text[k] == '$' {
			close = k
			break
		}
		k++
	}
	if close == -1 {
		if final {
			return nil, i, false, false
		}
		return nil, i, false, true
	}
	if close+1 == len(text) && !final {
		return nil, i, false, true
	}
	if close+1 < len(text) && isDigit(text[close+1]) {
		return nil, i, false, false
	}
	tex := text[i+1 : close]
	return []InlineRun{{Text: tex, Style: Math, Math: &MathPayload{TeX: tex}}}, close + 1, true, false
}

func (p *inlineParser) tryMathParen(text string, i int, final bool) (runs []InlineRun, newI int, matched, needsMore bool) {
	k := i + 2
	for k+1 < len(text) {
		if text[k] == '\\' && text[k+1] == ')' {
			tex := text[i+2 : k]
			return []InlineRun{{Text: tex, Style: Math, Math: &MathPayload{TeX: tex, Display: false}}}, k + 2, true, false
		}
		k++
	}
	if final {
		return tryEscape(text, i, final)
	}
	return nil, i, false, true
}
