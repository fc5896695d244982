package token

// defaultMaxLookBehind is the per-line buffer cap before the tokenizer trims
// an already-classified prefix. Chosen to match the spec's default.
const defaultMaxLookBehind = 1024

// defaultIdentifierLimit bounds a shortcode identifier's length while the
// replacement engine is in the collecting state (":some_very_long_name").
const defaultIdentifierLimit = 64

// LiteralReplacement is one entry in the replacement engine's literal table,
// e.g. {Pattern: "...", Replacement: "…"}.
type LiteralReplacement struct {
	Pattern     string
	Replacement string
}

// config holds every tunable named in spec §6. It is immutable once a
// Tokenizer is constructed.
type config struct {
	maxLookBehind   int
	literal         []LiteralReplacement
	emoji           map[string]string
	safeInlineTags  map[string]bool
}

func defaultConfig() config {
	return config{
		maxLookBehind: defaultMaxLookBehind,
		safeInlineTags: map[string]bool{
			"br": true, "kbd": true, "sup": true, "sub": true,
		},
	}
}

// Option configures a Tokenizer. Options are applied in order at
// construction time, the same functional-options shape the teacher uses for
// StreamRenderer (internal/ui/streaming/options.go).
type Option func(*config)

// WithMaxLookBehind overrides the per-line look-behind budget (default
// 1024 code units). Values <= 0 are ignored.
func WithMaxLookBehind(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxLookBehind = n
		}
	}
}

// WithLiteralReplacements sets the ordered literal-substitution table for the
// replacement engine (e.g. "..." -> "…"). Later entries matching the
// same prefix still observe longest-match-first at each input position.
func WithLiteralReplacements(table []LiteralReplacement) Option {
	return func(c *config) {
		c.literal = append([]LiteralReplacement(nil), table...)
	}
}

// WithEmojiShortcodes sets the shortcode -> emoji table used by the
// replacement engine's shortcode machine (":smile:" -> "\U0001F604").
func WithEmojiShortcodes(table map[string]string) Option {
	return func(c *config) {
		m := make(map[string]string, len(table))
		for k, v := range table {
			m[k] = v
		}
		c.emoji = m
	}
}

// WithSafeInlineTags restricts the set of HTML tags the inline parser treats
// as safe passthrough. Valid names: "br", "kbd", "sup", "sub". Unlisted
// names are disabled; calling this replaces the default set entirely.
func WithSafeInlineTags(tags ...string) Option {
	return func(c *config) {
		m := make(map[string]bool, len(tags))
		for _, t := range tags {
			m[t] = true
		}
		c.safeInlineTags = m
	}
}
