package assemble

// defaultRetentionBlocks caps the number of closed root-level blocks kept
// before the oldest are discarded, matching the teacher's BlockCache default
// size (internal/render/chat/cache.go NewBlockCache).
const defaultRetentionBlocks = 100

// config holds every tunable named in spec §6 for the assembler side.
type config struct {
	retentionBlocks int
	retentionBytes  int
}

func defaultConfig() config {
	return config{retentionBlocks: defaultRetentionBlocks}
}

// Option configures an Assembler, the same functional-options shape
// token.Option uses on the tokenizer side.
type Option func(*config)

// WithRetentionBlocks caps the number of closed root-level blocks retained.
// n <= 0 disables the block-count cap (unlimited).
func WithRetentionBlocks(n int) Option {
	return func(c *config) { c.retentionBlocks = n }
}

// WithRetentionBytes caps the combined approximate textual size of closed
// root-level blocks retained. n <= 0 disables the byte cap (unlimited).
func WithRetentionBytes(n int) Option {
	return func(c *config) { c.retentionBytes = n }
}
