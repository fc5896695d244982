package assemble

import (
	"container/list"

	"github.com/inkstream/mdstream/token"
)

// retentionTracker decides which closed root-level blocks to evict once a
// count or byte cap is exceeded. It is the teacher's BlockCache
// (internal/render/chat/cache.go) adapted from an LRU-by-access-order cache
// to a FIFO-by-close-order eviction queue: entries are only ever pushed at
// the back (a block closes) and popped from the front (the oldest closed
// root block), since retention evicts the leading prefix of the document,
// never an arbitrary middle entry.
type retentionTracker struct {
	maxBlocks int
	maxBytes  int
	entries   *list.List
	totalSize int
}

type retentionEntry struct {
	id   token.BlockID
	size int
}

func newRetentionTracker(maxBlocks, maxBytes int) *retentionTracker {
	return &retentionTracker{maxBlocks: maxBlocks, maxBytes: maxBytes, entries: list.New()}
}

// onBlockClosed registers a newly-closed root block and its approximate
// textual size (including its whole subtree).
func (t *retentionTracker) onBlockClosed(id token.BlockID, size int) {
	t.entries.PushBack(retentionEntry{id: id, size: size})
	t.totalSize += size
}

// evict pops entries from the front while either cap is exceeded, returning
// the evicted ids oldest-first.
func (t *retentionTracker) evict() []token.BlockID {
	if t.maxBlocks <= 0 && t.maxBytes <= 0 {
		return nil
	}
	var evicted []token.BlockID
	for {
		n := t.entries.Len()
		if n == 0 {
			break
		}
		overBlocks := t.maxBlocks > 0 && n > t.maxBlocks
		overBytes := t.maxBytes > 0 && t.totalSize > t.maxBytes
		if !overBlocks && !overBytes {
			break
		}
		front := t.entries.Front()
		e := front.Value.(retentionEntry)
		t.entries.Remove(front)
		t.totalSize -= e.size
		evicted = append(evicted, e.id)
	}
	return evicted
}
