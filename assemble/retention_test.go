package assemble

import (
	"testing"

	"github.com/inkstream/mdstream/token"
)

func TestRetentionTrackerBlockCap(t *testing.T) {
	rt := newRetentionTracker(2, 0)
	rt.onBlockClosed(1, 10)
	if evicted := rt.evict(); len(evicted) != 0 {
		t.Fatalf("expected no eviction at cap, got %v", evicted)
	}
	rt.onBlockClosed(2, 10)
	if evicted := rt.evict(); len(evicted) != 0 {
		t.Fatalf("expected no eviction exactly at cap, got %v", evicted)
	}
	rt.onBlockClosed(3, 10)
	evicted := rt.evict()
	if len(evicted) != 1 || evicted[0] != token.BlockID(1) {
		t.Fatalf("expected the oldest block (1) evicted, got %v", evicted)
	}
}

func TestRetentionTrackerByteCap(t *testing.T) {
	rt := newRetentionTracker(0, 25)
	rt.onBlockClosed(1, 10)
	rt.onBlockClosed(2, 10)
	if evicted := rt.evict(); len(evicted) != 0 {
		t.Fatalf("expected no eviction under the byte cap, got %v", evicted)
	}
	rt.onBlockClosed(3, 10)
	evicted := rt.evict()
	if len(evicted) != 1 || evicted[0] != token.BlockID(1) {
		t.Fatalf("expected the oldest block evicted once over the byte cap, got %v", evicted)
	}
}

func TestRetentionTrackerDisabledWhenBothCapsZero(t *testing.T) {
	rt := newRetentionTracker(0, 0)
	for i := 1; i <= 50; i++ {
		rt.onBlockClosed(token.BlockID(i), 1000)
	}
	if evicted := rt.evict(); len(evicted) != 0 {
		t.Fatalf("expected unlimited retention with both caps disabled, got %d evicted", len(evicted))
	}
}

func TestRetentionTrackerEvictsMultipleAtOnce(t *testing.T) {
	rt := newRetentionTracker(1, 0)
	rt.onBlockClosed(1, 1)
	rt.onBlockClosed(2, 1)
	rt.onBlockClosed(3, 1)
	evicted := rt.evict()
	want := []token.BlockID{1, 2}
	if len(evicted) != len(want) {
		t.Fatalf("got %v want %v", evicted, want)
	}
	for i := range want {
		if evicted[i] != want[i] {
			t.Fatalf("got %v want %v", evicted, want)
		}
	}
}
