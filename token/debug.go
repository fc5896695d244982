package token

import "fmt"

// Debug enables internal invariant checks (currently: closing a block when
// the open-block stack is empty) that indicate a tokenizer bug rather than
// malformed user input. Per spec §7 these never surface as errors to callers; with
// Debug off they are silently ignored, matching "ignored in release builds."
var Debug = false

func debugAssert(cond bool, format string, args ...any) {
	if Debug && !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
