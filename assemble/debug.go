package assemble

import "fmt"

// Debug gates internal consistency assertions. Left false in normal use;
// enabling it turns a caller contract violation (e.g. mutating an id the
// assembler never started) into a panic instead of a silent no-op.
var Debug = false

func debugAssert(cond bool, format string, args ...any) {
	if Debug && !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
