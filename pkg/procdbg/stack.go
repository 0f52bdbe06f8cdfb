package procdbg

import (
	"encoding/binary"

	"github.com/maxgio92/stackflow/pkg/sampling"
)

const wordSize = 8

// scanStack walks the stack memory read at sp looking for words that point
// into executable mappings, as return addresses do. The program counter is
// the innermost frame. Frames are returned outermost first, at most
// maxDepth of them.
func scanStack(pc, sp uint64, stack []byte, isText func(uint64) bool, maxDepth int) []sampling.RawStackFrame {
	if maxDepth <= 0 {
		return nil
	}

	ips := make([]uint64, 0, 16)
	if isText(pc) {
		ips = append(ips, pc)
	}

	// Words are read at their natural alignment.
	start := int((wordSize - sp%wordSize) % wordSize)
	for off := start; off+wordSize <= len(stack) && len(ips) < maxDepth; off += wordSize {
		word := binary.LittleEndian.Uint64(stack[off : off+wordSize])
		if isText(word) {
			ips = append(ips, word)
		}
	}

	frames := make([]sampling.RawStackFrame, len(ips))
	for i, ip := range ips {
		frames[len(ips)-1-i] = sampling.RawStackFrame{InstructionPointer: ip}
	}

	return frames
}
