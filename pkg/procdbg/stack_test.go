package procdbg

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/stackflow/pkg/sampling"
)

func stackOf(words ...uint64) []byte {
	b := make([]byte, len(words)*wordSize)
	for i, w := range words {
		binary.LittleEndian.PutUint64(b[i*wordSize:], w)
	}
	return b
}

func inText(addr uint64) bool {
	return addr >= 0x400000 && addr < 0x500000
}

func ipsOf(frames []sampling.RawStackFrame) []uint64 {
	ips := make([]uint64, 0, len(frames))
	for _, f := range frames {
		ips = append(ips, f.InstructionPointer)
	}
	return ips
}

func TestScanStack(t *testing.T) {
	stack := stackOf(0x7ffd0000, 0x401234, 42, 0x402000, 0, 0x4ffff0)

	frames := scanStack(0x400100, 0x7ffd1000, stack, inText, 10)
	require.Equal(t, []uint64{0x4ffff0, 0x402000, 0x401234, 0x400100}, ipsOf(frames))
}

func TestScanStack_MaxDepth(t *testing.T) {
	stack := stackOf(0x401000, 0x402000, 0x403000)

	frames := scanStack(0x400100, 0x7ffd1000, stack, inText, 2)
	require.Equal(t, []uint64{0x401000, 0x400100}, ipsOf(frames))

	require.Empty(t, scanStack(0x400100, 0x7ffd1000, stack, inText, 0))
}

func TestScanStack_PCOutsideText(t *testing.T) {
	stack := stackOf(0x401000)

	frames := scanStack(0x7f0000000000, 0x7ffd1000, stack, inText, 10)
	require.Equal(t, []uint64{0x401000}, ipsOf(frames))
}

func TestScanStack_Unaligned(t *testing.T) {
	// The stack pointer is 4 bytes past a word boundary.
	stack := append([]byte{0, 0, 0, 0}, stackOf(0x401000)...)

	frames := scanStack(0x400100, 0x7ffd1004, stack, inText, 10)
	require.Equal(t, []uint64{0x401000, 0x400100}, ipsOf(frames))
}
