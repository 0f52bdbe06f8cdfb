package procdbg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSyscall(t *testing.T) {
	tests := []struct {
		name string
		data string
		regs registers
		err  error
	}{
		{
			name: "blocked in syscall",
			data: "202 0xc000080148 0x80 0x0 0x0 0x0 0x0 0x7ffd2a3c1e08 0x46e2a3\n",
			regs: registers{sp: 0x7ffd2a3c1e08, pc: 0x46e2a3},
		},
		{
			name: "blocked outside syscall",
			data: "-1 0x7f3b1c7fdd80 0x7f3b1d2c1a2d\n",
			regs: registers{sp: 0x7f3b1c7fdd80, pc: 0x7f3b1d2c1a2d},
		},
		{
			name: "running",
			data: "running\n",
			err:  ErrThreadRunning,
		},
		{
			name: "empty",
			data: "",
			err:  ErrBadSyscallFormat,
		},
		{
			name: "truncated",
			data: "0 0x1 0x2 0x3",
			err:  ErrBadSyscallFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regs, err := parseSyscall([]byte(tt.data))
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.regs, regs)
		})
	}
}

func TestParseSyscall_BadPointer(t *testing.T) {
	_, err := parseSyscall([]byte("-1 0xzz 0x10"))
	require.Error(t, err)
}
