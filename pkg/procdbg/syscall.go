package procdbg

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"
)

// registers are the stack and instruction pointers of a thread stopped in
// the kernel.
type registers struct {
	sp uint64
	pc uint64
}

// parseSyscall parses the content of /proc/<pid>/task/<tid>/syscall.
// A thread blocked in a system call reports the call number, six arguments,
// the stack pointer and the program counter; a thread blocked elsewhere
// reports -1 followed by the two pointers; a running thread reports
// "running".
func parseSyscall(data []byte) (registers, error) {
	fields := bytes.Fields(data)
	if len(fields) == 0 {
		return registers{}, ErrBadSyscallFormat
	}
	if string(fields[0]) == "running" {
		return registers{}, ErrThreadRunning
	}

	var sp, pc []byte
	switch {
	case string(fields[0]) == "-1" && len(fields) == 3:
		sp, pc = fields[1], fields[2]
	case len(fields) == 9:
		sp, pc = fields[7], fields[8]
	default:
		return registers{}, errors.Wrapf(ErrBadSyscallFormat, "%d fields", len(fields))
	}

	var (
		regs registers
		err  error
	)
	if regs.sp, err = parseHex(sp); err != nil {
		return registers{}, errors.Wrap(err, "error parsing stack pointer")
	}
	if regs.pc, err = parseHex(pc); err != nil {
		return registers{}, errors.Wrap(err, "error parsing program counter")
	}

	return regs, nil
}

func parseHex(b []byte) (uint64, error) {
	s := string(bytes.TrimPrefix(b, []byte("0x")))
	return strconv.ParseUint(s, 16, 64)
}
