//go:build linux

package procdbg

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"github.com/maxgio92/stackflow/pkg/sampling"
)

// Debugger is a non-invasive debug session over procfs. The target is
// never stopped: stacks are captured from threads blocked in the kernel
// and read with process_vm_readv.
type Debugger struct {
	fs      procfs.FS
	pid     int
	modules *moduleTable
	symbols *symbolCache

	lastRefresh time.Time

	*Options
}

// New returns a detached debug session.
func New(opts ...Opt) (*Debugger, error) {
	d := &Debugger{Options: defaultOptions()}
	for _, opt := range opts {
		opt(d.Options)
	}
	d.logger = d.logger.With().Str("component", "procdbg").Logger()

	fs, err := procfs.NewFS(d.mountPoint)
	if err != nil {
		return nil, errors.Wrap(err, "error opening procfs")
	}
	d.fs = fs

	symbols, err := newSymbolCache(d.symbolCacheSize)
	if err != nil {
		return nil, err
	}
	d.symbols = symbols

	return d, nil
}

// Factory returns a sampling.BackendFactory creating sessions with opts.
func Factory(opts ...Opt) sampling.BackendFactory {
	return func() (sampling.Debugger, error) {
		return New(opts...)
	}
}

// Attach snapshots the memory mappings of pid.
func (d *Debugger) Attach(_ context.Context, pid int) error {
	proc, err := d.fs.Proc(pid)
	if err != nil {
		return targetError(err, pid)
	}
	maps, err := proc.ProcMaps()
	if err != nil {
		return errors.Wrapf(err, "error reading mappings of process %d", pid)
	}

	d.pid = pid
	d.modules = newModuleTable()
	d.modules.update(maps)
	d.lastRefresh = time.Now()
	d.logger.Debug().Int("pid", pid).Int("modules", len(d.modules.modules)).Msg("mappings loaded")

	return nil
}

// WaitForAttach completes the handshake: the registers of the main thread
// and the memory of the target must be readable. Permission errors and a
// vanished target end the wait immediately.
func (d *Debugger) WaitForAttach(ctx context.Context) error {
	if d.modules == nil {
		return ErrNotAttached
	}
	addr, ok := d.modules.firstText()
	if !ok {
		return errors.Wrapf(ErrModuleNotFound, "process %d has no executable mappings", d.pid)
	}

	expBackOff := backoff.NewExponentialBackOff()
	expBackOff.InitialInterval = 10 * time.Millisecond
	expBackOff.MaxElapsedTime = d.attachBackoff

	return backoff.Retry(func() error {
		if _, err := os.ReadFile(d.syscallPath(d.pid)); err != nil {
			return handshakeError(err)
		}
		word := make([]byte, wordSize)
		if _, err := d.readMemory(addr, word); err != nil {
			return handshakeError(err)
		}
		return nil
	}, backoff.WithContext(expBackOff, ctx))
}

func handshakeError(err error) error {
	if errors.Is(err, os.ErrPermission) || errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, unix.EPERM) || errors.Is(err, unix.ESRCH) {
		return backoff.Permanent(err)
	}

	return err
}

// Detach drops the session state. Nothing in the target has to be undone.
func (d *Debugger) Detach() error {
	if d.modules == nil {
		return ErrNotAttached
	}
	d.modules = nil
	d.symbols.tables.Purge()

	return nil
}

// ThreadIDs lists the threads of the target. It fails with
// sampling.ErrTargetExited once the target has been reaped or is a zombie.
func (d *Debugger) ThreadIDs() ([]uint32, error) {
	if d.modules == nil {
		return nil, ErrNotAttached
	}
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	threads, err := d.fs.AllThreads(d.pid)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, targetError(err, d.pid)
		}
		return nil, errors.Wrapf(err, "error listing threads of process %d", d.pid)
	}

	tids := make([]uint32, 0, len(threads))
	for _, t := range threads {
		tids = append(tids, uint32(t.PID))
	}

	return tids, nil
}

func (d *Debugger) checkAlive() error {
	proc, err := d.fs.Proc(d.pid)
	if err != nil {
		return targetError(err, d.pid)
	}
	stat, err := proc.Stat()
	if err != nil {
		return targetError(err, d.pid)
	}
	switch stat.State {
	case "Z", "X":
		return errors.Wrapf(sampling.ErrTargetExited, "process %d is in state %s", d.pid, stat.State)
	}

	return nil
}

// targetError maps the errors of a vanished process to
// sampling.ErrTargetExited.
func targetError(err error, pid int) error {
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, unix.ESRCH) {
		return errors.Wrapf(sampling.ErrTargetExited, "process %d: %v", pid, err)
	}

	return errors.Wrapf(err, "error finding process %d", pid)
}

// CaptureStack reads the stack of a thread blocked in the kernel. Running
// threads cannot be captured without stopping them and fail with
// ErrThreadRunning.
func (d *Debugger) CaptureStack(tid uint32) ([]sampling.RawStackFrame, error) {
	if d.modules == nil {
		return nil, ErrNotAttached
	}
	data, err := os.ReadFile(d.syscallPath(int(tid)))
	if err != nil {
		return nil, errors.Wrapf(err, "error reading registers of thread %d", tid)
	}
	regs, err := parseSyscall(data)
	if err != nil {
		return nil, errors.Wrapf(err, "thread %d", tid)
	}

	stack := make([]byte, d.stackSize)
	n, err := d.readMemory(regs.sp, stack)
	if n == 0 && err != nil {
		return nil, errors.Wrapf(err, "error reading stack of thread %d", tid)
	}

	return scanStack(regs.pc, regs.sp, stack[:n], d.modules.isText, d.maxDepth), nil
}

func (d *Debugger) NameByOffset(ip uint64) (string, uint64, error) {
	m, err := d.moduleByAddress(ip)
	if err != nil {
		return "", 0, err
	}

	return d.symbols.lookup(d.rootPath(m.path), m, ip)
}

func (d *Debugger) ModuleByOffset(ip uint64) (uint32, uint64, error) {
	m, err := d.moduleByAddress(ip)
	if err != nil {
		return 0, 0, err
	}

	return m.index, m.base, nil
}

func (d *Debugger) ModuleParameters(index uint32) (sampling.ModuleParameters, error) {
	if d.modules == nil {
		return sampling.ModuleParameters{}, ErrNotAttached
	}
	m, ok := d.modules.byIndex(index)
	if !ok {
		return sampling.ModuleParameters{}, errors.Wrapf(ErrModuleNotFound, "index %d", index)
	}

	return sampling.ModuleParameters{
		Name: m.name(),
		Base: m.base,
		Size: m.size(),
	}, nil
}

// moduleByAddress finds the module of addr, reloading the mappings at most
// once per refresh interval to pick up libraries loaded at runtime.
func (d *Debugger) moduleByAddress(addr uint64) (*module, error) {
	if d.modules == nil {
		return nil, ErrNotAttached
	}
	if m, ok := d.modules.byAddress(addr); ok {
		return m, nil
	}
	if time.Since(d.lastRefresh) < d.refreshInterval {
		return nil, errors.Wrapf(ErrAddressNotMapped, "0x%x", addr)
	}

	d.lastRefresh = time.Now()
	if err := d.refresh(); err != nil {
		return nil, err
	}
	if m, ok := d.modules.byAddress(addr); ok {
		return m, nil
	}

	return nil, errors.Wrapf(ErrAddressNotMapped, "0x%x", addr)
}

func (d *Debugger) refresh() error {
	proc, err := d.fs.Proc(d.pid)
	if err != nil {
		return errors.Wrapf(err, "error finding process %d", d.pid)
	}
	maps, err := proc.ProcMaps()
	if err != nil {
		return errors.Wrapf(err, "error reading mappings of process %d", d.pid)
	}
	d.modules.update(maps)
	d.logger.Debug().Int("modules", len(d.modules.modules)).Msg("mappings reloaded")

	return nil
}

func (d *Debugger) readMemory(addr uint64, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	localIov := []unix.Iovec{{Base: &buf[0]}}
	localIov[0].SetLen(len(buf))
	remoteIov := []unix.RemoteIovec{{Base: uintptr(addr), Len: len(buf)}}

	n, err := unix.ProcessVMReadv(d.pid, localIov, remoteIov, 0)
	if err != nil {
		return 0, errors.Wrapf(err, "error reading process %d at 0x%x", d.pid, addr)
	}

	return n, nil
}

func (d *Debugger) syscallPath(tid int) string {
	return filepath.Join(d.mountPoint, strconv.Itoa(d.pid), "task", strconv.Itoa(tid), "syscall")
}

// rootPath resolves path in the mount namespace of the target.
func (d *Debugger) rootPath(path string) string {
	return filepath.Join(d.mountPoint, strconv.Itoa(d.pid), "root", path)
}
