// Package process discovers running processes as {PID, Name} pairs.
package process

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	ps "github.com/shirou/gopsutil/v4/process"
)

var ErrProcessNotFound = errors.New("process not found")

// Process identifies a process to attach to. It is immutable once captured.
type Process struct {
	PID  int
	Name string
}

func (p Process) String() string {
	return p.Name + "[" + strconv.Itoa(p.PID) + "]"
}

// List returns the running processes sorted by PID. Processes that exit
// while being listed are skipped.
func List(ctx context.Context) ([]Process, error) {
	procs, err := ps.ProcessesWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error listing processes")
	}

	list := make([]Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		list = append(list, Process{PID: int(p.Pid), Name: name})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].PID < list[j].PID })

	return list, nil
}

// Find returns the lowest-PID process whose name equals name.
func Find(ctx context.Context, name string) (Process, error) {
	list, err := List(ctx)
	if err != nil {
		return Process{}, err
	}
	for _, p := range list {
		if p.Name == name {
			return p, nil
		}
	}

	return Process{}, errors.Wrapf(ErrProcessNotFound, "name %q", name)
}

// Filter returns the processes whose name contains substr.
func Filter(list []Process, substr string) []Process {
	if substr == "" {
		return list
	}
	out := make([]Process, 0)
	for _, p := range list {
		if strings.Contains(p.Name, substr) {
			out = append(out, p)
		}
	}

	return out
}

// Lookup returns the process with the given PID.
func Lookup(ctx context.Context, pid int) (Process, error) {
	p, err := ps.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return Process{}, errors.Wrapf(ErrProcessNotFound, "pid %d", pid)
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return Process{}, errors.Wrapf(err, "error getting name of pid %d", pid)
	}

	return Process{PID: pid, Name: name}, nil
}
