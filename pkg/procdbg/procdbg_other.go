//go:build !linux

package procdbg

import (
	"github.com/maxgio92/stackflow/pkg/sampling"
)

// Factory returns a sampling.BackendFactory that always fails: the debug
// backend needs procfs.
func Factory(...Opt) sampling.BackendFactory {
	return func() (sampling.Debugger, error) {
		return nil, ErrUnsupportedPlatform
	}
}
