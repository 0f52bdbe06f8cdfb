package render

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/maxgio92/stackflow/pkg/repository"
	"github.com/maxgio92/stackflow/pkg/sampling"
)

// Folded prints every thread sample as one folded stack line,
// "tid;outermost;...;innermost 1", the input format of flame graph tools.
type Folded struct {
	session *sampling.Session

	*FoldedOptions
}

func NewFolded(session *sampling.Session, opts ...FoldedOpt) *Folded {
	f := &Folded{
		session: session,
		FoldedOptions: &FoldedOptions{
			writer: os.Stdout,
		},
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

func (f *Folded) Consume(sample sampling.ProcessSample) error {
	w := bufio.NewWriter(f.writer)

	f.session.View(func(symbols *repository.SymbolRepository, modules *repository.ModuleRepository) {
		for _, thread := range sample.Threads {
			if len(thread.Frames) == 0 {
				continue
			}
			var b strings.Builder
			b.WriteString(strconv.FormatUint(uint64(thread.ThreadID), 10))
			for _, frame := range thread.Frames {
				b.WriteByte(';')
				b.WriteString(frameName(frame, symbols, modules))
			}
			b.WriteString(" 1\n")
			_, _ = w.WriteString(b.String())
		}
	})

	return errors.Wrap(w.Flush(), "error writing folded stacks")
}

// frameName names a frame module!symbol, or by its address when it has
// no symbol.
func frameName(frame sampling.StackFrame, symbols *repository.SymbolRepository, modules *repository.ModuleRepository) string {
	sym, ok := symbols.TryGet(frame.Symbol)
	if !ok {
		return "0x" + strconv.FormatUint(frame.InstructionPointer, 16)
	}
	mod, ok := modules.TryGet(sym.Module)
	if !ok {
		return sym.Name
	}

	return mod.Name + "!" + sym.Name
}

type FoldedOptions struct {
	writer io.Writer
}

type FoldedOpt func(*Folded)

func WithFoldedWriter(w io.Writer) FoldedOpt {
	return func(f *Folded) {
		f.writer = w
	}
}
