package render_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/stackflow/pkg/process"
	"github.com/maxgio92/stackflow/pkg/render"
	"github.com/maxgio92/stackflow/pkg/repository"
	"github.com/maxgio92/stackflow/pkg/sampling"
)

type testSession struct {
	*sampling.Session
	main, work, helper repository.SymbolID
}

func newTestSession() testSession {
	s := sampling.NewSession(process.Process{PID: 1, Name: "app"})
	app := s.Modules().Add(0x1000, repository.ProcessModule{Name: "app", Base: 0x1000, Size: 0x1000})
	libc := s.Modules().Add(0x9000, repository.ProcessModule{Name: "libc.so.6", Base: 0x9000, Size: 0x1000, Index: 1})

	return testSession{
		Session: s,
		work:    s.Symbols().Add(0x1200, repository.Symbol{Address: 0x1200, Name: "main.work", Module: app}),
		main:    s.Symbols().Add(0x1100, repository.Symbol{Address: 0x1100, Name: "main.main", Module: app}),
		helper:  s.Symbols().Add(0x9100, repository.Symbol{Address: 0x9100, Name: "memcpy", Module: libc}),
	}
}

func TestFolded(t *testing.T) {
	s := newTestSession()
	var buf bytes.Buffer
	f := render.NewFolded(s.Session, render.WithFoldedWriter(&buf))

	err := f.Consume(sampling.ProcessSample{
		Timestamp: time.Now(),
		Threads: []sampling.ThreadSample{
			{ThreadID: 10, Frames: []sampling.StackFrame{
				{InstructionPointer: 0x1104, Symbol: s.main},
				{InstructionPointer: 0x1210, Symbol: s.work},
				{InstructionPointer: 0x9120, Symbol: s.helper},
			}},
			{ThreadID: 11},
			{ThreadID: 12, Frames: []sampling.StackFrame{
				{InstructionPointer: 0x1104, Symbol: s.main},
				{InstructionPointer: 0xdeadbeef, Symbol: repository.NoSymbol},
			}},
		},
	})
	require.NoError(t, err)
	require.Equal(t,
		"10;app!main.main;app!main.work;libc.so.6!memcpy 1\n"+
			"12;app!main.main;0xdeadbeef 1\n",
		buf.String())
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		include  string
		exclude  string
		symbol   string
		included bool
	}{
		{name: "no patterns", symbol: "main.main", included: true},
		{name: "include match", include: "^main\\.", symbol: "main.main", included: true},
		{name: "include miss", include: "^main\\.", symbol: "memcpy", included: false},
		{name: "exclude match", exclude: "^runtime\\.", symbol: "runtime.gcBgMarkWorker", included: false},
		{name: "exclude wins", include: "main", exclude: "work", symbol: "main.work", included: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := render.NewFilter(tt.include, tt.exclude)
			require.NoError(t, err)
			require.Equal(t, tt.included, f.ShouldIncludeSymbol(tt.symbol))
		})
	}

	var nilFilter *render.Filter
	require.True(t, nilFilter.ShouldIncludeSymbol("anything"))

	_, err := render.NewFilter("(", "")
	require.Error(t, err)
	_, err = render.NewFilter("", "[")
	require.Error(t, err)
}

func TestSymbols(t *testing.T) {
	s := newTestSession()

	filter, err := render.NewFilter("^main\\.", "")
	require.NoError(t, err)

	require.Equal(t, []render.SymbolEntry{
		{Address: 0x1100, Module: "app", Name: "main.main"},
		{Address: 0x1200, Module: "app", Name: "main.work"},
	}, render.Symbols(s.Session, filter))

	var buf bytes.Buffer
	require.NoError(t, render.WriteSymbols(&buf, s.Session, nil))
	require.Equal(t,
		"ADDRESS  MODULE     SYMBOL\n"+
			"0x1100   app        main.main\n"+
			"0x1200   app        main.work\n"+
			"0x9100   libc.so.6  memcpy\n",
		buf.String())
}

type countingConsumer struct {
	n   int
	err error
}

func (c *countingConsumer) Consume(sampling.ProcessSample) error {
	c.n++
	return c.err
}

func TestDrain(t *testing.T) {
	q := sampling.NewOutputQueue(4)
	for range 3 {
		require.NoError(t, q.Push(context.Background(), sampling.ProcessSample{}))
	}
	q.Close()

	c := new(countingConsumer)
	require.NoError(t, render.Drain(context.Background(), q, c))
	require.Equal(t, 3, c.n)
}

func TestDrain_ConsumerError(t *testing.T) {
	q := sampling.NewOutputQueue(4)
	require.NoError(t, q.Push(context.Background(), sampling.ProcessSample{}))

	errWrite := errors.New("broken pipe")
	c := &countingConsumer{err: errWrite}
	require.ErrorIs(t, render.Drain(context.Background(), q, c), errWrite)
}

func TestDrain_ContextDone(t *testing.T) {
	q := sampling.NewOutputQueue(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, render.Drain(ctx, q, render.Discard{}), context.Canceled)
}
