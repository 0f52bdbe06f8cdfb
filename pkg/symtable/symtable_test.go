package symtable_test

import (
	"debug/elf"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/stackflow/internal/testutil"
	"github.com/maxgio92/stackflow/pkg/symtable"
)

func TestLookup(t *testing.T) {
	tab := symtable.NewELFSymTab([]symtable.Symbol{
		{Name: "main", Value: 0x1100, Size: 0x40},
		{Name: "_start", Value: 0x1000, Size: 0x20},
		{Name: "_start_alias", Value: 0x1000, Size: 0x20},
		{Name: "trampoline", Value: 0x1200},
		{Name: "helper", Value: 0x1300, Size: 0x10},
	})
	require.Equal(t, 4, tab.Len())

	tests := []struct {
		name         string
		vaddr        uint64
		symbol       string
		displacement uint64
		err          error
	}{
		{name: "function start", vaddr: 0x1100, symbol: "main"},
		{name: "inside function", vaddr: 0x1118, symbol: "main", displacement: 0x18},
		{name: "first symbol wins on same address", vaddr: 0x1004, symbol: "_start", displacement: 4},
		{name: "sizeless symbol", vaddr: 0x12f0, symbol: "trampoline", displacement: 0xf0},
		{name: "gap after sized symbol", vaddr: 0x1140, err: symtable.ErrSymNotFound},
		{name: "before first symbol", vaddr: 0x10, err: symtable.ErrSymNotFound},
		{name: "after last symbol", vaddr: 0x1310, err: symtable.ErrSymNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, displacement, err := tab.Lookup(tt.vaddr)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.symbol, name)
			require.Equal(t, tt.displacement, displacement)
		})
	}
}

func TestLookup_Empty(t *testing.T) {
	_, _, err := symtable.NewELFSymTab(nil).Lookup(0x1000)
	require.ErrorIs(t, err, symtable.ErrSymTableEmpty)
}

func TestFileOffsetToVirtual(t *testing.T) {
	tab := symtable.NewELFSymTab(nil,
		elf.ProgHeader{Type: elf.PT_LOAD, Off: 0, Vaddr: 0x400000, Filesz: 0x1000},
		elf.ProgHeader{Type: elf.PT_LOAD, Off: 0x1000, Vaddr: 0x401000, Filesz: 0x5000},
	)

	vaddr, ok := tab.FileOffsetToVirtual(0x1234)
	require.True(t, ok)
	require.Equal(t, uint64(0x401234), vaddr)

	_, ok = tab.FileOffsetToVirtual(0x7000)
	require.False(t, ok)
}

func TestLoad(t *testing.T) {
	bin := testutil.BuildFixture(t)

	tab, err := symtable.Load(bin)
	require.NoError(t, err)
	require.Positive(t, tab.Len())

	var found *symtable.Symbol
	for _, s := range tab.Symbols() {
		if s.Name == testutil.FixtureSymbol {
			found = &s
			break
		}
	}
	require.NotNil(t, found)

	name, displacement, err := tab.Lookup(found.Value + 1)
	require.NoError(t, err)
	require.Equal(t, testutil.FixtureSymbol, name)
	require.Equal(t, uint64(1), displacement)
}

func TestLoad_NotELF(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "notelf")
	require.NoError(t, err)
	_, err = f.WriteString("#!/bin/sh\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = symtable.Load(f.Name())
	require.Error(t, err)
}
