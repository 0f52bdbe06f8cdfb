package procdbg

import (
	"debug/elf"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/stackflow/pkg/symtable"
)

func TestSymbolCache_Lookup(t *testing.T) {
	cache, err := newSymbolCache(4)
	require.NoError(t, err)

	loads := 0
	cache.load = func(path string) (*symtable.ELFSymTab, error) {
		loads++
		require.Equal(t, "/proc/1/root/usr/lib/libfoo.so", path)
		return symtable.NewELFSymTab([]symtable.Symbol{
			{Name: "_ZN3foo3barEv", Value: 0x1100, Size: 0x80},
			{Name: "plain_c", Value: 0x1200, Size: 0x10},
		}, elf.ProgHeader{Type: elf.PT_LOAD, Off: 0x1000, Vaddr: 0x1000, Filesz: 0x1000}), nil
	}

	m := &module{
		path: "/usr/lib/libfoo.so",
		base: 0x7f0000000000,
		end:  0x7f0000002000,
		mappings: []mapping{
			{start: 0x7f0000000000, end: 0x7f0000001000, offset: 0},
			{start: 0x7f0000001000, end: 0x7f0000002000, offset: 0x1000, exec: true},
		},
	}

	name, displacement, err := cache.lookup("/proc/1/root/usr/lib/libfoo.so", m, 0x7f0000001108)
	require.NoError(t, err)
	require.Equal(t, "foo::bar", name)
	require.Equal(t, uint64(8), displacement)

	name, displacement, err = cache.lookup("/proc/1/root/usr/lib/libfoo.so", m, 0x7f0000001200)
	require.NoError(t, err)
	require.Equal(t, "plain_c", name)
	require.Equal(t, uint64(0), displacement)
	require.Equal(t, 1, loads)

	_, _, err = cache.lookup("/proc/1/root/usr/lib/libfoo.so", m, 0x7f0000001300)
	require.ErrorIs(t, err, symtable.ErrSymNotFound)

	_, _, err = cache.lookup("/proc/1/root/usr/lib/libfoo.so", m, 0x7f0000003000)
	require.ErrorIs(t, err, ErrAddressNotMapped)
}

func TestSymbolCache_LoadFailureNotCached(t *testing.T) {
	cache, err := newSymbolCache(4)
	require.NoError(t, err)

	errLoad := errors.New("permission denied")
	loads := 0
	cache.load = func(string) (*symtable.ELFSymTab, error) {
		loads++
		return nil, errLoad
	}
	m := &module{path: "/bin/x", mappings: []mapping{{start: 0x1000, end: 0x2000, exec: true}}}

	_, _, err = cache.lookup("/bin/x", m, 0x1010)
	require.ErrorIs(t, err, errLoad)
	_, _, err = cache.lookup("/bin/x", m, 0x1010)
	require.ErrorIs(t, err, errLoad)
	require.Equal(t, 2, loads)
}
