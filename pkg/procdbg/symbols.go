package procdbg

import (
	"github.com/elastic/go-freelru"
	"github.com/ianlancetaylor/demangle"
	"github.com/pkg/errors"

	"github.com/maxgio92/stackflow/internal/utils"
	"github.com/maxgio92/stackflow/pkg/symtable"
)

// symbolCache keeps the symbol tables of the most recently used files.
type symbolCache struct {
	tables *freelru.LRU[string, *symtable.ELFSymTab]
	load   func(path string) (*symtable.ELFSymTab, error)
}

func newSymbolCache(size uint32) (*symbolCache, error) {
	tables, err := freelru.New[string, *symtable.ELFSymTab](size, utils.HashString32)
	if err != nil {
		return nil, errors.Wrap(err, "error creating symbol table cache")
	}

	return &symbolCache{
		tables: tables,
		load:   symtable.Load,
	}, nil
}

func (c *symbolCache) table(path string) (*symtable.ELFSymTab, error) {
	if tab, ok := c.tables.Get(path); ok {
		return tab, nil
	}
	tab, err := c.load(path)
	if err != nil {
		return nil, err
	}
	c.tables.Add(path, tab)

	return tab, nil
}

// lookup resolves addr, loaded from m read through path, to a demangled
// function name and the displacement from the function start.
func (c *symbolCache) lookup(path string, m *module, addr uint64) (string, uint64, error) {
	offset, ok := m.fileOffset(addr)
	if !ok {
		return "", 0, ErrAddressNotMapped
	}
	tab, err := c.table(path)
	if err != nil {
		return "", 0, errors.Wrapf(err, "error loading symbols of %s", m.path)
	}
	vaddr, ok := tab.FileOffsetToVirtual(offset)
	if !ok {
		return "", 0, errors.Wrapf(symtable.ErrSymNotFound, "offset 0x%x of %s is not loadable", offset, m.path)
	}
	name, displacement, err := tab.Lookup(vaddr)
	if err != nil {
		return "", 0, err
	}

	return demangle.Filter(name, demangle.NoParams), displacement, nil
}
