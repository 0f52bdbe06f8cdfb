package symtable

import (
	"debug/elf"
	"sort"

	"github.com/pkg/errors"
)

var (
	ErrSymNotFound   = errors.New("symbol not found")
	ErrSymTableEmpty = errors.New("symtable is empty")
)

// Symbol is a function symbol of an ELF file.
type Symbol struct {
	Name  string
	Value uint64
	Size  uint64
}

// ELFSymTab is one of the possible abstractions around executable
// file symbol tables, for ELF files. Symbols are kept sorted by address.
type ELFSymTab struct {
	symbols []Symbol
	loads   []elf.ProgHeader
}

// NewELFSymTab builds a table from symbols, which do not need to be sorted.
// When several symbols share an address the first one wins.
func NewELFSymTab(symbols []Symbol, loads ...elf.ProgHeader) *ELFSymTab {
	tab := &ELFSymTab{
		symbols: make([]Symbol, 0, len(symbols)),
		loads:   loads,
	}
	sorted := make([]Symbol, len(symbols))
	copy(sorted, symbols)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value < sorted[j].Value
	})
	for _, s := range sorted {
		if n := len(tab.symbols); n > 0 && tab.symbols[n-1].Value == s.Value {
			continue
		}
		tab.symbols = append(tab.symbols, s)
	}

	return tab
}

// Load reads the function symbols of the ELF file at pathname, from both
// the .symtab and .dynsym sections, together with its loadable segments.
func Load(pathname string) (*ELFSymTab, error) {
	file, err := elf.Open(pathname)
	if err != nil {
		return nil, errors.Wrap(err, "error opening ELF file")
	}
	defer file.Close()

	var symbols []Symbol
	for _, read := range []func() ([]elf.Symbol, error){file.Symbols, file.DynamicSymbols} {
		syms, err := read()
		if err != nil {
			if errors.Is(err, elf.ErrNoSymbols) {
				continue
			}
			return nil, errors.Wrap(err, "error reading ELF symtable section")
		}
		for _, s := range syms {
			if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Value == 0 {
				continue
			}
			symbols = append(symbols, Symbol{Name: s.Name, Value: s.Value, Size: s.Size})
		}
	}

	var loads []elf.ProgHeader
	for _, p := range file.Progs {
		if p.Type == elf.PT_LOAD {
			loads = append(loads, p.ProgHeader)
		}
	}

	return NewELFSymTab(symbols, loads...), nil
}

// Lookup returns the name of the function containing the virtual address
// vaddr, and the displacement of vaddr from the function start.
func (e *ELFSymTab) Lookup(vaddr uint64) (string, uint64, error) {
	if len(e.symbols) == 0 {
		return "", 0, ErrSymTableEmpty
	}

	i := sort.Search(len(e.symbols), func(i int) bool {
		return e.symbols[i].Value > vaddr
	}) - 1
	if i < 0 {
		return "", 0, ErrSymNotFound
	}
	s := e.symbols[i]
	// Sizeless symbols extend up to the next one.
	if s.Size > 0 && vaddr >= s.Value+s.Size {
		return "", 0, ErrSymNotFound
	}

	return s.Name, vaddr - s.Value, nil
}

// FileOffsetToVirtual translates an offset in the file into the virtual
// address it is loaded at, according to the PT_LOAD segments.
func (e *ELFSymTab) FileOffsetToVirtual(offset uint64) (uint64, bool) {
	for _, p := range e.loads {
		if offset >= p.Off && offset < p.Off+p.Filesz {
			return p.Vaddr + offset - p.Off, true
		}
	}

	return 0, false
}

func (e *ELFSymTab) Symbols() []Symbol {
	return e.symbols
}

func (e *ELFSymTab) Len() int {
	return len(e.symbols)
}
