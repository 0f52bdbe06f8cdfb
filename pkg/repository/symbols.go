package repository

// Symbol is a resolved function: its start address, display name and the
// module it belongs to.
type Symbol struct {
	Address uint64
	Name    string
	Module  ModuleID
}

// SymbolRepository maps symbol start addresses to symbols.
type SymbolRepository struct {
	s store[SymbolID, Symbol]
}

func NewSymbolRepository() *SymbolRepository {
	return &SymbolRepository{s: newStore[SymbolID, Symbol]()}
}

// Add registers sym under its start address and returns its id. Adding an
// address that is already present returns the existing id and leaves the
// stored symbol untouched.
func (r *SymbolRepository) Add(address uint64, sym Symbol) SymbolID {
	return r.s.add(address, sym)
}

// ID returns the id stored for address, or NoSymbol.
func (r *SymbolRepository) ID(address uint64) SymbolID {
	return r.s.id(address)
}

// TryGet returns the symbol for id. The boolean is false for NoSymbol and
// for ids this repository never issued.
func (r *SymbolRepository) TryGet(id SymbolID) (Symbol, bool) {
	return r.s.get(id)
}

func (r *SymbolRepository) Count() int {
	return r.s.count()
}

// Snapshot copies the stored symbols in id order: element i has id i+1.
func (r *SymbolRepository) Snapshot() []Symbol {
	return r.s.snapshot()
}
