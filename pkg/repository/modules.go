package repository

// ProcessModule describes a module loaded in the target process.
type ProcessModule struct {
	Name string
	Base uint64
	Size uint64
	// Index is the backend's own handle for the module.
	Index uint32
}

// Contains reports whether addr falls inside the module image.
func (m ProcessModule) Contains(addr uint64) bool {
	return addr >= m.Base && addr-m.Base < m.Size
}

// ModuleRepository maps module base addresses to modules.
type ModuleRepository struct {
	s store[ModuleID, ProcessModule]
}

func NewModuleRepository() *ModuleRepository {
	return &ModuleRepository{s: newStore[ModuleID, ProcessModule]()}
}

// Add registers mod under base and returns its id, or the existing id when
// base is already known.
func (r *ModuleRepository) Add(base uint64, mod ProcessModule) ModuleID {
	return r.s.add(base, mod)
}

// ID returns the id stored for base, or NoModule.
func (r *ModuleRepository) ID(base uint64) ModuleID {
	return r.s.id(base)
}

func (r *ModuleRepository) TryGet(id ModuleID) (ProcessModule, bool) {
	return r.s.get(id)
}

func (r *ModuleRepository) Count() int {
	return r.s.count()
}

// Snapshot copies the stored modules in id order.
func (r *ModuleRepository) Snapshot() []ProcessModule {
	return r.s.snapshot()
}
