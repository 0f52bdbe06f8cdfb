package sampling

import (
	"sync"

	"github.com/maxgio92/stackflow/pkg/process"
	"github.com/maxgio92/stackflow/pkg/repository"
)

// Session is the sampling context: the target process and the symbol and
// module caches shared by everything that resolves addresses for it.
//
// The repositories have a single writer, the sampling goroutine, which
// holds the session lock while exporting a pass. Other goroutines read
// through View.
type Session struct {
	mu sync.RWMutex

	process process.Process
	symbols *repository.SymbolRepository
	modules *repository.ModuleRepository

	// frames memoizes successful resolutions by instruction pointer.
	frames map[uint64]repository.SymbolID
}

func NewSession(p process.Process) *Session {
	return &Session{
		process: p,
		symbols: repository.NewSymbolRepository(),
		modules: repository.NewModuleRepository(),
		frames:  make(map[uint64]repository.SymbolID),
	}
}

func (s *Session) Process() process.Process {
	return s.process
}

// Symbols returns the live symbol repository. Only the sampling goroutine
// may use it without View.
func (s *Session) Symbols() *repository.SymbolRepository {
	return s.symbols
}

// Modules returns the live module repository. Only the sampling goroutine
// may use it without View.
func (s *Session) Modules() *repository.ModuleRepository {
	return s.modules
}

// View runs fn with read access to the repositories, excluding concurrent
// exports. fn must not retain or mutate them.
func (s *Session) View(fn func(symbols *repository.SymbolRepository, modules *repository.ModuleRepository)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fn(s.symbols, s.modules)
}
