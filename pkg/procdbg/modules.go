package procdbg

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/procfs"
)

// mapping is a file-backed memory mapping of a module.
type mapping struct {
	start  uint64
	end    uint64
	offset uint64
	exec   bool
}

// module groups the mappings of one file. Its base is the lowest mapping
// start, which is where the file is loaded.
type module struct {
	path     string
	index    uint32
	base     uint64
	end      uint64
	mappings []mapping
}

func (m *module) name() string {
	return filepath.Base(m.path)
}

func (m *module) size() uint64 {
	return m.end - m.base
}

// fileOffset translates addr to an offset in the module file.
func (m *module) fileOffset(addr uint64) (uint64, bool) {
	for _, mp := range m.mappings {
		if addr >= mp.start && addr < mp.end {
			return addr - mp.start + mp.offset, true
		}
	}

	return 0, false
}

// moduleTable indexes the executable modules of a process. Module indexes
// follow discovery order and are kept across updates.
type moduleTable struct {
	modules []*module
	byPath  map[string]*module
	text    []mapping
}

func newModuleTable() *moduleTable {
	return &moduleTable{
		byPath: make(map[string]*module),
	}
}

// update replaces the mappings with maps. Modules seen before keep their
// index, new ones are appended, unmapped ones are kept so their indexes
// stay valid.
func (t *moduleTable) update(maps []*procfs.ProcMap) {
	grouped := make(map[string][]mapping)
	var order []string
	for _, pm := range maps {
		if !isFileBacked(pm.Pathname) {
			continue
		}
		mp := mapping{
			start:  uint64(pm.StartAddr),
			end:    uint64(pm.EndAddr),
			offset: uint64(pm.Offset),
			exec:   pm.Perms != nil && pm.Perms.Execute,
		}
		if _, ok := grouped[pm.Pathname]; !ok {
			order = append(order, pm.Pathname)
		}
		grouped[pm.Pathname] = append(grouped[pm.Pathname], mp)
	}

	for _, m := range t.modules {
		m.mappings = nil
	}
	t.text = t.text[:0]
	for _, path := range order {
		mappings := grouped[path]
		if !hasExec(mappings) {
			continue
		}

		m, ok := t.byPath[path]
		if !ok {
			m = &module{path: path, index: uint32(len(t.modules))}
			t.modules = append(t.modules, m)
			t.byPath[path] = m
		}
		m.mappings = mappings
		m.base, m.end = mappings[0].start, mappings[0].end
		for _, mp := range mappings {
			m.base = min(m.base, mp.start)
			m.end = max(m.end, mp.end)
			if mp.exec {
				t.text = append(t.text, mp)
			}
		}
	}
	sort.Slice(t.text, func(i, j int) bool {
		return t.text[i].start < t.text[j].start
	})
}

// isText reports whether addr is in an executable mapping.
func (t *moduleTable) isText(addr uint64) bool {
	i := sort.Search(len(t.text), func(i int) bool {
		return t.text[i].end > addr
	})

	return i < len(t.text) && addr >= t.text[i].start
}

// byAddress returns the module whose executable mappings contain addr.
func (t *moduleTable) byAddress(addr uint64) (*module, bool) {
	if !t.isText(addr) {
		return nil, false
	}
	for _, m := range t.modules {
		if addr < m.base || addr >= m.end {
			continue
		}
		if _, ok := m.fileOffset(addr); ok {
			return m, true
		}
	}

	return nil, false
}

func (t *moduleTable) byIndex(index uint32) (*module, bool) {
	if int(index) >= len(t.modules) {
		return nil, false
	}

	return t.modules[index], true
}

// firstText returns the start of the lowest executable mapping.
func (t *moduleTable) firstText() (uint64, bool) {
	if len(t.text) == 0 {
		return 0, false
	}

	return t.text[0].start, true
}

func isFileBacked(pathname string) bool {
	return strings.HasPrefix(pathname, "/") && !strings.HasSuffix(pathname, " (deleted)")
}

func hasExec(mappings []mapping) bool {
	for _, mp := range mappings {
		if mp.exec {
			return true
		}
	}

	return false
}
