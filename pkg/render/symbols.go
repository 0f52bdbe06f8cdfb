package render

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/maxgio92/stackflow/pkg/repository"
	"github.com/maxgio92/stackflow/pkg/sampling"
)

// SymbolEntry is a symbol of the session with its module name.
type SymbolEntry struct {
	Address uint64
	Module  string
	Name    string
}

// Symbols returns the symbols of session accepted by filter, sorted by
// address.
func Symbols(session *sampling.Session, filter *Filter) []SymbolEntry {
	var entries []SymbolEntry
	session.View(func(symbols *repository.SymbolRepository, modules *repository.ModuleRepository) {
		for _, sym := range symbols.Snapshot() {
			if !filter.ShouldIncludeSymbol(sym.Name) {
				continue
			}
			entry := SymbolEntry{Address: sym.Address, Name: sym.Name}
			if mod, ok := modules.TryGet(sym.Module); ok {
				entry.Module = mod.Name
			}
			entries = append(entries, entry)
		}
	})
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Address < entries[j].Address
	})

	return entries
}

// WriteSymbols prints the symbols of session accepted by filter as a table.
func WriteSymbols(w io.Writer, session *sampling.Session, filter *Filter) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tMODULE\tSYMBOL")
	for _, e := range Symbols(session, filter) {
		fmt.Fprintf(tw, "0x%x\t%s\t%s\n", e.Address, e.Module, e.Name)
	}

	return errors.Wrap(tw.Flush(), "error writing symbols")
}
