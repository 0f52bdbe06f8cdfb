package render

import (
	"regexp"

	"github.com/pkg/errors"
)

// Filter selects symbols by name.
type Filter struct {
	include *regexp.Regexp
	exclude *regexp.Regexp
}

// NewFilter compiles the include and exclude patterns. Empty patterns are
// ignored.
func NewFilter(include, exclude string) (*Filter, error) {
	f := new(Filter)

	var err error
	if include != "" {
		if f.include, err = regexp.Compile(include); err != nil {
			return nil, errors.Wrap(err, "error compiling include pattern")
		}
	}
	if exclude != "" {
		if f.exclude, err = regexp.Compile(exclude); err != nil {
			return nil, errors.Wrap(err, "error compiling exclude pattern")
		}
	}

	return f, nil
}

// ShouldIncludeSymbol reports whether name passes the filter. Exclusion
// wins over inclusion. A nil filter includes everything.
func (f *Filter) ShouldIncludeSymbol(name string) bool {
	if f == nil {
		return true
	}
	// Exclude symbols that match the exclude pattern.
	if f.exclude != nil && f.exclude.MatchString(name) {
		return false
	}
	// Include only symbols that match the include pattern.
	if f.include != nil {
		return f.include.MatchString(name)
	}

	return true
}
