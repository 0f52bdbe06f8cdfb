package sampling

import (
	"github.com/maxgio92/stackflow/pkg/repository"
)

// resolveSymbol maps ip to a symbol id, registering the symbol and its
// module on first sight. Failures return NoSymbol and are not cached, so
// the same address is retried on the next pass.
func (c *Client) resolveSymbol(ip uint64, s *Session) repository.SymbolID {
	if id, ok := s.frames[ip]; ok {
		c.metrics.symbolRequests.WithLabelValues(lvMemo).Inc()
		return id
	}

	name, displacement, err := c.symbols.NameByOffset(ip)
	if err != nil {
		c.metrics.symbolRequests.WithLabelValues(lvFailed).Inc()
		return repository.NoSymbol
	}

	// Every address inside a function shares the function start as key.
	start := ip - displacement
	if id := s.symbols.ID(start); !id.IsNone() {
		c.metrics.symbolRequests.WithLabelValues(lvHit).Inc()
		s.frames[ip] = id
		return id
	}

	index, base, err := c.symbols.ModuleByOffset(ip)
	if err != nil {
		c.logger.Debug().Err(err).Uint64("ip", ip).Msg("error resolving module")
		c.metrics.symbolRequests.WithLabelValues(lvFailed).Inc()
		return repository.NoSymbol
	}

	module := s.modules.ID(base)
	if module.IsNone() {
		module = c.addModule(index, base, s.modules)
		if module.IsNone() {
			c.metrics.symbolRequests.WithLabelValues(lvFailed).Inc()
			return repository.NoSymbol
		}
	}

	id := s.symbols.Add(start, repository.Symbol{
		Address: start,
		Name:    name,
		Module:  module,
	})
	s.frames[ip] = id
	c.metrics.symbolRequests.WithLabelValues(lvMiss).Inc()

	return id
}

// addModule registers the module under the base reported by ModuleByOffset,
// the key later lookups use.
func (c *Client) addModule(index uint32, base uint64, modules *repository.ModuleRepository) repository.ModuleID {
	params, err := c.symbols.ModuleParameters(index)
	if err != nil {
		c.logger.Debug().Err(err).Uint32("index", index).Msg("error getting module parameters")
		return repository.NoModule
	}
	c.metrics.modulesAdded.Inc()
	c.logger.Debug().Str("module", params.Name).Uint64("base", params.Base).Uint64("size", params.Size).Msg("module loaded")

	return modules.Add(base, repository.ProcessModule{
		Name:  params.Name,
		Base:  params.Base,
		Size:  params.Size,
		Index: index,
	})
}
