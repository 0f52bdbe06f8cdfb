package sampling

import (
	"encoding/json"
	"io"
	"time"

	"github.com/maxgio92/stackflow/pkg/repository"
)

// SessionReport summarizes a sampling session.
type SessionReport struct {
	PID      int    `json:"pid"`
	Process  string `json:"process"`
	Passes   uint64 `json:"passes"`
	Symbols  int    `json:"symbols"`
	Modules  int    `json:"modules"`
	Duration string `json:"duration"`
}

type SessionReportOption func(*SessionReport)

func NewSessionReport(opts ...SessionReportOption) *SessionReport {
	report := new(SessionReport)
	for _, opt := range opts {
		opt(report)
	}

	return report
}

// WithReportSession fills process identity and repository sizes from s.
func WithReportSession(s *Session) SessionReportOption {
	return func(r *SessionReport) {
		r.PID = s.Process().PID
		r.Process = s.Process().Name
		s.View(func(symbols *repository.SymbolRepository, modules *repository.ModuleRepository) {
			r.Symbols = symbols.Count()
			r.Modules = modules.Count()
		})
	}
}

func WithReportPasses(passes uint64) SessionReportOption {
	return func(r *SessionReport) {
		r.Passes = passes
	}
}

func WithReportDuration(d time.Duration) SessionReportOption {
	return func(r *SessionReport) {
		r.Duration = d.Round(time.Millisecond).String()
	}
}

func (r *SessionReport) WriteReport(w io.Writer) error {
	encoder := json.NewEncoder(w)
	return encoder.Encode(r)
}
