package sampling

import "github.com/prometheus/client_golang/prometheus"

func SymbolRequests(m *Metrics, result string) prometheus.Counter {
	return m.symbolRequests.WithLabelValues(result)
}

func Passes(m *Metrics) prometheus.Counter {
	return m.passes
}

func CaptureFailures(m *Metrics) prometheus.Counter {
	return m.captureFailures
}
