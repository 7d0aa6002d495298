package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// SetupPrometheus creates a registry with build info, runtime and process
// collectors, plus any extra collectors (e.g. the db pool one).
func SetupPrometheus(extraCollectors ...prometheus.Collector) *prometheus.Registry {
	promRegistry := prometheus.NewRegistry()

	promRegistry.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, c := range extraCollectors {
		promRegistry.MustRegister(c)
	}

	return promRegistry
}
