package doctor

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteMetrics writes the report in the Prometheus text format to path,
// for node_exporter's textfile collector. The file is replaced atomically.
func WriteMetrics(path string, r *Report) error {
	registry := prometheus.NewRegistry()

	checkPassed := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ghmcp_check_passed",
			Help: "Whether a diagnostic check passed (1) or failed (0).",
		},
		[]string{"check", "kind"},
	)
	checksTotal := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ghmcp_checks_total",
		Help: "Number of diagnostic checks run.",
	})
	checksPassed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ghmcp_checks_passed",
		Help: "Number of diagnostic checks that passed.",
	})
	registry.MustRegister(checkPassed, checksTotal, checksPassed)

	for _, c := range r.Results {
		v := 0.0
		if c.Passed {
			v = 1
		}
		checkPassed.WithLabelValues(c.Name, string(c.Kind)).Set(v)
	}
	checksTotal.Set(float64(len(r.Results)))
	checksPassed.Set(float64(r.PassedCount()))

	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
