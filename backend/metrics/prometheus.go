package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// PrometheusHandler exposes all counters as one metric with an event label.
func PrometheusHandler(m *Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			http.Error(w, "metrics not configured", http.StatusInternalServerError)
			return
		}

		snap := m.Snapshot()
		keys := make([]string, 0, len(snap))
		for k := range snap {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		esc := strings.NewReplacer("\\", "\\\\", "\"", "\\\"")
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = fmt.Fprintln(w, "# HELP signaling_events_total Signaling relay event counters.")
		_, _ = fmt.Fprintln(w, "# TYPE signaling_events_total counter")
		for _, k := range keys {
			_, _ = fmt.Fprintf(w, "signaling_events_total{event=\"%s\"} %d\n", esc.Replace(k), snap[k])
		}
	})
}
