// Package metrics holds the workflow counters. They live on a private registry and are
// flushed to a Prometheus text file when a command finishes.
package metrics

import (
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Registry = prometheus.NewRegistry()

	FilesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restituiri_files_processed_total",
			Help: "Case pages processed, by outcome.",
		},
		[]string{"status"},
	)
	RowsStored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "restituiri_case_rows_stored_total",
			Help: "Case rows written to the progress store.",
		},
	)
	GeocodeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restituiri_geocode_total",
			Help: "Geocoding attempts, by status.",
		},
		[]string{"status"},
	)
	ActDownloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restituiri_act_downloads_total",
			Help: "Act PDF download attempts, by status.",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(FilesProcessed)
	Registry.MustRegister(RowsStored)
	Registry.MustRegister(GeocodeRequests)
	Registry.MustRegister(ActDownloads)
}

// WriteTextfile dumps the registry in text format; an empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, Registry)
}
