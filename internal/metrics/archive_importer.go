package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	archiveFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "archive_importer",
		Name:      "files_total",
		Help:      "Count of archives imported, by outcome.",
	}, []string{"chain", "status"})

	archiveFileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "archive_importer",
		Name:      "file_duration_seconds",
		Help:      "Duration of importing one archive.",
		Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"chain", "status"})

	archiveRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "archive_importer",
		Name:      "records_total",
		Help:      "Count of archive records inserted.",
	}, []string{"chain"})

	archiveSkippedRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "archive_importer",
		Name:      "skipped_rows_total",
		Help:      "Count of malformed archive rows dropped.",
	}, []string{"chain"})
)

// ArchiveImporter tracks metrics for the batch archive importer.
type ArchiveImporter struct {
	chain string
}

// NewArchiveImporter constructs an ArchiveImporter.
func NewArchiveImporter(chain string) *ArchiveImporter {
	return &ArchiveImporter{chain: chainLabel(chain)}
}

// ObserveFile records the outcome of one archive.
func (m ArchiveImporter) ObserveFile(err error, inserted, skipped int, started time.Time) {
	status := statusLabel(err)
	archiveFilesTotal.WithLabelValues(m.chain, status).Inc()
	archiveFileDuration.WithLabelValues(m.chain, status).Observe(time.Since(started).Seconds())
	if inserted > 0 {
		archiveRecordsTotal.WithLabelValues(m.chain).Add(float64(inserted))
	}
	if skipped > 0 {
		archiveSkippedRowsTotal.WithLabelValues(m.chain).Add(float64(skipped))
	}
}
