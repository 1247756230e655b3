package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	clickhouseRepositoryRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "clickhouse_repository",
		Name:      "operations_total",
		Help:      "Count of repository operations.",
	}, []string{"operation", "chain", "status"})
	clickhouseRepositoryRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "clickhouse_repository",
		Name:      "operation_duration_seconds",
		Help:      "Duration of repository operations.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30},
	}, []string{"operation", "chain", "status"})
	clickhouseRepositoryRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "clickhouse_repository",
		Name:      "inserted_rows_total",
		Help:      "Count of transaction rows sent to ClickHouse.",
	}, []string{"chain"})
)

// ClickhouseRepository tracks metrics for ClickHouse repository operations.
type ClickhouseRepository struct {
	chain string
}

// NewClickhouseRepository creates a ClickhouseRepository metrics collector.
func NewClickhouseRepository(chain string) *ClickhouseRepository {
	return &ClickhouseRepository{chain: chainLabel(chain)}
}

// Observe records duration and status of a repository operation.
func (m ClickhouseRepository) Observe(operation string, err error, started time.Time) {
	status := statusLabel(err)
	clickhouseRepositoryRequestsTotal.WithLabelValues(operation, m.chain, status).Inc()
	clickhouseRepositoryRequestDuration.WithLabelValues(operation, m.chain, status).Observe(time.Since(started).Seconds())
}

// ObserveInsertedRows counts rows committed by a successful insert.
func (m ClickhouseRepository) ObserveInsertedRows(rows int) {
	clickhouseRepositoryRowsTotal.WithLabelValues(m.chain).Add(float64(rows))
}
