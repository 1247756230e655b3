package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	monitorBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "realtime_monitor",
		Name:      "blocks_total",
		Help:      "Count of announced blocks processed.",
	}, []string{"chain", "status"})

	monitorBlockDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "realtime_monitor",
		Name:      "block_duration_seconds",
		Help:      "Duration of fetching and building one block.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"chain", "status"})

	monitorTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "realtime_monitor",
		Name:      "transactions_total",
		Help:      "Count of block transactions by outcome.",
	}, []string{"chain", "outcome"})

	monitorInsertTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "realtime_monitor",
		Name:      "insert_total",
		Help:      "Count of block inserts.",
	}, []string{"chain", "status"})

	monitorInsertDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "realtime_monitor",
		Name:      "insert_duration_seconds",
		Help:      "Duration of block inserts.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"chain", "status"})

	monitorResubscribeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "realtime_monitor",
		Name:      "resubscribe_total",
		Help:      "Count of head subscription restarts.",
	}, []string{"chain"})

	monitorLastBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "blockinsight7000",
		Subsystem: "realtime_monitor",
		Name:      "last_block_number",
		Help:      "Number of the last block handed to the writer.",
	}, []string{"chain"})
)

// RealtimeMonitor tracks metrics for the realtime block monitor.
type RealtimeMonitor struct {
	chain string
}

// NewRealtimeMonitor constructs a RealtimeMonitor.
func NewRealtimeMonitor(chain string) *RealtimeMonitor {
	return &RealtimeMonitor{chain: chainLabel(chain)}
}

// ObserveBlock records one processed block with its transaction accounting.
func (m RealtimeMonitor) ObserveBlock(err error, number uint64, valid, failed, invalid int, started time.Time) {
	status := statusLabel(err)
	monitorBlocksTotal.WithLabelValues(m.chain, status).Inc()
	monitorBlockDuration.WithLabelValues(m.chain, status).Observe(time.Since(started).Seconds())
	if err != nil {
		return
	}
	monitorTransactionsTotal.WithLabelValues(m.chain, "valid").Add(float64(valid))
	monitorTransactionsTotal.WithLabelValues(m.chain, "fetch_failed").Add(float64(failed))
	monitorTransactionsTotal.WithLabelValues(m.chain, "invalid").Add(float64(invalid))
	monitorLastBlock.WithLabelValues(m.chain).Set(float64(number))
}

// ObserveInsert records one block insert.
func (m RealtimeMonitor) ObserveInsert(err error, started time.Time) {
	status := statusLabel(err)
	monitorInsertTotal.WithLabelValues(m.chain, status).Inc()
	monitorInsertDuration.WithLabelValues(m.chain, status).Observe(time.Since(started).Seconds())
}

// ObserveResubscribe counts a head subscription restart.
func (m RealtimeMonitor) ObserveResubscribe() {
	monitorResubscribeTotal.WithLabelValues(m.chain).Inc()
}
