package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	ingestJobsReceivedTotal  atomic.Uint64
	ingestJobsCompletedTotal atomic.Uint64
	ingestJobsFailedTotal    atomic.Uint64
	ingestJobsSkippedTotal   atomic.Uint64
	ingestJobsDroppedTotal   atomic.Uint64

	ingestDuration = newHistogram([]float64{500, 1000, 2500, 5000, 10000, 30000, 60000, 120000, 300000})
)

// IncIngestJobsReceived increments the received counter.
func IncIngestJobsReceived() {
	ingestJobsReceivedTotal.Add(1)
}

// IncIngestJobsCompleted increments the completed counter.
func IncIngestJobsCompleted() {
	ingestJobsCompletedTotal.Add(1)
}

// IncIngestJobsFailed increments the failed counter.
func IncIngestJobsFailed() {
	ingestJobsFailedTotal.Add(1)
}

// IncIngestJobsSkippedDuplicate increments the duplicate-delivery counter.
func IncIngestJobsSkippedDuplicate() {
	ingestJobsSkippedTotal.Add(1)
}

// IncIngestJobsDropped increments the invalid-payload counter.
func IncIngestJobsDropped() {
	ingestJobsDroppedTotal.Add(1)
}

// ObserveIngestDurationMs records a job duration in milliseconds.
func ObserveIngestDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	ingestDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "ingest_jobs_received_total", "Total ingest jobs received", ingestJobsReceivedTotal.Load())
	writeCounter(&buf, "ingest_jobs_completed_total", "Total ingest jobs completed", ingestJobsCompletedTotal.Load())
	writeCounter(&buf, "ingest_jobs_failed_total", "Total ingest jobs failed", ingestJobsFailedTotal.Load())
	writeCounter(&buf, "ingest_jobs_skipped_duplicate_total", "Total duplicate deliveries skipped", ingestJobsSkippedTotal.Load())
	writeCounter(&buf, "ingest_jobs_dropped_total", "Total invalid payloads dropped", ingestJobsDroppedTotal.Load())
	writeHistogram(&buf, "ingest_job_duration_ms", "Ingest job duration in milliseconds", ingestDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
