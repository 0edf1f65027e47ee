package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/envutil"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests   *CounterVec
	apiLatency    *HistogramVec
	reconcileOps  *CounterVec
	reconcileRuns *CounterVec
	flagUpdates   *CounterVec
	sweeps        *CounterVec
	enqueued      *CounterVec
	jobOutcomes   *CounterVec
	fetchLatency  *HistogramVec
	queueDepth    *GaugeVec
	redisUp       *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current is nil when metrics are disabled; every method tolerates a nil receiver.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

// New builds an unregistered registry; Init is the process-wide entry point.
func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("rie_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"rie_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		reconcileOps:  NewCounterVec("rie_reconcile_operations_total", "Association writes by parent type and operation.", []string{"parent_type", "op"}),
		reconcileRuns: NewCounterVec("rie_reconcile_runs_total", "Reconcile runs by parent type and status.", []string{"parent_type", "status"}),
		flagUpdates:   NewCounterVec("rie_flag_updates_total", "onAR/onApprovedAR writes by target type and mode.", []string{"target", "mode"}),
		sweeps:        NewCounterVec("rie_orphan_sweeps_total", "Orphan sweeps by kind and outcome.", []string{"kind", "outcome"}),
		enqueued:      NewCounterVec("rie_jobs_enqueued_total", "Jobs enqueued by type.", []string{"job_type"}),
		jobOutcomes:   NewCounterVec("rie_job_outcomes_total", "Job attempts by type and outcome.", []string{"job_type", "outcome"}),
		fetchLatency: NewHistogramVec(
			"rie_enrichment_fetch_duration_seconds",
			"Metadata fetch latency by status class.",
			[]string{"status_class"},
			[]float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		queueDepth: NewGaugeVec("rie_job_queue_depth", "Job runs by type and status.", []string{"job_type", "status"}),
		redisUp:    NewGaugeVec("rie_redis_up", "Redis wake bus reachability.", []string{"addr"}),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency,
		m.reconcileOps, m.reconcileRuns, m.flagUpdates, m.sweeps,
		m.enqueued, m.jobOutcomes, m.fetchLatency,
		m.queueDepth, m.redisUp,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ObserveReconcile(parentType, status string, created, updated, removed int) {
	if m == nil {
		return
	}
	m.reconcileRuns.Inc(parentType, status)
	m.reconcileOps.Add(float64(created), parentType, "create")
	m.reconcileOps.Add(float64(updated), parentType, "update")
	m.reconcileOps.Add(float64(removed), parentType, "destroy")
}

func (m *Metrics) IncFlagUpdate(target, mode string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.flagUpdates.Add(float64(n), target, mode)
}

func (m *Metrics) IncSweep(kind string, deleted bool) {
	if m == nil {
		return
	}
	outcome := "kept"
	if deleted {
		outcome = "deleted"
	}
	m.sweeps.Inc(kind, outcome)
}

func (m *Metrics) IncEnqueued(jobType string) {
	if m == nil {
		return
	}
	m.enqueued.Inc(jobType)
}

func (m *Metrics) IncJobOutcome(jobType, outcome string) {
	if m == nil {
		return
	}
	m.jobOutcomes.Inc(jobType, outcome)
}

func (m *Metrics) ObserveFetch(statusCode int, dur time.Duration) {
	if m == nil {
		return
	}
	m.fetchLatency.Observe(dur.Seconds(), statusClass(statusCode))
}

// QueueCounter reports job_run counts by status for one job type.
type QueueCounter interface {
	CountByStatus(dbc dbctx.Context, jobType string) (map[string]int64, error)
}

func (m *Metrics) StartJobQueueCollector(ctx context.Context, log *logger.Logger, counter QueueCounter, jobTypes []string) {
	if m == nil || counter == nil {
		return
	}
	interval := envutil.Duration("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
	statuses := []string{"queued", "running", "succeeded", "failed", "dead"}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.collectQueueDepth(ctx, log, counter, jobTypes, statuses)
			}
		}
	}()
}

func (m *Metrics) collectQueueDepth(ctx context.Context, log *logger.Logger, counter QueueCounter, jobTypes, statuses []string) {
	for _, jt := range jobTypes {
		counts, err := counter.CountByStatus(dbctx.Context{Ctx: ctx}, jt)
		if err != nil {
			if log != nil {
				log.Warn("metrics: job queue depth query failed", "job_type", jt, "error", err)
			}
			continue
		}
		for _, s := range statuses {
			m.queueDepth.Set(float64(counts[s]), jt, s)
		}
	}
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	interval := envutil.Duration("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return
			case <-ticker.C:
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0, addr)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1, addr)
			}
		}
	}()
}

func statusClass(code int) string {
	switch {
	case code <= 0:
		return "error"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
