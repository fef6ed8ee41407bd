package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Collector struct {
	reg *prometheus.Registry

	EdgesResolved *prometheus.CounterVec // mode
	EdgesSkipped  *prometheus.CounterVec // mode, reason
	CacheLookups  *prometheus.CounterVec // result: hit|miss|corrupt
	OracleErrors  *prometheus.CounterVec // mode
	RailLines     prometheus.Gauge

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	OracleDuration  *prometheus.HistogramVec // mode
	PlanDuration    prometheus.Histogram
	PublishDuration prometheus.Histogram

	AnimationSeconds prometheus.Gauge
	ResolveWorkers   prometheus.Gauge
}

func NewCollector(animation float64, workers int) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		EdgesResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "animator_edges_resolved_total",
			Help: "Edges resolved into a route segment.",
		}, []string{"mode"}),
		EdgesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "animator_edges_skipped_total",
			Help: "Edges left out of the plan.",
		}, []string{"mode", "reason"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "animator_route_cache_lookups_total",
			Help: "Route cache lookups by result.",
		}, []string{"result"}),
		OracleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "animator_oracle_errors_total",
			Help: "Routing oracle calls that returned an error.",
		}, []string{"mode"}),
		RailLines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "animator_rail_lines",
			Help: "Rail lines in the most recently loaded network.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animator_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animator_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "animator_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		OracleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "animator_oracle_duration_seconds",
			Help:    "Duration of routing oracle calls.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"mode"}),
		PlanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "animator_plan_duration_seconds",
			Help:    "Duration of a full planning run.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "animator_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		AnimationSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "animator_animation_duration_seconds",
			Help: "Configured animation length.",
		}),
		ResolveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "animator_resolve_workers",
			Help: "Goroutines resolving edges.",
		}),
	}

	reg.MustRegister(
		c.EdgesResolved, c.EdgesSkipped, c.CacheLookups, c.OracleErrors, c.RailLines,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.OracleDuration, c.PlanDuration, c.PublishDuration,
		c.AnimationSeconds, c.ResolveWorkers,
	)

	c.AnimationSeconds.Set(animation)
	c.ResolveWorkers.Set(float64(workers))

	return c
}

func (c *Collector) EdgeResolved(mode string) { c.EdgesResolved.WithLabelValues(mode).Inc() }

func (c *Collector) EdgeSkipped(mode, reason string) {
	c.EdgesSkipped.WithLabelValues(mode, reason).Inc()
}

func (c *Collector) RailLinesLoaded(n int) { c.RailLines.Set(float64(n)) }

func (c *Collector) PlanBuilt(elapsed time.Duration, animation float64) {
	c.PlanDuration.Observe(elapsed.Seconds())
	c.AnimationSeconds.Set(animation)
}

func (c *Collector) CacheLookup(result string) { c.CacheLookups.WithLabelValues(result).Inc() }

func (c *Collector) ObserveOracle(mode string, d time.Duration, err error) {
	c.OracleDuration.WithLabelValues(mode).Observe(d.Seconds())
	if err != nil {
		c.OracleErrors.WithLabelValues(mode).Inc()
	}
}

func (c *Collector) NATSPublishedInc()              { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc()             { c.NATSPublishErrs.Inc() }
func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(logger *zap.Logger, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("addr", addr))
	return srv
}
