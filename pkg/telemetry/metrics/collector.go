package metrics

import (
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/callisto/pkg/pacer"
)

// CollectorConfig holds collector construction parameters.
type CollectorConfig struct {
	// PollInterval is how often limiter statistics are sampled into the
	// channel gauges. Default: 10s
	PollInterval time.Duration

	// AlertThresholdPct is the utilization percentage above which a
	// channel is flagged as alerting. Default: 80
	AlertThresholdPct float64
}

// Collector publishes limiter state as Prometheus metrics.
//
// It owns a private registry and samples an injected *pacer.Limiter on an
// interval, mirroring each channel's snapshot into per-channel gauges. The
// admission-path instruments (see pacer.NewMetrics) should be registered on
// the same registry via Registry().
//
// Mirrored counters are exposed as gauges rather than Prometheus counters:
// ResetStats may zero them at any time, which a counter must never do.
type Collector struct {
	config   CollectorConfig
	registry *prometheus.Registry
	limiter  *pacer.Limiter
	logger   *slog.Logger

	tokens           *prometheus.GaugeVec
	capacity         *prometheus.GaugeVec
	refillRate       *prometheus.GaugeVec
	utilization      *prometheus.GaugeVec
	requests         *prometheus.GaugeVec
	blockedRequests  *prometheus.GaugeVec
	recentViolations *prometheus.GaugeVec
	avgWaitMs        *prometheus.GaugeVec
	maxWaitMs        *prometheus.GaugeVec
	alertActive      *prometheus.GaugeVec

	// alerting tracks the previous alert state per channel so threshold
	// crossings are logged once per transition. Touched only by poll.
	alerting map[pacer.Channel]bool

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewCollector creates a collector sampling the given limiter. All metrics
// are registered on a fresh private registry.
func NewCollector(limiter *pacer.Limiter, cfg CollectorConfig, logger *slog.Logger) *Collector {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.AlertThresholdPct <= 0 {
		cfg.AlertThresholdPct = 80.0
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Collector{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		limiter:  limiter,
		logger:   logger.With("component", "metrics.collector"),
		alerting: make(map[pacer.Channel]bool, 2),
		done:     make(chan struct{}),

		tokens:           newChannelGauge("tokens", "Tokens currently available in the channel bucket"),
		capacity:         newChannelGauge("capacity", "Maximum tokens the channel bucket can hold"),
		refillRate:       newChannelGauge("refill_rate", "Channel bucket refill rate in tokens per second"),
		utilization:      newChannelGauge("utilization_pct", "Percentage of channel requests that were throttled"),
		requests:         newChannelGauge("requests", "Requests admitted on the channel since the last stats reset"),
		blockedRequests:  newChannelGauge("blocked_requests", "Admissions that incurred a wait since the last stats reset"),
		recentViolations: newChannelGauge("recent_violations", "Throttle violations on the channel in the last 60 seconds"),
		avgWaitMs:        newChannelGauge("avg_wait_ms", "Average admission wait on the channel in milliseconds"),
		maxWaitMs:        newChannelGauge("max_wait_ms", "Largest admission wait on the channel in milliseconds"),
		alertActive:      newChannelGauge("alert_active", "1 when channel utilization exceeds the alert threshold"),
	}

	c.registry.MustRegister(
		c.tokens,
		c.capacity,
		c.refillRate,
		c.utilization,
		c.requests,
		c.blockedRequests,
		c.recentViolations,
		c.avgWaitMs,
		c.maxWaitMs,
		c.alertActive,
	)

	return c
}

func newChannelGauge(name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "callisto",
			Subsystem: "channel",
			Name:      name,
			Help:      help,
		},
		[]string{"channel"},
	)
}

// Registry returns the private registry so callers can register additional
// instruments next to the channel gauges. The admission-path instruments
// are usually created before the limiter on the default registry instead
// (pacer.NewMetrics(prometheus.DefaultRegisterer)); Handler gathers both.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Start launches the background sampling loop. The gauges are populated
// immediately, then refreshed every PollInterval.
func (c *Collector) Start() {
	c.wg.Add(1)
	go c.run()

	c.logger.Info("metrics collector started",
		"poll_interval", c.config.PollInterval,
		"alert_threshold_pct", c.config.AlertThresholdPct,
	)
}

// Stop stops the sampling loop. It is safe to call more than once.
func (c *Collector) Stop() {
	c.once.Do(func() {
		close(c.done)
	})
	c.wg.Wait()
}

func (c *Collector) run() {
	defer c.wg.Done()

	c.poll()

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.poll()
		case <-c.done:
			return
		}
	}
}

// poll copies one limiter snapshot into the gauges and logs alert-threshold
// transitions.
func (c *Collector) poll() {
	snap := c.limiter.AllStats()

	for channel, stats := range snap.Channels {
		name := string(channel)

		c.tokens.WithLabelValues(name).Set(stats.CurrentTokens)
		c.capacity.WithLabelValues(name).Set(stats.Capacity)
		c.refillRate.WithLabelValues(name).Set(stats.RefillRate)
		c.utilization.WithLabelValues(name).Set(stats.UtilizationPct)
		c.requests.WithLabelValues(name).Set(float64(stats.TotalRequests))
		c.blockedRequests.WithLabelValues(name).Set(float64(stats.BlockedRequests))
		c.recentViolations.WithLabelValues(name).Set(float64(stats.RecentViolations))
		c.avgWaitMs.WithLabelValues(name).Set(stats.AvgWaitTimeMs)
		c.maxWaitMs.WithLabelValues(name).Set(stats.MaxWaitTimeMs)

		alert, err := c.limiter.ShouldAlert(channel, c.config.AlertThresholdPct)
		if err != nil {
			continue
		}

		if alert {
			c.alertActive.WithLabelValues(name).Set(1)
		} else {
			c.alertActive.WithLabelValues(name).Set(0)
		}

		if alert != c.alerting[channel] {
			c.alerting[channel] = alert
			if alert {
				c.logger.Warn("channel utilization crossed alert threshold",
					"channel", name,
					"utilization_pct", stats.UtilizationPct,
					"threshold_pct", c.config.AlertThresholdPct,
				)
			} else {
				c.logger.Info("channel utilization recovered below alert threshold",
					"channel", name,
					"utilization_pct", stats.UtilizationPct,
				)
			}
		}
	}
}
