// Package metrics publishes Callisto pacing state as Prometheus metrics.
//
// # Overview
//
// The Collector samples the limiter on a fixed interval and mirrors each
// channel's snapshot into per-channel gauges: bucket state (tokens,
// capacity, refill rate), admission counters, wait accounting, and an
// alert flag derived from the configured utilization threshold. Threshold
// crossings are additionally logged once per transition.
//
// # Registry Layout
//
// The Collector owns a private registry for its gauges. The admission-path
// instruments live in pkg/pacer and register wherever the caller points
// them, normally the default registry because the limiter is built before
// the collector:
//
//	pacerMetrics := pacer.NewMetrics(prometheus.DefaultRegisterer)
//	limiter, err := pacer.New(pacer.Config{ ... Metrics: pacerMetrics})
//	collector := metrics.NewCollector(limiter, metrics.CollectorConfig{
//		PollInterval:      cfg.Telemetry.Metrics.PollInterval,
//		AlertThresholdPct: cfg.Pacing.AlertThresholdPct,
//	}, logger)
//
// Handler() merges the private registry with the default gatherer so one
// scrape carries the gauges, the admission counters, and the process and
// Go runtime metrics.
//
// # Exposition
//
// All gauges are prefixed callisto_channel_ and labelled by channel:
//
//	# HELP callisto_channel_tokens Tokens currently available in the channel bucket
//	# TYPE callisto_channel_tokens gauge
//	callisto_channel_tokens{channel="public"} 17.4
//
// Mirrored counters (requests, blocked_requests) are exposed as gauges
// because a stats reset zeroes them, which a Prometheus counter must never
// do. The admission-path counters in pkg/pacer are monotonic and remain
// true counters.
package metrics
