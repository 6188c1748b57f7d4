// Package transport provides the paced HTTP client for the upstream API.
//
// Every request acquires admission from the channel's token bucket before
// it reaches the wire, so a process that talks to the upstream only
// through this client cannot exceed the configured channel rates. The
// admission wait is recorded on the call span and stamped on the request
// as X-Callisto-Pacing-Wait; X-Callisto-Request-Id carries a UUID that
// stays stable across retries.
//
//	client, err := transport.New(cfg.Transport, limiter, tracer, logger)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	resp, err := client.Get(ctx, pacer.ChannelPublic, "/ticker")
//
// Retries cover 5xx responses and connection errors with exponential
// backoff; 4xx responses return immediately as typed errors (AuthError,
// RateLimitError, UpstreamError). A 429 from the upstream means the
// configured limits exceed what the venue allows; it is logged with the
// advertised Retry-After and surfaced, never retried.
//
// Consecutive failures past transport.unhealthy_threshold flip the client
// unhealthy; CheckHealth plugs into the readiness checker and the state
// recovers on the next successful request.
package transport
