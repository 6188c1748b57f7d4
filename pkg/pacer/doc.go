// Package pacer provides pre-emptive client-side rate limiting for calls
// to the upstream API.
//
// # Overview
//
// The pacer sits between business logic and the network transport: every
// outbound call acquires admission before it is sent, so the client stays
// inside the upstream's published limits instead of reacting to rejections
// after the fact. Traffic is split across two fixed channels matching the
// upstream's surfaces:
//
//   - public: unauthenticated endpoints
//   - private: authenticated account endpoints
//
// Each channel owns a token bucket sized limit * burst multiplier and
// refilled at the sustained limit. Admission is blocking by default
// (Acquire sleeps until the bucket can cover the call) with a non-blocking
// probe variant (TryAcquire).
//
// # Usage
//
//	limiter, err := pacer.New(pacer.Config{
//	    PublicLimit:  15,
//	    PrivateLimit: 20,
//	})
//	if err != nil {
//	    return err
//	}
//
//	// Before each outbound call:
//	wait, err := limiter.Acquire(pacer.ChannelPublic, "ticker")
//	if err != nil {
//	    return err
//	}
//	// wait is how long pacing delayed this call.
//
// Statistics are exposed as snapshots (Stats, AllStats, EndpointStats) for
// polling by the metrics collector and the ops server; ShouldAlert flags a
// channel whose blocked share exceeds an alerting threshold.
//
// # Thread Safety
//
// All Limiter operations are safe for concurrent use. A single mutex
// serializes bucket and statistics mutation; admission sleeps happen
// outside the lock so one channel's backlog never delays the other.
package pacer
