package pacer

import "fmt"

// Channel identifies an independent traffic class with its own bucket and
// limits. The set is fixed to the two surfaces the upstream API exposes;
// there is no dynamic registration.
type Channel string

const (
	// ChannelPublic covers the unauthenticated public endpoints.
	ChannelPublic Channel = "public"

	// ChannelPrivate covers the authenticated account endpoints.
	ChannelPrivate Channel = "private"
)

// Channels returns the fixed channel set in a stable order.
func Channels() []Channel {
	return []Channel{ChannelPublic, ChannelPrivate}
}

// Valid reports whether c names a recognized channel.
func (c Channel) Valid() bool {
	return c == ChannelPublic || c == ChannelPrivate
}

// ParseChannel converts a raw string from a system boundary (config file,
// CLI flag, HTTP path) into a Channel.
// Returns ErrInvalidChannel for anything outside the fixed set.
func ParseChannel(s string) (Channel, error) {
	c := Channel(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidChannel, s)
	}
	return c, nil
}
