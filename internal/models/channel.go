// Package models defines data structures used throughout the application.
package models

// Channel identifies an outbound delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
)

// SupportedChannels lists every channel the engine knows how to route.
var SupportedChannels = []Channel{ChannelEmail, ChannelChat}

// Valid reports whether c is a supported channel value.
func (c Channel) Valid() bool {
	for _, s := range SupportedChannels {
		if c == s {
			return true
		}
	}
	return false
}
