// Package convkey derives the canonical conversation identity tuple from a
// channel and two participant addresses, as used by the upsert engine
// (internal/repo) to keep a single conversation row per pair of
// participants regardless of which one initiated contact.
package convkey

import "github.com/tbourn/go-chat-backend/internal/normalize"

// Key is the canonical identity of a conversation: a normalized channel and
// a sorted pair of normalized participant addresses.
type Key struct {
	Channel      string
	ParticipantA string
	ParticipantB string
	Value        string
}

// Derive normalizes a and b for the given channel, sorts them
// lexicographically, and builds the "{channel}:{pa}<->{pb}" key. Derive is
// symmetric: Derive(channel, a, b) == Derive(channel, b, a).
func Derive(channel, a, b string) Key {
	na := normalize.Channel(channel, a)
	nb := normalize.Channel(channel, b)
	pa, pb := na, nb
	if pb < pa {
		pa, pb = pb, pa
	}
	return Key{
		Channel:      channel,
		ParticipantA: pa,
		ParticipantB: pb,
		Value:        channel + ":" + pa + "<->" + pb,
	}
}
