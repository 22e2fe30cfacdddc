// Package providers implements the channel -> provider registry and the
// mock provider used for outbound dispatch fault injection, grounded on the
// reference implementation's provider registry and mock provider modules.
package providers

// Outcome is the result of a single dispatch attempt.
type Outcome string

const (
	Success     Outcome = "success"
	RateLimited Outcome = "rate_limited"
	Error       Outcome = "error"
	Timeout     Outcome = "timeout"
)

// OutboundMessage is the payload handed to a provider's Dispatch method.
type OutboundMessage struct {
	Channel        string
	From           string
	To             string
	Body           string
	Attachments    []string
	IdempotencyKey string
}

// FaultConfig carries the per-provider fault-injection percentages and an
// optional seed, mirroring internal/config.ProviderFaults without importing
// the config package (keeps providers dependency-free of config).
type FaultConfig struct {
	TimeoutPct    int
	ErrorPct      int
	RateLimitPct  int
	Seed          int64
	SeedSpecified bool
}

// Provider is the dynamic-dispatch surface: a closed set of concrete
// implementations (currently one, the mock), registered per channel.
type Provider interface {
	Name() string
	Dispatch(msg OutboundMessage, cfg FaultConfig) (name string, outcome Outcome)
}

// Registry maps a channel to its provider. sms and mms share the same
// provider instance (label "sms-mms"); email has its own.
type Registry struct {
	byChannel map[string]Provider
}

// NewRegistry builds the closed-set registry: sms and mms both route to
// smsMMS, email routes to email.
func NewRegistry(smsMMS, email Provider) *Registry {
	return &Registry{
		byChannel: map[string]Provider{
			"sms":   smsMMS,
			"mms":   smsMMS,
			"email": email,
		},
	}
}

// Lookup returns the provider registered for channel, or ok=false on a
// registry miss (the caller must increment invalid_routing and drop the
// event).
func (r *Registry) Lookup(channel string) (Provider, bool) {
	p, ok := r.byChannel[channel]
	return p, ok
}
