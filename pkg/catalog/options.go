package catalog

// Protocol defaults.
const (
	DefaultMaxPageSize   = 5000
	DefaultMaxPathLength = 1087
)

// Options are the only settings the catalog consumes.
type Options struct {
	// MaxPageSize is the row limit requested per GenQuery page.
	MaxPageSize int

	// MaxPathLength rejects longer paths before any round trip.
	MaxPathLength int

	// FallbackEnabled allows synthesized listings for unreadable roots.
	FallbackEnabled bool
}

// DefaultOptions returns the protocol defaults with fallback enabled.
func DefaultOptions() Options {
	return Options{
		MaxPageSize:     DefaultMaxPageSize,
		MaxPathLength:   DefaultMaxPathLength,
		FallbackEnabled: true,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = DefaultMaxPageSize
	}
	if o.MaxPathLength <= 0 {
		o.MaxPathLength = DefaultMaxPathLength
	}
	return o
}
