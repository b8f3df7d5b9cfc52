package store

// Record is the persisted state of one participant.
//
// Resource is kept in half-units. Bounds are process-wide configuration and
// are enforced by the ledger, not by the store.
type Record struct {
	ID               string
	Resource         int
	LastEliminatedAt int64 // unix millis, 0 if never
	Wins             int
	Losses           int
	LastUpdated      int64 // unix millis, stamped by the ledger on flush
}

// NewRecord creates a fresh record at the given resource level.
func NewRecord(id string, resource int) Record {
	return Record{ID: id, Resource: resource}
}

// KDRatio returns wins per loss. With no losses the ratio is the win count.
func (r Record) KDRatio() float64 {
	if r.Losses == 0 {
		return float64(r.Wins)
	}
	return float64(r.Wins) / float64(r.Losses)
}

// options holds settings shared by all backends.
type options struct {
	defaultResource func() int
}

// Option configures a backend.
type Option func(*options)

// DefaultResourceLevel is used for records missing the resource field when no
// WithDefaultResource option is given.
const DefaultResourceLevel = 20

// WithDefaultResource sets the resolver used to fill a missing resource field.
// It is called on every decode so configuration reloads take effect.
func WithDefaultResource(fn func() int) Option {
	return func(o *options) {
		o.defaultResource = fn
	}
}

func buildOptions(opts []Option) options {
	o := options{
		defaultResource: func() int { return DefaultResourceLevel },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
