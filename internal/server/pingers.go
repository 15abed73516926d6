package server

import "context"

// pingable is the minimal probe surface exposed by dependency clients.
type pingable interface {
	Ping(ctx context.Context) error
}

// namedPinger adapts a bare Ping method into the Pinger interface by
// attaching a label for readiness responses.
type namedPinger struct {
	name string
	p    pingable
}

// NamedPinger wraps p so it can be registered as a readiness probe under
// the given name.
func NamedPinger(name string, p pingable) Pinger {
	return &namedPinger{name: name, p: p}
}

func (n *namedPinger) Ping(ctx context.Context) error { return n.p.Ping(ctx) }

func (n *namedPinger) Name() string { return n.name }

// PingerFunc adapts a plain probe function into a Pinger. Useful for
// dependencies constructed lazily, where the client may not exist yet at
// registration time.
func PingerFunc(name string, fn func(ctx context.Context) error) Pinger {
	return &funcPinger{name: name, fn: fn}
}

type funcPinger struct {
	name string
	fn   func(ctx context.Context) error
}

func (f *funcPinger) Ping(ctx context.Context) error { return f.fn(ctx) }

func (f *funcPinger) Name() string { return f.name }
