package grpckv

import (
	"errors"
	"time"

	"google.golang.org/grpc"
)

// ErrNoEndpoints indicates the provider returned no endpoints.
var ErrNoEndpoints = errors.New("grpckv: no endpoints available")

// Options configures the client.
//
// Defaults:
// - MaxConnsPerEndpoint: 2
// - RPCTimeout:          3s (used only if the incoming context has no deadline)
// - DialOptions:         insecure credentials
type Options struct {
	Provider EndpointProvider

	MaxConnsPerEndpoint int
	RPCTimeout          time.Duration

	DialOptions []grpc.DialOption
}

type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		MaxConnsPerEndpoint: 2,
		RPCTimeout:          3 * time.Second,
	}
}

func WithProvider(p EndpointProvider) Option { return func(o *Options) { o.Provider = p } }
func WithMaxConnsPerEndpoint(n int) Option   { return func(o *Options) { o.MaxConnsPerEndpoint = n } }
func WithRPCTimeout(d time.Duration) Option  { return func(o *Options) { o.RPCTimeout = d } }
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *Options) { o.DialOptions = opts }
}

// WithEndpoints is WithProvider with a fixed endpoint list for the service.
func WithEndpoints(endpoints ...string) Option {
	return WithProvider(NewStaticEndpoints(map[string][]string{ServiceName: endpoints}))
}
