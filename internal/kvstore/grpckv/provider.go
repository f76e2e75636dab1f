package grpckv

import (
	"context"
	"sync"
)

// EndpointProvider lists reachable endpoints (host:port) for a
// fully-qualified gRPC service name. Implementations may integrate with
// service discovery and must be safe for concurrent use.
type EndpointProvider interface {
	Endpoints(ctx context.Context, service string) ([]string, error)
}

// StaticEndpoints is a provider backed by an in-memory map keyed by
// service name.
type StaticEndpoints struct {
	mu   sync.RWMutex
	data map[string][]string
}

func NewStaticEndpoints(m map[string][]string) *StaticEndpoints {
	cp := make(map[string][]string, len(m))
	for k, v := range m {
		cp[k] = append([]string(nil), v...)
	}
	return &StaticEndpoints{data: cp}
}

// Set replaces the endpoints of service.
func (s *StaticEndpoints) Set(service string, endpoints []string) {
	s.mu.Lock()
	s.data[service] = append([]string(nil), endpoints...)
	s.mu.Unlock()
}

func (s *StaticEndpoints) Endpoints(_ context.Context, service string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.data[service]
	if len(arr) == 0 {
		return nil, ErrNoEndpoints
	}
	return append([]string(nil), arr...), nil
}
