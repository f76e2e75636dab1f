package grpckv

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/events"
	"github.com/hanpama/typegraph/internal/kvstore"
	"github.com/hanpama/typegraph/internal/reqid"
)

var errClientClosed = errors.New("grpckv: client closed")

// Client is a kvstore.Store backed by a remote KVService. Connections are
// pooled per endpoint and deadlines are propagated.
type Client struct {
	opts   *Options
	schema *schema

	mu     sync.RWMutex
	pools  map[string]*connPool // key: endpoint
	closed atomic.Bool
}

var _ kvstore.Store = (*Client)(nil)

func NewClient(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	if o.Provider == nil {
		return nil, errors.New("grpckv: provider not configured")
	}
	if len(o.DialOptions) == 0 {
		o.DialOptions = []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithConnectParams(grpc.ConnectParams{Backoff: backoff.DefaultConfig}),
		}
	}
	s, err := loadSchema()
	if err != nil {
		return nil, err
	}
	return &Client{
		opts:   o,
		schema: s,
		pools:  make(map[string]*connPool),
	}, nil
}

func (c *Client) Get(ctx context.Context, key string) (kvstore.Record, error) {
	recs, err := c.GetMany(ctx, []string{key})
	if err != nil {
		return nil, err
	}
	if recs[0] == nil {
		return nil, fmt.Errorf("%w: %q", kvstore.ErrNotFound, key)
	}
	return recs[0], nil
}

func (c *Client) GetMany(ctx context.Context, keys []string) ([]kvstore.Record, error) {
	md := c.schema.method("Get")
	req := dynamicpb.NewMessage(md.Input())
	setStrings(req, "keys", keys)
	resp, err := c.call(ctx, md, req)
	if err != nil {
		return nil, err
	}
	found := make(map[string]kvstore.Record)
	entries := resp.Get(field(resp, "entries")).List()
	for i := 0; i < entries.Len(); i++ {
		key, rec, err := getEntry(entries.Get(i).Message())
		if err != nil {
			return nil, err
		}
		found[key] = rec
	}
	out := make([]kvstore.Record, len(keys))
	for i, k := range keys {
		out[i] = found[k].Clone()
	}
	return out, nil
}

func (c *Client) Put(ctx context.Context, key string, rec kvstore.Record) error {
	if err := kvstore.CheckKey(key); err != nil {
		return err
	}
	md := c.schema.method("Put")
	req := dynamicpb.NewMessage(md.Input())
	if err := setEntry(req.Mutable(field(req, "entry")).Message(), key, rec); err != nil {
		return err
	}
	_, err := c.call(ctx, md, req)
	return err
}

func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	md := c.schema.method("Delete")
	req := dynamicpb.NewMessage(md.Input())
	setString(req, "key", key)
	resp, err := c.call(ctx, md, req)
	if err != nil {
		return false, err
	}
	return resp.Get(field(resp, "found")).Bool(), nil
}

func (c *Client) Keys(ctx context.Context, prefix string) ([]string, error) {
	md := c.schema.method("Keys")
	req := dynamicpb.NewMessage(md.Input())
	setString(req, "prefix", prefix)
	resp, err := c.call(ctx, md, req)
	if err != nil {
		return nil, err
	}
	return getStrings(resp, "keys"), nil
}

func (c *Client) call(ctx context.Context, md protoreflect.MethodDescriptor, req *dynamicpb.Message) (*dynamicpb.Message, error) {
	if c.closed.Load() {
		return nil, errClientClosed
	}
	service := string(md.Parent().FullName())

	if _, ok := ctx.Deadline(); !ok && c.opts.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RPCTimeout)
		defer cancel()
	}
	if id, ok := reqid.FromContext(ctx); ok {
		ctx = metadata.AppendToOutgoingContext(ctx, reqid.Header, id)
	}

	endpoints, err := c.opts.Provider.Endpoints(ctx, service)
	if err != nil {
		return nil, err
	}
	endpoint := endpoints[rand.IntN(len(endpoints))]

	cc, err := c.getConn(endpoint)
	if err != nil {
		return nil, err
	}
	defer c.returnConn(endpoint, cc)

	start := time.Now()
	eventbus.Publish(ctx, events.GRPCClientStart{Service: service, Method: string(md.Name()), Target: endpoint})
	resp := dynamicpb.NewMessage(md.Output())
	err = cc.Invoke(ctx, fullMethod(md), req, resp)
	eventbus.Publish(ctx, events.GRPCClientFinish{
		Service:  service,
		Method:   string(md.Name()),
		Target:   endpoint,
		Code:     status.Code(err),
		Err:      err,
		Duration: time.Since(start),
	})
	if err != nil {
		return nil, fromStatus(err)
	}
	return resp, nil
}

func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pools {
		p.close()
	}
	c.pools = map[string]*connPool{}
	return nil
}

type connPool struct {
	endpoint string
	opts     *Options
	conns    chan *grpc.ClientConn
	closed   atomic.Bool
}

func newConnPool(endpoint string, opts *Options) *connPool {
	n := opts.MaxConnsPerEndpoint
	if n <= 0 {
		n = 2
	}
	return &connPool{
		endpoint: endpoint,
		opts:     opts,
		conns:    make(chan *grpc.ClientConn, n),
	}
}

func (p *connPool) get() (*grpc.ClientConn, error) {
	if p.closed.Load() {
		return nil, errClientClosed
	}
	select {
	case cc := <-p.conns:
		return cc, nil
	default:
		return grpc.NewClient(p.endpoint, p.opts.DialOptions...)
	}
}

func (p *connPool) put(cc *grpc.ClientConn) {
	if p.closed.Load() {
		_ = cc.Close()
		return
	}
	select {
	case p.conns <- cc:
	default:
		_ = cc.Close()
	}
}

func (p *connPool) close() {
	if p.closed.Swap(true) {
		return
	}
	for {
		select {
		case cc := <-p.conns:
			_ = cc.Close()
		default:
			return
		}
	}
}

func (c *Client) getConn(endpoint string) (*grpc.ClientConn, error) {
	c.mu.RLock()
	pool := c.pools[endpoint]
	c.mu.RUnlock()
	if pool == nil {
		c.mu.Lock()
		pool = c.pools[endpoint]
		if pool == nil {
			pool = newConnPool(endpoint, c.opts)
			c.pools[endpoint] = pool
		}
		c.mu.Unlock()
	}
	return pool.get()
}

func (c *Client) returnConn(endpoint string, cc *grpc.ClientConn) {
	c.mu.RLock()
	pool := c.pools[endpoint]
	c.mu.RUnlock()
	if pool != nil {
		pool.put(cc)
		return
	}
	_ = cc.Close()
}
