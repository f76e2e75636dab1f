// Package server serves a RootNode over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"google.golang.org/grpc/metadata"

	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/events"
	"github.com/hanpama/typegraph/internal/executor"
	"github.com/hanpama/typegraph/internal/reqid"
	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/value"
)

// Handler is an http.Handler that serves a GraphQL endpoint. The schema
// it serves can be replaced while requests are in flight; each request
// runs against the schema current when it arrived.
type Handler struct {
	root atomic.Pointer[schema.RootNode]
	opt  Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// MetadataHeaders lists HTTP headers forwarded as outgoing gRPC
	// metadata. Header names are case-insensitive. Default is none.
	MetadataHeaders []string
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithMetadataHeaders(headers ...string) Option {
	return func(o *Options) { o.MetadataHeaders = headers }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

var ErrNoSchema = errors.New("server: no schema")

// New creates a GraphQL HTTP handler serving root.
func New(root *schema.RootNode, opts ...Option) (*Handler, error) {
	if root == nil {
		return nil, ErrNoSchema
	}
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	h := &Handler{opt: op}
	h.root.Store(root)
	return h, nil
}

// Swap replaces the served schema and returns the previous one.
func (h *Handler) Swap(root *schema.RootNode) *schema.RootNode {
	return h.root.Swap(root)
}

// Root returns the schema currently served.
func (h *Handler) Root() *schema.RootNode { return h.root.Load() }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.WithID(ctx, r.Header.Get(reqid.Header))
	w.Header().Set(reqid.Header, rid)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, errorResponse("method not allowed"), h.opt.Pretty)
		return
	}

	if len(h.opt.MetadataHeaders) > 0 {
		ctx = forwardHeaders(ctx, r.Header, h.opt.MetadataHeaders)
	}

	req, batch, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		status = http.StatusBadRequest
		if berr == errBodyTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResponse(berr.Error()), h.opt.Pretty)
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	root := h.root.Load()
	if batch != nil {
		results := make([]*executor.ExecutionResult, len(batch))
		for i := range batch {
			results[i] = root.ExecuteRequest(ctx, batch[i])
		}
		writeJSON(w, status, results, h.opt.Pretty)
		return
	}

	writeJSON(w, status, root.ExecuteRequest(ctx, req), h.opt.Pretty)
}

func forwardHeaders(ctx context.Context, header http.Header, names []string) context.Context {
	allowed := make(map[string]struct{}, len(names))
	for _, hdr := range names {
		allowed[strings.ToLower(hdr)] = struct{}{}
	}
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	for k, v := range header {
		if _, ok := allowed[strings.ToLower(k)]; ok {
			md.Set(k, v...)
		}
	}
	return metadata.NewOutgoingContext(ctx, md)
}

// ------------------ Request parsing ------------------

var (
	errBodyTooLarge       = errors.New("body too large")
	errMissingQuery       = errors.New("missing 'query'")
	errInvalidJSON        = errors.New("invalid JSON")
	errInvalidVariables   = errors.New("invalid 'variables' JSON")
	errEmptyBatch         = errors.New("empty batch")
	errUnsupportedContent = errors.New("unsupported Content-Type")
)

func parseRequest(r *http.Request, maxBody int64) (schema.Request, []schema.Request, error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return schema.Request{}, nil, errMissingQuery
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return schema.Request{}, nil, errInvalidVariables
			}
		}
		op := r.URL.Query().Get("operationName")
		return schema.Request{Query: q, Variables: vars, OperationName: op}, nil, nil
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return schema.Request{}, nil, errUnsupportedContent
	}
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return schema.Request{}, nil, err
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return schema.Request{}, nil, errBodyTooLarge
	}

	if len(body) > 0 && body[0] == '[' {
		var arr []schema.Request
		if err := json.Unmarshal(body, &arr); err != nil {
			return schema.Request{}, nil, errInvalidJSON
		}
		if len(arr) == 0 {
			return schema.Request{}, nil, errEmptyBatch
		}
		return schema.Request{}, arr, nil
	}
	var req schema.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return schema.Request{}, nil, errInvalidJSON
	}
	if req.Query == "" {
		return schema.Request{}, nil, errMissingQuery
	}
	return req, nil, nil
}

// ------------------ Response formatting ------------------

func errorResponse(message string) *executor.ExecutionResult {
	return &executor.ExecutionResult{
		Data:   value.Null(),
		Errors: []*executor.ExecutionError{{Message: message}},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	wildcard := false
	allowed := false
	for _, o := range opts.AllowedOrigins {
		wildcard = wildcard || o == "*"
		allowed = allowed || o == "*" || o == origin
	}
	if !allowed {
		return
	}
	if wildcard {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}
