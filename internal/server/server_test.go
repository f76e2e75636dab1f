package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/hanpama/typegraph/internal/executor"
	"github.com/hanpama/typegraph/internal/reqid"
	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/types"
)

type captured struct {
	md  metadata.MD
	rid string
}

func helloRoot(t *testing.T, greeting string, seen *captured) *schema.RootNode {
	t.Helper()
	query := &types.ObjectDef{Name: "Query", Fields: []*types.FieldDef{
		{
			Name: "hello",
			Type: types.StringType,
			Args: []*types.ArgDef{{Name: "name", Type: types.StringType}},
			Resolve: func(ctx context.Context, _ any, args executor.Arguments, _ *executor.FieldContext) (executor.Type, error) {
				if seen != nil {
					seen.md, _ = metadata.FromOutgoingContext(ctx)
					seen.rid, _ = reqid.FromContext(ctx)
				}
				name, ok := args.String("name")
				if !ok {
					name = "world"
				}
				return types.String(greeting + " " + name), nil
			},
		},
		{
			Name: "broken",
			Type: types.StringType,
			Resolve: func(context.Context, any, executor.Arguments, *executor.FieldContext) (executor.Type, error) {
				return nil, errors.New("boom")
			},
		},
		{
			Name:  "slow",
			Type:  types.StringType,
			Async: true,
			Resolve: func(ctx context.Context, _ any, _ executor.Arguments, _ *executor.FieldContext) (executor.Type, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		},
	}}
	root, err := schema.NewWithInfo(types.Object{}, nil, nil, query, nil, nil)
	require.NoError(t, err)
	return root
}

func newTestHandler(t *testing.T, seen *captured, opts ...Option) *Handler {
	t.Helper()
	h, err := New(helloRoot(t, "hello", seen), opts...)
	require.NoError(t, err)
	return h
}

func post(h http.Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// Pattern: Result comparison
func TestResponses(t *testing.T) {
	h := newTestHandler(t, nil)

	tests := []struct {
		name   string
		method string
		body   string
		target string
		status int
		want   string
		prefix string
	}{
		{
			name:   "post",
			method: "POST",
			body:   `{"query":"query($n: String) { hello(name: $n) }","variables":{"n":"Ann"}}`,
			status: http.StatusOK,
			want:   `{"data":{"hello":"hello Ann"}}`,
		},
		{
			name:   "get",
			method: "GET",
			target: "/?query=" + url.QueryEscape(`{ hello }`),
			status: http.StatusOK,
			want:   `{"data":{"hello":"hello world"}}`,
		},
		{
			name:   "batch",
			method: "POST",
			body:   `[{"query":"{ hello }"},{"query":"{ hello(name: \"Bo\") }"}]`,
			status: http.StatusOK,
			want:   `[{"data":{"hello":"hello world"}},{"data":{"hello":"hello Bo"}}]`,
		},
		{
			name:   "partial data",
			method: "POST",
			body:   `{"query":"{ hello broken }"}`,
			status: http.StatusOK,
			prefix: `{"data":{"hello":"hello world","broken":null},"errors":[{"message":"boom",`,
		},
		{
			name:   "validation",
			method: "POST",
			body:   `{"query":"{ nope }"}`,
			status: http.StatusOK,
			prefix: `{"data":null,"errors":[{"message":"Cannot query field \"nope\" on type \"Query\".",`,
		},
		{
			name:   "invalid json",
			method: "POST",
			body:   `{`,
			status: http.StatusBadRequest,
			want:   `{"data":null,"errors":[{"message":"invalid JSON"}]}`,
		},
		{
			name:   "empty batch",
			method: "POST",
			body:   `[]`,
			status: http.StatusBadRequest,
			want:   `{"data":null,"errors":[{"message":"empty batch"}]}`,
		},
		{
			name:   "method",
			method: "PUT",
			status: http.StatusMethodNotAllowed,
			want:   `{"data":null,"errors":[{"message":"method not allowed"}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := tt.target
			if target == "" {
				target = "/"
			}
			req := httptest.NewRequest(tt.method, target, bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			require.Equal(t, tt.status, w.Code)
			if tt.prefix != "" {
				require.True(t, strings.HasPrefix(w.Body.String(), tt.prefix), w.Body.String())
				return
			}
			require.JSONEq(t, tt.want, w.Body.String())
		})
	}
}

func TestForwardedHeaders(t *testing.T) {
	var seen captured
	h := newTestHandler(t, &seen, WithMetadataHeaders("X-Test"))

	w := post(h, `{"query":"{ hello }"}`, map[string]string{"X-Test": "abc", "X-Other": "nope"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"abc"}, seen.md.Get("x-test"))
	require.Empty(t, seen.md.Get("x-other"))
}

func TestForwardedHeadersDefaultEmpty(t *testing.T) {
	var seen captured
	h := newTestHandler(t, &seen)

	w := post(h, `{"query":"{ hello }"}`, map[string]string{"X-Test": "abc"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, seen.md)
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, nil, WithCORS("*"))

	w := post(h, `{"query":"{ hello }"}`, map[string]string{"Origin": "http://example.com"})
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	pre := httptest.NewRequest("OPTIONS", "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	require.Equal(t, http.StatusNoContent, pw.Code)
	require.Equal(t, "*", pw.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Test", pw.Header().Get("Access-Control-Allow-Headers"))

	listed := newTestHandler(t, nil, WithCORS("http://a.example"))
	w = post(listed, `{"query":"{ hello }"}`, map[string]string{"Origin": "http://a.example"})
	require.Equal(t, "http://a.example", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", w.Header().Get("Vary"))
	w = post(listed, `{"query":"{ hello }"}`, map[string]string{"Origin": "http://b.example"})
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, nil, WithMaxBodyBytes(10))
	w := post(h, `{"query":"1234567890"}`, nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRequestID(t *testing.T) {
	var seen captured
	h := newTestHandler(t, &seen)

	w := post(h, `{"query":"{ hello }"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, seen.rid)
	require.Equal(t, seen.rid, w.Header().Get(reqid.Header))

	const incoming = "6f1c2b9e-3a4d-4e5f-8a7b-9c0d1e2f3a4b"
	w = post(h, `{"query":"{ hello }"}`, map[string]string{reqid.Header: incoming})
	require.Equal(t, incoming, seen.rid)
	require.Equal(t, incoming, w.Header().Get(reqid.Header))

	w = post(h, `{"query":"{ hello }"}`, map[string]string{reqid.Header: "not-a-uuid"})
	require.NotEqual(t, "not-a-uuid", seen.rid)
	require.Equal(t, seen.rid, w.Header().Get(reqid.Header))
}

func TestTimeout(t *testing.T) {
	h := newTestHandler(t, nil, WithTimeout(20*time.Millisecond))
	w := post(h, `{"query":"{ slow }"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":null,"errors":[{"message":"request cancelled: context deadline exceeded"}]}`, w.Body.String())
}

// Pattern: requests after Swap see the new schema
func TestSwap(t *testing.T) {
	h := newTestHandler(t, nil)
	old := h.Root()

	prev := h.Swap(helloRoot(t, "hi", nil))
	require.Same(t, old, prev)

	w := post(h, `{"query":"{ hello }"}`, nil)
	if diff := cmp.Diff(`{"data":{"hello":"hi world"}}`+"\n", w.Body.String()); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}

	_, err := New(nil)
	require.ErrorIs(t, err, ErrNoSchema)
}
