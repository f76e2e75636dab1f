package grpckv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/events"
	"github.com/hanpama/typegraph/internal/kvstore"
)

// Server exposes a store as the KVService.
type Server struct {
	store  kvstore.Store
	schema *schema
}

// handler is the service's handler type for grpc.ServiceDesc.
type handler interface {
	handle(ctx context.Context, md protoreflect.MethodDescriptor, req *dynamicpb.Message) (*dynamicpb.Message, error)
}

func NewServer(store kvstore.Store) (*Server, error) {
	s, err := loadSchema()
	if err != nil {
		return nil, err
	}
	return &Server{store: store, schema: s}, nil
}

// Register adds the service to gs.
func (s *Server) Register(gs grpc.ServiceRegistrar) {
	desc := grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*handler)(nil),
		Metadata:    protoPath,
	}
	methods := s.schema.service.Methods()
	for i := 0; i < methods.Len(); i++ {
		md := methods.Get(i)
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: string(md.Name()),
			Handler:    unaryHandler(md),
		})
	}
	gs.RegisterService(&desc, s)
}

func unaryHandler(md protoreflect.MethodDescriptor) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := dynamicpb.NewMessage(md.Input())
		if err := dec(req); err != nil {
			return nil, err
		}
		h := func(ctx context.Context, r any) (any, error) {
			return srv.(handler).handle(ctx, md, r.(*dynamicpb.Message))
		}
		if interceptor == nil {
			return h(ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(md)}
		return interceptor(ctx, req, info, h)
	}
}

func (s *Server) handle(ctx context.Context, md protoreflect.MethodDescriptor, req *dynamicpb.Message) (*dynamicpb.Message, error) {
	start := time.Now()
	resp, err := s.dispatch(ctx, md, req)
	if err != nil {
		err = toStatus(err)
	}
	eventbus.Publish(ctx, events.GRPCServerFinish{
		Service:  string(md.Parent().FullName()),
		Method:   string(md.Name()),
		Code:     status.Code(err),
		Err:      err,
		Duration: time.Since(start),
	})
	return resp, err
}

func (s *Server) dispatch(ctx context.Context, md protoreflect.MethodDescriptor, req *dynamicpb.Message) (*dynamicpb.Message, error) {
	resp := dynamicpb.NewMessage(md.Output())
	switch md.Name() {
	case "Get":
		keys := getStrings(req, "keys")
		recs, err := s.store.GetMany(ctx, keys)
		if err != nil {
			return nil, err
		}
		entries := resp.Mutable(field(resp, "entries")).List()
		for i, rec := range recs {
			if rec == nil {
				continue
			}
			entry := entries.NewElement()
			if err := setEntry(entry.Message(), keys[i], rec); err != nil {
				return nil, err
			}
			entries.Append(entry)
		}
	case "Put":
		entryField := field(req, "entry")
		if !req.Has(entryField) {
			return nil, fmt.Errorf("%w: missing entry", kvstore.ErrInvalidKey)
		}
		key, rec, err := getEntry(req.Get(entryField).Message())
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		if err := s.store.Put(ctx, key, rec); err != nil {
			return nil, err
		}
	case "Delete":
		found, err := s.store.Delete(ctx, getString(req, "key"))
		if err != nil {
			return nil, err
		}
		resp.Set(field(resp, "found"), protoreflect.ValueOfBool(found))
	case "Keys":
		keys, err := s.store.Keys(ctx, getString(req, "prefix"))
		if err != nil {
			return nil, err
		}
		setStrings(resp, "keys", keys)
	default:
		return nil, status.Errorf(codes.Unimplemented, "method %s not implemented", md.Name())
	}
	return resp, nil
}

// toStatus maps store errors to gRPC status codes.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, kvstore.ErrInvalidKey):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, kvstore.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// fromStatus maps gRPC status codes back to store errors.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", kvstore.ErrNotFound, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", kvstore.ErrInvalidKey, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", context.DeadlineExceeded, st.Message())
	}
	return err
}
