// Package grpckv serves a kvstore.Store over gRPC and implements
// kvstore.Store as a pooled client of such a server. The service is
// described at run time with protobuilder and its messages are handled as
// dynamic messages, so no generated code is involved.
package grpckv

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jhump/protoreflect/v2/protobuilder"
	"github.com/jhump/protoreflect/v2/protoprint"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	ProtoPackage = "typegraph.kv.v1"
	ServiceName  = ProtoPackage + ".KVService"
	protoPath    = "typegraph/kv/v1/kv.proto"
)

// schema holds the descriptors of the service and its messages.
type schema struct {
	file    protoreflect.FileDescriptor
	service protoreflect.ServiceDescriptor
	methods map[string]protoreflect.MethodDescriptor
}

var loadSchema = sync.OnceValues(buildSchema)

type fieldSpec struct {
	name     protoreflect.Name
	typ      *protobuilder.FieldType
	repeated bool
	comment  string
}

func message(name protoreflect.Name, comment string, fields ...fieldSpec) *protobuilder.MessageBuilder {
	mb := protobuilder.NewMessage(name)
	mb.SetComments(comments(comment))
	for i, f := range fields {
		fb := protobuilder.NewField(f.name, f.typ)
		fb.SetNumber(protoreflect.FieldNumber(i + 1))
		fb.SetComments(comments(f.comment))
		if f.repeated {
			fb.SetRepeated()
		}
		mb.AddField(fb)
	}
	return mb
}

func buildSchema() (*schema, error) {
	str := protobuilder.FieldTypeScalar(protoreflect.StringKind)

	entry := message("Entry", "A record stored under a key.",
		fieldSpec{name: "key", typ: str},
		fieldSpec{name: "record", typ: protobuilder.FieldTypeScalar(protoreflect.BytesKind), comment: "msgpack-encoded attribute map"},
	)
	getReq := message("GetRequest", "", fieldSpec{name: "keys", typ: str, repeated: true})
	getResp := message("GetResponse", "", fieldSpec{name: "entries", typ: protobuilder.FieldTypeMessage(entry), repeated: true, comment: "Present keys only."})
	putReq := message("PutRequest", "", fieldSpec{name: "entry", typ: protobuilder.FieldTypeMessage(entry)})
	putResp := message("PutResponse", "")
	delReq := message("DeleteRequest", "", fieldSpec{name: "key", typ: str})
	delResp := message("DeleteResponse", "", fieldSpec{name: "found", typ: protobuilder.FieldTypeScalar(protoreflect.BoolKind)})
	keysReq := message("KeysRequest", "", fieldSpec{name: "prefix", typ: str})
	keysResp := message("KeysResponse", "", fieldSpec{name: "keys", typ: str, repeated: true, comment: "Ascending."})

	svc := protobuilder.NewService("KVService")
	svc.SetComments(comments("KVService exposes a key-value store."))
	for _, m := range []struct {
		name      protoreflect.Name
		req, resp *protobuilder.MessageBuilder
	}{
		{"Get", getReq, getResp},
		{"Put", putReq, putResp},
		{"Delete", delReq, delResp},
		{"Keys", keysReq, keysResp},
	} {
		svc.AddMethod(protobuilder.NewMethod(m.name,
			protobuilder.RpcTypeMessage(m.req, false),
			protobuilder.RpcTypeMessage(m.resp, false),
		))
	}

	fb := protobuilder.NewFile(protoPath)
	fb.SetPackageName(ProtoPackage)
	fb.SetSyntax(protoreflect.Proto3)
	for _, mb := range []*protobuilder.MessageBuilder{entry, getReq, getResp, putReq, putResp, delReq, delResp, keysReq, keysResp} {
		fb.AddMessage(mb)
	}
	fb.AddService(svc)

	fd, err := fb.Build()
	if err != nil {
		return nil, fmt.Errorf("grpckv: build descriptors: %w", err)
	}
	s := &schema{
		file:    fd,
		service: fd.Services().ByName("KVService"),
		methods: make(map[string]protoreflect.MethodDescriptor),
	}
	methods := s.service.Methods()
	for i := 0; i < methods.Len(); i++ {
		m := methods.Get(i)
		s.methods[string(m.Name())] = m
	}
	return s, nil
}

func (s *schema) method(name string) protoreflect.MethodDescriptor { return s.methods[name] }

func fullMethod(md protoreflect.MethodDescriptor) string {
	return fmt.Sprintf("/%s/%s", md.Parent().FullName(), md.Name())
}

// FileDescriptor returns the descriptor of the service's proto file.
func FileDescriptor() (protoreflect.FileDescriptor, error) {
	s, err := loadSchema()
	if err != nil {
		return nil, err
	}
	return s.file, nil
}

// RenderProto writes the service definition in proto syntax to w.
func RenderProto(w io.Writer) error {
	fd, err := FileDescriptor()
	if err != nil {
		return err
	}
	pp := protoprint.Printer{}
	return pp.PrintProtoFile(fd, w)
}

func comments(desc string) protobuilder.Comments {
	if desc == "" {
		return protobuilder.Comments{}
	}
	lines := strings.Split(desc, "\n")
	for i, line := range lines {
		lines[i] = " " + line
	}
	return protobuilder.Comments{LeadingComment: strings.Join(lines, "\n") + "\n"}
}
