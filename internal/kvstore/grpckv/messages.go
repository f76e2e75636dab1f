package grpckv

import (
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/hanpama/typegraph/internal/kvstore"
)

func field(m protoreflect.Message, name protoreflect.Name) protoreflect.FieldDescriptor {
	return m.Descriptor().Fields().ByName(name)
}

func setString(m protoreflect.Message, name protoreflect.Name, s string) {
	m.Set(field(m, name), protoreflect.ValueOfString(s))
}

func getString(m protoreflect.Message, name protoreflect.Name) string {
	return m.Get(field(m, name)).String()
}

func setStrings(m protoreflect.Message, name protoreflect.Name, items []string) {
	list := m.Mutable(field(m, name)).List()
	for _, s := range items {
		list.Append(protoreflect.ValueOfString(s))
	}
}

func getStrings(m protoreflect.Message, name protoreflect.Name) []string {
	list := m.Get(field(m, name)).List()
	out := make([]string, list.Len())
	for i := range out {
		out[i] = list.Get(i).String()
	}
	return out
}

// setEntry fills an Entry message.
func setEntry(entry protoreflect.Message, key string, rec kvstore.Record) error {
	data, err := kvstore.Encode(rec)
	if err != nil {
		return err
	}
	setString(entry, "key", key)
	entry.Set(field(entry, "record"), protoreflect.ValueOfBytes(data))
	return nil
}

func getEntry(entry protoreflect.Message) (string, kvstore.Record, error) {
	rec, err := kvstore.Decode(entry.Get(field(entry, "record")).Bytes())
	return getString(entry, "key"), rec, err
}
