package types

import (
	"context"
	"fmt"

	"github.com/hanpama/typegraph/internal/executor"
	"github.com/hanpama/typegraph/internal/meta"
	"github.com/hanpama/typegraph/internal/value"
)

// EnumInfo is the TypeInfo of Enum.
type EnumInfo struct {
	Name        string
	Description string
	Values      []EnumValueInfo
}

type EnumValueInfo struct {
	Name              string
	Description       string
	DeprecationReason string
}

// EnumValues lists plain enum values.
func EnumValues(names ...string) []EnumValueInfo {
	out := make([]EnumValueInfo, len(names))
	for i, n := range names {
		out[i] = EnumValueInfo{Name: n}
	}
	return out
}

// Enum is an enum capability shaped by its *EnumInfo. An empty Value
// resolves to null.
type Enum struct {
	Value string
}

func (Enum) TypeName(info any) string { return enumInfo(info).Name }

func (Enum) Meta(info any, _ *executor.Registry) *meta.Type {
	ei := enumInfo(info)
	mt := meta.NewType(ei.Name, meta.TypeKindEnum).SetDescription(ei.Description)
	for _, v := range ei.Values {
		mt.AddEnumValue(&meta.EnumValue{
			Name:              v.Name,
			Description:       v.Description,
			IsDeprecated:      v.DeprecationReason != "",
			DeprecationReason: v.DeprecationReason,
		})
	}
	return mt
}

func (e Enum) Resolve(_ context.Context, info any, _ *executor.FieldContext) (value.Value, error) {
	if e.Value == "" {
		return value.Null(), nil
	}
	for _, v := range enumInfo(info).Values {
		if v.Name == e.Value {
			return value.String(e.Value), nil
		}
	}
	return value.Null(), fmt.Errorf("enum %q has no value %q", enumInfo(info).Name, e.Value)
}

// enumInfo returns an empty definition for foreign info so the registry
// reports the missing name.
func enumInfo(info any) *EnumInfo {
	if ei, ok := info.(*EnumInfo); ok && ei != nil {
		return ei
	}
	return &EnumInfo{}
}
