package scalar

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/typegraph/internal/value"
)

// Pattern: Serialize(ParseValue(x)) == x for canonical inputs
func TestRoundTrip(t *testing.T) {
	tests := []struct {
		scalar Type
		inputs []value.Value
	}{
		{Int, []value.Value{value.Int(0), value.Int(-7), value.Int(2147483647)}},
		{Float, []value.Value{value.Float(0.5), value.Float(-1e10)}},
		{String, []value.Value{value.String(""), value.String("héllo")}},
		{Boolean, []value.Value{value.Boolean(true), value.Boolean(false)}},
		{ID, []value.Value{value.String("abc"), value.String("42")}},
		{DateTime, []value.Value{value.String("2007-12-03T10:15:30Z"), value.String("2020-01-01T00:00:00+09:00")}},
		{UUID, []value.Value{value.String("6ba7b810-9dad-11d1-80b4-00c04fd430c8")}},
	}
	for _, tt := range tests {
		t.Run(tt.scalar.Name(), func(t *testing.T) {
			for _, in := range tt.inputs {
				parsed, err := tt.scalar.ParseValue(in)
				require.NoError(t, err)
				out, err := tt.scalar.Serialize(parsed)
				require.NoError(t, err)
				if diff := cmp.Diff(in, out); diff != "" {
					t.Errorf("round trip mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestParseValueRejects(t *testing.T) {
	tests := []struct {
		scalar Type
		in     value.Value
	}{
		{Int, value.Float(1.5)},
		{Int, value.String("1")},
		{Float, value.String("1.5")},
		{String, value.Int(1)},
		{Boolean, value.String("true")},
		{ID, value.Float(1.5)},
		{DateTime, value.String("yesterday")},
		{UUID, value.String("not-a-uuid")},
	}
	for _, tt := range tests {
		t.Run(tt.scalar.Name()+"/"+tt.in.String(), func(t *testing.T) {
			_, err := tt.scalar.ParseValue(tt.in)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestSerializeGoValues(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		scalar Type
		in     any
		want   value.Value
	}{
		{"int from int64", Int, int64(12), value.Int(12)},
		{"int from whole float", Int, float64(3), value.Int(3)},
		{"float from int", Float, 2, value.Float(2)},
		{"id from int", ID, 99, value.String("99")},
		{"id from uuid", ID, id, value.String(id.String())},
		{"datetime", DateTime, ts, value.String("2024-05-01T12:00:00Z")},
		{"uuid", UUID, id, value.String("6ba7b810-9dad-11d1-80b4-00c04fd430c8")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.scalar.Serialize(tt.in)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Serialize mismatch (-want +got):\n%s", diff)
			}
		})
	}

	_, err := Int.Serialize(int64(1) << 40)
	require.ErrorIs(t, err, ErrInvalid)
	_, err = Boolean.Serialize("yes")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestParseText(t *testing.T) {
	v, err := Int.ParseText("15")
	require.NoError(t, err)
	require.Equal(t, int32(15), v)

	v, err = Boolean.ParseText("true")
	require.NoError(t, err)
	require.Equal(t, true, v)

	_, err = Float.ParseText("x")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestByName(t *testing.T) {
	s, ok := ByName("DateTime")
	require.True(t, ok)
	require.Equal(t, "DateTime", s.Name())
	_, ok = ByName("Money")
	require.False(t, ok)
	require.True(t, IsBuiltin("ID"))
	require.False(t, IsBuiltin("UUID"))
}
