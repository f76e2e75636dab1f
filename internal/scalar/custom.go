package scalar

import (
	"time"

	"github.com/google/uuid"

	"github.com/hanpama/typegraph/internal/value"
)

var (
	// DateTime is an RFC 3339 timestamp backed by time.Time.
	DateTime Type = dateTimeScalar{}
	// UUID is an RFC 4122 identifier backed by uuid.UUID.
	UUID Type = uuidScalar{}
)

type dateTimeScalar struct{}

func (dateTimeScalar) Name() string { return "DateTime" }
func (dateTimeScalar) Description() string {
	return "A date-time string at UTC offset, such as 2007-12-03T10:15:30Z."
}
func (dateTimeScalar) SpecifiedByURL() string {
	return "https://scalars.graphql.org/andimarek/date-time"
}

func (d dateTimeScalar) ParseValue(v value.Value) (any, error) {
	s, ok := v.AsString()
	if !ok {
		return nil, invalid("DateTime", v)
	}
	return d.ParseText(s)
}

func (dateTimeScalar) Serialize(v any) (value.Value, error) {
	switch x := v.(type) {
	case time.Time:
		return value.String(x.Format(time.RFC3339Nano)), nil
	case *time.Time:
		if x == nil {
			return value.Null(), nil
		}
		return value.String(x.Format(time.RFC3339Nano)), nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, x)
		if err != nil {
			return value.Null(), invalid("DateTime", x)
		}
		return value.String(t.Format(time.RFC3339Nano)), nil
	case value.Value:
		if s, ok := x.AsString(); ok {
			if _, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return x, nil
			}
		}
	}
	return value.Null(), invalid("DateTime", v)
}

// ParseText keeps the textual form's precision so serialization of the
// parsed time reproduces canonical input.
func (dateTimeScalar) ParseText(s string) (any, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, invalid("DateTime", s)
	}
	return t, nil
}

type uuidScalar struct{}

func (uuidScalar) Name() string           { return "UUID" }
func (uuidScalar) Description() string    { return "A universally unique identifier in its canonical textual form." }
func (uuidScalar) SpecifiedByURL() string { return "https://tools.ietf.org/html/rfc4122" }

func (u uuidScalar) ParseValue(v value.Value) (any, error) {
	s, ok := v.AsString()
	if !ok {
		return nil, invalid("UUID", v)
	}
	return u.ParseText(s)
}

func (uuidScalar) Serialize(v any) (value.Value, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return value.String(x.String()), nil
	case string:
		id, err := uuid.Parse(x)
		if err != nil {
			return value.Null(), invalid("UUID", x)
		}
		return value.String(id.String()), nil
	case value.Value:
		if s, ok := x.AsString(); ok {
			if id, err := uuid.Parse(s); err == nil {
				return value.String(id.String()), nil
			}
		}
	}
	return value.Null(), invalid("UUID", v)
}

func (uuidScalar) ParseText(s string) (any, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, invalid("UUID", s)
	}
	return id, nil
}
