package param

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/imskit/imstore/errs"
)

// DataType tags the declared type of a parameter value.
type DataType uint8

const (
	TypeInt      DataType = 0x1 // TypeInt represents a 64-bit signed integer.
	TypeDouble   DataType = 0x2 // TypeDouble represents a 64-bit float.
	TypeString   DataType = 0x3 // TypeString represents free-form text.
	TypeDateTime DataType = 0x4 // TypeDateTime represents an absolute timestamp.
)

func (t DataType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeDouble:
		return "double"
	case TypeString:
		return "string"
	case TypeDateTime:
		return "datetime"
	default:
		return "Unknown"
	}
}

// ParseDataType parses the persisted data-type token back into a DataType.
// Unrecognized tokens decode as TypeString, matching how older files treated
// types they did not know.
func ParseDataType(s string) DataType {
	switch s {
	case "int":
		return TypeInt
	case "double":
		return TypeDouble
	case "datetime":
		return TypeDateTime
	default:
		return TypeString
	}
}

// Value is a tagged parameter value. Exactly one representation is active,
// selected by Type(). The zero Value is an empty string.
type Value struct {
	typ DataType
	i   int64
	f   float64
	s   string
	t   time.Time
}

// Int64 creates an integer value.
func Int64(v int64) Value { return Value{typ: TypeInt, i: v} }

// Float64 creates a double value. NaN is a legal value and survives
// serialization as the literal token "NaN".
func Float64(v float64) Value { return Value{typ: TypeDouble, f: v} }

// String creates a string value.
func String(v string) Value { return Value{typ: TypeString, s: v} }

// Time creates a datetime value.
func Time(v time.Time) Value { return Value{typ: TypeDateTime, t: v} }

// Type returns the active representation tag.
func (v Value) Type() DataType { return v.typ }

// AsInt64 converts the value to an integer, parsing strings and truncating
// doubles. Datetimes convert to Unix nanoseconds.
func (v Value) AsInt64() (int64, error) {
	switch v.typ {
	case TypeInt:
		return v.i, nil
	case TypeDouble:
		if math.IsNaN(v.f) {
			return 0, fmt.Errorf("%w: NaN is not convertible to int", errs.ErrInvalidArgument)
		}

		return int64(v.f), nil
	case TypeString:
		n, err := strconv.ParseInt(v.s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an int", errs.ErrInvalidArgument, v.s)
		}

		return n, nil
	case TypeDateTime:
		return v.t.UnixNano(), nil
	default:
		return 0, fmt.Errorf("%w: unhandled data type %d", errs.ErrInvalidArgument, v.typ)
	}
}

// AsFloat64 converts the value to a double, parsing strings and widening ints.
func (v Value) AsFloat64() (float64, error) {
	switch v.typ {
	case TypeInt:
		return float64(v.i), nil
	case TypeDouble:
		return v.f, nil
	case TypeString:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a double", errs.ErrInvalidArgument, v.s)
		}

		return f, nil
	case TypeDateTime:
		return float64(v.t.UnixNano()), nil
	default:
		return 0, fmt.Errorf("%w: unhandled data type %d", errs.ErrInvalidArgument, v.typ)
	}
}

// AsTime converts the value to a timestamp. Strings parse as RFC 3339 and
// integers as Unix nanoseconds.
func (v Value) AsTime() (time.Time, error) {
	switch v.typ {
	case TypeDateTime:
		return v.t, nil
	case TypeString:
		t, err := time.Parse(time.RFC3339Nano, v.s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q is not a datetime", errs.ErrInvalidArgument, v.s)
		}

		return t, nil
	case TypeInt:
		return time.Unix(0, v.i).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("%w: data type %s is not convertible to datetime", errs.ErrInvalidArgument, v.typ)
	}
}

// Format serializes the value to its persisted text form.
//
// Doubles use the shortest round-trippable representation; NaN serializes to
// the literal token "NaN" rather than an empty or null value, so "parameter
// explicitly has an undefined numeric result" survives a round trip.
func (v Value) Format() string {
	switch v.typ {
	case TypeInt:
		return strconv.FormatInt(v.i, 10)
	case TypeDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TypeDateTime:
		return v.t.UTC().Format(time.RFC3339Nano)
	default:
		return v.s
	}
}

// Parse decodes a persisted text form into a Value of the declared type.
func Parse(typ DataType, s string) (Value, error) {
	switch typ {
	case TypeInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not an int", errs.ErrInvalidArgument, s)
		}

		return Int64(n), nil
	case TypeDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a double", errs.ErrInvalidArgument, s)
		}

		return Float64(f), nil
	case TypeDateTime:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a datetime", errs.ErrInvalidArgument, s)
		}

		return Time(t), nil
	case TypeString:
		return String(s), nil
	default:
		return Value{}, fmt.Errorf("%w: unhandled data type %d", errs.ErrInvalidArgument, typ)
	}
}

// Coerce converts the value to the declared type, returning an error when the
// conversion loses the "what kind of thing is this" distinction (for example a
// non-numeric string declared as int).
func (v Value) Coerce(typ DataType) (Value, error) {
	if v.typ == typ {
		return v, nil
	}

	switch typ {
	case TypeInt:
		n, err := v.AsInt64()
		if err != nil {
			return Value{}, err
		}

		return Int64(n), nil
	case TypeDouble:
		f, err := v.AsFloat64()
		if err != nil {
			return Value{}, err
		}

		return Float64(f), nil
	case TypeDateTime:
		t, err := v.AsTime()
		if err != nil {
			return Value{}, err
		}

		return Time(t), nil
	case TypeString:
		return String(v.Format()), nil
	default:
		return Value{}, fmt.Errorf("%w: unhandled data type %d", errs.ErrInvalidArgument, typ)
	}
}
