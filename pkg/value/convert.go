package value

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Of converts a Go value into a Value. Integers of every width become TypeInt,
// json.Number becomes TypeInt when it is integral and TypeFloat otherwise.
func Of(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Nil, nil
	case Value:
		return t, nil
	case bool:
		return NewBool(t), nil
	case int:
		return NewInt(int64(t)), nil
	case int8:
		return NewInt(int64(t)), nil
	case int16:
		return NewInt(int64(t)), nil
	case int32:
		return NewInt(int64(t)), nil
	case int64:
		return NewInt(t), nil
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return NewInt(int64(t)), nil
	case uint16:
		return NewInt(int64(t)), nil
	case uint32:
		return NewInt(int64(t)), nil
	case uint64:
		return fromUint(t)
	case float32:
		return NewFloat(float64(t)), nil
	case float64:
		return NewFloat(t), nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return NewInt(n), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Nil, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return NewFloat(f), nil
	case string:
		return NewString(t), nil
	case []byte:
		return NewString(string(t)), nil
	case time.Time:
		return NewTime(t), nil
	case uuid.UUID:
		return NewUUID(t), nil
	}

	return Nil, fmt.Errorf("unsupported value type %T", v)
}

// MustOf is Of for values known to be convertible. It panics on error.
func MustOf(v any) Value {
	val, err := Of(v)
	if err != nil {
		panic(err)
	}
	return val
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Nil, fmt.Errorf("unsigned value %d overflows int64", u)
	}
	return NewInt(int64(u)), nil
}
