// Package value holds the scalar values stored in rows and used as predicate
// operands. Values of different numeric types compare numerically and every
// pair of values has a defined order, so sorting and range checks never see an
// incomparable pair.
package value

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Type int

const (
	TypeNil Type = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeTime
	TypeUUID
)

func (t Type) String() string {
	switch t {
	case TypeNil:
		return "nil"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeTime:
		return "time"
	case TypeUUID:
		return "uuid"
	}

	return fmt.Sprintf("type(%d)", t)
}

func (t Type) isNumeric() bool {
	return t == TypeInt || t == TypeFloat
}

// Value is a tagged scalar. Only the member selected by Type is meaningful.
type Value struct {
	Type Type
	N    int64
	F    float64
	S    string
	B    bool
	T    time.Time
	U    uuid.UUID
}

var Nil = Value{Type: TypeNil}

func NewInt(n int64) Value {
	return Value{Type: TypeInt, N: n}
}

func NewFloat(f float64) Value {
	return Value{Type: TypeFloat, F: f}
}

func NewString(s string) Value {
	return Value{Type: TypeString, S: s}
}

func NewBool(b bool) Value {
	return Value{Type: TypeBool, B: b}
}

func NewTime(t time.Time) Value {
	return Value{Type: TypeTime, T: t.UTC()}
}

func NewUUID(u uuid.UUID) Value {
	return Value{Type: TypeUUID, U: u}
}

func (v Value) IsNil() bool {
	return v.Type == TypeNil
}

// Equals reports whether Compare(v, other) == 0.
func (v Value) Equals(other Value) bool {
	return Compare(v, other) == 0
}

// Compare returns -1, 0 or 1. Nil sorts before every other value, ints and
// floats compare numerically, and values of otherwise different types order by
// their type. NaN sorts before every other float.
func Compare(a, b Value) int {
	if a.Type.isNumeric() && b.Type.isNumeric() {
		switch {
		case a.Type == TypeInt && b.Type == TypeInt:
			return cmpOrdered(a.N, b.N)
		case a.Type == TypeInt:
			return cmpIntFloat(a.N, b.F)
		case b.Type == TypeInt:
			return -cmpIntFloat(b.N, a.F)
		}
		return cmpFloat(a.F, b.F)
	}

	if a.Type != b.Type {
		return cmpOrdered(a.Type, b.Type)
	}

	switch a.Type {
	case TypeNil:
		return 0
	case TypeBool:
		if a.B == b.B {
			return 0
		}
		if !a.B {
			return -1
		}
		return 1
	case TypeString:
		return cmpOrdered(a.S, b.S)
	case TypeTime:
		return a.T.Compare(b.T)
	case TypeUUID:
		return bytes.Compare(a.U[:], b.U[:])
	}

	return 0
}

func cmpOrdered[T int64 | string | Type](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// cmpIntFloat compares n and f exactly. Converting n to float64 would round
// above 2^53 and make the order non-transitive.
func cmpIntFloat(n int64, f float64) int {
	switch {
	case math.IsNaN(f):
		return 1
	case f >= 1<<63:
		return -1
	case f < -(1 << 63):
		return 1
	}

	whole := math.Trunc(f)
	if c := cmpOrdered(n, int64(whole)); c != 0 {
		return c
	}
	switch frac := f - whole; {
	case frac > 0:
		return -1
	case frac < 0:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (v Value) String() string {
	switch v.Type {
	case TypeNil:
		return "nil"
	case TypeBool:
		return strconv.FormatBool(v.B)
	case TypeInt:
		return strconv.FormatInt(v.N, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case TypeString:
		return strconv.Quote(v.S)
	case TypeTime:
		return v.T.Format(time.RFC3339Nano)
	case TypeUUID:
		return v.U.String()
	}

	return fmt.Sprintf("value(%d)", v.Type)
}

// Interface returns the Go value held by v.
func (v Value) Interface() any {
	switch v.Type {
	case TypeBool:
		return v.B
	case TypeInt:
		return v.N
	case TypeFloat:
		return v.F
	case TypeString:
		return v.S
	case TypeTime:
		return v.T
	case TypeUUID:
		return v.U
	}
	return nil
}
